package auth

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func loginServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]string) {
	t.Helper()
	got := map[string]string{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, &got
}

// --- Login tests ---

func TestLogin_ForwardsCredentials(t *testing.T) {
	ts, got := loginServer(t, http.StatusOK, `{"message":"Welcome back","token":"tok-123"}`)

	res, err := NewClient(ts.URL, 5*time.Second).Login(context.Background(), "a@b.co", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"email": "a@b.co", "password": "hunter2"}, *got)
	assert.Equal(t, "tok-123", res.Token)
	assert.Equal(t, "Welcome back", res.Message)
}

func TestLogin_AccessTokenFallback(t *testing.T) {
	ts, _ := loginServer(t, http.StatusOK, `{"access_token":"tok-456"}`)

	res, err := NewClient(ts.URL, 5*time.Second).Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-456", res.Token)
	assert.Equal(t, "User logged in successfully", res.Message)
}

func TestLogin_TokenPreferredOverAccessToken(t *testing.T) {
	ts, _ := loginServer(t, http.StatusOK, `{"token":"primary","access_token":"secondary"}`)

	res, err := NewClient(ts.URL, 5*time.Second).Login(context.Background(), "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "primary", res.Token)
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr error
	}{
		{"server message", http.StatusUnauthorized, `{"message":"Wrong password"}`, "Wrong password", ErrInvalidCredentials},
		{"error field", http.StatusBadRequest, `{"error":"email required"}`, "email required", ErrInvalidCredentials},
		{"no message", http.StatusUnauthorized, `{}`, "Invalid credentials, please try again.", ErrInvalidCredentials},
		{"html body", http.StatusForbidden, `<html>denied</html>`, "Invalid credentials, please try again.", ErrInvalidCredentials},
		{"server error", http.StatusInternalServerError, `{"message":"db down"}`, "db down", ErrLoginUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := loginServer(t, tt.status, tt.body)

			_, err := NewClient(ts.URL, 5*time.Second).Login(context.Background(), "a@b.co", "pw")
			require.Error(t, err)

			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.status, authErr.Status)
			assert.Equal(t, tt.wantMsg, authErr.Message)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_SuccessWithoutToken(t *testing.T) {
	ts, _ := loginServer(t, http.StatusOK, `{"message":"ok"}`)

	_, err := NewClient(ts.URL, 5*time.Second).Login(context.Background(), "a@b.co", "pw")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLogin_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = NewClient("http://"+addr+"/api/users/login", 2*time.Second).Login(context.Background(), "a@b.co", "pw")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Zero(t, authErr.Status)
	assert.Equal(t, "Invalid credentials, please try again.", authErr.Message)
	assert.ErrorIs(t, err, ErrLoginUnavailable)
}
