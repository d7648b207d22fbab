package analyzer

import (
	"context"
	"errors"
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

const shirtResponse = `{
	"image_url": "https://example.com/shirt.jpg",
	"colors": [{"hex": "#112233", "percentage": 0.625}],
	"predictions": {"pattern": {"predicted": "striped"}, "style": {"predicted": "casual"}}
}`

func analyzerServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func respondWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr + "/analyze"
}

// --- Analyze tests ---

func TestAnalyze_SendsImageURL(t *testing.T) {
	var gotBody map[string]any
	ts := analyzerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(raw, &gotBody))
		respondWith(http.StatusOK, shirtResponse)(w, r)
	})

	c := NewHTTPClient(ts.URL, 5*time.Second)
	res, err := c.Analyze(context.Background(), "https://example.com/shirt.jpg")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"image_url": "https://example.com/shirt.jpg"}, gotBody)
	assert.Equal(t, "https://example.com/shirt.jpg", res.ImageURL)
	require.Len(t, res.Colors, 1)
	assert.Equal(t, Color{Hex: "#112233", Percentage: 0.625}, res.Colors[0])
	assert.Equal(t, "striped", res.Predictions.Pattern.Predicted)
	assert.Equal(t, "casual", res.Predictions.Style.Predicted)
}

func TestAnalyze_EmptyURLForwarded(t *testing.T) {
	var gotBody string
	ts := analyzerServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		respondWith(http.StatusBadRequest, `{"error":"image_url required"}`)(w, r)
	})

	c := NewHTTPClient(ts.URL, 5*time.Second)
	_, err := c.Analyze(context.Background(), "")

	assert.JSONEq(t, `{"image_url":""}`, gotBody)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestAnalyze_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ts := analyzerServer(t, respondWith(status, shirtResponse))

			_, err := NewHTTPClient(ts.URL, 5*time.Second).Analyze(context.Background(), "x")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)
			assert.Contains(t, err.Error(), "status")
		})
	}
}

func TestAnalyze_ConnectionRefused(t *testing.T) {
	c := NewHTTPClient(closedAddr(t), 2*time.Second)
	_, err := c.Analyze(context.Background(), "https://example.com/a.jpg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestAnalyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := analyzerServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := NewHTTPClient(ts.URL, 50*time.Millisecond)
	_, err := c.Analyze(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "timeout")
}

func TestAnalyze_MalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing colors", `{"image_url":"u","predictions":{"pattern":{"predicted":"p"},"style":{"predicted":"s"}}}`},
		{"null colors", `{"colors":null,"predictions":{"pattern":{"predicted":"p"},"style":{"predicted":"s"}}}`},
		{"missing predictions", `{"colors":[]}`},
		{"missing style", `{"colors":[],"predictions":{"pattern":{"predicted":"p"}}}`},
		{"missing pattern label", `{"colors":[],"predictions":{"pattern":{},"style":{"predicted":"s"}}}`},
		{"colors not a list", `{"colors":{"hex":"#000000"},"predictions":{"pattern":{"predicted":"p"},"style":{"predicted":"s"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := analyzerServer(t, respondWith(http.StatusOK, tt.body))

			_, err := NewHTTPClient(ts.URL, 5*time.Second).Analyze(context.Background(), "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.False(t, errors.Is(err, ErrTransport))
		})
	}
}

func TestDecodeResult_EmptyColorsAndFallbackURL(t *testing.T) {
	res, err := decodeResult([]byte(`{"colors":[],"predictions":{"pattern":{"predicted":"solid"},"style":{"predicted":"formal"}}}`), "https://example.com/in.jpg")
	require.NoError(t, err)
	assert.NotNil(t, res.Colors)
	assert.Empty(t, res.Colors)
	assert.Equal(t, "https://example.com/in.jpg", res.ImageURL)
}

func TestResult_Warnings(t *testing.T) {
	r := &Result{Colors: []Color{
		{Hex: "#aabbcc", Percentage: 0.7},
		{Hex: "red", Percentage: 0.4},
		{Hex: "#000000", Percentage: -0.1},
	}}
	w := r.Warnings()
	require.Len(t, w, 2)
	assert.Contains(t, w[0], "not #rrggbb")
	assert.Contains(t, w[1], "outside [0,1]")

	over := &Result{Colors: []Color{{Hex: "#aabbcc", Percentage: 0.6}, {Hex: "#ddeeff", Percentage: 0.6}}}
	require.Len(t, over.Warnings(), 1)
	assert.Contains(t, over.Warnings()[0], "exceeds 1.0")

	assert.Empty(t, (&Result{Colors: []Color{{Hex: "#AABBCC", Percentage: 0.505}, {Hex: "#001122", Percentage: 0.5}}}).Warnings())
}
