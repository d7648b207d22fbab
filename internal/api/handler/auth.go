package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/fashionvista/fashionvista/internal/api/middleware"
	"github.com/fashionvista/fashionvista/internal/api/response"
	"github.com/fashionvista/fashionvista/internal/auth"
)

// SessionManager is the slice of auth.Sessions the auth handlers use.
type SessionManager interface {
	Login(ctx context.Context, sessionID, email, password string) (*auth.LoginResult, error)
	Token(ctx context.Context, sessionID string) (string, time.Duration, error)
	Logout(ctx context.Context, sessionID string) error
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
func NewLoginHandler(sm SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := mw.GetSessionID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing session", nil)
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := response.Decode(r.Body, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		res, err := sm.Login(r.Context(), sid, req.Email, req.Password)
		if err != nil {
			writeLoginError(w, sid, err)
			return
		}

		response.JSON(w, map[string]string{"message": res.Message})
	}
}

func writeLoginError(w http.ResponseWriter, sid string, err error) {
	var authErr *auth.AuthError
	message := "An unexpected error occurred"
	if errors.As(err, &authErr) {
		message = authErr.Message
	}

	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		response.Error(w, http.StatusUnauthorized, "TOKEN_EXPIRED", message, nil)
	case errors.Is(err, auth.ErrLoginUnavailable), errors.Is(err, auth.ErrMissingToken):
		response.Error(w, http.StatusBadGateway, "LOGIN_UNAVAILABLE", message, nil)
	case authErr != nil:
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", message, nil)
	default:
		slog.Error("login failed", "session", sid, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/v1/auth/logout.
func NewLogoutHandler(sm SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := mw.GetSessionID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing session", nil)
			return
		}
		if err := sm.Logout(r.Context(), sid); err != nil {
			slog.Error("logout failed", "session", sid, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log out", nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type sessionResponse struct {
	Authenticated    bool  `json:"authenticated"`
	ExpiresInSeconds int64 `json:"expires_in_seconds,omitempty"`
}

// NewSessionHandler returns an http.HandlerFunc for GET /api/v1/auth/session.
func NewSessionHandler(sm SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := mw.GetSessionID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing session", nil)
			return
		}

		_, ttl, err := sm.Token(r.Context(), sid)
		switch {
		case errors.Is(err, auth.ErrNoSession):
			response.JSON(w, sessionResponse{})
		case err != nil:
			slog.Error("session lookup failed", "session", sid, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read session", nil)
		default:
			response.JSON(w, sessionResponse{
				Authenticated:    true,
				ExpiresInSeconds: int64(ttl / time.Second),
			})
		}
	}
}
