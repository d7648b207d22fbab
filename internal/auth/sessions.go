package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenName is the fixed name the login token is stored under.
const TokenName = "jwt"

var (
	ErrTokenExpired = errors.New("token already expired")
	ErrNoSession    = errors.New("no stored token for session")
)

// TokenStore persists one login token per session.
type TokenStore interface {
	Save(ctx context.Context, sessionID, token string, ttl time.Duration) error
	// Load returns the token and its remaining lifetime.
	Load(ctx context.Context, sessionID string) (token string, ttl time.Duration, found bool, err error)
	Clear(ctx context.Context, sessionID string) error
}

// Sessions ties the login collaborator to a TokenStore.
type Sessions struct {
	loginer    Loginer
	store      TokenStore
	defaultTTL time.Duration
	now        func() time.Time
}

func NewSessions(loginer Loginer, store TokenStore, defaultTTL time.Duration) *Sessions {
	return &Sessions{
		loginer:    loginer,
		store:      store,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Login forwards credentials and stores the returned token for sessionID.
// The token replaces any previous one.
func (s *Sessions) Login(ctx context.Context, sessionID, email, password string) (*LoginResult, error) {
	res, err := s.loginer.Login(ctx, email, password)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			slog.Info("login rejected", "session", sessionID, "status", authErr.Status, "error", authErr.Err)
		}
		return nil, err
	}

	ttl, err := TokenTTL(res.Token, s.defaultTTL, s.now())
	if err != nil {
		return nil, &AuthError{Message: defaultFailureMessage, Err: err}
	}

	if err := s.store.Save(ctx, sessionID, res.Token, ttl); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	slog.Info("login succeeded", "session", sessionID, "token_ttl", ttl.String())
	return res, nil
}

// Token returns the stored token and its remaining lifetime.
func (s *Sessions) Token(ctx context.Context, sessionID string) (string, time.Duration, error) {
	token, ttl, found, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return "", 0, fmt.Errorf("load token: %w", err)
	}
	if !found {
		return "", 0, ErrNoSession
	}
	return token, ttl, nil
}

// Logout clears the stored token. Clearing an absent token is not an error.
func (s *Sessions) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	slog.Info("logged out", "session", sessionID)
	return nil
}

// TokenTTL derives a storage lifetime from the token's exp claim. Tokens that
// are not JWTs, or carry no exp, get fallback. The signature is not verified;
// the login service owns the signing key.
func TokenTTL(token string, fallback time.Duration, now time.Time) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback, nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback, nil
	}

	ttl := exp.Sub(now)
	if ttl <= 0 {
		return 0, ErrTokenExpired
	}
	return ttl, nil
}
