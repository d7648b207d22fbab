package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	sessionIDKey    contextKey = "session_id"
	sessionNewKey   contextKey = "session_new"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

// SetSessionID stores the caller's session id.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// GetSessionID returns the session id set by the Session middleware.
func GetSessionID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(sessionIDKey).(string)
	return id, ok && id != ""
}

func setSessionNew(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionNewKey, true)
}

// sessionIsNew reports whether Session minted the id for this request
// instead of receiving it from the caller.
func sessionIsNew(r *http.Request) bool {
	minted, _ := r.Context().Value(sessionNewKey).(bool)
	return minted
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}
