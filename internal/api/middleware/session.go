package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// SessionHeader carries the caller's session id in both directions.
const SessionHeader = "X-Session-ID"

// Session resolves the caller's session from SessionHeader, issuing a new id
// when the header is missing or not a uuid. The resolved id is echoed back.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := uuid.Parse(r.Header.Get(SessionHeader))
		if err != nil {
			id = uuid.New()
			ctx = setSessionNew(ctx)
		}
		sid := id.String()

		w.Header().Set(SessionHeader, sid)
		next.ServeHTTP(w, r.WithContext(SetSessionID(ctx, sid)))
	})
}
