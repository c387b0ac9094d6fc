package api

import (
	"context"
	"net/http"
	"strconv"
)

// UserHeader carries the caller's user id, set by the upstream gateway
// after it has authenticated the request.
const UserHeader = "X-User-ID"

type identityKey struct{}

// identity resolves UserHeader into the request context. An absent header
// is an anonymous request; a malformed one is rejected.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeMessage(w, http.StatusUnauthorized, "invalid "+UserHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requester returns the caller's id, or nil for anonymous requests
func requester(r *http.Request) *int64 {
	if id, ok := r.Context().Value(identityKey{}).(int64); ok {
		return &id
	}
	return nil
}

// requireUser is the handler-level form of an authenticated route. It
// writes 401 and returns false for anonymous requests.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := requester(r)
	if id == nil {
		writeMessage(w, http.StatusUnauthorized, "authentication credentials were not provided")
		return 0, false
	}
	return *id, true
}
