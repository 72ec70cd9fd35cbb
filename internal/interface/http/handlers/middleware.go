package handlers

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN KEY AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyHeader is the header that carries the admin key.
const APIKeyHeader = "X-API-Key"

// AdminKeyAuth verifies an admin key against a bcrypt hash. With an empty
// hash every request is rejected, so admin routes are closed by default.
type AdminKeyAuth struct {
	hash []byte

	// Successful keys are remembered so bcrypt runs once per distinct key.
	mu       sync.RWMutex
	verified map[string]struct{}
}

// NewAdminKeyAuth creates an authenticator for a bcrypt hash.
func NewAdminKeyAuth(hash string) *AdminKeyAuth {
	return &AdminKeyAuth{
		hash:     []byte(hash),
		verified: make(map[string]struct{}),
	}
}

// Enabled reports whether a hash is configured.
func (a *AdminKeyAuth) Enabled() bool {
	return len(a.hash) > 0
}

// IsValid checks a presented key.
func (a *AdminKeyAuth) IsValid(key string) bool {
	if !a.Enabled() || key == "" {
		return false
	}

	a.mu.RLock()
	_, ok := a.verified[key]
	a.mu.RUnlock()
	if ok {
		return true
	}

	if bcrypt.CompareHashAndPassword(a.hash, []byte(key)) != nil {
		return false
	}
	a.mu.Lock()
	a.verified[key] = struct{}{}
	a.mu.Unlock()
	return true
}

// KeyFromRequest extracts the key from X-API-Key or an Authorization bearer.
func KeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Middleware rejects requests without a valid key by calling deny.
func (a *AdminKeyAuth) Middleware(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.IsValid(KeyFromRequest(r)) {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
