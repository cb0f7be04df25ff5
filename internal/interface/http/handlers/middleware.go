// Package handlers contains reusable HTTP middleware and health checks.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MiddlewareFunc wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// PasscodeHeader carries the teacher passcode on mutating requests.
const PasscodeHeader = "X-Teacher-Passcode"

// ErrEmptyPasscode is returned by HashPasscode for a blank passcode.
var ErrEmptyPasscode = errors.New("passcode cannot be empty")

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// PasscodeAuth guards teacher-only routes with a bcrypt-hashed passcode.
// An empty hash disables the check.
type PasscodeAuth struct {
	hash []byte
}

// NewPasscodeAuth creates an authenticator for hash.
func NewPasscodeAuth(hash string) *PasscodeAuth {
	return &PasscodeAuth{hash: []byte(hash)}
}

// Enabled reports whether a passcode is configured.
func (a *PasscodeAuth) Enabled() bool {
	return len(a.hash) > 0
}

// Verify compares passcode against the stored hash.
func (a *PasscodeAuth) Verify(passcode string) bool {
	if !a.Enabled() {
		return true
	}
	if passcode == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(passcode)) == nil
}

// Middleware rejects requests that lack a valid passcode.
func (a *PasscodeAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passcode := r.Header.Get(PasscodeHeader)

		if passcode == "" && a.Enabled() {
			writeError(w, http.StatusUnauthorized, "missing_passcode", "Teacher passcode is required")
			return
		}

		if !a.Verify(passcode) {
			writeError(w, http.StatusUnauthorized, "invalid_passcode", "Invalid teacher passcode")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HashPasscode returns the bcrypt hash to configure as TEACHER_PASSCODE_HASH.
func HashPasscode(passcode string) (string, error) {
	if strings.TrimSpace(passcode) == "" {
		return "", ErrEmptyPasscode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware adds security-related headers to responses.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimitMiddleware limits the size of request bodies. Uploaded
// images arrive as data URLs, so the limit is usually a few megabytes.
func RequestSizeLimitMiddleware(maxBytes int64) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// NoCacheMiddleware disables caching of API responses.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// Chain combines middlewares; the first one is the outermost.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ChainHandler applies middlewares to handler.
func ChainHandler(handler http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	return Chain(middlewares...)(handler)
}

// writeError writes the error shape of the API envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
