package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)

	c.AddCheck("store", func(context.Context) error { return nil })
	c.AddOptionalCheck("cache", func(context.Context) error { return errors.New("connection refused") })

	status = c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Degraded)
	assert.Equal(t, "connection refused", status.Checks["cache"].Message)
	assert.Equal(t, "Some checks failed: cache", status.Message)

	c.AddCheck("store", func(context.Context) error { return errors.New("locked") })
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: cache, store", status.Message)

	c.RemoveCheck("store")
	c.RemoveCheck("cache")
	assert.True(t, c.Check(context.Background()).Healthy)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Checks["slow"].Message, "deadline")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestNewPingCheck(t *testing.T) {
	assert.NoError(t, NewPingCheck(pinger{})(context.Background()))
	assert.Error(t, NewPingCheck(pinger{err: errors.New("down")})(context.Background()))
}

func TestPasscodeAuth(t *testing.T) {
	hash, err := HashPasscode("owl")
	require.NoError(t, err)
	_, err = HashPasscode("  ")
	assert.ErrorIs(t, err, ErrEmptyPasscode)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		hash     string
		passcode string
		want     int
	}{
		{"disabled", "", "", http.StatusNoContent},
		{"missing", hash, "", http.StatusUnauthorized},
		{"wrong", hash, "cat", http.StatusUnauthorized},
		{"valid", hash, "owl", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.passcode != "" {
				req.Header.Set(PasscodeHeader, tt.passcode)
			}
			rec := httptest.NewRecorder()
			NewPasscodeAuth(tt.hash).Middleware(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestSizeLimit(t *testing.T) {
	h := RequestSizeLimitMiddleware(4)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"payload_too_large","message":"Request body too large"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
