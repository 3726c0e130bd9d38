package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
)

type fakeCounterStore struct {
	counts map[string]int64
}

func (f *fakeCounterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRateLimitBlocksOverLimitActor(t *testing.T) {
	policy := NewRateLimitPolicy("mutations", config.RateLimitConfig{
		Window:     time.Minute,
		ActorLimit: 2,
	})
	store := &fakeCounterStore{}
	logg := logger.New(logger.Options{ServiceName: "test"})

	handler := RateLimit(policy, store, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refunds", nil)
		req = req.WithContext(WithAdminID(req.Context(), "admin-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d blocked early: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refunds", nil)
	req = req.WithContext(WithAdminID(req.Context(), "admin-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimitSeparatesActors(t *testing.T) {
	policy := NewRateLimitPolicy("mutations", config.RateLimitConfig{
		Window:     time.Minute,
		ActorLimit: 1,
	})
	store := &fakeCounterStore{}
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, admin := range []string{"admin-1", "admin-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refunds", nil)
		req = req.WithContext(WithAdminID(req.Context(), admin))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s should have its own window: %d", admin, rec.Code)
		}
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewRateLimitPolicy("mutations", config.RateLimitConfig{})
	handler := RateLimit(policy, &fakeCounterStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refunds", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disabled policy must not block: %d", rec.Code)
	}
}
