package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assignment-tracker/apiserver/internal/logging"
	"github.com/assignment-tracker/apiserver/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct {
	limit int
	hits  map[string]int
	err   error
}

func (c *countingLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	if c.err != nil {
		return ratelimit.Result{}, c.err
	}
	c.hits[key]++
	remaining := c.limit - c.hits[key]
	return ratelimit.Result{
		Allowed:   remaining >= 0,
		Remaining: max(remaining, 0),
		ResetAt:   time.Now().Add(30 * time.Second),
		Limit:     c.limit,
	}, nil
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 2, hits: map[string]int{}}
	h := RateLimit(limiter, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)

		if i == 2 {
			assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 3, limiter.hits["10.0.0.7"])

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.8:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	h := RateLimit(limiter, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
