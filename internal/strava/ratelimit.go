package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day

// RateLimiter paces requests and tracks Strava's usage windows
type RateLimiter struct {
	pace *rate.Limiter
	now  func() time.Time

	mu sync.Mutex

	// 15-minute window
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	// Daily window
	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(rate.Every(150*time.Millisecond), time.Now)
}

func newRateLimiter(pace rate.Limit, now func() time.Time) *RateLimiter {
	t := now()
	return &RateLimiter{
		pace:          rate.NewLimiter(pace, 1),
		now:           now,
		shortLimit:    100,
		shortResetsAt: t.Add(15 * time.Minute),
		dailyLimit:    1000,
		dailyResetsAt: t.Truncate(24 * time.Hour).Add(24 * time.Hour),
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserveWindow()
		if wait <= 0 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return r.pace.Wait(ctx)
}

// reserveWindow counts a request against both windows, or returns how long to
// wait for the exhausted one to reset.
func (r *RateLimiter) reserveWindow() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Reset windows if expired
	if !now.Before(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(15 * time.Minute)
	}
	if !now.Before(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}

	if r.shortUsage >= r.shortLimit {
		return r.shortResetsAt.Sub(now)
	}
	if r.dailyUsage >= r.dailyLimit {
		return r.dailyResetsAt.Sub(now)
	}

	r.shortUsage++
	r.dailyUsage++
	return 0
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	first, second, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
