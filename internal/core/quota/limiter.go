// Package quota tracks per-endpoint request windows and 429 backoff for
// the LLM providers. State lives in the store so every process sharing it
// honours the same cooldown.
package quota

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/deshgyan/deshgyan/internal/core"
)

// Limiter enforces per-endpoint request windows and backoff.
type Limiter struct {
	Store  Store
	Limits map[string]Limit
	Clock  func() time.Time
	Margin float64
}

// Limit represents a request window.
type Limit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Store persists limiter state.
type Store interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// DefaultLimits mirror the free-tier request budgets of the providers.
var DefaultLimits = map[string]Limit{
	"generativelanguage.googleapis.com": {RequestsPerWindow: 15, WindowDuration: time.Minute},
	"api.x.ai":                          {RequestsPerWindow: 60, WindowDuration: time.Minute},
	"api.openai.com":                    {RequestsPerWindow: 60, WindowDuration: time.Minute},
}

var fallbackLimit = Limit{RequestsPerWindow: 30, WindowDuration: time.Minute}

// Allow checks if a request is allowed and returns the wait if not.
func (l *Limiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if l == nil || l.Store == nil {
		return true, 0, nil
	}

	state, err := l.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}
	if state == nil {
		return true, 0, nil
	}

	now := l.now()
	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(now), nil
	}

	limit := l.getLimit(endpoint)
	windowEnd := state.WindowStart.Add(limit.WindowDuration)
	if now.After(windowEnd) {
		return true, 0, nil
	}
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, windowEnd.Sub(now), nil
	}
	return true, 0, nil
}

// Record counts one request against the current window.
func (l *Limiter) Record(ctx context.Context, endpoint string) error {
	if l == nil || l.Store == nil {
		return nil
	}

	state, err := l.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	now := l.now()
	if state == nil {
		state = &core.RateLimitState{WindowStart: now}
	}

	limit := l.getLimit(endpoint)
	if state.WindowStart.IsZero() || now.After(state.WindowStart.Add(limit.WindowDuration)) {
		state.WindowStart = now
		state.RequestCount = 0
	}
	state.RequestCount++

	return l.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record429 starts a backoff window after a rate-limited response.
func (l *Limiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if l == nil || l.Store == nil {
		return nil
	}

	state, err := l.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return err
	}
	now := l.now()
	if state == nil {
		state = &core.RateLimitState{WindowStart: now}
	}

	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}

	return l.Store.UpdateRateLimit(ctx, endpoint, state)
}

// ApplyOverrides merges per-endpoint request overrides (per minute).
func (l *Limiter) ApplyOverrides(overrides map[string]int) {
	if l == nil || len(overrides) == 0 {
		return
	}

	if l.Limits == nil {
		l.Limits = make(map[string]Limit, len(DefaultLimits))
		for key, limit := range DefaultLimits {
			l.Limits[key] = limit
		}
	}

	for endpoint, value := range overrides {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" || value <= 0 {
			continue
		}
		l.Limits[endpoint] = Limit{RequestsPerWindow: value, WindowDuration: time.Minute}
	}
}

// ApplySafetyMargin scales the effective request limits by a ratio (0-1].
func (l *Limiter) ApplySafetyMargin(margin float64) {
	if l == nil || margin <= 0 || margin > 1 {
		return
	}
	l.Margin = margin
}

func (l *Limiter) getLimit(endpoint string) Limit {
	limits := l.Limits
	if limits == nil {
		limits = DefaultLimits
	}
	if limit, ok := limits[endpoint]; ok {
		return l.applyMargin(limit)
	}
	return l.applyMargin(fallbackLimit)
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func (l *Limiter) applyMargin(limit Limit) Limit {
	if l.Margin <= 0 || l.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * l.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}
