package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/core"
)

type memoryStore struct {
	state map[string]*core.RateLimitState
}

func (m *memoryStore) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	if val, ok := m.state[endpoint]; ok {
		copied := *val
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStore) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	if m.state == nil {
		m.state = make(map[string]*core.RateLimitState)
	}
	m.state[endpoint] = state
	return nil
}

func TestLimiterWindow(t *testing.T) {
	store := &memoryStore{}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{
		Store:  store,
		Limits: map[string]Limit{"gen.example": {RequestsPerWindow: 1, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return clock },
	}
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "gen.example")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(ctx, "gen.example"))

	allowed, wait, err := limiter.Allow(ctx, "gen.example")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)

	clock = clock.Add(61 * time.Second)
	allowed, _, err = limiter.Allow(ctx, "gen.example")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(ctx, "gen.example"))
	require.Equal(t, 1, store.state["gen.example"].RequestCount)
}

func TestLimiterBackoff(t *testing.T) {
	store := &memoryStore{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{Store: store, Clock: func() time.Time { return now }}

	require.NoError(t, limiter.Record429(context.Background(), "generativelanguage.googleapis.com", 30*time.Second))

	allowed, wait, err := limiter.Allow(context.Background(), "generativelanguage.googleapis.com")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait)

	now = now.Add(31 * time.Second)
	allowed, _, err = limiter.Allow(context.Background(), "generativelanguage.googleapis.com")
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiterWithoutStoreAllows(t *testing.T) {
	var limiter *Limiter
	allowed, wait, err := limiter.Allow(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, wait)
	require.NoError(t, limiter.Record429(context.Background(), "x", time.Second))
}

func TestLimiterMarginAndOverrides(t *testing.T) {
	limiter := &Limiter{}
	limiter.ApplyOverrides(map[string]int{"api.x.ai": 10, " ": 5, "bad": 0})
	limiter.ApplySafetyMargin(0.9)

	require.Equal(t, 9, limiter.getLimit("api.x.ai").RequestsPerWindow)
	require.Equal(t, 13, limiter.getLimit("generativelanguage.googleapis.com").RequestsPerWindow)
	_, ok := limiter.Limits["bad"]
	require.False(t, ok)
}
