//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/ailink"
	"github.com/deshgyan/deshgyan/internal/config"
	"github.com/deshgyan/deshgyan/internal/core"
	"github.com/deshgyan/deshgyan/internal/core/quota"
	"github.com/deshgyan/deshgyan/internal/history"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

var (
	_ prefs.Store        = (*Store)(nil)
	_ ailink.AnswerCache = (*Store)(nil)
	_ quota.Store        = (*Store)(nil)
)

func openMemoryStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	store := openMemoryStore(t)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Ping(context.Background()))
}

func TestPreferencesCRUD(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	_, ok, err := store.LoadPreference(ctx, "theme")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SavePreference(ctx, "theme", "dark"))
	require.NoError(t, store.SavePreference(ctx, "theme", "light"))

	value, ok, err := store.LoadPreference(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "light", value)

	require.NoError(t, store.DeletePreference(ctx, "theme"))
	_, ok, err = store.LoadPreference(ctx, "theme")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRecentQueriesPersistAcrossLoads(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	recent := history.Load(ctx, store, 8)
	require.NoError(t, recent.Record(ctx, "সুন্দরবন"))
	require.NoError(t, recent.Record(ctx, "মুক্তিযুদ্ধ"))

	reloaded := history.Load(ctx, store, 8)
	require.Equal(t, []string{"মুক্তিযুদ্ধ", "সুন্দরবন"}, reloaded.List())
}

func TestAnswerCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	key := ailink.CacheKey{Query: "পদ্মা সেতু", PromptSlug: "encyclopedia", Model: "m", BaseURL: "https://gen.example"}
	miss, err := store.GetAnswer(ctx, key)
	require.NoError(t, err)
	require.Nil(t, miss)

	result := &ailink.SearchResult{
		Text:    "# পদ্মা সেতু",
		Sources: []ailink.GroundingSource{{Title: "S", URI: "https://s.example"}},
	}
	require.NoError(t, store.SetAnswer(ctx, key, result, time.Hour))

	hit, err := store.GetAnswer(ctx, key)
	require.NoError(t, err)
	require.Equal(t, result, hit)

	stats, err := store.AnswerCacheStats(ctx)
	require.NoError(t, err)
	require.Equal(t, CacheStats{Entries: 1, Hits: 1}, stats)

	other := key
	other.Model = "other"
	miss, err = store.GetAnswer(ctx, other)
	require.NoError(t, err)
	require.Nil(t, miss)

	purged, err := store.PurgeAnswers(ctx, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)
}

func TestAnswerCacheSkipsZeroTTL(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	key := ailink.CacheKey{Query: "q"}
	require.NoError(t, store.SetAnswer(ctx, key, &ailink.SearchResult{Text: "a"}, 0))

	hit, err := store.GetAnswer(ctx, key)
	require.NoError(t, err)
	require.Nil(t, hit)
}

func TestRateLimitStateAndAdmin(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	until := now.Add(time.Minute)
	require.NoError(t, store.UpdateRateLimit(ctx, "generativelanguage.googleapis.com", &core.RateLimitState{
		RequestCount: 3,
		WindowStart:  now,
		BackoffUntil: &until,
	}))
	require.NoError(t, store.UpdateRateLimit(ctx, "api.x.ai", &core.RateLimitState{RequestCount: 1, WindowStart: now}))

	state, err := store.GetRateLimit(ctx, "generativelanguage.googleapis.com")
	require.NoError(t, err)
	require.Equal(t, 3, state.RequestCount)
	require.NotNil(t, state.BackoffUntil)
	require.True(t, until.Equal(*state.BackoffUntil))

	entries, err := store.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "api.x.ai", entries[0].Endpoint)

	count, err := store.CountRateLimits(ctx, RateLimitQuery{Prefix: "generative"})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	reset, err := store.ResetRateLimits(ctx, RateLimitQuery{Endpoint: "api.x.ai"})
	require.NoError(t, err)
	require.EqualValues(t, 1, reset)

	_, err = store.ListRateLimits(ctx, RateLimitQuery{})
	require.Error(t, err)
}

func TestLimiterBackedByStore(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)
	limiter := &quota.Limiter{Store: store}

	require.NoError(t, limiter.Record429(ctx, "generativelanguage.googleapis.com", time.Minute))

	allowed, wait, err := limiter.Allow(ctx, "generativelanguage.googleapis.com")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Greater(t, wait, 50*time.Second)
}
