package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshgyan/deshgyan/internal/prefs"
)

func TestRecordMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	r := Load(ctx, prefs.NewMemory(), 8)

	require.NoError(t, r.Record(ctx, "পদ্মা সেতু"))
	require.NoError(t, r.Record(ctx, "সুন্দরবন"))
	require.NoError(t, r.Record(ctx, "পদ্মা সেতু"))

	assert.Equal(t, []string{"পদ্মা সেতু", "সুন্দরবন"}, r.List())
}

func TestRecordIgnoresBlank(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	r := Load(ctx, store, 8)

	require.NoError(t, r.Record(ctx, "   "))
	assert.Empty(t, r.List())

	_, ok, _ := store.LoadPreference(ctx, StorageKey)
	assert.False(t, ok)
}

func TestRecordTrims(t *testing.T) {
	ctx := context.Background()
	r := Load(ctx, prefs.NewMemory(), 8)

	require.NoError(t, r.Record(ctx, "  ঢাকা  "))
	require.NoError(t, r.Record(ctx, "ঢাকা"))
	assert.Equal(t, []string{"ঢাকা"}, r.List())
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	r := Load(ctx, prefs.NewMemory(), 8)

	for i := 1; i <= 9; i++ {
		require.NoError(t, r.Record(ctx, fmt.Sprintf("q%d", i)))
	}

	list := r.List()
	require.Len(t, list, 8)
	assert.Equal(t, "q9", list[0])
	assert.Equal(t, "q2", list[7])
	assert.NotContains(t, list, "q1")
}

func TestRecordNeverExceedsCapacityOrDuplicates(t *testing.T) {
	ctx := context.Background()
	r := Load(ctx, prefs.NewMemory(), 3)

	for _, q := range []string{"a", "b", "a", "c", "d", "b", "b", "e", "a"} {
		require.NoError(t, r.Record(ctx, q))
		list := r.List()
		assert.LessOrEqual(t, len(list), 3)

		seen := map[string]bool{}
		for _, item := range list {
			assert.False(t, seen[item], "duplicate %q in %v", item, list)
			seen[item] = true
		}
		assert.Equal(t, q, list[0])
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()

	r := Load(ctx, store, 8)
	require.NoError(t, r.Record(ctx, "one"))
	require.NoError(t, r.Record(ctx, "two"))

	raw, ok, err := store.LoadPreference(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)

	var stored []string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, []string{"two", "one"}, stored)

	reloaded := Load(ctx, store, 8)
	assert.Equal(t, r.List(), reloaded.List())
}

func TestLoadCorruptData(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	require.NoError(t, store.SavePreference(ctx, StorageKey, "{not json"))

	r := Load(ctx, store, 8)
	assert.Empty(t, r.List())

	require.NoError(t, r.Record(ctx, "fresh"))
	assert.Equal(t, []string{"fresh"}, r.List())
}

func TestLoadNormalizesStoredList(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	require.NoError(t, store.SavePreference(ctx, StorageKey, `["a"," a ","","b","c","d"]`))

	r := Load(ctx, store, 3)
	assert.Equal(t, []string{"a", "b", "c"}, r.List())
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemory()
	r := Load(ctx, store, 8)

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, r.Record(ctx, q))
	}

	require.NoError(t, r.Remove(ctx, "b"))
	assert.Equal(t, []string{"c", "a"}, r.List())

	require.NoError(t, r.Remove(ctx, "missing"))
	assert.Equal(t, []string{"c", "a"}, r.List())

	require.NoError(t, r.Clear(ctx))
	assert.Empty(t, r.List())

	raw, _, _ := store.LoadPreference(ctx, StorageKey)
	assert.Equal(t, "[]", raw)
}

func TestNormalizeBengaliEquivalents(t *testing.T) {
	precomposed := "\u09df"
	decomposed := "\u09af\u09bc"
	assert.Equal(t, Normalize(precomposed), Normalize(decomposed))

	ctx := context.Background()
	r := Load(ctx, prefs.NewMemory(), 8)
	require.NoError(t, r.Record(ctx, "বিজ"+precomposed))
	require.NoError(t, r.Record(ctx, "বিজ"+decomposed))
	assert.Len(t, r.List(), 1)
}

type failingStore struct{ prefs.Memory }

func (f *failingStore) LoadPreference(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func TestLoadStoreError(t *testing.T) {
	r := Load(context.Background(), &failingStore{}, 0)
	assert.Empty(t, r.List())
	assert.Equal(t, DefaultCapacity, r.Capacity())
}

// slowFirstSave holds the first save until release is closed.
type slowFirstSave struct {
	*prefs.Memory
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowFirstSave) SavePreference(ctx context.Context, key, value string) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.Memory.SavePreference(ctx, key, value)
}

func TestConcurrentRecordsPersistInOrder(t *testing.T) {
	ctx := context.Background()
	store := &slowFirstSave{
		Memory:  prefs.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := Load(ctx, store, 8)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, r.Record(ctx, "a"))
	}()
	<-store.entered

	go func() {
		defer wg.Done()
		assert.NoError(t, r.Record(ctx, "b"))
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	raw, ok, err := store.LoadPreference(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted []string
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))

	assert.Equal(t, r.List(), persisted)
	assert.Equal(t, []string{"b", "a"}, persisted)
}
