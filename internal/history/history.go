// Package history keeps the bounded most-recent-first list of submitted
// queries and persists it through a preference store.
package history

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/deshgyan/deshgyan/internal/observability"
	"github.com/deshgyan/deshgyan/internal/prefs"
)

const (
	// StorageKey is the preference key holding the serialized list.
	StorageKey = "recent_queries"

	// DefaultCapacity bounds the list when no capacity is configured.
	DefaultCapacity = 8
)

// Recent is a bounded, duplicate-free list of queries, most recent first.
// It is safe for concurrent use.
type Recent struct {
	// saveMu is held from mutation through persist so saves reach the
	// store in the same order as the in-memory changes. Take it before mu.
	saveMu   sync.Mutex
	mu       sync.Mutex
	store    prefs.Store
	capacity int
	items    []string
}

// Normalize trims and NFC-normalizes a query so that visually identical
// Bengali input typed with different code point sequences dedupes.
func Normalize(query string) string {
	return norm.NFC.String(strings.TrimSpace(query))
}

// Load restores the list from store. Missing or unreadable data yields an
// empty list; the error is only logged.
func Load(ctx context.Context, store prefs.Store, capacity int) *Recent {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Recent{store: store, capacity: capacity}

	if store == nil {
		return r
	}

	raw, ok, err := store.LoadPreference(ctx, StorageKey)
	if err != nil {
		warn("Failed to load recent queries", zap.Error(err))
		return r
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return r
	}

	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		warn("Discarding corrupt recent queries", zap.Error(err))
		return r
	}

	for _, q := range stored {
		q = Normalize(q)
		if q == "" || indexOf(r.items, q) >= 0 {
			continue
		}
		r.items = append(r.items, q)
		if len(r.items) == r.capacity {
			break
		}
	}
	return r
}

// Capacity returns the maximum list length.
func (r *Recent) Capacity() int { return r.capacity }

// List returns a copy of the queries, most recent first.
func (r *Recent) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.items))
	copy(out, r.items)
	return out
}

// Record moves query to the front, inserting it if absent. Empty queries
// are ignored.
func (r *Recent) Record(ctx context.Context, query string) error {
	query = Normalize(query)
	if query == "" {
		return nil
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	next := make([]string, 0, r.capacity)
	next = append(next, query)
	for _, item := range r.items {
		if item == query {
			continue
		}
		if len(next) == r.capacity {
			break
		}
		next = append(next, item)
	}
	r.items = next
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(ctx, snapshot)
}

// Remove deletes query from the list.
func (r *Recent) Remove(ctx context.Context, query string) error {
	query = Normalize(query)

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	idx := indexOf(r.items, query)
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}
	r.items = append(r.items[:idx:idx], r.items[idx+1:]...)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.persist(ctx, snapshot)
}

// Clear empties the list.
func (r *Recent) Clear(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()

	return r.persist(ctx, []string{})
}

func (r *Recent) snapshotLocked() []string {
	out := make([]string, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Recent) persist(ctx context.Context, items []string) error {
	if r.store == nil {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.store.SavePreference(ctx, StorageKey, string(data))
}

func indexOf(items []string, query string) int {
	for i, item := range items {
		if item == query {
			return i
		}
	}
	return -1
}

func warn(msg string, fields ...zap.Field) {
	if logger := observability.Logger(); logger != nil {
		logger.Warn(msg, fields...)
	}
}
