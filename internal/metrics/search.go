package metrics

import (
	"time"

	"github.com/deshgyan/deshgyan/internal/observability"
)

// Search metrics
const (
	SearchRequestsTotal     = "search_requests_total"
	SearchStreamChunksTotal = "search_stream_chunks_total"
	SearchFirstChunkMs      = "search_first_chunk_ms"
	SearchDurationMs        = "search_duration_ms"
)

// RecordSearch counts a finished search by outcome ("success", "cache_hit",
// "error", "canceled") and error kind.
func RecordSearch(outcome, kind string) {
	if observability.TelemetrySystem != nil {
		tags := map[string]string{"outcome": outcome}
		if kind != "" {
			tags["kind"] = kind
		}
		_ = observability.TelemetrySystem.Counter(SearchRequestsTotal, 1, tags)
	}
}

// RecordStreamChunks counts text increments delivered for one search.
func RecordStreamChunks(provider string, count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SearchStreamChunksTotal,
			float64(count),
			map[string]string{"provider": provider},
		)
	}
}

// RecordFirstChunk records the latency until the first text increment.
func RecordFirstChunk(provider string, latency time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			SearchFirstChunkMs,
			latency,
			map[string]string{"provider": provider},
		)
	}
}

// RecordSearchDuration records the total time a search took.
func RecordSearchDuration(provider string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			SearchDurationMs,
			duration,
			map[string]string{"provider": provider},
		)
	}
}
