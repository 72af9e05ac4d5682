package output

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/deshgyan/deshgyan/internal/catalog"
	"github.com/deshgyan/deshgyan/internal/core/store"
)

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// HistoryTable lists recent queries, newest first.
func HistoryTable(queries []string) string {
	t := newTable(table.Row{"#", "Query"})
	for i, q := range queries {
		t.AppendRow(table.Row{i + 1, q})
	}
	if len(queries) == 0 {
		t.AppendRow(table.Row{"", "(no recent queries)"})
	}
	return t.Render()
}

// TopicsTable summarises every grid of the catalog.
func TopicsTable(c *catalog.Catalog) string {
	t := newTable(table.Row{"Grid", "Title", "Items"})
	if c == nil {
		return t.Render()
	}
	for _, g := range c.Grids {
		t.AppendRow(table.Row{g.ID, g.Title, len(g.Items)})
	}
	return t.Render()
}

// GridTable lists the items of one grid with the query each one submits.
func GridTable(g catalog.Grid) string {
	t := newTable(table.Row{"Topic", "Title", "Query"})
	t.SetTitle(g.Title)
	for _, item := range g.Items {
		title := item.Title
		if item.Icon != "" {
			title = item.Icon + " " + title
		}
		t.AppendRow(table.Row{g.ID + "/" + item.ID, title, item.Query})
	}
	return t.Render()
}

// RateLimitTable lists persisted provider rate limit state.
func RateLimitTable(entries []store.RateLimitEntry) string {
	t := newTable(table.Row{"Endpoint", "Requests", "Window start", "Backoff until", "Last 429"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.Endpoint,
			entry.State.RequestCount,
			formatTime(&entry.State.WindowStart),
			formatTime(entry.State.BackoffUntil),
			formatTime(entry.State.Last429At),
		})
	}
	if len(entries) == 0 {
		t.AppendRow(table.Row{"(no stored rate limit state)", "", "", "", ""})
	}
	return t.Render()
}

// CacheStatsTable summarises the answer cache.
func CacheStatsTable(stats store.CacheStats) string {
	t := newTable(table.Row{"Entries", "Expired", "Hits"})
	t.AppendRow(table.Row{strconv.Itoa(stats.Entries), strconv.Itoa(stats.Expired), strconv.Itoa(stats.Hits)})
	return t.Render()
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}
