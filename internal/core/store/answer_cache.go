package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink"
)

// CacheStats summarises the answer cache.
type CacheStats struct {
	Entries int `json:"entries"`
	Expired int `json:"expired"`
	Hits    int `json:"hits"`
}

// GetAnswer returns a cached answer if present and not expired.
func (s *Store) GetAnswer(ctx context.Context, key ailink.CacheKey) (*ailink.SearchResult, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT id, response_json, expires_at FROM answer_cache
		 WHERE query = ? AND prompt_slug = ? AND model = ? AND base_url = ?`,
		key.Query, key.PromptSlug, key.Model, key.BaseURL,
	)

	var (
		id       int64
		response string
		expires  int64
	)
	if err := row.Scan(&id, &response, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if time.Now().UTC().After(time.Unix(expires, 0).UTC()) {
		return nil, nil
	}

	var result ailink.SearchResult
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("decode cached answer: %w", err)
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE answer_cache SET hits = hits + 1 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("count cache hit: %w", err)
	}
	return &result, nil
}

// SetAnswer stores an answer with TTL. A non-positive TTL stores nothing.
func (s *Store) SetAnswer(ctx context.Context, key ailink.CacheKey, result *ailink.SearchResult, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ttl <= 0 || result == nil {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO answer_cache (query, prompt_slug, model, base_url, response_json, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(query, prompt_slug, model, base_url)
		 DO UPDATE SET response_json = excluded.response_json,
		               created_at = excluded.created_at,
		               expires_at = excluded.expires_at,
		               hits = 0`,
		key.Query, key.PromptSlug, key.Model, key.BaseURL, string(payload), now.Unix(), expiresAt.Unix(),
	)
	return err
}

// AnswerCacheStats counts cached answers.
func (s *Store) AnswerCacheStats(ctx context.Context) (CacheStats, error) {
	if s == nil || s.DB == nil {
		return CacheStats{}, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats   CacheStats
		expired sql.NullInt64
		hits    sql.NullInt64
	)
	row := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(CASE WHEN expires_at < ? THEN 1 ELSE 0 END),
		        SUM(hits)
		 FROM answer_cache`, time.Now().UTC().Unix())
	if err := row.Scan(&stats.Entries, &expired, &hits); err != nil {
		return CacheStats{}, fmt.Errorf("answer cache stats: %w", err)
	}
	stats.Expired = int(expired.Int64)
	stats.Hits = int(hits.Int64)
	return stats, nil
}

// PurgeAnswers deletes expired answers, or every answer when all is set.
func (s *Store) PurgeAnswers(ctx context.Context, all bool) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		result sql.Result
		err    error
	)
	if all {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM answer_cache`)
	} else {
		result, err = s.DB.ExecContext(ctx, `DELETE FROM answer_cache WHERE expires_at < ?`, time.Now().UTC().Unix())
	}
	if err != nil {
		return 0, fmt.Errorf("purge answer cache: %w", err)
	}
	return result.RowsAffected()
}
