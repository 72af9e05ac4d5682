package ailink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/deshgyan/deshgyan/internal/ailink/content"
	"github.com/deshgyan/deshgyan/internal/ailink/driver"
	"github.com/deshgyan/deshgyan/internal/ailink/prompt"
	"github.com/deshgyan/deshgyan/internal/observability"
)

const (
	DefaultPromptSlug = "encyclopedia"
	DefaultImageRole  = "illustration"

	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// AnswerCache stores completed answers. A miss returns (nil, nil).
type AnswerCache interface {
	GetAnswer(ctx context.Context, key CacheKey) (*SearchResult, error)
	SetAnswer(ctx context.Context, key CacheKey, result *SearchResult, ttl time.Duration) error
}

// CacheKey identifies a cached answer.
type CacheKey struct {
	Query      string
	PromptSlug string
	Model      string
	BaseURL    string
}

// Limiter tracks provider request budgets and backoff windows per endpoint.
type Limiter interface {
	Allow(ctx context.Context, endpoint string) (bool, time.Duration, error)
	Record(ctx context.Context, endpoint string) error
	Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error
}

// Options tunes how the service runs searches.
type Options struct {
	PromptSlug    string
	Role          string
	Model         string
	Timeout       time.Duration
	CacheTTL      time.Duration
	Cooldown      time.Duration
	ImagesEnabled bool
	ImageRole     string
}

// Service coordinates prompt loading, provider selection, and driver execution.
type Service struct {
	Providers *Registry
	Prompts   prompt.Registry
	Cache     AnswerCache
	Limiter   Limiter
	Options   Options
	Logger    *logging.Logger
}

// Stream opens one streaming request for query. Cached answers are served
// as a single snapshot without contacting the provider.
func (s *Service) Stream(ctx context.Context, query string) (*Stream, error) {
	if query == "" {
		return nil, &SearchError{Kind: ErrorKindUnknown, Code: CodeQueryRequired, Message: "query is required"}
	}
	if s == nil || s.Providers == nil {
		return nil, classifyError(fmt.Errorf("%w: provider registry missing", ErrNotConfigured))
	}
	if s.Prompts == nil {
		return nil, classifyError(fmt.Errorf("%w: prompt registry missing", ErrNotConfigured))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	slug := s.promptSlug()
	promptDef, err := s.Prompts.Get(slug)
	if err != nil {
		return nil, classifyError(fmt.Errorf("%w: %v", ErrNotConfigured, err))
	}

	systemPrompt, userPrompt, err := renderPrompt(promptDef, map[string]string{"query": query, "input": query})
	if err != nil {
		return nil, classifyError(fmt.Errorf("%w: %v", ErrNotConfigured, err))
	}

	role := strings.TrimSpace(s.Options.Role)
	if role == "" {
		role = slug
	}
	resolved, err := s.Providers.Resolve(role, promptDef, s.Options.Model, "")
	if err != nil {
		return nil, classifyError(err)
	}

	start := time.Now()
	key := CacheKey{
		Query:      NormalizeQuery(query),
		PromptSlug: promptDef.Config.Slug,
		Model:      resolved.Model,
		BaseURL:    resolved.BaseURL,
	}
	if cached := s.lookupCache(ctx, key); cached != nil {
		return newCachedStream(cached, resolved.ProviderID, start), nil
	}

	endpoint := endpointFor(resolved)
	if s.Limiter != nil {
		allowed, wait, err := s.Limiter.Allow(ctx, endpoint)
		if err != nil {
			s.warn("provider limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
		} else if !allowed {
			return nil, &SearchError{
				Kind:       ErrorKindRateLimit,
				Code:       CodeProviderRateLimit,
				Message:    "provider cooling down",
				Details:    endpoint,
				RetryAfter: wait,
			}
		}
	}

	req := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, systemPrompt),
			content.TextMessage(content.RoleUser, userPrompt),
		},
		Tools:       promptTools(promptDef, resolved.Driver.Capabilities()),
		Temperature: promptTemperature(promptDef),
		PromptSlug:  promptDef.Config.Slug,
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout())
	events, err := openEvents(runCtx, resolved.Driver, req)
	if s.Limiter != nil {
		if recErr := s.Limiter.Record(ctx, endpoint); recErr != nil {
			s.warn("record provider request failed", zap.String("endpoint", endpoint), zap.Error(recErr))
		}
	}
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(ctxErr, err)
		}
		cancel()
		serr := classifyError(err)
		s.afterFailure(ctx, endpoint, err, serr)
		recordOutcome(resolved.ProviderID, serr, 0, 0, time.Since(start))
		return nil, serr
	}

	st := &Stream{
		ctx:      runCtx,
		cancel:   cancel,
		events:   events,
		provider: resolved.ProviderID,
		started:  start,
	}
	st.onDone = func(result *SearchResult, serr *SearchError) {
		if serr != nil {
			s.afterFailure(ctx, endpoint, st.rawErr, serr)
			return
		}
		s.attachImage(runCtx, query, result)
		s.storeCache(ctx, key, result)
	}
	return st, nil
}

// Run streams query and reports cumulative text to onChunk. onComplete is
// called exactly once on success; otherwise the classified error is
// returned.
func (s *Service) Run(ctx context.Context, query string, onChunk func(string), onComplete func(*SearchResult)) error {
	var onSnapshot func(Snapshot)
	if onChunk != nil {
		onSnapshot = func(snap Snapshot) { onChunk(snap.Text) }
	}
	return s.RunSnapshots(ctx, query, onSnapshot, onComplete)
}

// RunSnapshots is Run with the sources seen so far attached to each
// delivery.
func (s *Service) RunSnapshots(ctx context.Context, query string, onSnapshot func(Snapshot), onComplete func(*SearchResult)) error {
	st, err := s.Stream(ctx, query)
	if err != nil {
		return err
	}
	defer st.Close() // nolint:errcheck // best-effort cleanup

	for st.Next() {
		if onSnapshot != nil {
			onSnapshot(st.Snapshot())
		}
	}
	result, err := st.Result()
	if err != nil {
		return err
	}
	if onComplete != nil {
		onComplete(result)
	}
	return nil
}

// Search drains the stream and returns the final answer.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	st, err := s.Stream(ctx, query)
	if err != nil {
		return nil, err
	}
	defer st.Close() // nolint:errcheck // best-effort cleanup

	for st.Next() {
	}
	return st.Result()
}

// NormalizeQuery folds a query to the form used for cache keys.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(norm.NFC.String(query)), " ")
}

func (s *Service) promptSlug() string {
	if slug := strings.TrimSpace(s.Options.PromptSlug); slug != "" {
		return slug
	}
	return DefaultPromptSlug
}

func (s *Service) timeout() time.Duration {
	duration := s.Options.Timeout
	if duration <= 0 {
		duration = s.Providers.Config().DefaultTimeout
	}
	if duration <= 0 {
		duration = defaultTimeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}

func (s *Service) cacheTTL() time.Duration {
	if s.Options.CacheTTL > 0 {
		return s.Options.CacheTTL
	}
	return s.Providers.Config().CacheTTL
}

func (s *Service) lookupCache(ctx context.Context, key CacheKey) *SearchResult {
	if s.Cache == nil || s.cacheTTL() <= 0 {
		return nil
	}
	cached, err := s.Cache.GetAnswer(ctx, key)
	if err != nil {
		s.warn("answer cache read failed", zap.Error(err))
		return nil
	}
	if cached == nil || strings.TrimSpace(cached.Text) == "" {
		return nil
	}
	return cached
}

func (s *Service) storeCache(ctx context.Context, key CacheKey, result *SearchResult) {
	ttl := s.cacheTTL()
	if s.Cache == nil || ttl <= 0 || result == nil {
		return
	}
	if err := s.Cache.SetAnswer(context.WithoutCancel(ctx), key, result, ttl); err != nil {
		s.warn("answer cache write failed", zap.Error(err))
	}
}

// afterFailure puts the provider endpoint into backoff after a rate limit.
// A Retry-After hint from the provider wins over the configured cooldown.
func (s *Service) afterFailure(ctx context.Context, endpoint string, raw error, serr *SearchError) {
	if serr == nil || serr.Kind != ErrorKindRateLimit || s.Limiter == nil {
		return
	}
	backoff := s.Options.Cooldown
	var perr *driver.ProviderError
	if errors.As(raw, &perr) && perr.RetryAfter > 0 {
		backoff = perr.RetryAfter
	}
	if backoff <= 0 {
		backoff = serr.RetryAfter
	}
	serr.RetryAfter = backoff
	if err := s.Limiter.Record429(context.WithoutCancel(ctx), endpoint, backoff); err != nil {
		s.warn("record provider backoff failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	s.warn("provider rate limited, backing off",
		zap.String("endpoint", endpoint),
		zap.Duration("backoff", backoff))
}

func (s *Service) logger() *logging.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return observability.Logger()
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if logger := s.logger(); logger != nil {
		logger.Warn(msg, fields...)
	}
}

func openEvents(ctx context.Context, drv driver.Driver, req *driver.Request) (driver.EventStream, error) {
	if drv.Capabilities().SupportsStreaming {
		return drv.Stream(ctx, req)
	}
	resp, err := drv.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return newResponseStream(resp), nil
}

func endpointFor(resolved *ResolvedProvider) string {
	if parsed, err := url.Parse(resolved.BaseURL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return resolved.ProviderID
}

func promptTools(def *prompt.Prompt, caps driver.Capabilities) []driver.Tool {
	if def == nil || len(def.Config.Tools) == 0 {
		return nil
	}

	tools := make([]driver.Tool, 0, len(def.Config.Tools))
	for _, tool := range def.Config.Tools {
		if tool.Type == driver.ToolWebSearch && !caps.SupportsWebSearch {
			continue
		}
		tools = append(tools, driver.Tool{Type: tool.Type, Config: tool.Config})
	}
	if len(tools) == 0 {
		return nil
	}
	return tools
}

func promptTemperature(def *prompt.Prompt) *float64 {
	if def == nil {
		return nil
	}
	value, ok := def.Config.ResponseOpts["temperature"]
	if !ok || value == nil {
		return nil
	}
	var temp float64
	switch typed := value.(type) {
	case float64:
		temp = typed
	case int:
		temp = float64(typed)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return nil
		}
		temp = parsed
	default:
		return nil
	}
	return &temp
}
