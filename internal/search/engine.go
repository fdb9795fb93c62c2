// Package search answers keyword queries over extracted page text.
package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gogotex/ocrsearch/internal/document/repository"
	"github.com/gogotex/ocrsearch/pkg/logger"
	"github.com/gogotex/ocrsearch/pkg/metrics"
)

// MaxResults caps a search response.
const MaxResults = 100

type Result struct {
	ID         int64  `json:"id"`
	PageNumber int    `json:"page_number"`
	Filename   string `json:"filename"`
	Snippet    string `json:"snippet"`
	Number     int    `json:"number"`
}

type Response struct {
	UsedFullText bool     `json:"used_fulltext"`
	Results      []Result `json:"results"`
}

// Cache stores serialized responses. Implementations may be remote; every
// cache error is logged and treated as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// Engine runs its strategies in order and returns the first success.
type Engine struct {
	strategies []Strategy
	cache      Cache
}

type Option func(*Engine)

func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithStrategies replaces the probed strategy list.
func WithStrategies(s ...Strategy) Option { return func(e *Engine) { e.strategies = s } }

// NewEngine probes the store once: the full-text strategy is included only
// when the store implements repository.FullTextSearcher and reports support.
// The substring strategy is always last.
func NewEngine(ctx context.Context, store repository.Store, opts ...Option) *Engine {
	e := &Engine{}
	if fts, ok := store.(repository.FullTextSearcher); ok && fts.SupportsFullText(ctx) {
		e.strategies = append(e.strategies, fullTextStrategy{fts})
	}
	e.strategies = append(e.strategies, substringStrategy{store})
	for _, o := range opts {
		o(e)
	}
	return e
}

// FullTextAvailable reports whether the first strategy is a full-text one.
func (e *Engine) FullTextAvailable() bool {
	return len(e.strategies) > 0 && e.strategies[0].FullText()
}

// Search trims q; a blank query returns an empty response without touching
// the store. Strategy failures fall through to the next strategy and are
// never returned; only the last strategy's error is.
func (e *Engine) Search(ctx context.Context, q string) (Response, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Response{Results: []Result{}}, nil
	}
	if resp, ok := e.cached(ctx, q); ok {
		metrics.SearchCacheHits.Inc()
		return resp, nil
	}

	var last Attempt
	degraded := false
	for i, s := range e.strategies {
		rows, err := s.Search(ctx, q, MaxResults)
		last = Attempt{Strategy: s.Name(), Rows: len(rows), Err: err}
		if !last.OK() {
			degraded = true
			metrics.SearchFallbacks.WithLabelValues(s.Name()).Inc()
			if i < len(e.strategies)-1 {
				logger.Warnf("search: %s strategy failed, falling back: %v", s.Name(), err)
			}
			continue
		}
		metrics.SearchRequests.WithLabelValues(s.Name()).Inc()
		resp := Response{UsedFullText: s.FullText(), Results: make([]Result, 0, len(rows))}
		snippet := Snippet
		if s.FullText() {
			snippet = FullTextSnippet
		}
		for _, r := range rows {
			text := r.Text()
			resp.Results = append(resp.Results, Result{
				ID:         r.PageID,
				PageNumber: r.PageNumber,
				Filename:   r.Filename,
				Snippet:    snippet(text, q),
				Number:     MatchCount(text, q),
			})
		}
		// a fallback answer is not cached, so a recovered strategy is used again
		if !degraded {
			e.remember(ctx, q, resp)
		}
		return resp, nil
	}
	return Response{}, last.Err
}

// Invalidate drops cached responses after the indexed data changed.
func (e *Engine) Invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		logger.Warnf("search cache invalidate: %v", err)
	}
}

func (e *Engine) cached(ctx context.Context, q string) (Response, bool) {
	if e.cache == nil {
		return Response{}, false
	}
	b, ok, err := e.cache.Get(ctx, q)
	if err != nil {
		logger.Warnf("search cache get: %v", err)
		return Response{}, false
	}
	if !ok {
		return Response{}, false
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return Response{}, false
	}
	return resp, true
}

func (e *Engine) remember(ctx context.Context, q string, resp Response) {
	if e.cache == nil {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, q, b); err != nil {
		logger.Warnf("search cache set: %v", err)
	}
}
