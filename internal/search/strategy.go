package search

import (
	"context"

	"github.com/gogotex/ocrsearch/internal/document"
	"github.com/gogotex/ocrsearch/internal/document/repository"
)

const (
	StrategyFullText  = "fulltext"
	StrategySubstring = "substring"
)

// Strategy is one way of matching pages against a query.
type Strategy interface {
	Name() string
	// FullText reports whether results come from a natural-language match.
	FullText() bool
	Search(ctx context.Context, q string, limit int) ([]document.PageText, error)
}

type fullTextStrategy struct{ s repository.FullTextSearcher }

func (fullTextStrategy) Name() string   { return StrategyFullText }
func (fullTextStrategy) FullText() bool { return true }
func (f fullTextStrategy) Search(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	return f.s.SearchFullText(ctx, q, limit)
}

type substringStrategy struct{ s repository.Store }

func (substringStrategy) Name() string   { return StrategySubstring }
func (substringStrategy) FullText() bool { return false }
func (s substringStrategy) Search(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	return s.s.SearchSubstring(ctx, q, limit)
}

// Attempt records the outcome of running one strategy.
type Attempt struct {
	Strategy string
	Rows     int
	Err      error
}

func (a Attempt) OK() bool { return a.Err == nil }
