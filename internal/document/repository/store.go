package repository

import (
	"context"
	"errors"

	"github.com/gogotex/ocrsearch/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrBatchClosed is returned when a page batch is used after Commit or Rollback.
	ErrBatchClosed = errors.New("page batch already closed")
)

// Store is the persistence contract for documents and pages. Implementations
// hold a connection pool and are safe for concurrent use; every call scopes
// its own session to ctx.
type Store interface {
	// CreateDocument inserts d, commits it immediately and sets d.ID.
	CreateDocument(ctx context.Context, d *document.Document) error
	// BeginPages opens an atomic batch for the pages of one document.
	BeginPages(ctx context.Context, documentID int64) (PageBatch, error)

	GetDocument(ctx context.Context, id int64) (*document.DocumentSummary, error)
	ListDocuments(ctx context.Context, limit int) ([]document.DocumentSummary, error)
	// DeleteDocument removes the document and, by cascade, its pages. The
	// returned document carries the deleted pages so callers can clean up files.
	DeleteDocument(ctx context.Context, id int64) (*document.Document, error)

	GetPage(ctx context.Context, id int64) (*document.PageDetail, error)
	RecentPages(ctx context.Context, limit int) ([]document.PageText, error)
	CountPages(ctx context.Context) (int64, error)
	// SearchSubstring returns pages whose text contains q verbatim, in
	// ascending page id order.
	SearchSubstring(ctx context.Context, q string, limit int) ([]document.PageText, error)

	Close(ctx context.Context) error
}

// FullTextSearcher is implemented by stores that may offer a native
// natural-language text match. SupportsFullText is the capability probe.
type FullTextSearcher interface {
	SupportsFullText(ctx context.Context) bool
	SearchFullText(ctx context.Context, q string, limit int) ([]document.PageText, error)
}

// PageBatch stages the pages of one ingestion. Pages must be added in page
// order; p.ID is assigned by Add or, at the latest, by a successful Commit.
// Either every added page becomes visible on Commit or none does.
type PageBatch interface {
	Add(ctx context.Context, p *document.Page) error
	Commit() error
	// Rollback discards staged pages; it is a no-op after Commit.
	Rollback() error
}
