package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gogotex/ocrsearch/internal/document"
	"github.com/gogotex/ocrsearch/internal/document/repository"
	"github.com/gogotex/ocrsearch/internal/ingest"
	"github.com/gogotex/ocrsearch/internal/search"
	"github.com/gogotex/ocrsearch/internal/storage"
	"github.com/gogotex/ocrsearch/pkg/logger"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned when a document cannot be changed while its pages
	// are still being processed.
	ErrBusy = errors.New("document is being processed")
)

// ListLimit caps the document listing.
const ListLimit = 100

// presignTTL is the lifetime of archive redirect URLs.
const presignTTL = 15 * time.Minute

// Document states reported by Status and ListDocuments.
const (
	StatePending   = string(ingest.StatePending)
	StateRunning   = string(ingest.StateRunning)
	StateFailed    = string(ingest.StateFailed)
	StateIndexed   = "indexed"
	StateUnindexed = "unindexed"
)

type DocumentEntry struct {
	document.DocumentSummary
	Status string `json:"status"`
}

type DocumentList struct {
	UsedFullText bool            `json:"used_fulltext"`
	Results      []DocumentEntry `json:"results"`
}

type Status struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	State      string `json:"state"`
	PageCount  int64  `json:"page_count"`
	Error      string `json:"error,omitempty"`
}

// Image locates a page rendition: a local file, or else a redirect URL into
// the archive.
type Image struct {
	Path        string
	RedirectURL string
}

// Service defines the document operations used by the handler layer.
type Service interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*ingest.Result, error)
	// UploadAsync commits the document and processes its pages in the background.
	UploadAsync(ctx context.Context, filename string, r io.Reader) (*document.Document, error)
	Search(ctx context.Context, q string) (search.Response, error)
	Recent(ctx context.Context) (search.RecentResponse, error)
	ListDocuments(ctx context.Context) (DocumentList, error)
	GetPage(ctx context.Context, id int64) (*document.PageDetail, error)
	PageImage(ctx context.Context, id int64, zoomed bool) (*Image, error)
	Status(ctx context.Context, id int64) (*Status, error)
	DeleteDocument(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type documentService struct {
	store    repository.Store
	engine   *search.Engine
	pipeline *ingest.Pipeline
	files    *storage.LocalStore
	archive  storage.Archive
}

// New wires the service. archive may be nil.
func New(store repository.Store, engine *search.Engine, pipeline *ingest.Pipeline, files *storage.LocalStore, archive storage.Archive) Service {
	return &documentService{store: store, engine: engine, pipeline: pipeline, files: files, archive: archive}
}

func (s *documentService) Upload(ctx context.Context, filename string, r io.Reader) (*ingest.Result, error) {
	return s.pipeline.Ingest(ctx, filename, r)
}

func (s *documentService) UploadAsync(ctx context.Context, filename string, r io.Reader) (*document.Document, error) {
	doc, err := s.pipeline.Accept(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	s.pipeline.Submit(doc)
	return doc, nil
}

func (s *documentService) Search(ctx context.Context, q string) (search.Response, error) {
	return s.engine.Search(ctx, q)
}

func (s *documentService) Recent(ctx context.Context) (search.RecentResponse, error) {
	return search.Recent(ctx, s.store)
}

func (s *documentService) ListDocuments(ctx context.Context) (DocumentList, error) {
	docs, err := s.store.ListDocuments(ctx, ListLimit)
	if err != nil {
		return DocumentList{}, err
	}
	out := DocumentList{UsedFullText: s.engine.FullTextAvailable(), Results: make([]DocumentEntry, 0, len(docs))}
	for _, d := range docs {
		st, _ := s.state(d)
		out.Results = append(out.Results, DocumentEntry{DocumentSummary: d, Status: st})
	}
	return out, nil
}

func (s *documentService) GetPage(ctx context.Context, id int64) (*document.PageDetail, error) {
	p, err := s.store.GetPage(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *documentService) PageImage(ctx context.Context, id int64, zoomed bool) (*Image, error) {
	p, err := s.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	path := p.RegularImagePath
	if zoomed {
		path = p.ZoomedImagePath
	}
	if path == "" {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(path); err == nil {
		return &Image{Path: path}, nil
	}
	if s.archive == nil {
		return nil, ErrNotFound
	}
	url, err := s.archive.PresignGet(ctx, storage.ArchiveKey(p.DocumentID, path), presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign page %d: %w", id, err)
	}
	return &Image{RedirectURL: url}, nil
}

func (s *documentService) Status(ctx context.Context, id int64) (*Status, error) {
	d, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st, stage := s.state(*d)
	return &Status{DocumentID: d.ID, Filename: d.Filename, State: st, PageCount: d.PageCount, Error: stage}, nil
}

// state prefers the live job state; without one it is derived from the
// committed page count.
func (s *documentService) state(d document.DocumentSummary) (state, stage string) {
	if job, ok := s.pipeline.Tracker().Get(d.ID); ok {
		switch job.State {
		case ingest.StateSucceeded:
			return StateIndexed, ""
		case ingest.StateFailed:
			return StateFailed, job.Error
		default:
			return string(job.State), ""
		}
	}
	if d.PageCount > 0 {
		return StateIndexed, ""
	}
	return StateUnindexed, ""
}

// DeleteDocument removes the document, its pages, its files and archived
// copies. File cleanup failures are logged only.
func (s *documentService) DeleteDocument(ctx context.Context, id int64) error {
	var d *document.Document
	err := s.pipeline.WhenIdle(id, func() error {
		var err error
		d, err = s.store.DeleteDocument(ctx, id)
		return err
	})
	if errors.Is(err, ingest.ErrActive) {
		return ErrBusy
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.pipeline.Tracker().Forget(id)
	s.engine.Invalidate(ctx)

	paths := []string{d.StoredPath}
	for _, p := range d.Pages {
		paths = append(paths, p.RegularImagePath, p.ZoomedImagePath)
	}
	if err := s.files.Remove(paths...); err != nil {
		logger.Warnf("delete document %d: remove files: %v", id, err)
	}
	if s.archive != nil {
		for _, key := range ingest.ArchiveKeys(d) {
			if err := s.archive.Delete(ctx, key); err != nil {
				logger.Warnf("delete document %d: archive %s: %v", id, key, err)
			}
		}
	}
	logger.Infof("deleted document %d (%d pages)", id, len(d.Pages))
	return nil
}

// Ping checks that the store answers.
func (s *documentService) Ping(ctx context.Context) error {
	_, err := s.store.CountPages(ctx)
	return err
}
