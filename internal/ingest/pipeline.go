// Package ingest turns an uploaded PDF into committed, searchable pages.
//
// Ingestion has two phases. Accept stores the file and commits the Document
// row; Process renders, recognizes and commits every Page in one batch. A
// Process failure rolls back all pages but leaves the Document, which then
// reports zero pages.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gogotex/ocrsearch/internal/document"
	"github.com/gogotex/ocrsearch/internal/document/repository"
	"github.com/gogotex/ocrsearch/internal/ocr"
	"github.com/gogotex/ocrsearch/internal/raster"
	"github.com/gogotex/ocrsearch/internal/storage"
	"github.com/gogotex/ocrsearch/pkg/logger"
	"github.com/gogotex/ocrsearch/pkg/metrics"
)

// Result reports a successful ingestion.
type Result struct {
	DocumentID     int64   `json:"document_id"`
	PagesProcessed int     `json:"pages_processed"`
	PageIDs        []int64 `json:"page_ids"`
	Seconds        float64 `json:"seconds"`
}

type Options struct {
	// Concurrency bounds simultaneous Process runs. Defaults to 1.
	Concurrency int64
	// Archive, when set, receives the PDF and renditions after commit.
	Archive storage.Archive
	// OnCommit runs after pages were committed, e.g. to drop search caches.
	OnCommit func(ctx context.Context)
}

type Pipeline struct {
	store     repository.Store
	files     *storage.LocalStore
	raster    raster.Rasterizer
	extractor ocr.Extractor
	archive   storage.Archive
	onCommit  func(ctx context.Context)

	tracker *Tracker
	// admit is held shared while Accept registers a document and exclusively
	// by WhenIdle, so a document is never visible without its pending job.
	admit sync.RWMutex
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	now   func() time.Time
}

func New(store repository.Store, files *storage.LocalStore, r raster.Rasterizer, x ocr.Extractor, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		store:     store,
		files:     files,
		raster:    r,
		extractor: x,
		archive:   opts.Archive,
		onCommit:  opts.OnCommit,
		tracker:   NewTracker(),
		sem:       semaphore.NewWeighted(opts.Concurrency),
		now:       time.Now,
	}
}

func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Accept stores the PDF under a collision-free name and commits its
// Document row. The document is tracked as pending before Accept returns;
// the caller must hand it to Process or Submit.
func (p *Pipeline) Accept(ctx context.Context, filename string, r io.Reader) (*document.Document, error) {
	stored, path, err := p.files.SaveDocument(filename, r)
	if err != nil {
		return nil, &Error{Stage: StageUpload, Err: err}
	}
	doc := &document.Document{Filename: stored, StoredPath: path, UploadedAt: p.now().UTC()}

	p.admit.RLock()
	err = p.store.CreateDocument(ctx, doc)
	if err == nil {
		p.tracker.Pending(doc.ID)
	}
	p.admit.RUnlock()
	if err != nil {
		_ = p.files.Remove(path)
		return nil, &Error{Stage: StageDocument, Err: err}
	}
	logger.With(logger.Fields{"document_id": doc.ID, "filename": stored}).Info("document accepted")
	return doc, nil
}

// Ingest runs both phases synchronously. Client cancellation does not abort
// an ingestion once it has started.
func (p *Pipeline) Ingest(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	doc, err := p.Accept(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, doc)
}

// Submit runs Process in the background. Call Wait before exiting.
func (p *Pipeline) Submit(doc *document.Document) {
	p.tracker.Pending(doc.ID)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_, _ = p.Process(context.Background(), doc)
	}()
}

// WhenIdle runs fn unless document id is pending or running, in which case
// it returns ErrActive. No document can be accepted while fn runs.
func (p *Pipeline) WhenIdle(id int64, fn func() error) error {
	p.admit.Lock()
	defer p.admit.Unlock()
	if p.tracker.Active(id) {
		return ErrActive
	}
	return fn()
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Process renders, recognizes and commits all pages of doc.
func (p *Pipeline) Process(ctx context.Context, doc *document.Document) (*Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		err = &Error{DocumentID: doc.ID, Stage: StagePersist, Err: err}
		p.tracker.Failed(doc.ID, err)
		return nil, err
	}
	defer p.sem.Release(1)

	p.tracker.Running(doc.ID)
	start := p.now()
	res, err := p.process(ctx, doc)
	elapsed := p.now().Sub(start)
	log := logger.With(logger.Fields{"document_id": doc.ID, "filename": doc.Filename})

	if err != nil {
		metrics.DocumentsIngested.WithLabelValues("failed").Inc()
		metrics.IngestDuration.WithLabelValues("failed").Observe(elapsed.Seconds())
		log.WithField("stage", StageOf(err)).Errorf("ingestion failed: %v", err)
		p.tracker.Failed(doc.ID, err)
		return nil, err
	}

	res.Seconds = math.Round(elapsed.Seconds()*100) / 100
	metrics.DocumentsIngested.WithLabelValues("succeeded").Inc()
	metrics.IngestDuration.WithLabelValues("succeeded").Observe(elapsed.Seconds())
	metrics.PagesIngested.Add(float64(res.PagesProcessed))
	log.WithField("pages", res.PagesProcessed).Infof("ingested in %.2fs", res.Seconds)

	if p.onCommit != nil {
		p.onCommit(ctx)
	}
	p.tracker.Succeeded(doc.ID, res)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, doc *document.Document) (*Result, error) {
	fail := func(stage Stage, err error) error {
		return &Error{DocumentID: doc.ID, Stage: stage, Err: err}
	}

	zoomed, err := p.raster.Render(ctx, doc.StoredPath, p.files.PagesDir)
	if err != nil {
		return nil, fail(StageRasterize, err)
	}

	batch, err := p.store.BeginPages(ctx, doc.ID)
	if err != nil {
		p.discardImages(zoomed)
		return nil, fail(StagePersist, err)
	}

	pages := make([]*document.Page, 0, len(zoomed))
	for i, z := range zoomed {
		pg, err := p.buildPage(ctx, i+1, z)
		if err == nil {
			err = batch.Add(ctx, pg)
		}
		if err != nil {
			p.rollback(batch, doc.ID)
			p.discardImages(zoomed)
			return nil, fail(StagePersist, err)
		}
		pages = append(pages, pg)
	}

	if err := batch.Commit(); err != nil {
		p.discardImages(zoomed)
		return nil, fail(StageCommit, err)
	}

	res := &Result{DocumentID: doc.ID, PagesProcessed: len(pages), PageIDs: make([]int64, 0, len(pages))}
	for _, pg := range pages {
		res.PageIDs = append(res.PageIDs, pg.ID)
	}
	p.archiveFiles(ctx, doc, pages)
	return res, nil
}

// extraction is the outcome of recognizing one page.
type extraction struct {
	Text *string
	Err  error
}

func (p *Pipeline) extract(ctx context.Context, zoomed string) extraction {
	text, err := p.extractor.Extract(ctx, zoomed)
	if err != nil {
		return extraction{Err: err}
	}
	return extraction{Text: &text}
}

// buildPage recognizes one page. A recognition failure is logged and the
// page is kept with no text.
func (p *Pipeline) buildPage(ctx context.Context, number int, zoomed string) (*document.Page, error) {
	regular, err := raster.RegularPath(zoomed)
	if err != nil {
		return nil, err
	}
	out := p.extract(ctx, zoomed)
	if out.Err != nil {
		if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) {
			return nil, out.Err
		}
		metrics.OCRFailures.Inc()
		logger.Warnf("ocr failed for page %d (%s): %v", number, zoomed, out.Err)
	}
	return &document.Page{
		PageNumber:       number,
		RegularImagePath: regular,
		ZoomedImagePath:  zoomed,
		OCRText:          out.Text,
		CreatedAt:        p.now().UTC(),
	}, nil
}

func (p *Pipeline) rollback(b repository.PageBatch, documentID int64) {
	if err := b.Rollback(); err != nil {
		logger.Errorf("rollback pages of document %d: %v", documentID, err)
	}
}

// discardImages removes the renditions of pages that were never committed.
func (p *Pipeline) discardImages(zoomed []string) {
	var paths []string
	for _, z := range zoomed {
		paths = append(paths, z)
		if r, err := raster.RegularPath(z); err == nil {
			paths = append(paths, r)
		}
	}
	if err := p.files.Remove(paths...); err != nil {
		logger.Warnf("remove rendered images: %v", err)
	}
}

// archiveFiles uploads the PDF and every rendition. Failures are logged
// only; the local files remain authoritative.
func (p *Pipeline) archiveFiles(ctx context.Context, doc *document.Document, pages []*document.Page) {
	if p.archive == nil {
		return
	}
	paths := []string{doc.StoredPath}
	for _, pg := range pages {
		paths = append(paths, pg.RegularImagePath, pg.ZoomedImagePath)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return p.archive.Put(gctx, storage.ArchiveKey(doc.ID, path), path)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warnf("archive document %d to %s: %v", doc.ID, p.archive.Name(), err)
		return
	}
	logger.Debugf("archived %d files of document %d", len(paths), doc.ID)
}

// ArchiveKeys lists the object keys archiveFiles would have written for d.
func ArchiveKeys(d *document.Document) []string {
	keys := []string{storage.ArchiveKey(d.ID, d.StoredPath)}
	for _, pg := range d.Pages {
		keys = append(keys, storage.ArchiveKey(d.ID, pg.RegularImagePath), storage.ArchiveKey(d.ID, pg.ZoomedImagePath))
	}
	return keys
}

func (r *Result) String() string {
	return fmt.Sprintf("document %d: %d pages in %.2fs", r.DocumentID, r.PagesProcessed, r.Seconds)
}
