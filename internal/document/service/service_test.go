package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/ocrsearch/internal/document/repository"
	"github.com/gogotex/ocrsearch/internal/ingest"
	"github.com/gogotex/ocrsearch/internal/ocr"
	"github.com/gogotex/ocrsearch/internal/raster"
	"github.com/gogotex/ocrsearch/internal/search"
	"github.com/gogotex/ocrsearch/internal/storage"
)

type stubRaster struct {
	pages int
	err   error
	gate  chan struct{}
}

func (s stubRaster) Render(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	stem := raster.Stem(pdfPath)
	var out []string
	for i := 1; i <= s.pages; i++ {
		r := filepath.Join(outDir, raster.PageImageName(stem, i, raster.RegularSuffix))
		z := filepath.Join(outDir, raster.PageImageName(stem, i, raster.ZoomedSuffix))
		if err := os.WriteFile(r, []byte("regular"), 0o644); err != nil {
			return nil, err
		}
		if err := os.WriteFile(z, []byte("zoomed"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

type stubArchive struct{ deleted []string }

func (a *stubArchive) Name() string                                    { return "stub" }
func (a *stubArchive) Put(ctx context.Context, key, path string) error { return nil }
func (a *stubArchive) PresignGet(ctx context.Context, key string, _ time.Duration) (string, error) {
	return "https://archive.example/" + key, nil
}
func (a *stubArchive) Delete(ctx context.Context, key string) error {
	a.deleted = append(a.deleted, key)
	return nil
}

type fixture struct {
	svc      Service
	store    *repository.MemoryRepo
	files    *storage.LocalStore
	archive  *stubArchive
	pipeline *ingest.Pipeline
}

func newFixture(t *testing.T, r raster.Rasterizer) *fixture {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStore(filepath.Join(dir, "docs"), filepath.Join(dir, "pages"))
	require.NoError(t, err)
	store := repository.NewMemoryRepo()
	engine := search.NewEngine(context.Background(), store)
	x := ocr.ExtractorFunc(func(ctx context.Context, p string) (string, error) {
		return "Invoice number " + filepath.Base(p), nil
	})
	arch := &stubArchive{}
	pipe := ingest.New(store, files, r, x, ingest.Options{Archive: arch, OnCommit: engine.Invalidate})
	return &fixture{svc: New(store, engine, pipe, files, arch), store: store, files: files, archive: arch, pipeline: pipe}
}

func TestUploadSearchAndDetail(t *testing.T) {
	f := newFixture(t, stubRaster{pages: 2})
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "bill.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	require.Len(t, res.PageIDs, 2)

	sr, err := f.svc.Search(ctx, "Invoice")
	require.NoError(t, err)
	assert.False(t, sr.UsedFullText)
	assert.Len(t, sr.Results, 2)

	rec, err := f.svc.Recent(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Total)

	p, err := f.svc.GetPage(ctx, res.PageIDs[1])
	require.NoError(t, err)
	assert.Equal(t, 2, p.PageNumber)

	_, err = f.svc.GetPage(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, list.Results, 1)
	assert.Equal(t, StateIndexed, list.Results[0].Status)
	assert.Equal(t, int64(2), list.Results[0].PageCount)
	assert.NoError(t, f.svc.Ping(ctx))
}

func TestPageImageFallsBackToArchive(t *testing.T) {
	f := newFixture(t, stubRaster{pages: 1})
	ctx := context.Background()
	res, err := f.svc.Upload(ctx, "img.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	id := res.PageIDs[0]

	img, err := f.svc.PageImage(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, "img_p001_r.png", filepath.Base(img.Path))

	zoomed, err := f.svc.PageImage(ctx, id, true)
	require.NoError(t, err)
	require.NoError(t, os.Remove(zoomed.Path))

	img, err = f.svc.PageImage(ctx, id, true)
	require.NoError(t, err)
	assert.Empty(t, img.Path)
	assert.Contains(t, img.RedirectURL, "/img_p001_z.png")

	_, err = f.svc.PageImage(ctx, 12345, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusAfterFailure(t *testing.T) {
	f := newFixture(t, stubRaster{err: errors.New("corrupt")})
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, "bad.pdf", strings.NewReader("x"))
	require.Error(t, err)

	var ie *ingest.Error
	require.True(t, errors.As(err, &ie))
	st, err := f.svc.Status(ctx, ie.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "rasterize", st.Error)
	assert.Zero(t, st.PageCount)

	// after a restart the tracker is empty and the state comes from the store
	f.pipeline.Tracker().Forget(ie.DocumentID)
	st, err = f.svc.Status(ctx, ie.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, StateUnindexed, st.State)

	_, err = f.svc.Status(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadAsyncAndDeleteWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, stubRaster{pages: 1, gate: gate})
	ctx := context.Background()

	doc, err := f.svc.UploadAsync(ctx, "slow.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	st, err := f.svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{StatePending, StateRunning}, st.State)

	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, doc.ID), ErrBusy)

	close(gate)
	f.pipeline.Wait()
	st, err = f.svc.Status(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StateIndexed, st.State)
	assert.Equal(t, int64(1), st.PageCount)
}

func TestDeleteDocumentRefusesAcceptedDocument(t *testing.T) {
	f := newFixture(t, stubRaster{pages: 1})
	ctx := context.Background()

	// accepted but not yet handed to a worker
	doc, err := f.pipeline.Accept(ctx, "fresh.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, doc.ID), ErrBusy)
	_, err = f.store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)

	_, err = f.pipeline.Process(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteDocument(ctx, doc.ID))
}

func TestDeleteDocumentRemovesEverything(t *testing.T) {
	f := newFixture(t, stubRaster{pages: 2})
	ctx := context.Background()
	res, err := f.svc.Upload(ctx, "del.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteDocument(ctx, res.DocumentID))
	assert.ErrorIs(t, f.svc.DeleteDocument(ctx, res.DocumentID), ErrNotFound)

	left, err := filepath.Glob(filepath.Join(f.files.PagesDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, left)
	left, err = filepath.Glob(filepath.Join(f.files.DocumentsDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Len(t, f.archive.deleted, 5)

	sr, err := f.svc.Search(ctx, "Invoice")
	require.NoError(t, err)
	assert.Empty(t, sr.Results)
}
