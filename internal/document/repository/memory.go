package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gogotex/ocrsearch/internal/document"
)

// MemoryRepo is an in-memory Store used for tests and local runs without a
// database. It has no full-text capability, so search always uses the
// substring strategy.
type MemoryRepo struct {
	mu       sync.RWMutex
	docs     map[int64]*document.Document
	pages    map[int64]*document.Page
	nextDoc  int64
	nextPage int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:  make(map[int64]*document.Document),
		pages: make(map[int64]*document.Page),
	}
}

func (m *MemoryRepo) CreateDocument(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDoc++
	d.ID = m.nextDoc
	cp := *d
	cp.Pages = nil
	m.docs[d.ID] = &cp
	return nil
}

func (m *MemoryRepo) BeginPages(ctx context.Context, documentID int64) (PageBatch, error) {
	m.mu.RLock()
	_, ok := m.docs[documentID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &memoryBatch{repo: m, documentID: documentID}, nil
}

func (m *MemoryRepo) GetDocument(ctx context.Context, id int64) (*document.DocumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	s := m.summary(d)
	return &s, nil
}

func (m *MemoryRepo) ListDocuments(ctx context.Context, limit int) ([]document.DocumentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]document.DocumentSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.summary(m.docs[id]))
	}
	return out, nil
}

func (m *MemoryRepo) summary(d *document.Document) document.DocumentSummary {
	var n int64
	for _, p := range m.pages {
		if p.DocumentID == d.ID {
			n++
		}
	}
	return document.DocumentSummary{ID: d.ID, Filename: d.Filename, UploadedAt: d.UploadedAt, PageCount: n}
}

func (m *MemoryRepo) DeleteDocument(ctx context.Context, id int64) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *d
	for _, pid := range m.sortedPageIDs() {
		if p := m.pages[pid]; p.DocumentID == id {
			out.Pages = append(out.Pages, *p)
			delete(m.pages, pid)
		}
	}
	delete(m.docs, id)
	return &out, nil
}

func (m *MemoryRepo) GetPage(ctx context.Context, id int64) (*document.PageDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &document.PageDetail{
		ID:               p.ID,
		DocumentID:       p.DocumentID,
		PageNumber:       p.PageNumber,
		Filename:         m.docs[p.DocumentID].Filename,
		RegularImagePath: p.RegularImagePath,
		ZoomedImagePath:  p.ZoomedImagePath,
		OCRText:          p.OCRText,
	}, nil
}

func (m *MemoryRepo) RecentPages(ctx context.Context, limit int) ([]document.PageText, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.sortedPageIDs()
	out := make([]document.PageText, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.pageText(m.pages[ids[i]]))
	}
	return out, nil
}

func (m *MemoryRepo) CountPages(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.pages)), nil
}

func (m *MemoryRepo) SearchSubstring(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []document.PageText
	for _, id := range m.sortedPageIDs() {
		p := m.pages[id]
		if p.OCRText == nil || !strings.Contains(*p.OCRText, q) {
			continue
		}
		out = append(out, m.pageText(p))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRepo) Close(ctx context.Context) error { return nil }

func (m *MemoryRepo) pageText(p *document.Page) document.PageText {
	return document.PageText{
		PageID:     p.ID,
		PageNumber: p.PageNumber,
		Filename:   m.docs[p.DocumentID].Filename,
		OCRText:    p.OCRText,
	}
}

// sortedPageIDs must be called with m.mu held.
func (m *MemoryRepo) sortedPageIDs() []int64 {
	ids := make([]int64, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type memoryBatch struct {
	repo       *MemoryRepo
	documentID int64
	staged     []*document.Page
	closed     bool
}

// Add reserves an id immediately, like an autoincrement column would, so
// ids stay monotonic even when the batch is rolled back.
func (b *memoryBatch) Add(ctx context.Context, p *document.Page) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.repo.mu.Lock()
	b.repo.nextPage++
	p.ID = b.repo.nextPage
	b.repo.mu.Unlock()
	p.DocumentID = b.documentID
	cp := *p
	b.staged = append(b.staged, &cp)
	return nil
}

func (b *memoryBatch) Commit() error {
	if b.closed {
		return ErrBatchClosed
	}
	b.closed = true
	b.repo.mu.Lock()
	defer b.repo.mu.Unlock()
	if _, ok := b.repo.docs[b.documentID]; !ok {
		return ErrNotFound
	}
	for _, p := range b.staged {
		b.repo.pages[p.ID] = p
	}
	return nil
}

func (b *memoryBatch) Rollback() error {
	b.closed = true
	b.staged = nil
	return nil
}
