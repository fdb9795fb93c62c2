package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gogotex/ocrsearch/internal/document"
	"gorm.io/gorm"
)

// textSearchConfig is the PostgreSQL text search configuration. It matches
// the fixed OCR language and must equal the one used by the GIN index.
const textSearchConfig = "english"

const pageTextColumns = "p.id AS page_id, p.page_number, p.ocr_text, d.filename"

// SQLRepo implements Store on top of gorm. PostgreSQL gets the native
// full-text strategy; other dialects (SQLite) only offer substring search.
type SQLRepo struct {
	db *gorm.DB
}

// NewSQLRepo migrates the schema and returns the repository.
func NewSQLRepo(db *gorm.DB) (*SQLRepo, error) {
	if err := db.AutoMigrate(&document.Document{}, &document.Page{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := &SQLRepo{db: db}
	if r.dialect() == "postgres" {
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS ix_pages_ocr_fulltext ON pages USING GIN (to_tsvector('` + textSearchConfig + `', coalesce(ocr_text, '')))`).Error; err != nil {
			return nil, fmt.Errorf("create fulltext index: %w", err)
		}
	}
	return r, nil
}

func (r *SQLRepo) dialect() string {
	return r.db.Dialector.Name()
}

func (r *SQLRepo) CreateDocument(ctx context.Context, d *document.Document) error {
	if err := r.db.WithContext(ctx).Omit("Pages").Create(d).Error; err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *SQLRepo) BeginPages(ctx context.Context, documentID int64) (PageBatch, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&document.Document{}).Where("id = ?", documentID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("begin pages: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return &sqlBatch{db: r.db.WithContext(ctx), documentID: documentID}, nil
}

func (r *SQLRepo) GetDocument(ctx context.Context, id int64) (*document.DocumentSummary, error) {
	var out []document.DocumentSummary
	err := r.summaries(ctx).Where("d.id = ?", id).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *SQLRepo) ListDocuments(ctx context.Context, limit int) ([]document.DocumentSummary, error) {
	var out []document.DocumentSummary
	if err := r.summaries(ctx).Order("d.id DESC").Limit(limit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (r *SQLRepo) summaries(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("documents AS d").
		Select("d.id, d.filename, d.uploaded_at, COUNT(p.id) AS page_count").
		Joins("LEFT JOIN pages AS p ON p.document_id = d.id").
		Group("d.id, d.filename, d.uploaded_at")
}

// DeleteDocument deletes pages explicitly inside the same transaction so the
// cascade holds even where foreign keys are not enforced.
func (r *SQLRepo) DeleteDocument(ctx context.Context, id int64) (*document.Document, error) {
	var doc document.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Pages", func(db *gorm.DB) *gorm.DB { return db.Order("page_number") }).First(&doc, id).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&document.Page{}).Error; err != nil {
			return err
		}
		return tx.Delete(&document.Document{}, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete document %d: %w", id, err)
	}
	return &doc, nil
}

func (r *SQLRepo) GetPage(ctx context.Context, id int64) (*document.PageDetail, error) {
	var out []document.PageDetail
	err := r.db.WithContext(ctx).
		Table("pages AS p").
		Select("p.id, p.document_id, p.page_number, p.regular_image_path, p.zoomed_image_path, p.ocr_text, d.filename").
		Joins("JOIN documents AS d ON d.id = p.document_id").
		Where("p.id = ?", id).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("get page %d: %w", id, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *SQLRepo) RecentPages(ctx context.Context, limit int) ([]document.PageText, error) {
	var out []document.PageText
	if err := r.pageTexts(ctx).Order("p.id DESC").Limit(limit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("recent pages: %w", err)
	}
	return out, nil
}

func (r *SQLRepo) CountPages(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&document.Page{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// SearchSubstring matches case-sensitively. LIKE is avoided because SQLite
// folds ASCII case for it.
func (r *SQLRepo) SearchSubstring(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	var cond string
	var args []interface{}
	switch r.dialect() {
	case "postgres":
		cond, args = "strpos(p.ocr_text, ?) > 0", []interface{}{q}
	case "sqlite":
		cond, args = "instr(p.ocr_text, ?) > 0", []interface{}{q}
	default:
		cond, args = `p.ocr_text LIKE ? ESCAPE '\'`, []interface{}{"%" + escapeLike(q) + "%"}
	}
	var out []document.PageText
	if err := r.pageTexts(ctx).Where(cond, args...).Order("p.id").Limit(limit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	return out, nil
}

// SupportsFullText probes the server rather than trusting the dialect name.
func (r *SQLRepo) SupportsFullText(ctx context.Context) bool {
	if r.dialect() != "postgres" {
		return false
	}
	var ok bool
	err := r.db.WithContext(ctx).
		Raw("SELECT to_tsvector('" + textSearchConfig + "', 'probe') @@ plainto_tsquery('" + textSearchConfig + "', 'probe')").
		Scan(&ok).Error
	return err == nil && ok
}

func (r *SQLRepo) SearchFullText(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	if r.dialect() != "postgres" {
		return nil, fmt.Errorf("full-text search not supported by %s", r.dialect())
	}
	var out []document.PageText
	err := r.pageTexts(ctx).
		Where("to_tsvector('"+textSearchConfig+"', coalesce(p.ocr_text, '')) @@ plainto_tsquery('"+textSearchConfig+"', ?)", q).
		Order("p.id").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}
	return out, nil
}

func (r *SQLRepo) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLRepo) pageTexts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("pages AS p").
		Select(pageTextColumns).
		Joins("JOIN documents AS d ON d.id = p.document_id")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// sqlBatch buffers pages and writes them in one transaction on Commit, so
// no write lock is held while pages are being rendered and recognized.
type sqlBatch struct {
	db         *gorm.DB
	documentID int64
	staged     []*document.Page
	closed     bool
}

func (b *sqlBatch) Add(ctx context.Context, p *document.Page) error {
	if b.closed {
		return ErrBatchClosed
	}
	p.DocumentID = b.documentID
	b.staged = append(b.staged, p)
	return nil
}

// Commit inserts the staged pages in order; their IDs are set on return.
func (b *sqlBatch) Commit() error {
	if b.closed {
		return ErrBatchClosed
	}
	b.closed = true
	if len(b.staged) == 0 {
		return nil
	}
	err := b.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range b.staged {
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		for _, p := range b.staged {
			p.ID = 0
		}
		return fmt.Errorf("commit pages: %w", err)
	}
	return nil
}

func (b *sqlBatch) Rollback() error {
	b.closed = true
	b.staged = nil
	return nil
}
