package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/gogotex/ocrsearch/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	documentsCollection = "documents"
	pagesCollection     = "pages"
	countersCollection  = "counters"
	textIndexName       = "ix_pages_ocr_text"
)

// mongoPage is the stored page shape. The filename is copied from the
// document at insert time; documents are never renamed so it cannot drift.
type mongoPage struct {
	document.Page `bson:",inline"`
	Filename      string `bson:"filename"`
}

// MongoRepo implements Store on MongoDB. Numeric ids come from a counters
// collection; full-text search uses a text index on ocr_text.
type MongoRepo struct {
	client   *mongo.Client
	docs     *mongo.Collection
	pages    *mongo.Collection
	counters *mongo.Collection
}

// NewMongoRepo ensures the indexes exist and returns the repository.
func NewMongoRepo(ctx context.Context, client *mongo.Client, database string) (*MongoRepo, error) {
	db := client.Database(database)
	m := &MongoRepo{
		client:   client,
		docs:     db.Collection(documentsCollection),
		pages:    db.Collection(pagesCollection),
		counters: db.Collection(countersCollection),
	}
	_, err := m.pages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "page_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ocr_text", Value: "text"}}, Options: options.Index().SetName(textIndexName).SetDefaultLanguage("english")},
	})
	if err != nil {
		return nil, fmt.Errorf("create page indexes: %w", err)
	}
	return m, nil
}

func (m *MongoRepo) nextID(ctx context.Context, name string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&out)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return out.Seq, nil
}

func (m *MongoRepo) CreateDocument(ctx context.Context, d *document.Document) error {
	id, err := m.nextID(ctx, documentsCollection)
	if err != nil {
		return err
	}
	d.ID = id
	if _, err := m.docs.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (m *MongoRepo) BeginPages(ctx context.Context, documentID int64) (PageBatch, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": documentID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mongoBatch{repo: m, documentID: documentID, filename: d.Filename}, nil
}

func (m *MongoRepo) GetDocument(ctx context.Context, id int64) (*document.DocumentSummary, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n, err := m.pages.CountDocuments(ctx, bson.M{"document_id": id})
	if err != nil {
		return nil, fmt.Errorf("count pages of %d: %w", id, err)
	}
	return &document.DocumentSummary{ID: d.ID, Filename: d.Filename, UploadedAt: d.UploadedAt, PageCount: n}, nil
}

func (m *MongoRepo) ListDocuments(ctx context.Context, limit int) ([]document.DocumentSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit))
	cur, err := m.docs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []document.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	counts, err := m.pageCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]document.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, document.DocumentSummary{ID: d.ID, Filename: d.Filename, UploadedAt: d.UploadedAt, PageCount: counts[d.ID]})
	}
	return out, nil
}

func (m *MongoRepo) pageCounts(ctx context.Context, ids []int64) (map[int64]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"document_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$document_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := m.pages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	var rows []struct {
		ID int64 `bson:"_id"`
		N  int64 `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.N
	}
	return out, nil
}

func (m *MongoRepo) DeleteDocument(ctx context.Context, id int64) (*document.Document, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cur, err := m.pages.Find(ctx, bson.M{"document_id": id}, options.Find().SetSort(bson.D{{Key: "page_number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var pages []mongoPage
	if err := cur.All(ctx, &pages); err != nil {
		return nil, err
	}
	for _, p := range pages {
		d.Pages = append(d.Pages, p.Page)
	}
	if _, err := m.pages.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return nil, fmt.Errorf("delete pages of %d: %w", id, err)
	}
	if _, err := m.docs.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return nil, fmt.Errorf("delete document %d: %w", id, err)
	}
	return &d, nil
}

func (m *MongoRepo) GetPage(ctx context.Context, id int64) (*document.PageDetail, error) {
	var p mongoPage
	if err := m.pages.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &document.PageDetail{
		ID:               p.ID,
		DocumentID:       p.DocumentID,
		PageNumber:       p.PageNumber,
		Filename:         p.Filename,
		RegularImagePath: p.RegularImagePath,
		ZoomedImagePath:  p.ZoomedImagePath,
		OCRText:          p.OCRText,
	}, nil
}

func (m *MongoRepo) RecentPages(ctx context.Context, limit int) ([]document.PageText, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit))
	return m.findPageTexts(ctx, bson.M{}, opts)
}

func (m *MongoRepo) CountPages(ctx context.Context) (int64, error) {
	return m.pages.CountDocuments(ctx, bson.M{})
}

func (m *MongoRepo) SearchSubstring(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	filter := bson.M{"ocr_text": bson.M{"$regex": regexp.QuoteMeta(q)}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return m.findPageTexts(ctx, filter, opts)
}

// SupportsFullText reports whether the text index is present.
func (m *MongoRepo) SupportsFullText(ctx context.Context) bool {
	cur, err := m.pages.Indexes().List(ctx)
	if err != nil {
		return false
	}
	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		return false
	}
	for _, s := range specs {
		if s["name"] == textIndexName {
			return true
		}
	}
	return false
}

func (m *MongoRepo) SearchFullText(ctx context.Context, q string, limit int) ([]document.PageText, error) {
	filter := bson.M{"$text": bson.M{"$search": q}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return m.findPageTexts(ctx, filter, opts)
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepo) findPageTexts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]document.PageText, error) {
	cur, err := m.pages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var pages []mongoPage
	if err := cur.All(ctx, &pages); err != nil {
		return nil, err
	}
	out := make([]document.PageText, 0, len(pages))
	for _, p := range pages {
		out = append(out, document.PageText{PageID: p.ID, PageNumber: p.PageNumber, Filename: p.Filename, OCRText: p.OCRText})
	}
	return out, nil
}

// mongoBatch buffers pages and inserts them with one ordered InsertMany on
// Commit. A partial insert is undone by deleting the batch's ids, so the
// batch is all-or-nothing without requiring a replica set.
type mongoBatch struct {
	repo       *MongoRepo
	documentID int64
	filename   string
	staged     []interface{}
	ids        []int64
	closed     bool
}

func (b *mongoBatch) Add(ctx context.Context, p *document.Page) error {
	if b.closed {
		return ErrBatchClosed
	}
	id, err := b.repo.nextID(ctx, pagesCollection)
	if err != nil {
		return err
	}
	p.ID = id
	p.DocumentID = b.documentID
	b.staged = append(b.staged, mongoPage{Page: *p, Filename: b.filename})
	b.ids = append(b.ids, id)
	return nil
}

func (b *mongoBatch) Commit() error {
	if b.closed {
		return ErrBatchClosed
	}
	b.closed = true
	if len(b.staged) == 0 {
		return nil
	}
	ctx := context.Background()
	if _, err := b.repo.pages.InsertMany(ctx, b.staged, options.InsertMany().SetOrdered(true)); err != nil {
		if _, derr := b.repo.pages.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": b.ids}}); derr != nil {
			return fmt.Errorf("insert pages: %v (cleanup error: %w)", err, derr)
		}
		return fmt.Errorf("insert pages: %w", err)
	}
	return nil
}

func (b *mongoBatch) Rollback() error {
	b.closed = true
	b.staged = nil
	return nil
}
