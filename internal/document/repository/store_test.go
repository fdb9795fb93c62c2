package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gogotex/ocrsearch/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func seedDocument(t *testing.T, s Store, name string, texts ...*string) (*document.Document, []int64) {
	t.Helper()
	ctx := context.Background()
	d := &document.Document{Filename: name, StoredPath: "/docs/" + name, UploadedAt: time.Now().UTC()}
	require.NoError(t, s.CreateDocument(ctx, d))
	require.NotZero(t, d.ID)

	b, err := s.BeginPages(ctx, d.ID)
	require.NoError(t, err)
	var pages []*document.Page
	for i, txt := range texts {
		p := &document.Page{
			PageNumber:       i + 1,
			RegularImagePath: fmt.Sprintf("/pages/%s_p%03d_r.png", name, i+1),
			ZoomedImagePath:  fmt.Sprintf("/pages/%s_p%03d_z.png", name, i+1),
			OCRText:          txt,
			CreatedAt:        time.Now().UTC(),
		}
		require.NoError(t, b.Add(ctx, p))
		pages = append(pages, p)
	}
	require.NoError(t, b.Commit())
	ids := make([]int64, 0, len(pages))
	for _, p := range pages {
		require.NotZero(t, p.ID)
		ids = append(ids, p.ID)
	}
	return d, ids
}

// runStoreContract exercises the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("pages commit together", func(t *testing.T) {
		s := newStore(t)
		d, ids := seedDocument(t, s, "scan.pdf", strp("alpha beta"), strp("gamma"), nil)
		require.Len(t, ids, 3)
		assert.Less(t, ids[0], ids[1])
		assert.Less(t, ids[1], ids[2])

		sum, err := s.GetDocument(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum.PageCount)
		assert.Equal(t, "scan.pdf", sum.Filename)

		n, err := s.CountPages(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		p, err := s.GetPage(ctx, ids[2])
		require.NoError(t, err)
		assert.Equal(t, 3, p.PageNumber)
		assert.Equal(t, "scan.pdf", p.Filename)
		assert.Nil(t, p.OCRText)
	})

	t.Run("rollback keeps document", func(t *testing.T) {
		s := newStore(t)
		d := &document.Document{Filename: "broken.pdf", StoredPath: "/docs/broken.pdf", UploadedAt: time.Now().UTC()}
		require.NoError(t, s.CreateDocument(ctx, d))

		b, err := s.BeginPages(ctx, d.ID)
		require.NoError(t, err)
		require.NoError(t, b.Add(ctx, &document.Page{PageNumber: 1, RegularImagePath: "r", ZoomedImagePath: "z", OCRText: strp("x"), CreatedAt: time.Now()}))
		require.NoError(t, b.Rollback())
		assert.ErrorIs(t, b.Commit(), ErrBatchClosed)

		sum, err := s.GetDocument(ctx, d.ID)
		require.NoError(t, err)
		assert.Zero(t, sum.PageCount)
		n, err := s.CountPages(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		docs, err := s.ListDocuments(ctx, 100)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, d.ID, docs[0].ID)
	})

	t.Run("substring search is case sensitive and ordered", func(t *testing.T) {
		s := newStore(t)
		_, a := seedDocument(t, s, "a.pdf", strp("The Invoice total"), strp("nothing here"))
		_, b := seedDocument(t, s, "b.pdf", strp("second Invoice"), strp("invoice lowercase"), nil)

		got, err := s.SearchSubstring(ctx, "Invoice", 100)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, a[0], got[0].PageID)
		assert.Equal(t, b[0], got[1].PageID)
		assert.Equal(t, "b.pdf", got[1].Filename)

		got, err = s.SearchSubstring(ctx, "Invoice", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = s.SearchSubstring(ctx, "100%", 100)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("recent pages newest first", func(t *testing.T) {
		s := newStore(t)
		_, ids := seedDocument(t, s, "r.pdf", strp("one"), strp("two"), strp("three"))
		got, err := s.RecentPages(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[2], got[0].PageID)
		assert.Equal(t, ids[1], got[1].PageID)
		assert.Equal(t, "three", got[0].Text())
	})

	t.Run("list documents newest first", func(t *testing.T) {
		s := newStore(t)
		first, _ := seedDocument(t, s, "first.pdf", strp("x"))
		second, _ := seedDocument(t, s, "second.pdf")
		docs, err := s.ListDocuments(ctx, 100)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, second.ID, docs[0].ID)
		assert.Zero(t, docs[0].PageCount)
		assert.Equal(t, first.ID, docs[1].ID)
		assert.Equal(t, int64(1), docs[1].PageCount)
	})

	t.Run("delete cascades", func(t *testing.T) {
		s := newStore(t)
		d, ids := seedDocument(t, s, "gone.pdf", strp("a"), strp("b"))
		keep, keepIDs := seedDocument(t, s, "keep.pdf", strp("c"))

		deleted, err := s.DeleteDocument(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, deleted.Pages, 2)
		assert.Equal(t, 1, deleted.Pages[0].PageNumber)

		_, err = s.GetDocument(ctx, d.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = s.GetPage(ctx, ids[0])
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = s.DeleteDocument(ctx, d.ID)
		assert.True(t, errors.Is(err, ErrNotFound))

		p, err := s.GetPage(ctx, keepIDs[0])
		require.NoError(t, err)
		assert.Equal(t, keep.ID, p.DocumentID)
	})

	t.Run("unknown ids", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetPage(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetDocument(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
