package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"My Scan.pdf":       "My_Scan.pdf",
		"../../etc/passwd":  "etc_passwd",
		"Résumé 2024.PDF":   "Resume_2024.PDF",
		"  .hidden.pdf":     "hidden.pdf",
		"a\\b\\c.pdf":       "a_b_c.pdf",
		"weird$chars*?.pdf": "weirdchars.pdf",
		"日本語.pdf":           "pdf",
		"___":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SecureFilename(in), "input %q", in)
	}
}

func TestAllowedFile(t *testing.T) {
	assert.True(t, AllowedFile("a.pdf"))
	assert.True(t, AllowedFile("A.PDF"))
	assert.False(t, AllowedFile("a.png"))
	assert.False(t, AllowedFile("pdf"))
	assert.False(t, AllowedFile(".pdf"))
	assert.False(t, AllowedFile(""))
}

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "docs"), filepath.Join(dir, "pages"))
	require.NoError(t, err)
	return s
}

func TestSaveDocumentDisambiguates(t *testing.T) {
	s := newLocal(t)

	n1, p1, err := s.SaveDocument("name.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	n2, p2, err := s.SaveDocument("name.pdf", strings.NewReader("two"))
	require.NoError(t, err)
	n3, _, err := s.SaveDocument("name.pdf", strings.NewReader("three"))
	require.NoError(t, err)

	assert.Equal(t, "name.pdf", n1)
	assert.Equal(t, "name_1.pdf", n2)
	assert.Equal(t, "name_2.pdf", n3)

	b, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))
	b, err = os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
}

func TestSaveDocumentFoldsExtensionCase(t *testing.T) {
	s := newLocal(t)

	n1, _, err := s.SaveDocument("scan.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	n2, p2, err := s.SaveDocument("scan.PDF", strings.NewReader("two"))
	require.NoError(t, err)

	assert.Equal(t, "scan.pdf", n1)
	assert.Equal(t, "scan_1.pdf", n2)
	assert.Equal(t, "scan_1.pdf", filepath.Base(p2))
}

func TestSaveDocumentConcurrentNeverOverwrites(t *testing.T) {
	s := newLocal(t)
	const n = 20
	names := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, _, err := s.SaveDocument("same.pdf", strings.NewReader("x"))
			assert.NoError(t, err)
			names <- name
		}()
	}
	wg.Wait()
	close(names)
	seen := map[string]bool{}
	for name := range names {
		assert.False(t, seen[name], "duplicate %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestSaveDocumentRejectsEmptyName(t *testing.T) {
	s := newLocal(t)
	_, _, err := s.SaveDocument("???", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestRemoveIgnoresMissing(t *testing.T) {
	s := newLocal(t)
	_, p, err := s.SaveDocument("gone.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(p, filepath.Join(s.PagesDir, "never.png"), ""))
	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
}
