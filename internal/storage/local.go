package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNameAttempts bounds the disambiguation loop in SaveDocument.
const maxNameAttempts = 10000

var (
	ErrInvalidFilename = errors.New("invalid filename")
	unsafeNameChars    = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// LocalStore keeps uploaded PDFs and rendered page images on disk.
type LocalStore struct {
	DocumentsDir string
	PagesDir     string
}

// NewLocalStore creates both directories if needed.
func NewLocalStore(documentsDir, pagesDir string) (*LocalStore, error) {
	for _, d := range []string{documentsDir, pagesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return &LocalStore{DocumentsDir: documentsDir, PagesDir: pagesDir}, nil
}

// SaveDocument writes r under DocumentsDir using the sanitized name. If the
// name is taken it tries "<base>_1<ext>", "<base>_2<ext>", ... Each attempt
// is an exclusive create, so concurrent uploads never overwrite each other.
func (s *LocalStore) SaveDocument(name string, r io.Reader) (stored string, path string, err error) {
	clean := SecureFilename(name)
	if clean == "" {
		return "", "", ErrInvalidFilename
	}
	// renditions are named by stem, so "x.pdf" and "x.PDF" must not both exist
	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	ext = strings.ToLower(ext)
	clean = base + ext

	var f *os.File
	for i := 0; i < maxNameAttempts; i++ {
		stored = clean
		if i > 0 {
			stored = base + "_" + strconv.Itoa(i) + ext
		}
		path = filepath.Join(s.DocumentsDir, stored)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("create %s: %w", stored, err)
		}
	}
	if f == nil {
		return "", "", fmt.Errorf("no free name for %s", clean)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("write %s: %w", stored, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("close %s: %w", stored, err)
	}
	return stored, path, nil
}

// Remove deletes files, ignoring ones that are already gone.
func (s *LocalStore) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SecureFilename reduces name to an ASCII file name that is safe to join to
// a directory: accents are folded, whitespace becomes "_", anything outside
// [A-Za-z0-9_.-] is dropped and leading/trailing dots and underscores are
// trimmed. The result may be empty.
func SecureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("/", " ", `\`, " ").Replace(folded)
	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeNameChars.ReplaceAllString(folded, "")
	return strings.Trim(folded, "._")
}

// AllowedFile reports whether name has a .pdf extension, in any case.
func AllowedFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") && len(name) > len(".pdf")
}
