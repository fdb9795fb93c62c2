package ingest

import (
	"errors"
	"fmt"
)

// ErrActive is returned by WhenIdle for a document that is still being processed.
var ErrActive = errors.New("document is being processed")

// Stage names the pipeline step that failed. It is safe to show to clients.
type Stage string

const (
	StageUpload    Stage = "upload"
	StageDocument  Stage = "document"
	StageRasterize Stage = "rasterize"
	StagePersist   Stage = "persist"
	StageCommit    Stage = "commit"
)

// Error is a classified ingestion failure. DocumentID is zero when the
// failure happened before the document row existed.
type Error struct {
	DocumentID int64
	Stage      Stage
	Err        error
}

func (e *Error) Error() string {
	if e.DocumentID > 0 {
		return fmt.Sprintf("ingest document %d: %s: %v", e.DocumentID, e.Stage, e.Err)
	}
	return fmt.Sprintf("ingest: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf returns the stage of an ingest error, or "" for other errors.
func StageOf(err error) Stage {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Stage
	}
	return ""
}
