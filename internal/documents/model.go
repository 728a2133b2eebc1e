package documents

import (
	"encoding/json"
	"time"

	"jobapplier-backend/internal/extract"
)

// MaxDocumentBytes is the largest accepted CV upload (inclusive).
const MaxDocumentBytes = 10 << 20

// MediaKind is the format of an uploaded CV.
type MediaKind string

const (
	MediaPDF  MediaKind = "pdf"
	MediaDOCX MediaKind = "docx"
)

// ExtractKind maps the media kind to the extractor's kind.
func (k MediaKind) ExtractKind() extract.Kind {
	return extract.Kind(k)
}

// Status is the structuring status of a document.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Document represents an uploaded CV owned by a user.
type Document struct {
	ID                string
	UserID            string
	FileName          string
	MediaKind         MediaKind
	MimeType          string
	SizeBytes         int64
	StorageProvider   string
	StorageKey        string
	Checksum          string
	ExtractedText     string
	StructuredProfile json.RawMessage
	StructuredAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Status derives the structuring status from the completion timestamp.
func (d Document) Status() Status {
	if d.StructuredAt != nil {
		return StatusDone
	}
	return StatusPending
}

// ReadyForGeneration reports whether the document has a usable profile.
func (d Document) ReadyForGeneration() bool {
	return d.Status() == StatusDone && len(d.StructuredProfile) > 0
}

// IngestResult is returned by Ingest.
type IngestResult struct {
	Document  Document
	Duplicate bool
}
