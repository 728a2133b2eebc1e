package documents

import (
	"encoding/json"
	"time"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID   string     `json:"documentId"`
	FileName     string     `json:"fileName"`
	MediaKind    MediaKind  `json:"mediaKind"`
	MimeType     string     `json:"mimeType"`
	SizeBytes    int64      `json:"sizeBytes"`
	Checksum     string     `json:"checksum"`
	Status       Status     `json:"status"`
	StructuredAt *time.Time `json:"structuredAt,omitempty"`
	UploadedAt   time.Time  `json:"uploadedAt"`
}

// DocumentDetailResponse adds the extracted text and structured profile.
type DocumentDetailResponse struct {
	DocumentResponse
	ExtractedText     string          `json:"extractedText"`
	StructuredProfile json.RawMessage `json:"structuredProfile,omitempty"`
}

// IngestResponse is returned by the upload endpoint.
type IngestResponse struct {
	DocumentResponse
	Duplicate bool `json:"duplicate"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:   doc.ID,
		FileName:     doc.FileName,
		MediaKind:    doc.MediaKind,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.SizeBytes,
		Checksum:     doc.Checksum,
		Status:       doc.Status(),
		StructuredAt: doc.StructuredAt,
		UploadedAt:   doc.CreatedAt,
	}
}

func toDetailResponse(doc Document) DocumentDetailResponse {
	return DocumentDetailResponse{
		DocumentResponse:  toResponse(doc),
		ExtractedText:     doc.ExtractedText,
		StructuredProfile: doc.StructuredProfile,
	}
}
