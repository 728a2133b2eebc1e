package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"jobapplier-backend/internal/shared/storage/object"
)

// Kind identifies a document media kind the extractor understands.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
)

// ErrUnsupportedKind is returned when no extractor exists for a media kind.
var ErrUnsupportedKind = errors.New("unsupported media kind")

// Provider turns stored document bytes into plain text.
type Provider interface {
	ExtractText(ctx context.Context, storageKey string, kind Kind) (string, error)
	SupportsKind(kind Kind) bool
}

// FileExtractor reads objects from a store and extracts their text.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOCX).
type FileExtractor struct {
	store object.ObjectStore
}

// NewFileExtractor builds an extractor backed by the given store.
func NewFileExtractor(store object.ObjectStore) *FileExtractor {
	return &FileExtractor{store: store}
}

// SupportsKind reports whether the kind can be extracted.
func (e *FileExtractor) SupportsKind(kind Kind) bool {
	return kind == KindPDF || kind == KindDOCX
}

// ExtractText pulls text from a stored object.
func (e *FileExtractor) ExtractText(ctx context.Context, storageKey string, kind Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !e.SupportsKind(kind) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	body, err := e.store.Open(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s kind=%s: %w", storageKey, kind, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s kind=%s: read: %w", storageKey, kind, err)
	}

	text, err := ExtractTextFromBytes(ctx, raw, kind)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s kind=%s: %w", storageKey, kind, err)
	}
	return text, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload.
func ExtractTextFromBytes(ctx context.Context, data []byte, kind Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch kind {
	case KindPDF:
		return extractPDF(data)
	case KindDOCX:
		if !isDocxZip(data) {
			return "", errors.New("document.xml file not found")
		}
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return stripDocxXML(r.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	// Only w:t runs carry text; whitespace between elements is layout.
	inText := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inText > 0 {
				buf.WriteString(string(t))
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText++
			case "tab":
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "t" && inText > 0 {
				inText--
			}
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// isDocxZip reports whether data is a zip archive carrying a Word document part.
func isDocxZip(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}

var _ Provider = (*FileExtractor)(nil)
