package targets

import (
	"regexp"
	"strings"
	"time"
)

// MaxImageBytes is the largest accepted job-description image (inclusive).
const MaxImageBytes = 5 << 20

// Text placed in a target when OCR cannot produce content.
const (
	OCRFailedText        = "[OCR extraction failed. Please provide text manually.]"
	OCRNotConfiguredText = "[OCR not configured. Please extract text manually or reconfigure OCR service.]"
)

// SourceKind records how a target's text was obtained.
type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceImage SourceKind = "image"
)

// Target is a job description a cover letter is written against.
type Target struct {
	ID             string
	UserID         string
	Content        string
	SourceKind     SourceKind
	OCR            bool
	ImageKey       string
	ImageFileName  string
	ImageSizeBytes int64
	Title          string
	Company        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

var blankLineRun = regexp.MustCompile(`\n{3,}`)

// NormalizeText trims the text, converts line endings to LF and collapses
// runs of three or more newlines to a single blank line.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	return blankLineRun.ReplaceAllString(text, "\n\n")
}
