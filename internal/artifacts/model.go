package artifacts

import (
	"strings"
	"time"
)

// Expected length of a generated cover letter, in words. Letters outside the
// band are kept and flagged.
const (
	MinWords = 200
	MaxWords = 400
)

// Artifact is a generated cover letter for one (document, target) pair.
type Artifact struct {
	ID         string
	UserID     string
	DocumentID string
	TargetID   string
	Content    string
	WordCount  int
	UsageUnits int
	Model      string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// WithinWordBand reports whether the letter length is in the expected range.
func (a Artifact) WithinWordBand() bool {
	return a.WordCount >= MinWords && a.WordCount <= MaxWords
}

// GenerateResult is returned by Generate.
type GenerateResult struct {
	Artifact      Artifact
	AlreadyExists bool
}

// CountWords counts maximal runs of non-whitespace characters.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
