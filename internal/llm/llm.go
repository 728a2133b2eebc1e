package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Usage reports provider token consumption for one call.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// GenerateInput captures the inputs needed for cover letter generation.
type GenerateInput struct {
	Profile    json.RawMessage
	TargetText string
	Hint       string
}

// Generation is the result of a single generation call.
type Generation struct {
	Text  string
	Usage Usage
}

// Structurer converts free CV text into a structured JSON profile.
type Structurer interface {
	Structure(ctx context.Context, rawText string) (json.RawMessage, error)
	IsConfigured() bool
}

// Generator writes cover letters from a profile and a job description.
type Generator interface {
	Generate(ctx context.Context, input GenerateInput) (Generation, error)
	IsConfigured() bool
	ModelIdentifier() string
}

// OCR reads text out of an image.
type OCR interface {
	ExtractImageText(ctx context.Context, data []byte, mimeType string) (string, error)
	IsConfigured() bool
}

// ErrNotConfigured is returned by the placeholder providers.
var ErrNotConfigured = errors.New("LLM provider not configured")

// ErrInvalidJSON is returned when a provider answers a structuring request with non-JSON output.
var ErrInvalidJSON = errors.New("invalid JSON from provider")

// Unconfigured stands in for every provider when no backend is set up.
type Unconfigured struct{}

func (Unconfigured) Structure(context.Context, string) (json.RawMessage, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Generate(context.Context, GenerateInput) (Generation, error) {
	return Generation{}, ErrNotConfigured
}

func (Unconfigured) ExtractImageText(context.Context, []byte, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) IsConfigured() bool { return false }

func (Unconfigured) ModelIdentifier() string { return "" }

// CleanJSON strips markdown fences some models wrap around JSON and
// returns the payload if it is valid JSON.
func CleanJSON(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil, ErrInvalidJSON
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(trimmed)); err != nil {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(buf.Bytes()), nil
}

var (
	_ Structurer = Unconfigured{}
	_ Generator  = Unconfigured{}
	_ OCR        = Unconfigured{}
)
