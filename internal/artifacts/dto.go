package artifacts

import "time"

// GenerateRequest is the body of POST /artifacts.
type GenerateRequest struct {
	DocumentID string `json:"documentId"`
	TargetID   string `json:"targetId"`
	Hint       string `json:"hint"`
}

// UpdateContentRequest replaces an artifact's text.
type UpdateContentRequest struct {
	Content string `json:"content"`
}

// UpdateNotesRequest replaces an artifact's notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// ArtifactResponse is the outward-facing representation of an artifact.
type ArtifactResponse struct {
	ArtifactID     string    `json:"artifactId"`
	DocumentID     string    `json:"documentId"`
	TargetID       string    `json:"targetId"`
	Content        string    `json:"content"`
	WordCount      int       `json:"wordCount"`
	WithinWordBand bool      `json:"withinWordBand"`
	UsageUnits     int       `json:"usageUnits"`
	Model          string    `json:"model"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// GenerateResponse adds whether the artifact already existed.
type GenerateResponse struct {
	ArtifactResponse
	AlreadyExists bool `json:"alreadyExists"`
}

func toResponse(a Artifact) ArtifactResponse {
	return ArtifactResponse{
		ArtifactID:     a.ID,
		DocumentID:     a.DocumentID,
		TargetID:       a.TargetID,
		Content:        a.Content,
		WordCount:      a.WordCount,
		WithinWordBand: a.WithinWordBand(),
		UsageUnits:     a.UsageUnits,
		Model:          a.Model,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toResponses(items []Artifact) []ArtifactResponse {
	out := make([]ArtifactResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	return out
}
