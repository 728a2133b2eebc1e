package targets

import "time"

// SubmitTextRequest is the JSON body for a pasted job description.
type SubmitTextRequest struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// UpdateTextRequest replaces a target's text.
type UpdateTextRequest struct {
	Text string `json:"text"`
}

// UpdateLabelsRequest replaces a target's title and company.
type UpdateLabelsRequest struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

// TargetResponse is the outward-facing representation of a target.
type TargetResponse struct {
	TargetID       string     `json:"targetId"`
	Text           string     `json:"text"`
	SourceKind     SourceKind `json:"sourceKind"`
	OCR            bool       `json:"ocr"`
	ImageFileName  string     `json:"imageFileName,omitempty"`
	ImageSizeBytes int64      `json:"imageSizeBytes,omitempty"`
	Title          string     `json:"title,omitempty"`
	Company        string     `json:"company,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toResponse(t Target) TargetResponse {
	return TargetResponse{
		TargetID:       t.ID,
		Text:           t.Content,
		SourceKind:     t.SourceKind,
		OCR:            t.OCR,
		ImageFileName:  t.ImageFileName,
		ImageSizeBytes: t.ImageSizeBytes,
		Title:          t.Title,
		Company:        t.Company,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
