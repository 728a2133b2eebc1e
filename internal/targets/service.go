package targets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/metrics"
	"jobapplier-backend/internal/shared/storage/object"
	"jobapplier-backend/internal/shared/telemetry"
)

// SubmitInput carries exactly one of Text or Image.
type SubmitInput struct {
	Text     string
	Image    []byte
	FileName string
	Title    string
	Company  string
}

// Service contains business logic for targets.
type Service struct {
	Store object.ObjectStore
	Repo  TargetsRepo
	OCR   llm.OCR
	Now   func() time.Time
}

// Submit records a job description from pasted text or an image.
func (s *Service) Submit(ctx context.Context, userId string, in SubmitInput) (Target, error) {
	if strings.TrimSpace(userId) == "" {
		return Target{}, apperr.Validation("owner is required")
	}
	hasText := strings.TrimSpace(in.Text) != ""
	hasImage := len(in.Image) > 0
	if hasText == hasImage {
		return Target{}, apperr.Validation("exactly one of text or image is required")
	}

	now := s.now()
	target := Target{
		ID:        uuid.NewString(),
		UserID:    userId,
		Title:     strings.TrimSpace(in.Title),
		Company:   strings.TrimSpace(in.Company),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if hasText {
		target.SourceKind = SourceText
		target.Content = NormalizeText(in.Text)
	} else {
		mimeType, err := validateImage(in.FileName, in.Image)
		if err != nil {
			return Target{}, err
		}
		obj, err := s.Store.Save(ctx, userId, in.FileName, bytes.NewReader(in.Image))
		if err != nil {
			return Target{}, apperr.Dependency("store image", err)
		}
		target.SourceKind = SourceImage
		target.OCR = true
		target.ImageKey = obj.Key
		target.ImageFileName = in.FileName
		target.ImageSizeBytes = int64(len(in.Image))
		target.Content = s.readImage(ctx, userId, in.Image, mimeType)
	}

	if err := ctx.Err(); err != nil {
		s.releaseImage(ctx, target.ImageKey)
		return Target{}, err
	}
	if err := s.Repo.Create(ctx, target); err != nil {
		s.releaseImage(ctx, target.ImageKey)
		return Target{}, fmt.Errorf("create target: %w", err)
	}

	metrics.IncTargetSubmitted()
	telemetry.Info("target.submitted", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     userId,
		"target_id":   target.ID,
		"source_kind": string(target.SourceKind),
		"chars":       len(target.Content),
	})
	return target, nil
}

// Get returns a target owned by userId.
func (s *Service) Get(ctx context.Context, userId, targetID string) (Target, error) {
	return s.loadOwned(ctx, userId, targetID)
}

// List returns the owner's targets, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Target, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, apperr.Validation("owner is required")
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// UpdateText replaces the text, typically after a failed or partial OCR.
func (s *Service) UpdateText(ctx context.Context, userId, targetID, text string) (Target, error) {
	target, err := s.loadOwned(ctx, userId, targetID)
	if err != nil {
		return Target{}, err
	}
	normalized := NormalizeText(text)
	if normalized == "" {
		return Target{}, apperr.Validation("text must not be empty")
	}
	now := s.now()
	if err := s.Repo.UpdateText(ctx, target.ID, normalized, now); err != nil {
		return Target{}, fmt.Errorf("update target text: %w", err)
	}
	target.Content = normalized
	target.UpdatedAt = now
	return target, nil
}

// UpdateLabels replaces the optional title and company.
func (s *Service) UpdateLabels(ctx context.Context, userId, targetID, title, company string) (Target, error) {
	target, err := s.loadOwned(ctx, userId, targetID)
	if err != nil {
		return Target{}, err
	}
	title = strings.TrimSpace(title)
	company = strings.TrimSpace(company)
	now := s.now()
	if err := s.Repo.UpdateLabels(ctx, target.ID, title, company, now); err != nil {
		return Target{}, fmt.Errorf("update target labels: %w", err)
	}
	target.Title = title
	target.Company = company
	target.UpdatedAt = now
	return target, nil
}

// Delete soft-deletes the target and removes its stored image, if any.
func (s *Service) Delete(ctx context.Context, userId, targetID string) error {
	target, err := s.loadOwned(ctx, userId, targetID)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, target.ID, s.now()); err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	s.releaseImage(ctx, target.ImageKey)
	return nil
}

func (s *Service) loadOwned(ctx context.Context, userId, targetID string) (Target, error) {
	if strings.TrimSpace(targetID) == "" {
		return Target{}, apperr.Validation("target id is required")
	}
	target, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		return Target{}, err
	}
	if target.UserID != userId {
		return Target{}, apperr.Forbidden("target")
	}
	return target, nil
}

// readImage runs OCR. It never fails; problems become placeholder text the
// user can replace with UpdateText.
func (s *Service) readImage(ctx context.Context, userId string, data []byte, mimeType string) string {
	fields := map[string]any{
		"request_id": telemetry.RequestIDFromContext(ctx),
		"user_id":    userId,
	}
	if s.OCR == nil || !s.OCR.IsConfigured() {
		telemetry.Warn("ocr.not_configured", fields)
		return OCRNotConfiguredText
	}
	text, err := s.OCR.ExtractImageText(ctx, data, mimeType)
	if err == nil {
		if normalized := NormalizeText(text); normalized != "" {
			return normalized
		}
		err = errors.New("empty OCR result")
	}
	metrics.IncOCRFailed()
	fields["error"] = err.Error()
	telemetry.Warn("ocr.failed", fields)
	return OCRFailedText
}

func (s *Service) releaseImage(ctx context.Context, key string) {
	if key == "" || s.Store == nil {
		return
	}
	if err := s.Store.Delete(telemetry.Detach(ctx), key); err != nil {
		telemetry.Warn("target.release_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validateImage(fileName string, data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", apperr.Validation("image exceeds maximum size of %d bytes", MaxImageBytes)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(fileName)), "."))
	switch ext {
	case "png":
		return "image/png", nil
	case "jpg", "jpeg":
		return "image/jpeg", nil
	default:
		return "", apperr.Validation("unsupported image type %q: allowed png, jpg, jpeg", ext)
	}
}
