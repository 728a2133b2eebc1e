package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobapplier-backend/internal/extract"
	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/queue"
	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/metrics"
	"jobapplier-backend/internal/shared/storage/object"
	"jobapplier-backend/internal/shared/telemetry"
	"jobapplier-backend/internal/shared/util"
)

// DefaultStructuringTimeout bounds a single structuring run.
const DefaultStructuringTimeout = 2 * time.Minute

// Service contains business logic for documents: ingestion and structuring.
type Service struct {
	Store              object.ObjectStore
	StorageProvider    string
	Repo               DocumentsRepo
	Extractor          extract.Provider
	Structurer         llm.Structurer
	Queue              queue.Client
	StructuringTimeout time.Duration
	Now                func() time.Time
}

// Ingest validates, stores, extracts and records a CV. Identical bytes
// uploaded twice by the same owner resolve to the existing document.
func (s *Service) Ingest(ctx context.Context, userId, fileName string, payload []byte) (IngestResult, error) {
	if strings.TrimSpace(userId) == "" {
		return IngestResult{}, apperr.Validation("owner is required")
	}
	kind, err := validateUpload(fileName, payload)
	if err != nil {
		return IngestResult{}, err
	}

	checksum := util.Checksum(payload)

	existing, err := s.Repo.GetByOwnerAndChecksum(ctx, userId, checksum)
	if err == nil {
		return s.duplicate(ctx, existing), nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return IngestResult{}, fmt.Errorf("lookup document by checksum: %w", err)
	}

	obj, err := s.Store.Save(ctx, userId, fileName, bytes.NewReader(payload))
	if err != nil {
		return IngestResult{}, apperr.Dependency("store document", err)
	}

	text, err := s.Extractor.ExtractText(ctx, obj.Key, kind.ExtractKind())
	if err != nil {
		s.releaseObject(ctx, obj.Key, "extract_failed")
		return IngestResult{}, apperr.Dependency("extract text", err)
	}

	if err := ctx.Err(); err != nil {
		s.releaseObject(ctx, obj.Key, "canceled")
		return IngestResult{}, err
	}

	now := s.now()
	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userId,
		FileName:        fileName,
		MediaKind:       kind,
		MimeType:        mimeForKind(kind, obj.MimeType),
		SizeBytes:       int64(len(payload)),
		StorageProvider: s.storageProvider(),
		StorageKey:      obj.Key,
		Checksum:        checksum,
		ExtractedText:   text,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		s.releaseObject(ctx, obj.Key, "create_failed")
		if errors.Is(err, apperr.ErrConflict) {
			existing, getErr := s.Repo.GetByOwnerAndChecksum(ctx, userId, checksum)
			if getErr != nil {
				return IngestResult{}, fmt.Errorf("load document after conflict: %w", getErr)
			}
			return s.duplicate(ctx, existing), nil
		}
		return IngestResult{}, fmt.Errorf("create document: %w", err)
	}

	metrics.IncDocumentIngested()
	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"user_id":           userId,
		"document_id":       doc.ID,
		"status":            StatusPending,
		"status_transition": "uploaded->pending",
		"size_bytes":        doc.SizeBytes,
		"media_kind":        string(kind),
	})

	s.dispatchStructuring(ctx, doc)
	return IngestResult{Document: doc}, nil
}

// ProcessStructuring structures a pending document. Running it on a missing,
// deleted or already structured document is a no-op.
func (s *Service) ProcessStructuring(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.structuringTimeout())
	defer cancel()

	fields := map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"document_id": documentID,
	}

	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.IncStructuringSkipped()
			fields["reason"] = "document_missing"
			telemetry.Warn("structuring.skipped", fields)
			return nil
		}
		return fmt.Errorf("load document: %w", err)
	}
	fields["user_id"] = doc.UserID

	if doc.Status() == StatusDone {
		metrics.IncStructuringSkipped()
		fields["reason"] = "already_done"
		telemetry.Info("structuring.skipped", fields)
		return nil
	}

	if s.Structurer == nil || !s.Structurer.IsConfigured() {
		metrics.IncStructuringSkipped()
		fields["reason"] = "provider_unconfigured"
		telemetry.Warn("structuring.skipped", fields)
		return nil
	}

	metrics.IncStructuringStarted()
	startedAt := time.Now()

	profile, err := s.Structurer.Structure(ctx, doc.ExtractedText)
	if err == nil && (len(profile) == 0 || !json.Valid(profile)) {
		err = llm.ErrInvalidJSON
	}
	if err != nil {
		metrics.IncStructuringFailed()
		metrics.ObserveStructuringDurationMs(metrics.SinceMillis(startedAt))
		fields["error"] = err.Error()
		fields["duration_ms"] = metrics.SinceMillis(startedAt)
		telemetry.Error("structuring.failed", fields)
		return apperr.Dependency("structure document", err)
	}

	updated, err := s.Repo.MarkStructured(ctx, doc.ID, profile, s.now())
	if err != nil {
		metrics.IncStructuringFailed()
		return fmt.Errorf("persist structured profile: %w", err)
	}
	if !updated {
		metrics.IncStructuringSkipped()
		fields["reason"] = "completed_concurrently"
		telemetry.Info("structuring.skipped", fields)
		return nil
	}

	duration := metrics.SinceMillis(startedAt)
	metrics.IncStructuringCompleted()
	metrics.ObserveStructuringDurationMs(duration)
	fields["status"] = StatusDone
	fields["status_transition"] = "pending->done"
	fields["duration_ms"] = duration
	telemetry.Info("document.status", fields)
	return nil
}

// Get returns a document owned by userId.
func (s *Service) Get(ctx context.Context, userId, documentID string) (Document, error) {
	return s.loadOwned(ctx, userId, documentID)
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, userId string, limit, offset int) ([]Document, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, apperr.Validation("owner is required")
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// Delete soft-deletes the document and releases its stored bytes.
func (s *Service) Delete(ctx context.Context, userId, documentID string) error {
	doc, err := s.loadOwned(ctx, userId, documentID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, doc.ID, s.now()); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.releaseObject(ctx, doc.StorageKey, "document_deleted")
	return nil
}

// RetryStructuring re-dispatches structuring for a pending document.
func (s *Service) RetryStructuring(ctx context.Context, userId, documentID string) (Document, error) {
	doc, err := s.loadOwned(ctx, userId, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.Status() == StatusDone {
		return Document{}, apperr.Precondition("document is already structured")
	}
	if s.Queue == nil {
		return Document{}, apperr.Precondition("structuring queue is not configured")
	}
	msg := queue.NewStructuringMessage(doc.ID, telemetry.RequestIDFromContext(ctx))
	if err := s.Queue.Send(telemetry.Detach(ctx), msg); err != nil {
		metrics.IncStructuringDispatchFailed()
		return Document{}, apperr.Dependency("dispatch structuring", err)
	}
	return doc, nil
}

func (s *Service) loadOwned(ctx context.Context, userId, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, apperr.Validation("document id is required")
	}
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userId {
		return Document{}, apperr.Forbidden("document")
	}
	return doc, nil
}

func (s *Service) duplicate(ctx context.Context, doc Document) IngestResult {
	metrics.IncDocumentDuplicate()
	telemetry.Info("document.duplicate", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     doc.UserID,
		"document_id": doc.ID,
	})
	return IngestResult{Document: doc, Duplicate: true}
}

// dispatchStructuring hands the document to the queue. Failures never fail
// ingestion; the document stays pending and can be retried.
func (s *Service) dispatchStructuring(ctx context.Context, doc Document) {
	fields := map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     doc.UserID,
		"document_id": doc.ID,
	}
	if s.Queue == nil {
		metrics.IncStructuringDispatchFailed()
		fields["error"] = "queue not configured"
		telemetry.Warn("structuring.dispatch_failed", fields)
		return
	}
	msg := queue.NewStructuringMessage(doc.ID, telemetry.RequestIDFromContext(ctx))
	if err := s.Queue.Send(telemetry.Detach(ctx), msg); err != nil {
		metrics.IncStructuringDispatchFailed()
		fields["error"] = err.Error()
		telemetry.Warn("structuring.dispatch_failed", fields)
	}
}

// releaseObject deletes stored bytes best-effort; failures are logged only.
func (s *Service) releaseObject(ctx context.Context, key, reason string) {
	if key == "" {
		return
	}
	if err := s.Store.Delete(telemetry.Detach(ctx), key); err != nil {
		telemetry.Warn("document.release_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"storage_key": key,
			"reason":      reason,
			"error":       err.Error(),
		})
	}
}

func (s *Service) structuringTimeout() time.Duration {
	if s.StructuringTimeout > 0 {
		return s.StructuringTimeout
	}
	return DefaultStructuringTimeout
}

func (s *Service) storageProvider() string {
	if s.StorageProvider != "" {
		return s.StorageProvider
	}
	return "local"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validateUpload(fileName string, payload []byte) (MediaKind, error) {
	if len(payload) == 0 {
		return "", apperr.Validation("file is empty")
	}
	if len(payload) > MaxDocumentBytes {
		return "", apperr.Validation("file exceeds maximum size of %d bytes", MaxDocumentBytes)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(fileName)), "."))
	switch MediaKind(ext) {
	case MediaPDF:
		return MediaPDF, nil
	case MediaDOCX:
		return MediaDOCX, nil
	default:
		return "", apperr.Validation("unsupported file type %q: allowed pdf, docx", ext)
	}
}

func mimeForKind(kind MediaKind, sniffed string) string {
	switch kind {
	case MediaPDF:
		return "application/pdf"
	case MediaDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return sniffed
	}
}
