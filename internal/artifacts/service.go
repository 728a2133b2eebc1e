package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"jobapplier-backend/internal/documents"
	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/metrics"
	"jobapplier-backend/internal/shared/telemetry"
	"jobapplier-backend/internal/targets"
)

// DefaultGenerationTimeout bounds a single provider call.
const DefaultGenerationTimeout = 90 * time.Second

// DocumentReader loads documents with ownership checks applied.
type DocumentReader interface {
	Get(ctx context.Context, userId, documentID string) (documents.Document, error)
}

// TargetReader loads targets with ownership checks applied.
type TargetReader interface {
	Get(ctx context.Context, userId, targetID string) (targets.Target, error)
}

// Service contains business logic for generated cover letters.
type Service struct {
	Repo              ArtifactsRepo
	Documents         DocumentReader
	Targets           TargetReader
	Generator         llm.Generator
	GenerationTimeout time.Duration
	Now               func() time.Time

	flights singleflight.Group
	mu      sync.Mutex
	active  map[string]*flight
}

// flight is the context a shared generation runs on. It is cancelled only
// once every caller waiting on it has gone away.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Generate returns the cover letter for (document, target), creating it with
// one provider call if none exists. Concurrent calls for the same pair in
// this process share that call.
func (s *Service) Generate(ctx context.Context, userId, documentID, targetID, hint string) (GenerateResult, error) {
	doc, err := s.Documents.Get(ctx, userId, documentID)
	if err != nil {
		return GenerateResult{}, notFoundAs(err, "document")
	}
	if !doc.ReadyForGeneration() {
		return GenerateResult{}, apperr.Precondition("document not ready for generation")
	}
	target, err := s.Targets.Get(ctx, userId, targetID)
	if err != nil {
		return GenerateResult{}, notFoundAs(err, "target")
	}

	if existing, err := s.Repo.GetByDocumentAndTarget(ctx, doc.ID, target.ID); err == nil {
		return GenerateResult{Artifact: existing, AlreadyExists: true}, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return GenerateResult{}, fmt.Errorf("lookup artifact: %w", err)
	}

	if s.Generator == nil || !s.Generator.IsConfigured() {
		return GenerateResult{}, apperr.Precondition("generation provider is not configured")
	}

	key := doc.ID + "|" + target.ID
	f := s.join(ctx, key)
	defer s.leave(key, f)

	led := false
	ch := s.flights.DoChan(key, func() (any, error) {
		led = true
		return s.generate(f.ctx, userId, doc, target, hint)
	})
	select {
	case <-ctx.Done():
		return GenerateResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return GenerateResult{}, res.Err
		}
		result := res.Val.(GenerateResult)
		if !led {
			result.AlreadyExists = true
		}
		return result, nil
	}
}

func (s *Service) join(ctx context.Context, key string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		s.active = make(map[string]*flight)
	}
	f, ok := s.active[key]
	if !ok {
		flightCtx, cancel := context.WithCancel(telemetry.Detach(ctx))
		f = &flight{ctx: flightCtx, cancel: cancel}
		s.active[key] = f
	}
	f.waiters++
	return f
}

func (s *Service) leave(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	delete(s.active, key)
	// A cancelled flight must not be joined by later callers.
	s.flights.Forget(key)
}

func (s *Service) generate(ctx context.Context, userId string, doc documents.Document, target targets.Target, hint string) (GenerateResult, error) {
	// A flight that finished just before this one started may have stored it.
	if existing, err := s.Repo.GetByDocumentAndTarget(ctx, doc.ID, target.ID); err == nil {
		return GenerateResult{Artifact: existing, AlreadyExists: true}, nil
	}

	fields := map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"user_id":     userId,
		"document_id": doc.ID,
		"target_id":   target.ID,
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout())
	defer cancel()

	startedAt := time.Now()
	gen, err := s.Generator.Generate(genCtx, llm.GenerateInput{
		Profile:    doc.StructuredProfile,
		TargetText: target.Content,
		Hint:       strings.TrimSpace(hint),
	})
	duration := metrics.SinceMillis(startedAt)
	metrics.ObserveGenerationDurationMs(duration)
	fields["duration_ms"] = duration
	if err != nil {
		metrics.IncGenerationFailed()
		fields["error"] = err.Error()
		telemetry.Error("generation.failed", fields)
		return GenerateResult{}, apperr.Dependency("generate cover letter", err)
	}

	content := strings.TrimSpace(gen.Text)
	if content == "" {
		metrics.IncGenerationFailed()
		telemetry.Error("generation.empty", fields)
		return GenerateResult{}, apperr.Precondition("generation produced no text")
	}

	now := s.now()
	artifact := Artifact{
		ID:         uuid.NewString(),
		UserID:     userId,
		DocumentID: doc.ID,
		TargetID:   target.ID,
		Content:    content,
		WordCount:  CountWords(content),
		UsageUnits: gen.Usage.Total,
		Model:      s.Generator.ModelIdentifier(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	fields["word_count"] = artifact.WordCount
	fields["usage_units"] = artifact.UsageUnits
	fields["model"] = artifact.Model

	if !artifact.WithinWordBand() {
		metrics.IncArtifactOutOfBand()
		fields["min_words"] = MinWords
		fields["max_words"] = MaxWords
		telemetry.Warn("artifact.word_count_out_of_band", fields)
	}

	if err := ctx.Err(); err != nil {
		return GenerateResult{}, err
	}
	if err := s.Repo.Create(ctx, artifact); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			existing, getErr := s.Repo.GetByDocumentAndTarget(ctx, doc.ID, target.ID)
			if getErr != nil {
				return GenerateResult{}, fmt.Errorf("load artifact after conflict: %w", getErr)
			}
			return GenerateResult{Artifact: existing, AlreadyExists: true}, nil
		}
		return GenerateResult{}, fmt.Errorf("create artifact: %w", err)
	}

	metrics.IncArtifactGenerated()
	fields["artifact_id"] = artifact.ID
	telemetry.Info("artifact.generated", fields)
	return GenerateResult{Artifact: artifact}, nil
}

// Get returns an artifact owned by userId.
func (s *Service) Get(ctx context.Context, userId, artifactID string) (Artifact, error) {
	return s.loadOwned(ctx, userId, artifactID)
}

// ListByOwner returns the owner's artifacts, newest first.
func (s *Service) ListByOwner(ctx context.Context, userId string, limit, offset int) ([]Artifact, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, apperr.Validation("owner is required")
	}
	return s.Repo.ListByUser(ctx, userId, limit, offset)
}

// ListByDocument returns the artifacts generated from a document the caller owns.
func (s *Service) ListByDocument(ctx context.Context, userId, documentID string) ([]Artifact, error) {
	doc, err := s.Documents.Get(ctx, userId, documentID)
	if err != nil {
		return nil, notFoundAs(err, "document")
	}
	items, err := s.Repo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	out := make([]Artifact, 0, len(items))
	for _, item := range items {
		if item.UserID == userId {
			out = append(out, item)
		}
	}
	return out, nil
}

// UpdateContent replaces the letter text and recomputes its word count.
func (s *Service) UpdateContent(ctx context.Context, userId, artifactID, content string) (Artifact, error) {
	artifact, err := s.loadOwned(ctx, userId, artifactID)
	if err != nil {
		return Artifact{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Artifact{}, apperr.Validation("content must not be empty")
	}
	now := s.now()
	wordCount := CountWords(content)
	if err := s.Repo.UpdateContent(ctx, artifact.ID, content, wordCount, now); err != nil {
		return Artifact{}, fmt.Errorf("update artifact content: %w", err)
	}
	artifact.Content = content
	artifact.WordCount = wordCount
	artifact.UpdatedAt = now
	return artifact, nil
}

// AddNotes replaces the user's notes on an artifact.
func (s *Service) AddNotes(ctx context.Context, userId, artifactID, notes string) (Artifact, error) {
	artifact, err := s.loadOwned(ctx, userId, artifactID)
	if err != nil {
		return Artifact{}, err
	}
	notes = strings.TrimSpace(notes)
	now := s.now()
	if err := s.Repo.UpdateNotes(ctx, artifact.ID, notes, now); err != nil {
		return Artifact{}, fmt.Errorf("update artifact notes: %w", err)
	}
	artifact.Notes = notes
	artifact.UpdatedAt = now
	return artifact, nil
}

// Delete soft-deletes an artifact. The pair can be generated again afterwards.
func (s *Service) Delete(ctx context.Context, userId, artifactID string) error {
	artifact, err := s.loadOwned(ctx, userId, artifactID)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, artifact.ID, s.now()); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, userId, artifactID string) (Artifact, error) {
	if strings.TrimSpace(artifactID) == "" {
		return Artifact{}, apperr.Validation("artifact id is required")
	}
	artifact, err := s.Repo.GetByID(ctx, artifactID)
	if err != nil {
		return Artifact{}, err
	}
	if artifact.UserID != userId {
		return Artifact{}, apperr.Forbidden("artifact")
	}
	return artifact, nil
}

func (s *Service) generationTimeout() time.Duration {
	if s.GenerationTimeout > 0 {
		return s.GenerationTimeout
	}
	return DefaultGenerationTimeout
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// notFoundAs reports missing and foreign entities the same way.
func notFoundAs(err error, entity string) error {
	if apperr.IsNotFoundLike(err) {
		return apperr.NotFound(entity)
	}
	return err
}
