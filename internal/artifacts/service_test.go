package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobapplier-backend/internal/documents"
	"jobapplier-backend/internal/llm"
	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/metrics"
	"jobapplier-backend/internal/targets"
)

type fakeDocuments struct {
	docs map[string]documents.Document
}

func (f *fakeDocuments) Get(ctx context.Context, userId, documentID string) (documents.Document, error) {
	doc, ok := f.docs[documentID]
	if !ok {
		return documents.Document{}, apperr.NotFound("document")
	}
	if doc.UserID != userId {
		return documents.Document{}, apperr.Forbidden("document")
	}
	return doc, nil
}

type fakeTargets struct {
	items map[string]targets.Target
}

func (f *fakeTargets) Get(ctx context.Context, userId, targetID string) (targets.Target, error) {
	target, ok := f.items[targetID]
	if !ok {
		return targets.Target{}, apperr.NotFound("target")
	}
	if target.UserID != userId {
		return targets.Target{}, apperr.Forbidden("target")
	}
	return target, nil
}

type fakeGenerator struct {
	configured bool
	text       string
	usage      llm.Usage
	err        error
	delay      time.Duration
	release    chan struct{}
	started    chan struct{}
	aborted    atomic.Int32
	calls      atomic.Int32
	lastInput  llm.GenerateInput
	mu         sync.Mutex
}

func (f *fakeGenerator) Generate(ctx context.Context, input llm.GenerateInput) (llm.Generation, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastInput = input
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.release != nil {
		if f.started != nil {
			close(f.started)
		}
		select {
		case <-f.release:
		case <-ctx.Done():
			f.aborted.Add(1)
			return llm.Generation{}, ctx.Err()
		}
	}
	if f.err != nil {
		return llm.Generation{}, f.err
	}
	return llm.Generation{Text: f.text, Usage: f.usage}, nil
}

func (f *fakeGenerator) IsConfigured() bool      { return f.configured }
func (f *fakeGenerator) ModelIdentifier() string { return "openai/gpt-4o-mini" }

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

type fixture struct {
	svc       *Service
	repo      *MemoryRepo
	generator *fakeGenerator
	docs      *fakeDocuments
}

func newFixture() *fixture {
	structuredAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	docs := &fakeDocuments{docs: map[string]documents.Document{
		"doc-1": {
			ID:                "doc-1",
			UserID:            "user-1",
			StructuredProfile: json.RawMessage(`{"personalInfo":{"name":"Jane Doe"}}`),
			StructuredAt:      &structuredAt,
		},
		"doc-pending": {ID: "doc-pending", UserID: "user-1"},
	}}
	tgts := &fakeTargets{items: map[string]targets.Target{
		"t-1":     {ID: "t-1", UserID: "user-1", Content: "Senior Go engineer at Acme", SourceKind: targets.SourceText},
		"t-2":     {ID: "t-2", UserID: "user-1", Content: "Platform engineer", SourceKind: targets.SourceText},
		"t-other": {ID: "t-other", UserID: "user-2", Content: "Not yours", SourceKind: targets.SourceText},
	}}
	repo := NewMemoryRepo()
	generator := &fakeGenerator{
		configured: true,
		text:       words(300),
		usage:      llm.Usage{Input: 500, Output: 250, Total: 750},
	}
	return &fixture{
		svc: &Service{
			Repo:      repo,
			Documents: docs,
			Targets:   tgts,
			Generator: generator,
			Now:       func() time.Time { return time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC) },
		},
		repo:      repo,
		generator: generator,
		docs:      docs,
	}
}

func TestGeneratePersistsLetterWithUsage(t *testing.T) {
	f := newFixture()
	outOfBandBefore := metrics.Value("artifacts_word_count_out_of_band_total")

	res, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", " emphasize Go ")
	require.NoError(t, err)
	require.False(t, res.AlreadyExists)
	require.Equal(t, 300, res.Artifact.WordCount)
	require.Equal(t, 750, res.Artifact.UsageUnits)
	require.Equal(t, "openai/gpt-4o-mini", res.Artifact.Model)
	require.True(t, res.Artifact.WithinWordBand())
	require.Equal(t, outOfBandBefore, metrics.Value("artifacts_word_count_out_of_band_total"))

	require.Equal(t, "emphasize Go", f.generator.lastInput.Hint)
	require.Equal(t, "Senior Go engineer at Acme", f.generator.lastInput.TargetText)
	require.JSONEq(t, `{"personalInfo":{"name":"Jane Doe"}}`, string(f.generator.lastInput.Profile))

	stored, err := f.repo.GetByDocumentAndTarget(context.Background(), "doc-1", "t-1")
	require.NoError(t, err)
	require.Equal(t, res.Artifact.ID, stored.ID)
}

func TestGenerateIsIdempotentPerPair(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "")
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "different hint")
	require.NoError(t, err)

	require.True(t, second.AlreadyExists)
	require.Equal(t, first.Artifact.ID, second.Artifact.ID)
	require.Equal(t, int32(1), f.generator.calls.Load())

	other, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-2", "")
	require.NoError(t, err)
	require.NotEqual(t, first.Artifact.ID, other.Artifact.ID)
}

func TestGenerateConcurrentCallsShareOneProviderCall(t *testing.T) {
	f := newFixture()
	f.generator.delay = 50 * time.Millisecond

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	existed := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
			ids[i] = res.Artifact.ID
			existed[i] = res.AlreadyExists
			errs[i] = err
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
		if !existed[i] {
			created++
		}
	}
	require.Equal(t, 1, created)
	require.Equal(t, int32(1), f.generator.calls.Load())

	list, err := f.svc.ListByDocument(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func (s *Service) waiters(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.active[key]; ok {
		return f.waiters
	}
	return 0
}

func TestGenerateJoinerSurvivesLeaderCancel(t *testing.T) {
	f := newFixture()
	f.generator.release = make(chan struct{})
	f.generator.started = make(chan struct{})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(leaderCtx, "user-1", "doc-1", "t-1", "")
		leaderErr <- err
	}()
	<-f.generator.started

	type outcome struct {
		res GenerateResult
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		res, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
		joined <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return f.svc.waiters("doc-1|t-1") == 2 }, time.Second, 5*time.Millisecond)

	cancelLeader()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(f.generator.release)
	out := <-joined
	require.NoError(t, out.err)
	require.True(t, out.res.AlreadyExists)
	require.Equal(t, int32(1), f.generator.calls.Load())
	require.Zero(t, f.generator.aborted.Load())

	stored, err := f.repo.GetByDocumentAndTarget(context.Background(), "doc-1", "t-1")
	require.NoError(t, err)
	require.Equal(t, stored.ID, out.res.Artifact.ID)
}

func TestGenerateSoleCallerCancelStoresNothing(t *testing.T) {
	f := newFixture()
	f.generator.release = make(chan struct{})
	f.generator.started = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "")
		done <- err
	}()
	<-f.generator.started
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Eventually(t, func() bool { return f.generator.aborted.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, f.svc.waiters("doc-1|t-1"))

	_, err := f.repo.GetByDocumentAndTarget(context.Background(), "doc-1", "t-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGeneratePreconditions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, "user-1", "doc-pending", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrPrecondition)

	_, err = f.svc.Generate(ctx, "user-1", "doc-missing", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Generate(ctx, "user-2", "doc-1", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Generate(ctx, "user-1", "doc-1", "t-other", "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	f.generator.configured = false
	_, err = f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrPrecondition)
	require.Zero(t, f.generator.calls.Load())
}

func TestGenerateEmptyTextIsPrecondition(t *testing.T) {
	f := newFixture()
	f.generator.text = "   \n "

	_, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrPrecondition)

	_, err = f.repo.GetByDocumentAndTarget(context.Background(), "doc-1", "t-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGenerateProviderFailureStoresNothing(t *testing.T) {
	f := newFixture()
	f.generator.err = errors.New("rate limited")

	_, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
	require.ErrorIs(t, err, apperr.ErrDependency)

	list, err := f.svc.ListByOwner(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestGenerateOutOfBandIsKept(t *testing.T) {
	f := newFixture()
	f.generator.text = words(120)
	before := metrics.Value("artifacts_word_count_out_of_band_total")

	res, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
	require.NoError(t, err)
	require.Equal(t, 120, res.Artifact.WordCount)
	require.False(t, res.Artifact.WithinWordBand())
	require.Greater(t, metrics.Value("artifacts_word_count_out_of_band_total"), before)
}

type conflictRepo struct {
	*MemoryRepo
	winner Artifact
}

// Create simulates another process winning the race for the pair.
func (r *conflictRepo) Create(ctx context.Context, artifact Artifact) error {
	if err := r.MemoryRepo.Create(ctx, r.winner); err != nil {
		return err
	}
	return r.MemoryRepo.Create(ctx, artifact)
}

func TestGenerateConflictReturnsExisting(t *testing.T) {
	f := newFixture()
	winner := Artifact{ID: "winner", UserID: "user-1", DocumentID: "doc-1", TargetID: "t-1", Content: "won", WordCount: 1}
	f.svc.Repo = &conflictRepo{MemoryRepo: f.repo, winner: winner}

	res, err := f.svc.Generate(context.Background(), "user-1", "doc-1", "t-1", "")
	require.NoError(t, err)
	require.True(t, res.AlreadyExists)
	require.Equal(t, "winner", res.Artifact.ID)
}

func TestUpdateContentNotesAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "")
	require.NoError(t, err)
	id := res.Artifact.ID

	updated, err := f.svc.UpdateContent(ctx, "user-1", id, "  Dear hiring manager,\n\nthanks.  ")
	require.NoError(t, err)
	require.Equal(t, 4, updated.WordCount)

	_, err = f.svc.UpdateContent(ctx, "user-1", id, " \t ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	noted, err := f.svc.AddNotes(ctx, "user-1", id, "sent on Monday")
	require.NoError(t, err)
	require.Equal(t, "sent on Monday", noted.Notes)

	_, err = f.svc.Get(ctx, "user-2", id)
	require.True(t, apperr.IsNotFoundLike(err))
	require.ErrorIs(t, f.svc.Delete(ctx, "user-2", id), apperr.ErrForbidden)

	stored, err := f.svc.Get(ctx, "user-1", id)
	require.NoError(t, err)
	require.Equal(t, 4, stored.WordCount)
	require.Equal(t, "sent on Monday", stored.Notes)

	require.NoError(t, f.svc.Delete(ctx, "user-1", id))
	_, err = f.svc.Get(ctx, "user-1", id)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	again, err := f.svc.Generate(ctx, "user-1", "doc-1", "t-1", "")
	require.NoError(t, err)
	require.False(t, again.AlreadyExists)
	require.NotEqual(t, id, again.Artifact.ID)
}

func TestListByDocumentRequiresOwnership(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListByDocument(context.Background(), "user-2", "doc-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCountWords(t *testing.T) {
	require.Equal(t, 0, CountWords(""))
	require.Equal(t, 0, CountWords(" \n\t "))
	require.Equal(t, 3, CountWords("one  two\n\nthree"))
	require.Equal(t, 2, CountWords("hyphen-ated words"))
}
