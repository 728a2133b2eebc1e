package targets

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jobapplier-backend/internal/shared/apperr"
	"jobapplier-backend/internal/shared/storage/object/local"
)

type fakeOCR struct {
	configured bool
	text       string
	err        error
	calls      int
	mimeType   string
}

func (f *fakeOCR) ExtractImageText(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.calls++
	f.mimeType = mimeType
	return f.text, f.err
}

func (f *fakeOCR) IsConfigured() bool { return f.configured }

func newTestService(t *testing.T, ocr *fakeOCR) (*Service, *local.Store) {
	t.Helper()
	store := local.New(t.TempDir())
	return &Service{
		Store: store,
		Repo:  NewMemoryRepo(),
		OCR:   ocr,
		Now:   func() time.Time { return time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC) },
	}, store
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func TestSubmitTextNormalizes(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{})

	target, err := svc.Submit(context.Background(), "user-1", SubmitInput{
		Text:    "  Senior Go Engineer\r\n\r\n\r\n\r\nRemote  ",
		Title:   " Backend ",
		Company: "Acme",
	})
	require.NoError(t, err)
	require.Equal(t, "Senior Go Engineer\n\nRemote", target.Content)
	require.Equal(t, SourceText, target.SourceKind)
	require.False(t, target.OCR)
	require.Empty(t, target.ImageKey)
	require.Equal(t, "Backend", target.Title)
}

func TestSubmitRequiresExactlyOneSource(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{})

	_, err := svc.Submit(context.Background(), "user-1", SubmitInput{Text: "   "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(context.Background(), "user-1", SubmitInput{Text: "job", Image: pngBytes, FileName: "job.png"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSubmitImageRunsOCR(t *testing.T) {
	ocr := &fakeOCR{configured: true, text: "Job title\n\n\n\nRequirements"}
	svc, store := newTestService(t, ocr)

	target, err := svc.Submit(context.Background(), "user-1", SubmitInput{Image: pngBytes, FileName: "job.PNG"})
	require.NoError(t, err)
	require.Equal(t, SourceImage, target.SourceKind)
	require.True(t, target.OCR)
	require.Equal(t, "Job title\n\nRequirements", target.Content)
	require.Equal(t, "image/png", ocr.mimeType)
	require.Equal(t, int64(len(pngBytes)), target.ImageSizeBytes)

	ok, err := store.Exists(context.Background(), target.ImageKey)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSubmitImageOCRFailureUsesPlaceholder(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{configured: true, err: errors.New("vision down")})

	target, err := svc.Submit(context.Background(), "user-1", SubmitInput{Image: pngBytes, FileName: "job.jpg"})
	require.NoError(t, err)
	require.Equal(t, OCRFailedText, target.Content)
}

func TestSubmitImageWithoutOCRUsesPlaceholder(t *testing.T) {
	ocr := &fakeOCR{}
	svc, _ := newTestService(t, ocr)

	target, err := svc.Submit(context.Background(), "user-1", SubmitInput{Image: pngBytes, FileName: "job.jpeg"})
	require.NoError(t, err)
	require.Equal(t, OCRNotConfiguredText, target.Content)
	require.Zero(t, ocr.calls)
}

func TestSubmitImageValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{configured: true, text: "x"})

	_, err := svc.Submit(context.Background(), "user-1", SubmitInput{Image: pngBytes, FileName: "job.gif"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(context.Background(), "user-1", SubmitInput{Image: make([]byte, MaxImageBytes+1), FileName: "big.png"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Submit(context.Background(), "user-1", SubmitInput{Image: make([]byte, MaxImageBytes), FileName: "edge.png"})
	require.NoError(t, err)
}

func TestUpdateTextAndLabels(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{})
	ctx := context.Background()

	target, err := svc.Submit(ctx, "user-1", SubmitInput{Image: pngBytes, FileName: "job.png"})
	require.NoError(t, err)

	updated, err := svc.UpdateText(ctx, "user-1", target.ID, "Typed by hand\r\n")
	require.NoError(t, err)
	require.Equal(t, "Typed by hand", updated.Content)
	require.Equal(t, SourceImage, updated.SourceKind)
	require.Equal(t, target.ImageKey, updated.ImageKey)

	_, err = svc.UpdateText(ctx, "user-1", target.ID, " \n ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	labeled, err := svc.UpdateLabels(ctx, "user-1", target.ID, "Platform Engineer", "Acme")
	require.NoError(t, err)
	require.Equal(t, "Platform Engineer", labeled.Title)

	stored, err := svc.Get(ctx, "user-1", target.ID)
	require.NoError(t, err)
	require.Equal(t, "Typed by hand", stored.Content)
	require.Equal(t, "Acme", stored.Company)
}

func TestOtherOwnerIsForbidden(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{})
	ctx := context.Background()

	target, err := svc.Submit(ctx, "user-1", SubmitInput{Text: "job"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", target.ID)
	require.True(t, apperr.IsNotFoundLike(err))
	_, err = svc.UpdateText(ctx, "user-2", target.ID, "mine now")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.UpdateLabels(ctx, "user-2", target.ID, "t", "c")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, "user-2", target.ID), apperr.ErrForbidden)
}

func TestDeleteRemovesImage(t *testing.T) {
	svc, store := newTestService(t, &fakeOCR{})
	ctx := context.Background()

	target, err := svc.Submit(ctx, "user-1", SubmitInput{Image: pngBytes, FileName: "job.png"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", target.ID))

	ok, err := store.Exists(ctx, target.ImageKey)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Get(ctx, "user-1", target.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := svc.List(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestSubmitCanceledWritesNothing(t *testing.T) {
	svc, _ := newTestService(t, &fakeOCR{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, "user-1", SubmitInput{Text: "job"})
	require.ErrorIs(t, err, context.Canceled)

	list, err := svc.List(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}
