package documents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"jobapplier-backend/internal/shared/apperr"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func sampleDocument() Document {
	now := time.Date(2026, 1, 30, 22, 0, 0, 0, time.UTC)
	return Document{
		ID:              "doc-1",
		UserID:          "user-1",
		FileName:        "resume.pdf",
		MediaKind:       MediaPDF,
		MimeType:        "application/pdf",
		SizeBytes:       3 << 20,
		StorageProvider: "local",
		StorageKey:      "abc/123_resume.pdf",
		Checksum:        "c1",
		ExtractedText:   "Jane Doe",
		CreatedAt:       now,
	}
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := sampleDocument()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.UserID,
			doc.FileName,
			"pdf",
			doc.MimeType,
			doc.SizeBytes,
			"local",
			doc.StorageKey,
			doc.Checksum,
			doc.ExtractedText,
			doc.CreatedAt,
			doc.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateUniqueViolationIsConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_user_checksum_live_idx"})

	err := repo.Create(context.Background(), sampleDocument())
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPGRepoGetByOwnerAndChecksum(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := sampleDocument()
	structuredAt := doc.CreatedAt.Add(time.Minute)

	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "media_kind", "mime_type", "size_bytes", "storage_provider", "storage_key", "checksum", "extracted_text", "structured_profile", "structured_at", "created_at", "updated_at"}).
		AddRow(doc.ID, doc.UserID, doc.FileName, "pdf", doc.MimeType, doc.SizeBytes, "local", doc.StorageKey, doc.Checksum, doc.ExtractedText, []byte(`{"skills":[]}`), structuredAt, doc.CreatedAt, structuredAt)

	mock.ExpectQuery("SELECT .* FROM documents\\s+WHERE user_id = \\$1 AND checksum = \\$2 AND deleted_at IS NULL").
		WithArgs("user-1", "c1").
		WillReturnRows(rows)

	got, err := repo.GetByOwnerAndChecksum(context.Background(), "user-1", "c1")
	if err != nil {
		t.Fatalf("GetByOwnerAndChecksum: %v", err)
	}
	if got.ID != doc.ID || got.MediaKind != MediaPDF || got.Status() != StatusDone {
		t.Fatalf("unexpected document %+v", got)
	}
	if string(got.StructuredProfile) != `{"skills":[]}` {
		t.Fatalf("unexpected profile %s", got.StructuredProfile)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM documents").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoMalformedIDIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	badUUID := &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}

	mock.ExpectQuery("SELECT .* FROM documents").
		WithArgs("abc").
		WillReturnError(badUUID)
	mock.ExpectExec("UPDATE documents\\s+SET deleted_at = \\$1").
		WithArgs(sqlmock.AnyArg(), "abc").
		WillReturnError(badUUID)

	if _, err := repo.GetByID(context.Background(), "abc"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SoftDelete(context.Background(), "abc", time.Now().UTC()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestPGRepoMarkStructuredOnlyWhenPending(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()
	profile := json.RawMessage(`{"personalInfo":{}}`)

	mock.ExpectExec("UPDATE documents\\s+SET structured_profile = \\$1, structured_at = \\$2, updated_at = \\$2\\s+WHERE id = \\$3 AND structured_at IS NULL").
		WithArgs([]byte(profile), at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs([]byte(profile), at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkStructured(context.Background(), "doc-1", profile, at)
	if err != nil || !updated {
		t.Fatalf("first MarkStructured: updated=%v err=%v", updated, err)
	}
	updated, err = repo.MarkStructured(context.Background(), "doc-1", profile, at)
	if err != nil || updated {
		t.Fatalf("second MarkStructured should be a no-op: updated=%v err=%v", updated, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents\\s+SET deleted_at = \\$1").
		WithArgs(at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents\\s+SET deleted_at = \\$1").
		WithArgs(at, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SoftDelete(context.Background(), "doc-1", at); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), "doc-1", at); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPGRepoListByUserClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM documents\\s+WHERE user_id = \\$1 AND deleted_at IS NULL\\s+ORDER BY created_at DESC").
		WithArgs("user-1", 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "file_name", "media_kind", "mime_type", "size_bytes", "storage_provider", "storage_key", "checksum", "extracted_text", "structured_profile", "structured_at", "created_at", "updated_at"}))

	docs, err := repo.ListByUser(context.Background(), "user-1", 500, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}
