package workerproc

import (
	"context"
	"errors"
	"testing"

	"jobapplier-backend/internal/queue"
	"jobapplier-backend/internal/shared/telemetry"
)

type fakeProcessor struct {
	ids       []string
	requestID string
	err       error
}

func (f *fakeProcessor) ProcessStructuring(ctx context.Context, documentID string) error {
	f.ids = append(f.ids, documentID)
	f.requestID = telemetry.RequestIDFromContext(ctx)
	return f.err
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage("  "); !IsPermanent(err) {
		t.Fatalf("expected permanent empty-body error, got %v", err)
	}
	if _, _, err := ParseMessage("{not json"); !IsPermanent(err) {
		t.Fatalf("expected permanent decode error, got %v", err)
	}
	_, meta, err := ParseMessage(`{"requestId":"r1"}`)
	var missing ErrMissingDocumentID
	if !errors.As(err, &missing) || missing.RequestID != "r1" {
		t.Fatalf("expected ErrMissingDocumentID, got %v", err)
	}
	if meta.BodyLen == 0 || meta.BodySHA == "" {
		t.Fatalf("expected populated meta, got %+v", meta)
	}
}

func TestHandleMessageProcesses(t *testing.T) {
	proc := &fakeProcessor{}
	body := `{"documentId":"doc-1","requestId":"req-9","version":1}`
	if err := HandleMessage(context.Background(), proc, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.ids) != 1 || proc.ids[0] != "doc-1" {
		t.Fatalf("unexpected ids %v", proc.ids)
	}
	if proc.requestID != "req-9" {
		t.Fatalf("expected request id propagated, got %q", proc.requestID)
	}
}

func TestHandleMessageUsesParsedMessage(t *testing.T) {
	proc := &fakeProcessor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{DocumentID: "doc-2"})
	if err := HandleMessage(ctx, proc, ""); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.ids) != 1 || proc.ids[0] != "doc-2" {
		t.Fatalf("unexpected ids %v", proc.ids)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	boom := errors.New("provider down")
	proc := &fakeProcessor{err: boom}
	err := HandleMessage(context.Background(), proc, `{"documentId":"doc-3"}`)
	var perr ErrProcess
	if !errors.As(err, &perr) || perr.DocumentID != "doc-3" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("expected wrapped cause")
	}
	if IsPermanent(err) {
		t.Fatal("processing failures must be retryable")
	}
}
