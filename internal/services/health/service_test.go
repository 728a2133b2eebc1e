package health

import "testing"

type stubProvider bool

func (s stubProvider) IsConfigured() bool { return bool(s) }

func TestStatusReportsProviders(t *testing.T) {
	svc := NewService(stubProvider(true), stubProvider(false), nil, "local", "local", false)

	status := svc.Status()
	if !status.OK {
		t.Fatalf("expected ok status")
	}
	if !status.Providers["structuring"] || status.Providers["generation"] || status.Providers["ocr"] {
		t.Fatalf("unexpected providers %v", status.Providers)
	}
	if status.Database != "memory" || status.Storage != "local" {
		t.Fatalf("unexpected status %+v", status)
	}
}
