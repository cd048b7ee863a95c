package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestHistoryRecordSeenAndRuns(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer h.Close()

	modified := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := h.RecordSeen("/a.mp4", modified); err != nil {
		t.Fatalf("RecordSeen failed: %v", err)
	}

	lastSeen, ok, err := h.LastSeen("/a.mp4")
	if err != nil {
		t.Fatalf("LastSeen failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a recorded last-seen timestamp")
	}
	if lastSeen.IsZero() {
		t.Error("expected a non-zero last-seen timestamp")
	}

	if _, ok, err := h.LastSeen("/missing.mp4"); err != nil || ok {
		t.Errorf("expected no record for an unseen path, got ok=%v err=%v", ok, err)
	}

	runID, err := h.BeginRun(time.Now())
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected a non-zero run id")
	}
	if err := h.FinishRun(runID, time.Now(), 10, 2, false); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
}
