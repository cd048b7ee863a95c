package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/compare"
	"github.com/clipscan/clipscan/internal/decoder"
	"github.com/clipscan/clipscan/internal/enumerator"
	"github.com/clipscan/clipscan/internal/fingerprint"
)

// fakeDecoder is a Decoder test double: deterministic thumbnails, no
// subprocess, configurable preflight outcome.
type fakeDecoder struct {
	unhealthy bool
}

func (f *fakeDecoder) Preflight(ctx context.Context) []decoder.Check {
	if f.unhealthy {
		return []decoder.Check{{Name: "ffprobe", Status: decoder.StatusUnhealthy, Message: "missing"}}
	}
	return []decoder.Check{
		{Name: "ffprobe", Status: decoder.StatusHealthy},
		{Name: "ffmpeg", Status: decoder.StatusHealthy},
	}
}

func (f *fakeDecoder) Probe(ctx context.Context, path string) (*decoder.MediaProbe, error) {
	return &decoder.MediaProbe{Duration: 10}, nil
}

func (f *fakeDecoder) ExtractGrayscaleThumbnails(ctx context.Context, path string, positions []float64) ([][]byte, error) {
	out := make([][]byte, len(positions))
	vec := make([]byte, fingerprint.VectorSize)
	for i := range out {
		out[i] = vec
	}
	return out, nil
}

func touchFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestEngine(t *testing.T, dec Decoder) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	store := catalog.New(filepath.Join(dir, "catalog.gob"))
	return NewEngine(store, dec, nil, dir, nil), dir
}

func drainEvents(e *Engine, until EventType, timeout time.Duration) []Event {
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-e.Events():
			got = append(got, ev)
			if ev.Type == until {
				return got
			}
		case <-deadline:
			return got
		}
	}
}

func TestStartFailsPreflightNeverRuns(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeDecoder{unhealthy: true})

	err := engine.Start(context.Background(), Settings{})
	if err == nil {
		t.Fatalf("expected preflight failure error")
	}

	select {
	case ev := <-engine.Events():
		t.Fatalf("expected no events emitted after preflight failure, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartRunsFullPipelineAndEmitsScanDone(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "a.mp4")
	touchFile(t, video)

	engine, catDir := newTestEngine(t, &fakeDecoder{})
	_ = catDir

	settings := Settings{
		Enumerator: enumerator.Options{IncludeRoots: []string{dir}, IncludeSubdirectories: true},
		Fingerprint: fingerprint.Settings{
			Positions:      []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}},
			MaxParallelism: 1,
		},
		Compare: compare.Settings{
			Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}},
			Percent:   90,
		},
	}

	if err := engine.Start(context.Background(), settings); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	events := drainEvents(engine, EventScanDone, 5*time.Second)
	if len(events) == 0 || events[len(events)-1].Type != EventScanDone {
		t.Fatalf("expected pipeline to finish with ScanDone, got %v", events)
	}

	var sawThumbnails bool
	for _, ev := range events {
		if ev.Type == EventThumbnailsRetrieved {
			sawThumbnails = true
		}
	}
	if !sawThumbnails {
		t.Errorf("expected a ThumbnailsRetrieved event for the fingerprinted video")
	}
}

func TestStartTwiceIsNoOpWhileRunning(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "a.mp4"))
	engine, _ := newTestEngine(t, &fakeDecoder{})

	settings := Settings{
		Enumerator:  enumerator.Options{IncludeRoots: []string{dir}},
		Fingerprint: fingerprint.Settings{Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}}},
		Compare:     compare.Settings{Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}}, Percent: 90},
	}

	if err := engine.Start(context.Background(), settings); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := engine.Start(context.Background(), settings); err != nil {
		t.Fatalf("second concurrent Start should be a silent no-op, got error: %v", err)
	}

	engine.Stop()
}

func TestStopCancelsInFlightRun(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		touchFile(t, filepath.Join(dir, string(rune('a'+i))+".mp4"))
	}
	engine, _ := newTestEngine(t, &fakeDecoder{})

	settings := Settings{
		Enumerator:  enumerator.Options{IncludeRoots: []string{dir}},
		Fingerprint: fingerprint.Settings{Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}}, MaxParallelism: 1},
		Compare:     compare.Settings{Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}}, Percent: 90},
	}

	if err := engine.Start(context.Background(), settings); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	engine.Stop()

	select {
	case ev := <-engine.Events():
		if ev.Type != EventScanAborted && ev.Type != EventFilesEnumerated && ev.Type != EventBuildingHashesDone && ev.Type != EventProgress {
			t.Fatalf("unexpected event after Stop: %v", ev)
		}
	case <-time.After(2 * time.Second):
	}
}

func TestPauseResumeDoesNotDeadlockController(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeDecoder{})
	engine.Pause()
	engine.Resume()
	engine.Stop()
}

func TestCleanCatalogRespectsIncludeNonExisting(t *testing.T) {
	engine, dir := newTestEngine(t, &fakeDecoder{})
	missing := filepath.Join(dir, "gone.mp4")

	rec := catalog.NewFileRecord(missing, 1, time.Now(), time.Now(), 0, 0)
	engine.store.InsertOrReconcile(rec)

	engine.CleanCatalog(true)
	if engine.store.Len() != 1 {
		t.Fatalf("expected record kept with includeNonExisting=true, got %d records", engine.store.Len())
	}

	engine.CleanCatalog(false)
	if engine.store.Len() != 0 {
		t.Fatalf("expected record removed with includeNonExisting=false, got %d records", engine.store.Len())
	}
}

func TestRunCompareAndRankHonorsScanAgainstEntireDatabase(t *testing.T) {
	dir := t.TempDir()
	rootA := filepath.Join(dir, "rootA")
	rootB := filepath.Join(dir, "rootB")
	if err := os.MkdirAll(rootA, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(rootB, 0o755); err != nil {
		t.Fatal(err)
	}
	pathA := filepath.Join(rootA, "a.mp4")
	pathB := filepath.Join(rootB, "b.mp4")
	touchFile(t, pathA)
	touchFile(t, pathB)

	engine, _ := newTestEngine(t, &fakeDecoder{})

	vec := make([]byte, fingerprint.VectorSize)
	recA := catalog.NewFileRecord(pathA, 1, time.Now(), time.Now(), 0, 0)
	recA.SetMediaInfo(&catalog.MediaInfo{Duration: 10})
	recA.SetFingerprint(5, vec)
	recB := catalog.NewFileRecord(pathB, 1, time.Now(), time.Now(), 0, 0)
	recB.SetMediaInfo(&catalog.MediaInfo{Duration: 10})
	recB.SetFingerprint(5, vec)
	engine.store.InsertOrReconcile(recA)
	engine.store.InsertOrReconcile(recB)

	compareSettings := compare.Settings{
		Positions: []fingerprint.PositionSetting{{Type: fingerprint.Percentage, Value: 50}},
		Percent:   90,
	}

	settings := Settings{
		Enumerator: enumerator.Options{IncludeRoots: []string{rootA}},
		Compare:    compareSettings,
	}
	engine.runCompareAndRank(context.Background(), settings)
	if len(engine.LastGroups()) != 0 {
		t.Fatalf("expected no cross-root matches when ScanAgainstEntireDatabase is false, got %d groups", len(engine.LastGroups()))
	}

	settings.Enumerator.ScanAgainstEntireDatabase = true
	engine.runCompareAndRank(context.Background(), settings)
	if len(engine.LastGroups()) != 1 {
		t.Fatalf("expected one duplicate group when ScanAgainstEntireDatabase is true, got %d", len(engine.LastGroups()))
	}
}
