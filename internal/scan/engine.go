// Package scan is the Control Surface: start/stop/pause/resume, phase
// sequencing, and event emission, grounded on the reference stack's
// acquisition/monitoring service start/stop shape (stopCh chan struct{} +
// sync.WaitGroup + running bool guarded by a mutex).
package scan

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/compare"
	"github.com/clipscan/clipscan/internal/decoder"
	"github.com/clipscan/clipscan/internal/enumerator"
	"github.com/clipscan/clipscan/internal/fingerprint"
	"github.com/clipscan/clipscan/internal/logging"
	"github.com/clipscan/clipscan/internal/rank"
	"github.com/clipscan/clipscan/internal/storage"
)

// Settings bundles every phase's configuration for one scan.
type Settings struct {
	Enumerator  enumerator.Options
	Fingerprint fingerprint.Settings
	Compare     compare.Settings
}

// Decoder is the external media-probing/thumbnail-extraction collaborator
// the Control Surface depends on: the decoder health preflight plus
// whatever the Fingerprint Builder needs, narrowed from *decoder.Client so
// a fake can stand in for tests.
type Decoder interface {
	fingerprint.Decoder
	Preflight(ctx context.Context) []decoder.Check
}

// Engine is the Control Surface. One Engine drives one catalog; Start and
// StartCompare must not be called concurrently on the same Engine.
type Engine struct {
	store      *catalog.Store
	decoder    Decoder
	preflight  *storage.Preflight
	catalogDir string
	history    *catalog.History

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	fpCtrl     *fingerprint.Controller
	lastGroups []compare.Group

	events chan Event
}

// NewEngine wires a Control Surface over store, using dec for probing and
// thumbnail extraction. catalogDir is checked by Preflight before each save.
// history is optional (nil disables run-history recording) and is never the
// source of truth for comparison: it only records what happened and when.
func NewEngine(store *catalog.Store, dec Decoder, preflight *storage.Preflight, catalogDir string, history *catalog.History) *Engine {
	return &Engine{
		store:      store,
		decoder:    dec,
		preflight:  preflight,
		catalogDir: catalogDir,
		history:    history,
		fpCtrl:     fingerprint.NewController(),
		events:     make(chan Event, 64),
	}
}

// Events returns the Control Surface's event stream. The caller must drain
// it while a scan is in flight or event emission will eventually block.
func (e *Engine) Events() <-chan Event { return e.events }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		log.Print(logging.Scan("event channel full, dropping %s", ev.Type))
	}
}

// Start runs load -> enumerate -> fingerprint -> save -> compare -> rank, the
// full start_search() lifecycle. It returns immediately; progress arrives on
// Events(). Per-file errors never abort the scan; only decoder preflight
// failure and cancellation do.
func (e *Engine) Start(ctx context.Context, settings Settings) error {
	if !e.beginRun() {
		return nil
	}

	checks := e.decoder.Preflight(ctx)
	if err := decoder.AllHealthy(checks); err != nil {
		log.Print(logging.Decoder("preflight failed: %v", err))
		e.endRun()
		return err
	}

	if err := e.store.Load(); err != nil {
		e.endRun()
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.endRun()
		e.runPipeline(ctx, settings)
	}()
	return nil
}

// StartCompare runs compare + rank only; the caller guarantees fingerprints
// are already current.
func (e *Engine) StartCompare(ctx context.Context, settings Settings) error {
	if !e.beginRun() {
		return nil
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.endRun()
		select {
		case <-e.runStop():
			e.emit(Event{Type: EventScanAborted})
			return
		default:
		}
		e.runCompareAndRank(ctx, settings)
		e.emit(Event{Type: EventScanDone})
	}()
	return nil
}

func (e *Engine) beginRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	e.stopCh = make(chan struct{})
	return true
}

func (e *Engine) endRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

func (e *Engine) runStop() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCh
}

// Pause cooperatively pauses fingerprint-building workers at their next
// work-unit boundary (≤ ~50ms granularity in practice, bounded by the work
// channel's buffer).
func (e *Engine) Pause() { e.fpCtrl.Pause() }

// Resume clears a pause.
func (e *Engine) Resume() { e.fpCtrl.Resume() }

// Stop resumes first (to escape a pause), then cancels the run and returns
// promptly; in-flight work units finish, no new ones start.
func (e *Engine) Stop() {
	e.fpCtrl.Resume()
	e.mu.Lock()
	if e.running && e.stopCh != nil {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) runPipeline(ctx context.Context, settings Settings) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.runStop():
			cancel()
		case <-runCtx.Done():
		}
	}()

	var runID int64
	startedAt := time.Now()
	if e.history != nil {
		if id, err := e.history.BeginRun(startedAt); err != nil {
			log.Print(logging.Scan("history BeginRun failed: %v", err))
		} else {
			runID = id
		}
	}

	enumResult := enumerator.Run(e.store, settings.Enumerator)
	e.emit(Event{Type: EventFilesEnumerated, Processed: enumResult.FilesSeen, Detail: "enumeration complete"})

	records := e.store.UnderRoots(settings.Enumerator.IncludeRoots)
	e.recordSeen(records)
	settings.Fingerprint.OnThumbnailsRetrieved = func(rec *catalog.FileRecord) {
		e.emit(Event{Type: EventThumbnailsRetrieved, Detail: rec.Path})
	}
	progressCh := fingerprint.Build(runCtx, e.decoder, records, settings.Fingerprint, e.fpCtrl)
	for p := range progressCh {
		e.emit(Event{Type: EventProgress, Processed: p.Processed, Total: p.Total, Elapsed: p.Elapsed, Remaining: p.ETA})
	}
	e.emit(Event{Type: EventBuildingHashesDone, Total: len(records)})

	select {
	case <-runCtx.Done():
		e.saveIfPossible()
		e.finishRun(runID, enumResult.FilesSeen, 0, true)
		e.emit(Event{Type: EventScanAborted})
		return
	default:
	}

	e.saveIfPossible()

	e.runCompareAndRank(runCtx, settings)

	select {
	case <-runCtx.Done():
		e.finishRun(runID, enumResult.FilesSeen, len(e.lastGroups), true)
		e.emit(Event{Type: EventScanAborted})
	default:
		e.finishRun(runID, enumResult.FilesSeen, len(e.lastGroups), false)
		e.emit(Event{Type: EventScanDone})
	}
}

func (e *Engine) recordSeen(records []*catalog.FileRecord) {
	if e.history == nil {
		return
	}
	for _, r := range records {
		if err := e.history.RecordSeen(r.Path, r.DateModified); err != nil {
			log.Print(logging.Catalog("history RecordSeen failed for %s: %v", r.Path, err))
		}
	}
}

func (e *Engine) finishRun(runID int64, filesSeen, groupsFound int, aborted bool) {
	if e.history == nil || runID == 0 {
		return
	}
	if err := e.history.FinishRun(runID, time.Now(), filesSeen, groupsFound, aborted); err != nil {
		log.Print(logging.Catalog("history FinishRun failed: %v", err))
	}
}

func (e *Engine) saveIfPossible() {
	if e.preflight != nil {
		if alert := e.preflight.Check(e.catalogDir); alert != nil {
			log.Print(logging.Scan("low disk space on catalog directory: %d GB free of %d GB", alert.FreeGB, alert.TotalGB))
		}
	}
	if err := e.store.Save(); err != nil {
		log.Print(logging.Catalog("catalog save failed: %v", err))
	}
}

// CleanCatalog removes records whose underlying file no longer exists. It is
// an explicit maintenance operation, never run implicitly by Start, matching
// the Catalog Store's CleanMissing contract. When includeNonExisting is true
// (the include_non_existing_files setting), stale records are kept instead
// of removed.
func (e *Engine) CleanCatalog(includeNonExisting bool) {
	removed := e.store.CleanMissing(includeNonExisting)
	e.emit(Event{Type: EventDatabaseCleaned, Processed: removed, Detail: "stale records removed"})
}

func (e *Engine) runCompareAndRank(ctx context.Context, settings Settings) {
	var records []*catalog.FileRecord
	if settings.Enumerator.ScanAgainstEntireDatabase {
		records = e.store.All()
	} else {
		records = e.store.UnderRoots(settings.Enumerator.IncludeRoots)
	}
	eligible := compare.EligibleSet(records, len(settings.Compare.Positions))
	groups := compare.Run(ctx, eligible, settings.Compare, maxOf(1, settings.Fingerprint.MaxParallelism))
	rank.All(groups)
	e.lastGroups = groups
}

// LastGroups returns the duplicate groups from the most recently completed
// compare+rank phase.
func (e *Engine) LastGroups() []compare.Group { return e.lastGroups }

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
