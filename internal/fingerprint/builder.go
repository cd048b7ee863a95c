// Package fingerprint computes the per-record grayscale fingerprint vectors
// the Duplicate Comparator and Sub-Clip Matcher compare against, and runs
// the bounded worker pool that builds them across a catalog, grounded on
// the reference pool's phash worker-pool shape (bounded channel fan-out,
// sync/atomic progress counters, ticker-throttled broadcast).
package fingerprint

import (
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nfnt/resize"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/decoder"
	"github.com/clipscan/clipscan/internal/logging"
)

// Decoder is the external media-probing/thumbnail-extraction collaborator
// the Fingerprint Builder depends on, narrowed from *decoder.Client to the
// two calls Build actually makes so tests can substitute a fake.
type Decoder interface {
	Probe(ctx context.Context, path string) (*decoder.MediaProbe, error)
	ExtractGrayscaleThumbnails(ctx context.Context, path string, positionsSeconds []float64) ([][]byte, error)
}

// Settings configures one Fingerprint Builder pass.
type Settings struct {
	Positions        []PositionSetting
	RetryOnError     bool
	MinFileSizeBytes int64
	MaxFileSizeBytes int64 // 0 = unbounded
	PathContains     []string
	PathNotContains  []string
	MaxParallelism   int
	ProgressInterval time.Duration

	// OnThumbnailsRetrieved, if set, is called once a video record's
	// decoder thumbnails have been successfully extracted, before the
	// fingerprint vectors are computed from them. Called concurrently by
	// worker goroutines; the Control Surface uses it to surface a
	// ThumbnailsRetrieved event per file.
	OnThumbnailsRetrieved func(rec *catalog.FileRecord)
}

// Progress is reported on the returned channel roughly every
// Settings.ProgressInterval (default 300ms) while Build is in flight.
type Progress struct {
	Processed int
	Total     int
	Elapsed   time.Duration
	ETA       time.Duration
}

// Controller lets a caller pause/resume/cancel a running Build pass.
// Pausing takes effect at the next work-unit boundary, never mid-decoder-call.
type Controller struct {
	pausedCh chan struct{}
	resumeMu sync.Mutex
	paused   atomic.Bool
}

// NewController returns a Controller in the running (not paused) state.
func NewController() *Controller {
	return &Controller{pausedCh: make(chan struct{})}
}

func (c *Controller) Pause() {
	if c.paused.CompareAndSwap(false, true) {
		c.resumeMu.Lock()
		c.pausedCh = make(chan struct{})
		c.resumeMu.Unlock()
	}
}

func (c *Controller) Resume() {
	if c.paused.CompareAndSwap(true, false) {
		c.resumeMu.Lock()
		close(c.pausedCh)
		c.resumeMu.Unlock()
	}
}

func (c *Controller) waitIfPaused(ctx context.Context) bool {
	if !c.paused.Load() {
		return true
	}
	c.resumeMu.Lock()
	ch := c.pausedCh
	c.resumeMu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Build runs the Fingerprint Builder over records, one worker per unit of
// Settings.MaxParallelism, reporting progress on the returned channel (which
// is closed when the pass finishes, is cancelled, or ctx is done). Per-file
// errors never abort the pass; only ctx cancellation does.
func Build(ctx context.Context, dec Decoder, records []*catalog.FileRecord, settings Settings, ctrl *Controller) <-chan Progress {
	progressCh := make(chan Progress, 1)

	workers := settings.MaxParallelism
	if workers <= 0 {
		workers = 1
	}
	interval := settings.ProgressInterval
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}

	total := len(records)
	var processed int64
	start := time.Now()

	go func() {
		defer close(progressCh)

		work := make(chan *catalog.FileRecord, workers)
		var wg sync.WaitGroup

		tickerDone := make(chan struct{})
		go func() {
			defer close(tickerDone)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					done := atomic.LoadInt64(&processed)
					elapsed := time.Since(start)
					eta := estimateETA(elapsed, done, int64(total))
					select {
					case progressCh <- Progress{Processed: int(done), Total: total, Elapsed: elapsed, ETA: eta}:
					default:
					}
					if done >= int64(total) {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for rec := range work {
					if !ctrl.waitIfPaused(ctx) {
						atomic.AddInt64(&processed, 1)
						continue
					}
					processOne(ctx, dec, rec, settings)
					atomic.AddInt64(&processed, 1)
				}
			}()
		}

	feed:
		for _, rec := range records {
			select {
			case <-ctx.Done():
				break feed
			case work <- rec:
			}
		}
		close(work)
		wg.Wait()
		<-tickerDone
	}()

	return progressCh
}

func estimateETA(elapsed time.Duration, processed, total int64) time.Duration {
	if processed == 0 {
		return 0
	}
	remaining := total - processed - 1
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(float64(elapsed) * float64(remaining) / float64(processed+1))
}

// processOne runs the per-record algorithm: revalidate inclusion, probe
// metadata, compute the grayscale vector(s), persist into rec, set error
// flags on failure. It never returns an error; failures are recorded on rec.
func processOne(ctx context.Context, dec Decoder, rec *catalog.FileRecord, settings Settings) {
	rec.ResetInvalid()

	if !passesInclusion(rec, settings) {
		rec.SetInvalid()
		return
	}

	if !settings.RetryOnError && hasCompleteFingerprints(rec, settings) {
		return
	}

	if len(settings.Positions) == 0 {
		rec.ClearFingerprints()
	}

	if rec.IsImage {
		buildImageFingerprint(rec)
		return
	}

	if rec.MediaInfo == nil {
		info, err := dec.Probe(ctx, rec.Path)
		if err != nil {
			log.Print(logging.Fingerprint("probe failed for %s: %v", rec.Path, err))
			rec.SetFlag(catalog.FlagMetadataError)
			rec.SetInvalid()
			return
		}
		rec.SetMediaInfo(&catalog.MediaInfo{
			Duration:        info.Duration,
			FPS:             info.FPS,
			BitrateKbps:     info.BitrateKbps,
			AudioSampleRate: info.AudioSampleRate,
			Width:           info.Width,
			Height:          info.Height,
		})
	}

	buildVideoFingerprint(ctx, dec, rec, settings)
}

func passesInclusion(rec *catalog.FileRecord, settings Settings) bool {
	if _, err := os.Stat(rec.Path); err != nil {
		return false
	}
	if rec.FileSize < settings.MinFileSizeBytes {
		return false
	}
	if settings.MaxFileSizeBytes > 0 && rec.FileSize > settings.MaxFileSizeBytes {
		return false
	}
	for _, glob := range settings.PathContains {
		if ok, _ := filepath.Match(glob, filepath.Base(rec.Path)); !ok && !strings.Contains(rec.Path, glob) {
			return false
		}
	}
	for _, glob := range settings.PathNotContains {
		if strings.Contains(rec.Path, glob) {
			return false
		}
		if ok, _ := filepath.Match(glob, filepath.Base(rec.Path)); ok {
			return false
		}
	}
	return true
}

func hasCompleteFingerprints(rec *catalog.FileRecord, settings Settings) bool {
	if rec.IsImage {
		return rec.FingerprintCount() >= 1
	}
	return rec.FingerprintCount() >= len(settings.Positions)
}

func buildImageFingerprint(rec *catalog.FileRecord) {
	f, err := os.Open(rec.Path)
	if err != nil {
		rec.SetFlag(catalog.FlagMetadataError)
		rec.SetInvalid()
		return
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		rec.SetFlag(catalog.FlagThumbnailError)
		rec.SetInvalid()
		return
	}

	bounds := img.Bounds()
	rec.SetMediaInfo(&catalog.MediaInfo{Width: bounds.Dx(), Height: bounds.Dy()})

	vec := GrayscaleVector(img)
	if TooDark(vec) {
		rec.SetFlag(catalog.FlagTooDark)
		rec.SetInvalid()
		return
	}
	rec.SetFingerprint(0.0, vec)
}

func buildVideoFingerprint(ctx context.Context, dec Decoder, rec *catalog.FileRecord, settings Settings) {
	if len(settings.Positions) == 0 || rec.MediaInfo == nil || rec.MediaInfo.Duration <= 0 {
		return
	}

	keys := Keys(settings.Positions, rec.MediaInfo.Duration)
	thumbs, err := dec.ExtractGrayscaleThumbnails(ctx, rec.Path, keys)
	if err != nil {
		log.Print(logging.Fingerprint("thumbnail extraction failed for %s: %v", rec.Path, err))
		rec.SetFlag(catalog.FlagThumbnailError)
		rec.SetInvalid()
		return
	}

	if settings.OnThumbnailsRetrieved != nil {
		settings.OnThumbnailsRetrieved(rec)
	}

	for i, raw := range thumbs {
		var vec []byte
		if len(raw) != VectorSize {
			// A decoder/driver combination that didn't honor the 16x16
			// scale filter; rescale what it actually returned instead of
			// silently truncating or padding it.
			vec = rescaleFallback(raw)
		} else {
			vec = GrayFromRaw(raw)
		}
		rec.SetFingerprint(keys[i], vec)
	}
}

// rescaleFallback re-scales a decoder thumbnail that wasn't already exactly
// 16x16 raw gray bytes (e.g. a decoder/driver combination that ignored the
// 16x16 scale filter). The bytes are treated as raw square gray pixels and
// are never decoded; a length that is not a perfect square yields an
// all-zero vector. Grounded on the reference stack's nfnt/resize usage for
// thumbnail rescaling.
func rescaleFallback(raw []byte) []byte {
	side := approxSquareSide(len(raw))
	if side == 0 {
		return make([]byte, VectorSize)
	}
	gray := image.NewGray(image.Rect(0, 0, side, side))
	copy(gray.Pix, raw)
	resized := resize.Resize(gridDim, gridDim, gray, resize.Bilinear)

	out := make([]byte, VectorSize)
	for y := 0; y < gridDim; y++ {
		for x := 0; x < gridDim; x++ {
			out[y*gridDim+x] = color.GrayModel.Convert(resized.At(x, y)).(color.Gray).Y
		}
	}
	return out
}

func approxSquareSide(n int) int {
	for side := 1; side*side <= n; side++ {
		if side*side == n {
			return side
		}
	}
	return 0
}
