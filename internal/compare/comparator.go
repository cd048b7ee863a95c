package compare

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/logging"
)

// EligibleSet filters records to comparator scan set S per the filtering
// rule: !invalid && media_info != nil && !ThumbnailError &&
// (is_image || fingerprints.len() >= positions.len()).
func EligibleSet(records []*catalog.FileRecord, positionCount int) []catalog.Snapshot {
	out := make([]catalog.Snapshot, 0, len(records))
	for _, r := range records {
		snap := r.Snapshot()
		if snap.Invalid || snap.MediaInfo == nil || snap.Flags.Has(catalog.FlagThumbnailError) {
			continue
		}
		if !snap.IsImage && len(snap.Fingerprints) < positionCount {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Run compares every unordered pair in s under settings, across up to
// maxParallelism workers, and returns the resulting duplicate groups. The
// group map is merged under a single mutex, matching the spec's
// union-find-style grouping contract.
func Run(ctx context.Context, s []catalog.Snapshot, settings Settings, maxParallelism int) []Group {
	if maxParallelism <= 0 {
		maxParallelism = 1
	}

	type pair struct{ i, j int }
	pairs := make(chan pair, maxParallelism)

	var mu sync.Mutex
	groups := make(map[string]*DuplicateItem) // path -> item

	var wg sync.WaitGroup
	for w := 0; w < maxParallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pairs {
				evaluatePair(s[p.i], s[p.j], settings, &mu, groups)
			}
		}()
	}

feed:
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			select {
			case <-ctx.Done():
				break feed
			case pairs <- pair{i, j}:
			}
		}
	}
	close(pairs)
	wg.Wait()

	result := collectGroups(groups)
	log.Print(logging.Compare("found %d duplicate groups from %d eligible records", len(result), len(s)))
	return result
}

func evaluatePair(a, b catalog.Snapshot, settings Settings, mu *sync.Mutex, groups map[string]*DuplicateItem) {
	if settings.EnableTimeLimitedScan {
		if a.DateModified.Unix() < settings.Cutoff || b.DateModified.Unix() < settings.Cutoff {
			return
		}
	}
	if a.IsImage != b.IsImage {
		return
	}
	if !a.IsImage {
		durA, durB := mediaDuration(a), mediaDuration(b)
		if durB == 0 {
			return
		}
		ratio := durA / durB * 100
		if ratio < 100-settings.PercentDurationDifference || ratio > 100+settings.PercentDurationDifference {
			return
		}
	}

	dist, matched, isFlipped := matchPair(a, b, settings)
	if !matched {
		return
	}

	if settings.ExcludeHardlinks && a.FileSize == b.FileSize && mediaDuration(a) == mediaDuration(b) {
		if a.Dev != 0 && a.Dev == b.Dev && a.Ino == b.Ino {
			return
		}
	}

	mu.Lock()
	defer mu.Unlock()
	mergeMatch(groups, a, b, dist, isFlipped)
}

func matchPair(a, b catalog.Snapshot, settings Settings) (dist float64, matched bool, isFlipped bool) {
	limit := settings.Limit()

	d, ok := similarity(a, b, a.Fingerprints, b.Fingerprints, settings)
	matched = ok && d <= limit
	dist = d

	if settings.CompareHorizontallyFlipped {
		fd, fok := similarity(a, b, flipped(a.Fingerprints), b.Fingerprints, settings)
		if fok && fd <= limit && (!matched || fd < d) {
			return fd, true, true
		}
	}
	return dist, matched, false
}

func mediaDuration(s catalog.Snapshot) float64 {
	if s.MediaInfo == nil {
		return 0
	}
	return s.MediaInfo.Duration
}

// mergeMatch applies the grouping contract: both present with different
// group_id -> reassign j's group members to i's group_id; only one present
// -> add the other under its group_id; neither present -> mint a fresh id.
// The newly-added item in a pair carries FLIPPED when isFlipped; the
// first-seen side of its own group never gains FLIPPED retroactively.
func mergeMatch(groups map[string]*DuplicateItem, a, b catalog.Snapshot, dist float64, isFlipped bool) {
	ia, iok := groups[a.Path]
	ib, bok := groups[b.Path]

	switch {
	case iok && bok:
		if ia.GroupID != ib.GroupID {
			oldID := ib.GroupID
			newID := ia.GroupID
			for _, it := range groups {
				if it.GroupID == oldID {
					it.GroupID = newID
				}
			}
		}
	case iok && !bok:
		item := newItem(b, ia.GroupID, dist, isFlipped)
		groups[b.Path] = item
	case !iok && bok:
		item := newItem(a, ib.GroupID, dist, isFlipped)
		groups[a.Path] = item
	default:
		id := uuid.NewString()
		groups[a.Path] = newItem(a, id, dist, false)
		groups[b.Path] = newItem(b, id, dist, isFlipped)
	}
}

func newItem(s catalog.Snapshot, groupID string, dist float64, isFlipped bool) *DuplicateItem {
	item := &DuplicateItem{
		Path:               s.Path,
		GroupID:            groupID,
		SimilarityDistance: dist,
		FileSize:           s.FileSize,
		FrameSize:          s.MediaInfo.FrameSize(),
	}
	if s.MediaInfo != nil {
		item.Duration = s.MediaInfo.Duration
		item.FPS = s.MediaInfo.FPS
		item.BitrateKbps = s.MediaInfo.BitrateKbps
		item.AudioSampleRate = s.MediaInfo.AudioSampleRate
	}
	if isFlipped {
		item.Flags |= FlagFlipped
	}
	return item
}

func collectGroups(groups map[string]*DuplicateItem) []Group {
	byID := make(map[string][]*DuplicateItem)
	for _, item := range groups {
		byID[item.GroupID] = append(byID[item.GroupID], item)
	}
	out := make([]Group, 0, len(byID))
	for id, items := range byID {
		out = append(out, Group{GroupID: id, Items: items})
	}
	return out
}
