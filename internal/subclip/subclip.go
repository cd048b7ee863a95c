// Package subclip locates sub-clip containment: a shorter video's
// fingerprint sequence appearing as a contiguous window inside a longer
// video's sequence. It reuses the Duplicate Comparator's per-position
// grayscale distance formula so a window match and a pairwise duplicate
// match use exactly the same notion of "close enough".
package subclip

import (
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/compare"
	"github.com/clipscan/clipscan/internal/logging"
)

// Match is one windowed containment hit.
type Match struct {
	Main            string
	Sub             string
	MatchStartTimes []float64
}

// Find locates every sub-clip containment among records under settings.
func Find(records []*catalog.FileRecord, positionCount int, settings compare.Settings) []Match {
	snapshots := compare.EligibleSet(records, positionCount)

	var matches []Match
	seen := make(map[string]bool)

	for _, main := range snapshots {
		if main.IsImage || main.MediaInfo == nil {
			continue
		}
		for _, sub := range snapshots {
			if sub.Path == main.Path || sub.IsImage || sub.MediaInfo == nil {
				continue
			}
			if main.MediaInfo.Duration <= sub.MediaInfo.Duration {
				continue
			}
			if len(main.Fingerprints) < positionCount || len(sub.Fingerprints) < positionCount {
				continue
			}
			for _, m := range findWindows(main, sub, settings) {
				dedupeKey := main.Path + "\x00" + sub.Path + "\x00" + fmtKeys(m.MatchStartTimes)
				if seen[dedupeKey] {
					continue
				}
				seen[dedupeKey] = true
				matches = append(matches, m)
			}
		}
	}
	log.Print(logging.SubClip("found %d sub-clip containment matches among %d candidates", len(matches), len(snapshots)))
	return matches
}

type keyedVector struct {
	key    float64
	vector []byte
}

func sortedVectors(fp map[float64][]byte) []keyedVector {
	out := make([]keyedVector, 0, len(fp))
	for k, v := range fp {
		out = append(out, keyedVector{key: k, vector: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func findWindows(main, sub catalog.Snapshot, settings compare.Settings) []Match {
	tm := sortedVectors(main.Fingerprints)
	ts := sortedVectors(sub.Fingerprints)

	m, s := len(tm), len(ts)
	if s < 1 || m < s {
		return nil
	}

	limit := settings.Limit()
	var out []Match

	for i := 0; i <= m-s; i++ {
		if windowMatches(tm, ts, i, s, limit, settings) {
			starts := make([]float64, s)
			for j := 0; j < s; j++ {
				starts[j] = tm[i+j].key
			}
			out = append(out, Match{Main: main.Path, Sub: sub.Path, MatchStartTimes: starts})
		}
	}
	return out
}

func windowMatches(tm, ts []keyedVector, start, s int, limit float64, settings compare.Settings) bool {
	for j := 0; j < s; j++ {
		d, ok := windowDistance(tm[start+j].vector, ts[j].vector, settings)
		if !ok || d > limit {
			return false
		}
	}
	return true
}

func windowDistance(a, b []byte, settings compare.Settings) (float64, bool) {
	return compare.ByteDistance(a, b, settings.IgnoreBlackPixels, settings.IgnoreWhitePixels, settings.BlackThreshold, settings.WhiteThreshold)
}

func fmtKeys(keys []float64) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.FormatFloat(k, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
