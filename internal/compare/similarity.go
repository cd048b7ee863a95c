// Package compare implements the Duplicate Comparator: the pairwise
// similarity function, horizontal-flip handling, hardlink exclusion, and
// union-find-style grouping under a single lock, grounded on the reference
// pool's phash duplicate-pair loop (duration prefilter + threshold check)
// and its dev/ino hardlink screener.
//
// An item's SimilarityDistance is the distance of the pair that added it to
// its group; merging two groups does not recompute it, so distances within
// one group can come from different pairs.
package compare

import (
	"math"

	"github.com/clipscan/clipscan/internal/catalog"
	"github.com/clipscan/clipscan/internal/fingerprint"
)

// Settings configures one comparison pass.
type Settings struct {
	Positions                 []fingerprint.PositionSetting
	Percent                   float64 // similarity threshold, (0, 100]
	CompareHorizontallyFlipped bool
	ExcludeHardlinks          bool
	PercentDurationDifference float64 // P
	EnableTimeLimitedScan     bool
	Cutoff                    int64 // unix seconds
	IgnoreBlackPixels         bool
	IgnoreWhitePixels         bool
	BlackThreshold            byte
	WhiteThreshold            byte
}

// Limit returns L = 1 - percent/100, the similarity distance limit.
func (s Settings) Limit() float64 {
	return 1 - s.Percent/100
}

// ByteDistance computes the per-byte absolute-difference mean, divided by
// 255, over two same-length vectors, honoring the ignore-black/white-pixel
// bands. ok is false if the effective denominator is zero. Exported so the
// Sub-Clip Matcher can reuse exactly this formula for window distances.
func ByteDistance(a, b []byte, ignoreBlack, ignoreWhite bool, blackThresh, whiteThresh byte) (dist float64, ok bool) {
	var sum float64
	var n int
	for i := range a {
		va, vb := a[i], b[i]
		if (ignoreBlack && va <= blackThresh && vb <= blackThresh) ||
			(ignoreWhite && va >= whiteThresh && vb >= whiteThresh) {
			continue
		}
		diff := int(va) - int(vb)
		if diff < 0 {
			diff = -diff
		}
		sum += float64(diff)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) / 255, true
}

// imageSimilarity compares two image fingerprint maps (single key 0.0).
func imageSimilarity(fa, fb map[float64][]byte, s Settings) (dist float64, ok bool) {
	va, oka := fa[0.0]
	vb, okb := fb[0.0]
	if !oka || !okb || va == nil || vb == nil {
		return 0, false
	}
	return ByteDistance(va, vb, s.IgnoreBlackPixels, s.IgnoreWhitePixels, s.BlackThreshold, s.WhiteThreshold)
}

// videoSimilarity compares two video fingerprint maps position by position,
// early-exiting the moment any single position exceeds the limit L — the
// mean is never computed past that point.
func videoSimilarity(durA, durB float64, fa, fb map[float64][]byte, s Settings) (dist float64, ok bool) {
	limit := s.Limit()
	var sum float64
	var n int
	for _, pos := range s.Positions {
		kA := fingerprint.Key(pos, durA)
		kB := fingerprint.Key(pos, durB)
		va, oka := fa[kA]
		vb, okb := fb[kB]
		if !oka || !okb || va == nil || vb == nil {
			return 0, false
		}
		d, valid := ByteDistance(va, vb, s.IgnoreBlackPixels, s.IgnoreWhitePixels, s.BlackThreshold, s.WhiteThreshold)
		if !valid {
			return 0, false
		}
		if d > limit {
			return 0, false
		}
		sum += d
		n++
	}
	if n == 0 {
		return 0, false
	}
	mean := sum / float64(n)
	if math.IsNaN(mean) {
		return 0, false
	}
	return mean, true
}

// similarity dispatches to the image or video comparison given two record
// snapshots and a source fingerprint map for a (fa belongs to A).
func similarity(a, b catalog.Snapshot, fa, fb map[float64][]byte, s Settings) (dist float64, ok bool) {
	if a.IsImage {
		return imageSimilarity(fa, fb, s)
	}
	durA, durB := 0.0, 0.0
	if a.MediaInfo != nil {
		durA = a.MediaInfo.Duration
	}
	if b.MediaInfo != nil {
		durB = b.MediaInfo.Duration
	}
	return videoSimilarity(durA, durB, fa, fb, s)
}

// flipped mirrors every vector in a fingerprint map, keeping the same keys.
func flipped(m map[float64][]byte) map[float64][]byte {
	out := make(map[float64][]byte, len(m))
	for k, v := range m {
		out[k] = fingerprint.Flip(v)
	}
	return out
}
