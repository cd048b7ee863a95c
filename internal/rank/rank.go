// Package rank marks the best representative(s) within each duplicate
// group along every metric axis, generalized from the reference stack's
// release-quality scoring (axis comparison with tie handling) to duplicate-
// group ranking. Ties are all flagged best; there is no single winner.
package rank

import (
	"log"

	"github.com/clipscan/clipscan/internal/compare"
	"github.com/clipscan/clipscan/internal/logging"
)

// Axis identifies one ranking metric.
type Axis int

const (
	AxisDuration Axis = iota
	AxisSize
	AxisFPS
	AxisBitrate
	AxisSampleRate
	AxisFrameSize
)

// Group marks every item in g as best on each axis it ties the group
// maximum for (minimum, for size — "smallest wins").
func Group(g *compare.Group) {
	if len(g.Items) == 0 {
		return
	}

	maxDuration, maxFPS, maxBitrate, maxSampleRate, maxFrameSize := 0.0, 0.0, 0, 0, 0
	minSize := g.Items[0].FileSize

	for _, it := range g.Items {
		if it.Duration > maxDuration {
			maxDuration = it.Duration
		}
		if it.FPS > maxFPS {
			maxFPS = it.FPS
		}
		if it.BitrateKbps > maxBitrate {
			maxBitrate = it.BitrateKbps
		}
		if it.AudioSampleRate > maxSampleRate {
			maxSampleRate = it.AudioSampleRate
		}
		if it.FrameSize > maxFrameSize {
			maxFrameSize = it.FrameSize
		}
		if it.FileSize < minSize {
			minSize = it.FileSize
		}
	}

	for _, it := range g.Items {
		it.IsBestDuration = it.Duration == maxDuration
		it.IsBestFPS = it.FPS == maxFPS
		it.IsBestBitrate = it.BitrateKbps == maxBitrate
		it.IsBestSampleRate = it.AudioSampleRate == maxSampleRate
		it.IsBestFrameSize = it.FrameSize == maxFrameSize
		it.IsBestSize = it.FileSize == minSize
	}
}

// All marks every group in groups.
func All(groups []compare.Group) {
	for i := range groups {
		Group(&groups[i])
	}
	log.Print(logging.Rank("ranked %d duplicate groups", len(groups)))
}
