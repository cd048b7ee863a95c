package fingerprint

// PositionType selects how a PositionSetting's value maps to a fraction of
// a file's duration.
type PositionType int

const (
	Percentage PositionType = iota
	OffsetFromStart
	OffsetFromEnd
)

// PositionSetting is one configured sample point.
type PositionSetting struct {
	Type  PositionType
	Value float64
}

// Key derives the fingerprint-table key (an absolute time in seconds) for a
// position setting against a file of the given duration. Implementers MUST
// use exactly this formula so keys derived at build time match keys
// computed during comparison for the same record.
func Key(setting PositionSetting, duration float64) float64 {
	var p float64
	switch setting.Type {
	case Percentage:
		p = setting.Value / 100
	case OffsetFromStart:
		if duration == 0 {
			p = 0
		} else {
			p = setting.Value / duration
		}
	case OffsetFromEnd:
		if duration == 0 {
			p = 0
		} else {
			p = (duration - setting.Value) / duration
		}
	}
	p = clamp01(p)
	return duration * p
}

// Keys derives the key for every setting against duration, in order.
func Keys(settings []PositionSetting, duration float64) []float64 {
	keys := make([]float64, len(settings))
	for i, s := range settings {
		keys[i] = Key(s, duration)
	}
	return keys
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
