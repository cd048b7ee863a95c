package compare

// ItemFlag is a bitset of per-item duplicate-group flags.
type ItemFlag uint8

const FlagFlipped ItemFlag = 1 << 0

// DuplicateItem is one participant in a duplicate group.
type DuplicateItem struct {
	Path                string
	GroupID             string
	SimilarityDistance  float64
	Flags               ItemFlag

	FileSize        int64
	Duration        float64
	FPS             float64
	BitrateKbps     int
	AudioSampleRate int
	FrameSize       int

	IsBestDuration  bool
	IsBestSize      bool
	IsBestFPS       bool
	IsBestBitrate   bool
	IsBestSampleRate bool
	IsBestFrameSize bool
}

func (f ItemFlag) Has(bit ItemFlag) bool { return f&bit != 0 }

// Group is a duplicate group: every item shares one GroupID.
type Group struct {
	GroupID string
	Items   []*DuplicateItem
}
