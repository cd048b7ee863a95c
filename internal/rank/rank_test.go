package rank

import (
	"testing"

	"github.com/clipscan/clipscan/internal/compare"
)

func TestGroupTiesAllFlaggedBest(t *testing.T) {
	g := &compare.Group{
		GroupID: "g1",
		Items: []*compare.DuplicateItem{
			{Path: "/a.mp4", Duration: 100, FileSize: 500, FPS: 30},
			{Path: "/b.mp4", Duration: 100, FileSize: 300, FPS: 30},
			{Path: "/c.mp4", Duration: 50, FileSize: 300, FPS: 24},
		},
	}
	Group(g)

	a, b, c := g.Items[0], g.Items[1], g.Items[2]

	if !a.IsBestDuration || !b.IsBestDuration || c.IsBestDuration {
		t.Errorf("expected a and b tied for best duration, c not: a=%v b=%v c=%v", a.IsBestDuration, b.IsBestDuration, c.IsBestDuration)
	}
	if a.IsBestSize {
		t.Error("expected a (largest file) not flagged best size")
	}
	if !b.IsBestSize || !c.IsBestSize {
		t.Error("expected b and c tied for smallest file size")
	}
	if !a.IsBestFPS || !b.IsBestFPS || c.IsBestFPS {
		t.Error("expected a and b tied for best fps, c not")
	}
}

func TestGroupSingleItemIsBestEverything(t *testing.T) {
	g := &compare.Group{
		GroupID: "g1",
		Items:   []*compare.DuplicateItem{{Path: "/a.mp4", Duration: 10, FileSize: 10}},
	}
	Group(g)
	it := g.Items[0]
	if !it.IsBestDuration || !it.IsBestSize || !it.IsBestFPS || !it.IsBestBitrate || !it.IsBestSampleRate || !it.IsBestFrameSize {
		t.Error("expected the sole item in a group to be best on every axis")
	}
}

func TestAllMarksEveryGroup(t *testing.T) {
	groups := []compare.Group{
		{GroupID: "g1", Items: []*compare.DuplicateItem{{Path: "/a", FileSize: 100}, {Path: "/b", FileSize: 200}}},
		{GroupID: "g2", Items: []*compare.DuplicateItem{{Path: "/c", FileSize: 50}}},
	}
	All(groups)
	if !groups[0].Items[0].IsBestSize || groups[0].Items[1].IsBestSize {
		t.Error("expected smallest item flagged best in group 1")
	}
	if !groups[1].Items[0].IsBestSize {
		t.Error("expected sole item flagged best in group 2")
	}
}
