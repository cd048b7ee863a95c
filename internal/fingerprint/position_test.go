package fingerprint

import "testing"

func TestKeyPercentage(t *testing.T) {
	cases := []struct {
		value, duration, want float64
	}{
		{50, 100, 50},
		{0, 100, 0},
		{100, 100, 100},
		{150, 100, 100}, // clamps above 1
	}
	for _, c := range cases {
		got := Key(PositionSetting{Type: Percentage, Value: c.value}, c.duration)
		if got != c.want {
			t.Errorf("Key(PERCENTAGE %.0f, dur %.0f) = %v, want %v", c.value, c.duration, got, c.want)
		}
	}
}

func TestKeyOffsetFromStart(t *testing.T) {
	got := Key(PositionSetting{Type: OffsetFromStart, Value: 10}, 100)
	if got != 10 {
		t.Errorf("got %v, want 10", got)
	}

	got = Key(PositionSetting{Type: OffsetFromStart, Value: 10}, 0)
	if got != 0 {
		t.Errorf("zero-duration offset-from-start should be 0, got %v", got)
	}
}

func TestKeyOffsetFromEnd(t *testing.T) {
	got := Key(PositionSetting{Type: OffsetFromEnd, Value: 10}, 100)
	if got != 90 {
		t.Errorf("got %v, want 90", got)
	}

	got = Key(PositionSetting{Type: OffsetFromEnd, Value: 10}, 0)
	if got != 0 {
		t.Errorf("zero-duration offset-from-end should be 0, got %v", got)
	}
}

func TestKeyStability(t *testing.T) {
	setting := PositionSetting{Type: Percentage, Value: 33}
	a := Key(setting, 120)
	b := Key(setting, 120)
	if a != b {
		t.Errorf("Key is not a pure function: %v != %v", a, b)
	}
}

func TestKeyMonotoneForPercentage(t *testing.T) {
	setting := PositionSetting{Type: Percentage, Value: 25}
	k1 := Key(setting, 100)
	k2 := Key(setting, 200)
	if k2 <= k1 {
		t.Errorf("expected key to increase with duration for PERCENTAGE, got k1=%v k2=%v", k1, k2)
	}
}
