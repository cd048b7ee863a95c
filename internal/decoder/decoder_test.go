package decoder

import "testing"

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"30000/1001", 30000.0 / 1001.0},
		{"25/1", 25},
		{"24", 24},
		{"0/0", 0},
		{"not-a-number", 0},
	}
	for _, c := range cases {
		got := parseFrameRate(c.raw)
		if got != c.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.000000"},
		{61.5, "00:01:01.500000"},
		{3661.25, "01:01:01.250000"},
		{-5, "00:00:00.000000"},
	}
	for _, c := range cases {
		got := formatTimestamp(c.seconds)
		if got != c.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}
