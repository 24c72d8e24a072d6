package orchestrator

import "testing"

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{1, "0:00:01"},
		{1.9, "0:00:01"}, // truncated, not rounded
		{3.5, "0:00:03"},
		{59.999, "0:00:59"},
		{60, "0:01:00"},
		{3599, "0:59:59"},
		{3661.7, "1:01:01"},
		{86399, "23:59:59"},
		{90000, "25:00:00"}, // hours are not wrapped at 24
		{-1.5, "0:00:00"},
	}

	for _, tc := range cases {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
