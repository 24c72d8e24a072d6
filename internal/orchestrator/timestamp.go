package orchestrator

import "fmt"

// FormatTimestamp renders a duration in seconds as H:MM:SS. Fractional
// seconds are truncated, not rounded, and the same rendering is applied to
// both the primary and the fallback path so results stay comparable.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
