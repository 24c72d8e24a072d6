// Package quota implements admission control for the hosted transcription
// provider. It tracks four independently windowed usage limits and only
// admits a call when every one of them has room for it.
package quota

import (
	"fmt"
	"sync"
	"time"
)

// Dimension identifies one tracked provider limit.
type Dimension string

const (
	RequestsPerMinute   Dimension = "requests_per_minute"
	RequestsPerDay      Dimension = "requests_per_day"
	AudioSecondsPerHour Dimension = "audio_seconds_per_hour"
	AudioSecondsPerDay  Dimension = "audio_seconds_per_day"
)

// ExceededError is returned by Admit when a dimension has no room for the
// call. It signals the caller to take the fallback path, not to abort.
type ExceededError struct {
	Dimension Dimension
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Dimension)
}

// Limits configures the governor. All four limits must be positive.
type Limits struct {
	RequestsPerMinute   int
	RequestsPerDay      int
	AudioSecondsPerHour float64
	AudioSecondsPerDay  float64
}

// usageWindow accumulates usage for one dimension over a fixed-length
// rolling window. Only the governor mutates it, under the governor's lock.
type usageWindow struct {
	dimension Dimension
	limit     float64
	length    time.Duration

	// audioScaled windows charge the audio duration per call; the others
	// charge one request per call.
	audioScaled bool

	used  float64
	start time.Time
}

// resetIfElapsed zeroes the window and advances its start when the current
// window has fully elapsed, no matter how many checks were skipped while it
// was expired.
func (w *usageWindow) resetIfElapsed(now time.Time) {
	if now.After(w.start.Add(w.length)) {
		w.used = 0
		w.start = now
	}
}

func (w *usageWindow) increment(audioSeconds float64) float64 {
	if w.audioScaled {
		return audioSeconds
	}
	return 1
}

// Governor serializes quota decisions. All call sites go through Admit, so
// a check and its commit are observed as one atomic step; two concurrent
// requests can never both slip past a limit that only one of them fits
// under.
type Governor struct {
	mu      sync.Mutex
	now     func() time.Time
	windows []*usageWindow
}

func NewGovernor(limits Limits) *Governor {
	return newGovernor(limits, time.Now)
}

// newGovernor allows tests to inject a clock.
func newGovernor(limits Limits, now func() time.Time) *Governor {
	start := now()
	return &Governor{
		now: now,
		windows: []*usageWindow{
			{dimension: RequestsPerMinute, limit: float64(limits.RequestsPerMinute), length: time.Minute, start: start},
			{dimension: RequestsPerDay, limit: float64(limits.RequestsPerDay), length: 24 * time.Hour, start: start},
			{dimension: AudioSecondsPerHour, limit: limits.AudioSecondsPerHour, length: time.Hour, audioScaled: true, start: start},
			{dimension: AudioSecondsPerDay, limit: limits.AudioSecondsPerDay, length: 24 * time.Hour, audioScaled: true, start: start},
		},
	}
}

// Admit decides whether one transcription call of the given audio length
// may be sent to the provider. The check is all-or-nothing: if any
// dimension would be pushed past its limit, no counter changes and the
// first violated dimension is reported. On success every counter is
// charged before the lock is released. Committed usage is never refunded,
// even if the subsequent provider call fails.
func (g *Governor) Admit(audioSeconds float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for _, w := range g.windows {
		w.resetIfElapsed(now)
	}

	for _, w := range g.windows {
		if w.used+w.increment(audioSeconds) > w.limit {
			return &ExceededError{Dimension: w.dimension}
		}
	}

	for _, w := range g.windows {
		w.used += w.increment(audioSeconds)
	}
	return nil
}
