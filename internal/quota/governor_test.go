package quota

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// testClock is a manually advanced clock for window tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func bigLimits() Limits {
	return Limits{
		RequestsPerMinute:   1000,
		RequestsPerDay:      100000,
		AudioSecondsPerHour: 1e9,
		AudioSecondsPerDay:  1e9,
	}
}

func TestAdmit_UnderLimits(t *testing.T) {
	g := newGovernor(bigLimits(), newTestClock().Now)
	for i := 0; i < 10; i++ {
		if err := g.Admit(60); err != nil {
			t.Fatalf("Admit returned error under generous limits: %v", err)
		}
	}
}

func TestAdmit_ReportsFirstViolatedDimension(t *testing.T) {
	limits := bigLimits()
	limits.AudioSecondsPerHour = 100
	g := newGovernor(limits, newTestClock().Now)

	if err := g.Admit(90); err != nil {
		t.Fatalf("first admit should succeed: %v", err)
	}

	err := g.Admit(20)
	if err == nil {
		t.Fatal("expected quota rejection")
	}
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected *ExceededError, got %T", err)
	}
	if exceeded.Dimension != AudioSecondsPerHour {
		t.Errorf("got dimension %q, want %q", exceeded.Dimension, AudioSecondsPerHour)
	}
}

func TestAdmit_RequestCountDimension(t *testing.T) {
	limits := bigLimits()
	limits.RequestsPerMinute = 2
	g := newGovernor(limits, newTestClock().Now)

	if err := g.Admit(1); err != nil {
		t.Fatalf("admit 1: %v", err)
	}
	if err := g.Admit(1); err != nil {
		t.Fatalf("admit 2: %v", err)
	}

	err := g.Admit(1)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Dimension != RequestsPerMinute {
		t.Fatalf("third admit should exceed %s, got %v", RequestsPerMinute, err)
	}
}

// A rejected admission must leave every counter untouched, including the
// dimensions checked before the violated one.
func TestAdmit_AllOrNothing(t *testing.T) {
	limits := bigLimits()
	limits.RequestsPerMinute = 2
	limits.AudioSecondsPerHour = 10
	g := newGovernor(limits, newTestClock().Now)

	if err := g.Admit(8); err != nil {
		t.Fatalf("first admit: %v", err)
	}

	// Rejected on audio-seconds; must not charge a request.
	if err := g.Admit(8); err == nil {
		t.Fatal("second admit should be rejected on audio seconds")
	}

	// Succeeds only if the rejected call charged nothing: audio 8+2=10 and,
	// critically, requests 1+1=2.
	if err := g.Admit(2); err != nil {
		t.Fatalf("admit after rejection should succeed, got %v", err)
	}

	// Requests are now exhausted.
	err := g.Admit(0)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Dimension != RequestsPerMinute {
		t.Fatalf("expected %s exhaustion, got %v", RequestsPerMinute, err)
	}
}

func TestAdmit_WindowReset(t *testing.T) {
	clock := newTestClock()
	limits := bigLimits()
	limits.RequestsPerMinute = 1
	g := newGovernor(limits, clock.Now)

	if err := g.Admit(0); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if err := g.Admit(0); err == nil {
		t.Fatal("second admit within the minute should be rejected")
	}

	clock.Advance(61 * time.Second)
	if err := g.Admit(0); err != nil {
		t.Fatalf("admit after window elapsed should succeed: %v", err)
	}
}

// A window that expired long ago resets on the next check regardless of how
// many checks were skipped while it was expired.
func TestAdmit_ResetAfterLongIdle(t *testing.T) {
	clock := newTestClock()
	limits := bigLimits()
	limits.RequestsPerMinute = 1
	limits.AudioSecondsPerHour = 5
	g := newGovernor(limits, clock.Now)

	if err := g.Admit(5); err != nil {
		t.Fatalf("first admit: %v", err)
	}

	clock.Advance(7 * time.Hour)
	if err := g.Admit(5); err != nil {
		t.Fatalf("admit after long idle should succeed: %v", err)
	}
}

func TestAdmit_DailyWindowSurvivesMinuteReset(t *testing.T) {
	clock := newTestClock()
	limits := bigLimits()
	limits.RequestsPerDay = 2
	g := newGovernor(limits, clock.Now)

	if err := g.Admit(0); err != nil {
		t.Fatalf("admit 1: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if err := g.Admit(0); err != nil {
		t.Fatalf("admit 2: %v", err)
	}
	clock.Advance(2 * time.Minute)

	err := g.Admit(0)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Dimension != RequestsPerDay {
		t.Fatalf("expected %s exhaustion, got %v", RequestsPerDay, err)
	}
}

// Concurrent callers must observe admissions as if serialized: the number
// admitted never exceeds the limit, with no lost updates.
func TestAdmit_ConcurrentCallersNeverOverrun(t *testing.T) {
	limits := bigLimits()
	limits.RequestsPerMinute = 10
	g := newGovernor(limits, newTestClock().Now)

	const callers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if err := g.Admit(1); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("admitted %d callers, want exactly 10", admitted)
	}
}
