package walk

import (
	"math"
	"testing"
	"time"
)

var testEpoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func createTestClock(t *testing.T, totalLength, speed float64) *Clock {
	t.Helper()
	clock, err := NewClock(totalLength, speed)
	if err != nil {
		t.Fatalf("Failed to create clock: %v", err)
	}
	return clock
}

func TestNewClockValidation(t *testing.T) {
	if _, err := NewClock(0, 1); err != ErrInvalidRoute {
		t.Errorf("NewClock(0, 1) error = %v, want ErrInvalidRoute", err)
	}
	if _, err := NewClock(100, 0); err != ErrInvalidSpeed {
		t.Errorf("NewClock(100, 0) error = %v, want ErrInvalidSpeed", err)
	}

	clock := createTestClock(t, 100, 1)
	if clock.Progress() != 0 || clock.Running() || clock.Complete() {
		t.Error("new clock should be stopped at progress 0")
	}
}

func TestAdvanceScenario(t *testing.T) {
	clock := createTestClock(t, 1000, 1.389)
	clock.Start(testEpoch)

	// 360 seconds of continuous ticking at 60 Hz
	frames := 360 * 60
	for i := 1; i <= frames; i++ {
		clock.Advance(testEpoch.Add(time.Duration(i) * time.Second / 60))
	}

	want := math.Min(1, 360*1.389/1000)
	if math.Abs(clock.Progress()-want) > 1e-6 {
		t.Errorf("Progress() = %f, want %f", clock.Progress(), want)
	}
	if remaining := clock.TimeRemaining().Seconds(); math.Abs(remaining-360) > 1 {
		t.Errorf("TimeRemaining() = %fs, want ~360s", remaining)
	}
	if !clock.Running() || clock.Complete() {
		t.Error("clock should still be running halfway")
	}
}

func TestAdvanceIsMonotonicAndConverges(t *testing.T) {
	clock := createTestClock(t, 500, 1.389)
	clock.Start(testEpoch)

	previous := 0.0
	now := testEpoch
	for ticks := 1; ; ticks++ {
		now = now.Add(250 * time.Millisecond)
		completed := clock.Advance(now)

		if clock.Progress() < previous {
			t.Fatalf("progress decreased from %f to %f", previous, clock.Progress())
		}
		if clock.Progress() > 1 {
			t.Fatalf("progress %f exceeds 1", clock.Progress())
		}
		previous = clock.Progress()

		if completed {
			break
		}
		if ticks > 10000 {
			t.Fatal("clock did not converge to 1")
		}
	}

	if clock.Progress() != 1 || !clock.Complete() || clock.Running() {
		t.Errorf("after completion progress=%f complete=%t running=%t", clock.Progress(), clock.Complete(), clock.Running())
	}
}

func TestCompletionFiresOnce(t *testing.T) {
	clock := createTestClock(t, 10, 10)
	clock.Start(testEpoch)

	if !clock.Advance(testEpoch.Add(2 * time.Second)) {
		t.Fatal("expected completion on first tick")
	}
	for i := 3; i < 10; i++ {
		if clock.Advance(testEpoch.Add(time.Duration(i) * time.Second)) {
			t.Fatal("completion fired more than once")
		}
	}
	if clock.Progress() != 1 {
		t.Errorf("Progress() = %f, want exactly 1", clock.Progress())
	}
}

func TestAdvanceSkipsNonPositiveDelta(t *testing.T) {
	clock := createTestClock(t, 100, 1)
	clock.Start(testEpoch)
	clock.Advance(testEpoch.Add(10 * time.Second))

	before := clock.Progress()
	clock.Advance(testEpoch.Add(10 * time.Second)) // duplicate
	clock.Advance(testEpoch.Add(5 * time.Second))  // backwards
	if clock.Progress() != before {
		t.Errorf("Progress() = %f after dt <= 0 ticks, want %f", clock.Progress(), before)
	}

	clock.Advance(testEpoch.Add(11 * time.Second))
	if math.Abs(clock.Progress()-0.11) > 1e-12 {
		t.Errorf("Progress() = %f, want 0.11", clock.Progress())
	}
}

func TestAdvanceIgnoredWhileStopped(t *testing.T) {
	clock := createTestClock(t, 100, 1)
	if clock.Advance(testEpoch.Add(time.Hour)) {
		t.Error("stopped clock should not complete")
	}
	if clock.Progress() != 0 {
		t.Errorf("Progress() = %f, want 0", clock.Progress())
	}
}

func TestNoTimeDebtAfterPause(t *testing.T) {
	continuous := createTestClock(t, 1000, 1.389)
	continuous.Start(testEpoch)
	continuous.Advance(testEpoch.Add(time.Second))
	continuous.Advance(testEpoch.Add(2 * time.Second))

	paused := createTestClock(t, 1000, 1.389)
	paused.Start(testEpoch)
	paused.Advance(testEpoch.Add(time.Second))
	paused.Pause()

	// ticks while paused change nothing
	paused.Advance(testEpoch.Add(30 * time.Minute))

	resume := testEpoch.Add(72 * time.Hour)
	paused.Start(resume)
	paused.Advance(resume.Add(time.Second))

	if paused.Progress() != continuous.Progress() {
		t.Errorf("progress after pause = %v, want %v (pause must not count)", paused.Progress(), continuous.Progress())
	}
}

func TestSpeedChangeAppliesFromNextTick(t *testing.T) {
	const length = 1000.0
	slow := KMHToMPS(5)
	fast := KMHToMPS(10)

	clock := createTestClock(t, length, slow)
	clock.Start(testEpoch)

	// walk to progress 0.3
	toThirty := time.Duration(0.3 * length / slow * float64(time.Second))
	clock.Advance(testEpoch.Add(toThirty))
	at := clock.Progress()
	if math.Abs(at-0.3) > 1e-6 {
		t.Fatalf("Progress() = %f, want 0.3", at)
	}

	if err := clock.SetSpeed(fast); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	if clock.Progress() != at {
		t.Error("speed change must not recompute past progress")
	}

	clock.Advance(testEpoch.Add(toThirty + 10*time.Second))
	want := at + fast*10/length
	if math.Abs(clock.Progress()-want) > 1e-12 {
		t.Errorf("Progress() = %f, want %f", clock.Progress(), want)
	}

	if err := clock.SetSpeed(-1); err != ErrInvalidSpeed {
		t.Errorf("SetSpeed(-1) error = %v, want ErrInvalidSpeed", err)
	}
}

func TestResetAndRestart(t *testing.T) {
	clock := createTestClock(t, 10, 1)
	clock.Start(testEpoch)
	clock.Advance(testEpoch.Add(5 * time.Second))

	clock.Reset()
	if clock.Progress() != 0 || clock.Running() || clock.Complete() {
		t.Error("Reset should stop the clock at progress 0")
	}

	clock.Start(testEpoch.Add(time.Minute))
	clock.Advance(testEpoch.Add(time.Minute + 20*time.Second))
	if !clock.Complete() {
		t.Fatal("expected completion")
	}

	// starting a completed clock begins a fresh session
	clock.Start(testEpoch.Add(2 * time.Minute))
	if clock.Progress() != 0 || clock.Complete() || !clock.Running() {
		t.Errorf("restart: progress=%f complete=%t running=%t", clock.Progress(), clock.Complete(), clock.Running())
	}
}

func TestBudget(t *testing.T) {
	clock := createTestClock(t, 1000, 2)
	if clock.Budget() != 500*time.Second {
		t.Errorf("Budget() = %v, want 500s", clock.Budget())
	}
	clock.SetSpeed(4)
	if clock.Budget() != 250*time.Second {
		t.Errorf("Budget() after speed change = %v, want 250s", clock.Budget())
	}
}

func TestClockBudgetAtTinySpeed(t *testing.T) {
	clock, err := NewClock(1000, 1e-12)
	if err != nil {
		t.Fatalf("NewClock failed: %v", err)
	}
	if clock.Budget() != time.Duration(math.MaxInt64) || clock.TimeRemaining() != time.Duration(math.MaxInt64) {
		t.Errorf("Budget() = %v TimeRemaining() = %v, want saturated", clock.Budget(), clock.TimeRemaining())
	}
}
