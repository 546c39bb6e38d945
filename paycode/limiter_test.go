package paycode

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time              { return c.t }
func (c *fakeClock) Advance(d time.Duration)     { c.t = c.t.Add(d) }
func newFakeClock() *fakeClock                   { return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)} }
func newTestLimiter(clock *fakeClock) *Limiter {
	l := NewLimiter(LimiterConfig{
		Window:    5 * time.Minute,
		Threshold: 3,
		Lockout:   15 * time.Minute,
		IdleGC:    time.Hour,
	})
	l.SetClock(clock.Now)
	return l
}

func TestLimiterThresholdTriggersLockout(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	for i := 0; i < 2; i++ {
		if _, locked := l.Failure("u1", 1); locked {
			t.Fatalf("locked after %d failures", i+1)
		}
	}
	lockout, locked := l.Failure("u1", 1)
	if !locked || lockout != 15*time.Minute {
		t.Fatalf("expected lockout on third failure, got (%v, %v)", lockout, locked)
	}

	remaining, isLocked := l.Locked("u1")
	if !isLocked || remaining <= 0 {
		t.Fatalf("expected active lockout, got (%v, %v)", remaining, isLocked)
	}

	clock.Advance(15*time.Minute + time.Second)
	if _, isLocked := l.Locked("u1"); isLocked {
		t.Fatal("lockout should have expired")
	}
	// Expiry observation zeroes attempts: a single new failure must not lock.
	if _, locked := l.Failure("u1", 1); locked {
		t.Fatal("attempts were not reset after lockout expiry")
	}
}

func TestLimiterDoubleWeightReachesLockoutFaster(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	if _, locked := l.Failure("u1", 2); locked {
		t.Fatal("locked after a single weighted failure")
	}
	if _, locked := l.Failure("u1", 2); !locked {
		t.Fatal("two weighted failures should reach the threshold of 3")
	}
}

func TestLimiterWindowReset(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	l.Failure("u1", 1)
	l.Failure("u1", 1)
	clock.Advance(5*time.Minute + time.Second)
	// Idle longer than the window: counter restarts, no lockout on this one.
	if _, locked := l.Failure("u1", 1); locked {
		t.Fatal("window was not reset after idle period")
	}
}

func TestLimiterKeepsLastAcceptedAcrossLockoutExpiry(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	l.Success("u1", "PAY123456")
	l.Failure("u1", 1)
	l.Failure("u1", 1)
	l.Failure("u1", 1)
	clock.Advance(16 * time.Minute)
	if _, isLocked := l.Locked("u1"); isLocked {
		t.Fatal("lockout should have expired")
	}
	if got := l.LastAccepted("u1"); got != "PAY123456" {
		t.Fatalf("lastAccepted = %q, want PAY123456", got)
	}
}

func TestLimiterSweepIdempotent(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	l.Failure("u1", 1)
	l.Success("u2", "PAY111222")

	if removed := l.Sweep(); removed != 0 {
		t.Fatalf("premature sweep removed %d", removed)
	}
	clock.Advance(time.Hour + time.Minute)
	if removed := l.Sweep(); removed != 2 {
		t.Fatalf("sweep removed %d, want 2", removed)
	}
	if removed := l.Sweep(); removed != 0 {
		t.Fatalf("second sweep removed %d, want 0", removed)
	}
	if l.Size() != 0 {
		t.Fatalf("size = %d after sweep", l.Size())
	}
}

func TestLimiterSweepSkipsActiveLockout(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(LimiterConfig{Window: 5 * time.Minute, Threshold: 1, Lockout: 2 * time.Hour, IdleGC: time.Hour})
	l.SetClock(clock.Now)

	l.Failure("u1", 1) // locked for 2h
	clock.Advance(time.Hour + time.Minute)
	if removed := l.Sweep(); removed != 0 {
		t.Fatalf("sweep removed a locked record")
	}
}
