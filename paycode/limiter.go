package paycode

import (
	"sync"
	"time"
)

// record tracks one user's code-entry abuse history. It outlives any dialogue
// session and is only discarded by idle garbage collection.
type record struct {
	attempts        int
	windowStartedAt time.Time
	lastAttemptAt   time.Time
	lockedUntil     time.Time
	lastAccepted    string
}

// LimiterConfig tunes attempt counting and lockouts.
type LimiterConfig struct {
	Window    time.Duration
	Threshold int
	Lockout   time.Duration
	IdleGC    time.Duration
}

// Limiter counts consecutive invalid code submissions per user and converts
// repeated abuse into a time-boxed lockout.
type Limiter struct {
	mu      sync.Mutex
	cfg     LimiterConfig
	records map[string]*record
	now     func() time.Time
}

// NewLimiter constructs a Limiter with sane defaults for zeroed options.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 15 * time.Minute
	}
	if cfg.IdleGC <= 0 {
		cfg.IdleGC = time.Hour
	}
	return &Limiter{
		cfg:     cfg,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// SetClock replaces the time source; used by tests to simulate elapsed time.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now != nil {
		l.now = now
	}
}

// Locked reports whether the user currently has an active lockout and, if so,
// the remaining duration. Observing an expired lockout clears it and zeroes
// the attempt counter; the last accepted code is deliberately kept so a replay
// is still rejected after the lockout passes.
func (l *Limiter) Locked(userID string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[userID]
	if !ok {
		return 0, false
	}
	now := l.now()
	if rec.lockedUntil.IsZero() {
		return 0, false
	}
	if now.Before(rec.lockedUntil) {
		return rec.lockedUntil.Sub(now), true
	}
	rec.lockedUntil = time.Time{}
	rec.attempts = 0
	return 0, false
}

// resetWindowIfIdle zeroes the attempt counter when the last attempt is older
// than the counting window. Caller must hold the mutex.
func (l *Limiter) resetWindowIfIdle(rec *record, now time.Time) {
	if rec.attempts == 0 {
		return
	}
	if !rec.lastAttemptAt.IsZero() && now.Sub(rec.lastAttemptAt) > l.cfg.Window {
		rec.attempts = 0
		rec.windowStartedAt = time.Time{}
	}
}

// Failure records an invalid submission with the given weight (2 for
// denylisted patterns, 1 otherwise). It returns the lockout duration and true
// when this failure reached the threshold and triggered a lockout.
func (l *Limiter) Failure(userID string, weight int) (time.Duration, bool) {
	if weight <= 0 {
		weight = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.record(userID)
	now := l.now()
	l.resetWindowIfIdle(rec, now)

	if rec.attempts == 0 {
		rec.windowStartedAt = now
	}
	rec.attempts += weight
	rec.lastAttemptAt = now

	if rec.attempts >= l.cfg.Threshold {
		rec.lockedUntil = now.Add(l.cfg.Lockout)
		return l.cfg.Lockout, true
	}
	return 0, false
}

// Success zeroes the attempt counter and remembers the accepted code for
// replay rejection.
func (l *Limiter) Success(userID, code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := l.record(userID)
	rec.attempts = 0
	rec.windowStartedAt = time.Time{}
	rec.lastAttemptAt = l.now()
	rec.lastAccepted = code
}

// LastAccepted returns the most recently accepted code for the user, if any.
func (l *Limiter) LastAccepted(userID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[userID]; ok {
		return rec.lastAccepted
	}
	return ""
}

// Sweep removes records idle longer than the GC horizon with no lockout in
// effect. Returns the number of removed records. Safe to call repeatedly; a
// second sweep with no intervening activity removes nothing.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for userID, rec := range l.records {
		if !rec.lockedUntil.IsZero() && now.Before(rec.lockedUntil) {
			continue
		}
		if rec.lastAttemptAt.IsZero() || now.Sub(rec.lastAttemptAt) > l.cfg.IdleGC {
			delete(l.records, userID)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked users. Used for sweep logging.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Limiter) record(userID string) *record {
	rec, ok := l.records[userID]
	if !ok {
		rec = &record{}
		l.records[userID] = rec
	}
	return rec
}
