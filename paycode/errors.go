package paycode

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitedError reports that code submissions are temporarily suspended for
// the user. RetryAfter is the remaining lockout duration.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("code submissions locked for another %s", e.RetryAfter.Round(time.Second))
}

// FormatError reports user-correctable input shape problems. Hint always
// restates the expected canonical form. A non-zero LockedFor means this
// rejection crossed the attempt threshold and a lockout is now in effect;
// the response shown to the user becomes a lockout notice.
type FormatError struct {
	Reason    string
	Hint      string
	LockedFor time.Duration
}

func (e *FormatError) Error() string {
	return e.Reason
}

// SecurityError reports replayed, denylisted or oversized submissions. The
// user recovers by obtaining a fresh code. LockedFor behaves as in FormatError.
type SecurityError struct {
	Reason    string
	LockedFor time.Duration
}

func (e *SecurityError) Error() string {
	return e.Reason
}

// IsRateLimited reports whether err is a lockout rejection.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// IsFormatInvalid reports whether err is a correctable format rejection.
func IsFormatInvalid(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsSecurityRejected reports whether err is a replay/denylist/oversize rejection.
func IsSecurityRejected(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}
