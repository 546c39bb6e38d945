package paycode

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/paybot/core/logger"
)

// Validator applies the full validation pipeline to user-submitted code text:
// lockout check, cleaning, shape checks, denylist screening, replay rejection
// and attempt accounting.
type Validator struct {
	format  *Format
	limiter *Limiter
}

// NewValidator wires a Format and a Limiter into one validation pipeline.
func NewValidator(format *Format, limiter *Limiter) *Validator {
	return &Validator{format: format, limiter: limiter}
}

// Format exposes the code format for extraction and routing.
func (v *Validator) Format() *Format {
	return v.format
}

// Limiter exposes the attempt limiter for lockout checks and sweeps.
func (v *Validator) Limiter() *Limiter {
	return v.limiter
}

// Validate turns raw user text into a canonical code or a typed rejection.
//
// Check order is fixed: lockout, window reset, candidate extraction (labeled,
// URI-wrapped and embedded codes are unwrapped; otherwise the whole message
// is cleaned), emptiness, prefix presence, prefix position, total length,
// digit section shape, denylist screening, replay, raw-length cap against the
// original message. Every rejection except the
// lockout path counts against the user's attempt budget; denylisted patterns
// count double. When a rejection crosses the threshold the returned error
// carries the lockout duration so callers can notify the user immediately.
func (v *Validator) Validate(userID, raw string) (string, error) {
	if remaining, locked := v.limiter.Locked(userID); locked {
		logger.Warn(logger.Background(), "paycode", "validate.locked",
			slog.String("status", "rate_limited"),
			slog.String("user_id", userID),
			slog.Int64("remaining_s", int64(remaining/time.Second)),
		)
		return "", &RateLimitedError{RetryAfter: remaining}
	}

	cleaned, found := v.format.Extract(raw)
	if !found {
		cleaned = v.format.Clean(raw)
	}
	weight := 1

	fail := func(err error) (string, error) {
		lockout, lockedNow := v.limiter.Failure(userID, weight)
		if lockedNow {
			switch e := err.(type) {
			case *FormatError:
				e.LockedFor = lockout
			case *SecurityError:
				e.LockedFor = lockout
			}
		}
		logger.Info(logger.Background(), "paycode", "validate.rejected",
			slog.String("status", "rejected"),
			slog.String("user_id", userID),
			slog.String("code", v.format.Mask(cleaned)),
			slog.String("reason", err.Error()),
			slog.Bool("locked", lockedNow),
		)
		return "", err
	}

	hint := v.format.Canonical(strings.Repeat("1", v.format.Digits))

	if cleaned == "" {
		return fail(&FormatError{
			Reason: "no code found in input",
			Hint:   hint,
		})
	}

	if isDigits(cleaned) {
		// Bare digit run: accepted by extraction, rejected here with the
		// canonical form spelled out.
		reason := fmt.Sprintf("missing %s prefix", v.format.Prefix)
		if len(cleaned) == v.format.Digits {
			return fail(&FormatError{
				Reason: reason,
				Hint:   v.format.Canonical(cleaned),
			})
		}
		return fail(&FormatError{Reason: reason, Hint: hint})
	}

	if !strings.HasPrefix(cleaned, v.format.Prefix) {
		return fail(&FormatError{
			Reason: fmt.Sprintf("code must start with %s", v.format.Prefix),
			Hint:   hint,
		})
	}

	if len(cleaned) != v.format.CodeLength() {
		return fail(&FormatError{
			Reason: fmt.Sprintf("code must be exactly %d characters", v.format.CodeLength()),
			Hint:   hint,
		})
	}

	digits := cleaned[len(v.format.Prefix):]
	if !isDigits(digits) {
		return fail(&FormatError{
			Reason: fmt.Sprintf("the %d characters after %s must be digits", v.format.Digits, v.format.Prefix),
			Hint:   hint,
		})
	}

	if suspicious(digits) {
		weight = 2
	}

	if last := v.limiter.LastAccepted(userID); last != "" && last == cleaned {
		return fail(&SecurityError{Reason: "this code was already redeemed, request a new one"})
	}

	if len(raw) > v.format.MaxRawLength {
		return fail(&SecurityError{Reason: "input too long"})
	}

	if weight == 2 {
		return fail(&SecurityError{Reason: "code failed security checks, request a new one"})
	}

	v.limiter.Success(userID, cleaned)
	logger.Info(logger.Background(), "paycode", "validate.accepted",
		slog.String("status", "ok"),
		slog.String("user_id", userID),
		slog.String("code", v.format.Mask(cleaned)),
	)
	return cleaned, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
