package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/paybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// FloodOptions configures the per-user minimum message interval. This is
// transport-level protection, independent of the pay code attempt lockout.
type FloodOptions struct {
	Interval  time.Duration
	OnLimited tele.HandlerFunc
}

// FloodMiddleware returns a middleware that enforces a minimum interval
// between messages from the same user.
func FloodMiddleware(opts FloodOptions) tele.MiddlewareFunc {
	var (
		userLastSeen   = make(map[int64]time.Time)
		userLastSeenMu sync.Mutex
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			now := time.Now()

			userLastSeenMu.Lock()
			if last, ok := userLastSeen[user.ID]; ok && now.Sub(last) < opts.Interval {
				userLastSeenMu.Unlock()
				logger.TG.Warn("flood limit",
					slog.String("event", "tg.flood"),
					slog.Int64("user_id", user.ID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}

			userLastSeen[user.ID] = now
			userLastSeenMu.Unlock()
			return next(c)
		}
	}
}
