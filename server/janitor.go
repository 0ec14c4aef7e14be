package server

import (
	"context"
	"time"
)

// FormIdleTTL is how long an untouched sign in form is kept.
const FormIdleTTL = 30 * time.Minute

// janitor drops idle forms, expired cache entries and throttle buckets
// until ctx is done.
func (a *App) janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger := a.GetLogger("janitor")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			forms := a.registry.Prune(FormIdleTTL)
			users := a.users.Sweep()
			limits := a.limiter.Sweep()
			if forms+users+limits > 0 {
				logger.Debug("swept idle state",
					"forms", forms,
					"cached_users", users,
					"throttle_keys", limits,
				)
			}
		}
	}
}
