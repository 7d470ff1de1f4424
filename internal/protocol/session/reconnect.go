package session

import (
	"context"
	"time"
)

// WaitReconnect blocks for the fixed reconnect delay or until ctx ends.
func WaitReconnect(ctx context.Context, cfg Config) error {
	timer := time.NewTimer(cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ActionDue reports whether a primary directive may be sent at now given the
// last send. A zero last always allows.
func ActionDue(cfg Config, last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= cfg.MinActionInterval
}
