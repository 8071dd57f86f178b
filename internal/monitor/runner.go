// internal/monitor/runner.go
package monitor

import (
	"context"
	"errors"
	"time"
)

// Run ticks immediately and then every interval until ctx ends.
// One goroutine. No overlap: a tick longer than interval delays the next one.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("monitor: interval must be > 0")
	}

	if err := m.Monitore(ctx); err != nil {
		return ignoreDone(ctx, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Monitore(ctx); err != nil {
				return ignoreDone(ctx, err)
			}
		}
	}
}

func ignoreDone(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
