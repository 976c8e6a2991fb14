package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartRetentionSweep runs the purge sweep once and then at the given
// coarse interval (hourly is typical), independent of UI activity.
func (e *Engine) StartRetentionSweep(interval time.Duration) {
	e.sweepOnce()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.sweepOnce()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	total := 0
	for _, room := range e.CachedRooms() {
		n, err := e.PurgeEligible(ctx, room.ID)
		if err != nil {
			e.log.Warn("retention sweep", zap.String("room", room.ID.String()), zap.Error(err))
			continue
		}
		total += n
	}
	if total > 0 {
		e.log.Info("retention sweep purged", zap.Int("memories", total))
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopped.Do(func() { close(e.stopCh) })
}
