package engine

import (
	"context"
	"log/slog"
	"time"
)

// ExpiryManager periodically sweeps the engine's books for resting orders
// whose expiry has passed.
type ExpiryManager struct {
	interval time.Duration
	engine   *Engine
	logger   *slog.Logger
}

// NewExpiryManager creates an ExpiryManager ticking at the given interval.
func NewExpiryManager(interval time.Duration, engine *Engine, logger *slog.Logger) *ExpiryManager {
	return &ExpiryManager{
		interval: interval,
		engine:   engine,
		logger:   logger,
	}
}

// Start launches a background goroutine that runs the sweep at the
// configured interval. It stops when ctx is cancelled.
func (m *ExpiryManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				if n := m.engine.ExpireDue(t); n > 0 {
					m.logger.Info("orders expired", slog.Int("count", n))
				}
			}
		}
	}()
}
