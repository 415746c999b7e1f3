package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is a store that can evict its expired entries
type Sweeper interface {
	Name() string
	Sweep(ctx context.Context) (int, error)
}

// Cleaner periodically evicts expired listing cache entries
type Cleaner struct {
	sweepers []Sweeper
	interval time.Duration
	log      *zap.Logger
}

// NewCleaner creates a new cleanup worker
func NewCleaner(interval time.Duration, log *zap.Logger, sweepers ...Sweeper) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Cleaner{
		sweepers: sweepers,
		interval: interval,
		log:      log.Named("cleanup"),
	}
}

// Start begins the cleanup worker in a goroutine. The returned channel is
// closed once the worker has stopped after ctx is cancelled.
func (c *Cleaner) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx)
	}()
	return done
}

func (c *Cleaner) run(ctx context.Context) {
	c.log.Info("cleanup worker started", zap.Duration("interval", c.interval), zap.Int("stores", len(c.sweepers)))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup cycle over every store and returns the total
// number of evicted entries
func (c *Cleaner) Sweep(ctx context.Context) int {
	total := 0
	for _, s := range c.sweepers {
		n, err := s.Sweep(ctx)
		if err != nil {
			c.log.Error("failed to sweep store", zap.String("store", s.Name()), zap.Error(err))
			continue
		}
		if n > 0 {
			c.log.Debug("expired entries evicted", zap.String("store", s.Name()), zap.Int("count", n))
		}
		total += n
	}
	return total
}
