// internal/app/system/workers/pitchexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.uber.org/zap"
)

// Expirer moves live pitches past their expiry date into review.
type Expirer interface {
	ExpirePitches(ctx context.Context, actor models.Actor, limit int64) (int, error)
}

// PitchExpiry is a background worker that parks expired pitches until an
// admin decides on them.
type PitchExpiry struct {
	expirer  Expirer
	log      *zap.Logger
	interval time.Duration
	batch    int64
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPitchExpiry creates a new pitch expiry worker.
//
// Parameters:
//   - expirer: usually the lifecycle service
//   - logger: zap logger for logging
//   - interval: how often to look for expired pitches (e.g., 5 minutes)
//   - batch: the most projects handled per pass
func NewPitchExpiry(expirer Expirer, logger *zap.Logger, interval time.Duration, batch int64) *PitchExpiry {
	if batch <= 0 {
		batch = 200
	}
	return &PitchExpiry{
		expirer:  expirer,
		log:      logger,
		interval: interval,
		batch:    batch,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *PitchExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("pitch expiry worker started",
		zap.Duration("interval", w.interval),
		zap.Int64("batch", w.batch))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *PitchExpiry) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("pitch expiry worker stopped")
	})
}

func (w *PitchExpiry) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs one expiry pass and returns how many projects moved.
func (w *PitchExpiry) RunOnce() int {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	// The system actor has no user id; activity rows record a zero user.
	count, err := w.expirer.ExpirePitches(ctx, models.Actor{}, w.batch)
	if err != nil {
		w.log.Error("failed to expire pitches", zap.Error(err), zap.Int("expired", count))
		return count
	}
	if count > 0 {
		w.log.Info("expired pitches", zap.Int("count", count))
	}
	return count
}
