// internal/app/system/notify/dispatcher.go
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/idempotency"
	"github.com/dalemusser/investwest/internal/app/system/mailer"
	"github.com/dalemusser/investwest/internal/app/system/timeouts"
	"github.com/dalemusser/investwest/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Job is one outbound step: an inbox notification, an email, or both.
// Key is the step's idempotency key; jobs sharing a key run at most once.
type Job struct {
	Key          string
	Notification *models.Notification
	Email        *mailer.Email
}

// Inbox stores notifications. A repeated idempotency key reports false.
type Inbox interface {
	Insert(ctx context.Context, n models.Notification) (bool, error)
}

// Config tunes the dispatcher.
type Config struct {
	QueueSize   int
	RatePerSec  float64
	Burst       int
	MaxAttempts int
}

var ErrStopped = errors.New("notification dispatcher is stopped")

// Dispatcher fans notifications and emails out through a bounded queue and a
// single rate-limited worker.
type Dispatcher struct {
	inbox       Inbox
	mail        mailer.Sender
	guard       idempotency.Guard
	limiter     *rate.Limiter
	log         *zap.Logger
	queue       chan Job
	maxAttempts int

	stop      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a dispatcher. A nil guard falls back to idempotency.NopGuard.
func New(cfg Config, inbox Inbox, mail mailer.Sender, guard idempotency.Guard, logger *zap.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if guard == nil {
		guard = idempotency.NopGuard{}
	}
	return &Dispatcher{
		inbox:       inbox,
		mail:        mail,
		guard:       guard,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		log:         logger,
		queue:       make(chan Job, cfg.QueueSize),
		maxAttempts: cfg.MaxAttempts,
		stop:        make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run()
		d.log.Info("notification dispatcher started", zap.Int("queue_size", cap(d.queue)))
	})
}

// Stop signals the worker, waits for it to drain queued jobs, and returns.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
		d.wg.Wait()
		d.log.Info("notification dispatcher stopped")
	})
}

// Enqueue hands a job to the worker. When the queue is full it waits for
// space until ctx is done or the dispatcher stops.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-d.stop:
		return ErrStopped
	default:
	}
	select {
	case d.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stop:
		return ErrStopped
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			d.drain()
			return
		case job := <-d.queue:
			d.handle(context.Background(), job)
		}
	}
}

// drain delivers what is already queued, bounded by the batch timeout.
func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()
	for {
		select {
		case job := <-d.queue:
			d.handle(ctx, job)
		default:
			return
		}
		if ctx.Err() != nil {
			d.log.Warn("notification drain timed out", zap.Int("dropped", len(d.queue)))
			return
		}
	}
}

func (d *Dispatcher) handle(parent context.Context, job Job) {
	cfg := retry.Config{
		MaxAttempts:  d.maxAttempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
		RetryIf:      retry.SkipPermanent,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			d.log.Warn("notification delivery failed",
				zap.String("key", job.Key),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", delay),
				zap.Error(err))
		},
	}
	err := retry.Do(parent, cfg, func(parent context.Context) error {
		ctx, cancel := context.WithTimeout(parent, timeouts.Medium())
		defer cancel()
		if err := d.limiter.Wait(ctx); err != nil {
			return retry.PermanentError(err)
		}
		return d.Deliver(ctx, job)
	})
	if err != nil {
		d.log.Error("notification delivery gave up", zap.String("key", job.Key), zap.Error(err))
	}
}

// Deliver performs job synchronously. A job whose key was already claimed is
// skipped; a failed job releases its key so a retry may run it.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) error {
	if job.Key != "" {
		ok, err := d.guard.Acquire(ctx, job.Key)
		if err != nil {
			// The unique index on notifications still catches duplicates.
			d.log.Warn("idempotency guard unavailable", zap.String("key", job.Key), zap.Error(err))
		} else if !ok {
			d.log.Debug("notification step already done", zap.String("key", job.Key))
			return nil
		}
	}
	if err := d.deliver(ctx, job); err != nil {
		if job.Key != "" {
			if rerr := d.guard.Release(ctx, job.Key); rerr != nil {
				d.log.Warn("idempotency release failed", zap.String("key", job.Key), zap.Error(rerr))
			}
		}
		return err
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) error {
	if job.Notification != nil {
		n := *job.Notification
		n.IdempotencyKey = job.Key
		if _, err := d.inbox.Insert(ctx, n); err != nil {
			return err
		}
	}
	if job.Email != nil && d.mail != nil {
		if err := d.mail.Send(ctx, *job.Email); err != nil {
			return err
		}
	}
	return nil
}
