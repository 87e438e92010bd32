package syncqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/pkg/logger"
)

// DefaultMaxAttempts is how many times an item is tried before it is dropped.
const DefaultMaxAttempts = 3

// Applier writes one item through to the store.
type Applier interface {
	Apply(ctx context.Context, item Item) error
}

type ApplierFunc func(ctx context.Context, item Item) error

func (f ApplierFunc) Apply(ctx context.Context, item Item) error { return f(ctx, item) }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the replayer drops the item at
// once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Result counts what one replay pass did.
type Result struct {
	Replayed int
	Retried  int
	Dropped  int
}

type Replayer struct {
	queue       Queue
	applier     Applier
	maxAttempts int
	interval    time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewReplayer(queue Queue, applier Applier, maxAttempts int, interval time.Duration) *Replayer {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Replayer{
		queue:       queue,
		applier:     applier,
		maxAttempts: maxAttempts,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// RunOnce replays the items that were queued when the pass started. Items
// that fail are pushed back for the next pass until they reach maxAttempts.
func (r *Replayer) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	n, err := r.queue.Len(ctx)
	if err != nil {
		return res, err
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		item, ok, err := r.queue.Pop(ctx)
		if errors.Is(err, ErrCorruptItem) {
			logger.Log.Warn("Dropping corrupt sync item", zap.Error(err))
			res.Dropped++
			metrics.SyncItems.WithLabelValues("dropped").Inc()
			continue
		}
		if err != nil {
			// nothing was removed; the next pass tries again
			return res, err
		}
		if !ok {
			break
		}

		r.process(ctx, item, &res)
	}

	if res.Replayed+res.Retried+res.Dropped > 0 {
		logger.Log.Info("Sync replay pass finished",
			zap.Int("replayed", res.Replayed),
			zap.Int("retried", res.Retried),
			zap.Int("dropped", res.Dropped))
	}
	return res, nil
}

func (r *Replayer) process(ctx context.Context, item Item, res *Result) {
	err := r.applier.Apply(ctx, item)
	if err == nil {
		res.Replayed++
		metrics.SyncItems.WithLabelValues("replayed").Inc()
		return
	}

	item.Attempts++
	fields := []zap.Field{
		zap.String("client_id", item.ClientID),
		zap.String("clerk_id", item.ClerkID),
		zap.String("kind", string(item.Kind)),
		zap.Int("attempts", item.Attempts),
		zap.Error(err),
	}

	if IsPermanent(err) || item.Attempts >= r.maxAttempts {
		logger.Log.Warn("Dropping sync item", fields...)
		res.Dropped++
		metrics.SyncItems.WithLabelValues("dropped").Inc()
		return
	}

	if perr := r.queue.Push(ctx, item); perr != nil {
		logger.Log.Error("Failed to requeue sync item", append(fields, zap.NamedError("push_error", perr))...)
		res.Dropped++
		metrics.SyncItems.WithLabelValues("dropped").Inc()
		return
	}
	res.Retried++
	metrics.SyncItems.WithLabelValues("retried").Inc()
}

// Start runs a pass every interval until Stop or ctx is done.
func (r *Replayer) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Log.Error("Sync replay pass failed", zap.Error(err))
				}
			case <-r.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Replayer) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	logger.Log.Info("Sync replayer stopped")
}
