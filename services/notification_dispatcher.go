package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/pkg/logger"
)

const (
	maxPushAttempts   = 3
	dispatchQueueSize = 100
)

// NotificationDispatcher sends push notifications from a worker pool so
// callers never wait on the provider.
type NotificationDispatcher struct {
	pushProvider notification.PushProvider
	workers      int
	retryDelay   time.Duration
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

type DispatchJob struct {
	UserID   uuid.UUID
	Kind     notification.Kind
	Message  notification.Message
	Tokens   []notification.DeviceToken
	Attempts int
}

func NewNotificationDispatcher(workers int) *NotificationDispatcher {
	return newNotificationDispatcher(workers, dispatchQueueSize)
}

func newNotificationDispatcher(workers, queueSize int) *NotificationDispatcher {
	if workers < 1 {
		workers = 5
	}
	d := &NotificationDispatcher{
		workers:    workers,
		retryDelay: time.Minute,
		jobQueue:   make(chan *DispatchJob, queueSize),
		stopChan:   make(chan struct{}),
	}
	d.startWorkers()
	return d
}

// SetPushProvider injects the real provider from main.
func (d *NotificationDispatcher) SetPushProvider(provider notification.PushProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	if d.pushProvider == nil {
		logger.Log.Debug("Skipping push, no provider configured", zap.String("tag", job.Message.Tag))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job.Attempts++
	err := d.pushProvider.Send(ctx, job.UserID, job.Tokens, job.Message)
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(string(job.Kind), "push").Inc()
		return
	}

	logger.Log.Warn("Push failed",
		zap.String("user_id", job.UserID.String()),
		zap.String("tag", job.Message.Tag),
		zap.Int("attempts", job.Attempts),
		zap.Error(err))

	if job.Attempts >= maxPushAttempts {
		return
	}
	time.AfterFunc(d.retryDelay, func() { d.Dispatch(job) })
}

// Dispatch queues job without blocking and reports whether it was queued.
// Jobs are dropped when the queue is full or the dispatcher is stopped.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) bool {
	select {
	case <-d.stopChan:
		return false
	default:
	}

	select {
	case d.jobQueue <- job:
		return true
	default:
		logger.Log.Warn("Dropping push: queue full", zap.String("tag", job.Message.Tag))
		return false
	}
}

func (d *NotificationDispatcher) Stop() {
	logger.Log.Info("Stopping notification dispatcher...")
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
	logger.Log.Info("Notification dispatcher stopped")
}
