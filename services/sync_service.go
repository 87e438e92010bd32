package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/syncqueue"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/pkg/logger"
)

const maxSyncBatch = 100

// SyncService accepts mutations a client made while offline and replays
// them in the background.
type SyncService struct {
	queue    syncqueue.Queue
	progress *ProgressService
}

func NewSyncService(queue syncqueue.Queue, progress *ProgressService) *SyncService {
	return &SyncService{queue: queue, progress: progress}
}

type SyncReceipt struct {
	Accepted []string          `json:"accepted"`
	Rejected map[string]string `json:"rejected"`
	Pending  int               `json:"pending"`
}

// Enqueue validates and queues items for clerkID. Invalid items are reported
// back, not queued.
func (s *SyncService) Enqueue(ctx context.Context, clerkID string, items []syncqueue.Item) (*SyncReceipt, error) {
	if len(items) > maxSyncBatch {
		return nil, fmt.Errorf("%w: at most %d items per batch", ErrInvalidMutation, maxSyncBatch)
	}

	// "today" is pinned now; replay may run after the caller's midnight.
	c, err := s.progress.accounts.caller(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	receipt := &SyncReceipt{Accepted: []string{}, Rejected: map[string]string{}}
	now := c.Now.UTC()
	for _, it := range items {
		it.ClerkID = clerkID
		it.Attempts = 0
		it.EnqueuedAt = now
		if it.Date == "" || it.Date == "today" {
			it.Date = c.Today
		}

		if err := it.Validate(); err != nil {
			receipt.Rejected[it.ClientID] = err.Error()
			continue
		}
		if !task.Valid(task.ID(it.TaskID)) {
			receipt.Rejected[it.ClientID] = ErrUnknownTask.Error()
			continue
		}
		if !clock.ValidDate(it.Date) {
			receipt.Rejected[it.ClientID] = ErrInvalidDate.Error()
			continue
		}
		if err := s.queue.Push(ctx, it); err != nil {
			logger.Log.Error("Failed to queue sync item", zap.String("clerk_id", clerkID), zap.Error(err))
			return nil, err
		}
		receipt.Accepted = append(receipt.Accepted, it.ClientID)
	}

	pending, err := s.queue.Pending(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	receipt.Pending = pending
	return receipt, nil
}

func (s *SyncService) Pending(ctx context.Context, clerkID string) (int, error) {
	return s.queue.Pending(ctx, clerkID)
}

// Apply replays one item. Errors that no retry can fix are marked permanent
// so the replayer drops the item at once.
func (s *SyncService) Apply(ctx context.Context, it syncqueue.Item) error {
	var err error
	switch it.Kind {
	case syncqueue.KindToggleTask:
		if it.Completed == nil {
			return syncqueue.Permanent(syncqueue.ErrInvalidItem)
		}
		_, err = s.progress.toggle(ctx, it.ClerkID, it.Date, task.ID(it.TaskID), *it.Completed, it.EnqueuedAt)
	case syncqueue.KindUpdateTask:
		_, err = s.progress.UpdateDetails(ctx, it.ClerkID, it.Date, task.ID(it.TaskID), progress.Details{
			DurationMinutes: it.DurationMinutes,
			Notes:           it.Notes,
		})
	default:
		return syncqueue.Permanent(syncqueue.ErrInvalidItem)
	}

	if err == nil {
		return nil
	}
	for _, permanent := range []error{ErrUnknownTask, ErrInvalidDate, ErrNoActiveChallenge, ErrInvalidMutation} {
		if errors.Is(err, permanent) {
			return syncqueue.Permanent(err)
		}
	}
	return err
}

var _ syncqueue.Applier = (*SyncService)(nil)
