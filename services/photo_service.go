package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/task"
	"goTheNineAPI/pkg/logger"
)

type PhotoService struct {
	accounts *Accounts
	progress ProgressStore
	photos   PhotoStore
	toggles  *ProgressService
}

func NewPhotoService(accounts *Accounts, progress ProgressStore, photos PhotoStore, toggles *ProgressService) *PhotoService {
	return &PhotoService{accounts: accounts, progress: progress, photos: photos, toggles: toggles}
}

type PhotoEntry struct {
	DayNumber    int    `json:"day_number"`
	Date         string `json:"date"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Upload stores the photo and records it on the day's progress_photo task,
// which completes that task. A replaced photo is removed from storage; a
// failed write removes the new one.
func (s *PhotoService) Upload(ctx context.Context, clerkID, date string, data []byte) (*progress.DailyProgress, error) {
	c, err := s.accounts.Resolve(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	day, err := c.ResolveDate(date, true)
	if err != nil {
		return nil, err
	}

	stored, err := s.photos.Store(ctx, c.Challenge.ID, day, data)
	if err != nil {
		logger.Log.Error("Failed to store photo", zap.String("clerk_id", clerkID), zap.String("date", day), zap.Error(err))
		return nil, err
	}

	var before *progress.DailyProgress
	saved, err := s.progress.Mutate(ctx, c.Challenge.ID, day, func(p *progress.DailyProgress) error {
		before = p.Clone()
		progress.AttachPhoto(p, stored.URL, stored.ThumbnailURL, c.Now)
		return nil
	})
	if err != nil {
		logger.Log.Error("Failed to attach photo", zap.String("clerk_id", clerkID), zap.String("date", day), zap.Error(err))
		s.discard(ctx, clerkID, stored.URL, stored.ThumbnailURL)
		return nil, err
	}

	old := before.Tasks[task.ProgressPhoto]
	var stale []string
	if old.PhotoURL != nil && *old.PhotoURL != stored.URL {
		stale = append(stale, *old.PhotoURL)
	}
	if old.ThumbnailURL != nil && *old.ThumbnailURL != stored.ThumbnailURL {
		stale = append(stale, *old.ThumbnailURL)
	}
	if len(stale) > 0 {
		s.discard(ctx, clerkID, stale...)
	}

	if s.toggles != nil {
		n, _ := c.Challenge.DayOf(day)
		s.toggles.afterWrite(ctx, c, n, before, saved)
	}
	return saved, nil
}

// discard removes objects best effort. It outlives a cancelled request so a
// timed-out upload still cleans up.
func (s *PhotoService) discard(ctx context.Context, clerkID string, urls ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.photos.Delete(ctx, urls...); err != nil {
		logger.Log.Warn("Failed to remove photo objects",
			zap.String("clerk_id", clerkID), zap.Strings("urls", urls), zap.Error(err))
	}
}

// Gallery lists every day with a progress photo, oldest first.
func (s *PhotoService) Gallery(ctx context.Context, clerkID string) ([]PhotoEntry, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	records, err := s.progress.ListByChallenge(ctx, c.Challenge.ID)
	if err != nil {
		return nil, err
	}

	out := []PhotoEntry{}
	for _, p := range records {
		st := p.Tasks[task.ProgressPhoto]
		if st.PhotoURL == nil {
			continue
		}
		n, _ := c.Challenge.DayOf(p.Date)
		e := PhotoEntry{DayNumber: n, Date: p.Date, URL: *st.PhotoURL}
		if st.ThumbnailURL != nil {
			e.ThumbnailURL = *st.ThumbnailURL
		}
		out = append(out, e)
	}
	return out, nil
}
