package services

import (
	"context"
	"errors"
	"fmt"

	"goTheNineAPI/internal/progress"
	"goTheNineAPI/internal/stats"
	"goTheNineAPI/internal/streak"
)

type StatsService struct {
	accounts *Accounts
	progress ProgressStore
}

func NewStatsService(accounts *Accounts, progress ProgressStore) *StatsService {
	return &StatsService{accounts: accounts, progress: progress}
}

func (s *StatsService) records(ctx context.Context, clerkID string) (*Caller, []*progress.DailyProgress, stats.Period, error) {
	c, err := s.accounts.ResolveOrStart(ctx, clerkID)
	if err != nil {
		return nil, nil, stats.Period{}, err
	}
	records, err := s.progress.ListByChallenge(ctx, c.Challenge.ID)
	if err != nil {
		return nil, nil, stats.Period{}, err
	}
	span := stats.Period{Start: c.Challenge.StartDate, End: c.Challenge.EndDate}
	return c, records, span, nil
}

func badOffset(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidMutation, err)
}

// Weekly rolls up the Sunday-start week offset weeks before the current one.
func (s *StatsService) Weekly(ctx context.Context, clerkID string, offset int) (*stats.Rollup, error) {
	if offset < 0 {
		return nil, badOffset(errors.New("offset must not be negative"))
	}
	c, records, span, err := s.records(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	week, err := stats.WeekRange(c.Today, offset)
	if err != nil {
		return nil, badOffset(err)
	}
	r, err := stats.Compute(records, week, span, c.Today)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *StatsService) Monthly(ctx context.Context, clerkID string, offset int) (*stats.MonthRollup, error) {
	if offset < 0 {
		return nil, badOffset(errors.New("offset must not be negative"))
	}
	c, records, span, err := s.records(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	month, err := stats.MonthRange(c.Today, offset)
	if err != nil {
		return nil, badOffset(err)
	}
	r, err := stats.Monthly(records, month, span, c.Today)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type Summary struct {
	CurrentDay int          `json:"current_day"`
	Streak     streak.Data  `json:"streak"`
	ThisWeek   stats.Rollup `json:"this_week"`
	Overall    stats.Rollup `json:"overall"`
}

// Summary combines the streak, this week and the whole challenge so far.
func (s *StatsService) Summary(ctx context.Context, clerkID string) (*Summary, error) {
	c, records, span, err := s.records(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	week, err := stats.WeekRange(c.Today, 0)
	if err != nil {
		return nil, err
	}
	thisWeek, err := stats.Compute(records, week, span, c.Today)
	if err != nil {
		return nil, err
	}
	overall, err := stats.Compute(records, span, span, c.Today)
	if err != nil {
		return nil, err
	}
	return &Summary{
		CurrentDay: c.DayNumber(),
		Streak:     streak.Compute(streak.FromProgress(records), c.Today),
		ThisWeek:   thisWeek,
		Overall:    overall,
	}, nil
}
