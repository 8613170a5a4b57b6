package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// statsHistoryWindow bounds how far back the aggregator reads the event log.
const statsHistoryWindow = 365 * 24 * time.Hour

// Window filter values accepted by the stats endpoints.
const (
	WindowToday = "today"
	WindowWeek  = "week"
	WindowMonth = "month"
	WindowYear  = "year"
	WindowAll   = "all"
)

// windowStart returns the lower bound for the given filter. Unknown values
// fall back to the full history window.
func windowStart(now time.Time, window string) time.Time {
	switch window {
	case WindowToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case WindowWeek:
		return now.Add(-7 * 24 * time.Hour)
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case WindowYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return now.Add(-statsHistoryWindow)
}

// statsService implements the StatsService interface.
type statsService struct {
	coffeeRepo db.CoffeeRepository
	userRepo   db.UserRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(cr db.CoffeeRepository, ur db.UserRepository, logger *zap.Logger) StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statsService{
		coffeeRepo: cr,
		userRepo:   ur,
		logger:     logger,
		now:        time.Now,
	}
}

// UserStats computes one user's consumption profile from the event log.
func (s *statsService) UserStats(ctx context.Context, userID, window string) (*UserStats, error) {
	now := s.now()
	events, err := s.coffeeRepo.ListSince(ctx, windowStart(now, window), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coffee history: %w", err)
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := 0
	for _, e := range events {
		if !e.CreatedAt.Before(startOfDay) {
			today++
		}
	}

	return &UserStats{
		UserID:           userID,
		TotalCoffees:     len(events),
		TodayCoffees:     today,
		StreakDays:       StreakDays(events, now),
		FavoritePeriod:   FavoritePeriod(events),
		AverageTime:      AverageTime(events),
		FavoriteQuantity: FavoriteQuantity(events),
		MonthHistogram:   MonthHistogram(events, now),
		Suspicious:       SuspiciousUser(events, now),
	}, nil
}

// GlobalStats computes the all-users summary, joining display names in
// memory since events only store the owner ID.
func (s *statsService) GlobalStats(ctx context.Context, window string) (*GlobalStats, error) {
	now := s.now()
	events, err := s.coffeeRepo.ListSince(ctx, windowStart(now, window), "")
	if err != nil {
		return nil, fmt.Errorf("failed to load coffee history: %w", err)
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := 0
	periodCounts := map[string]int{}
	byUser := map[string][]*models.CoffeeEvent{}
	for _, e := range events {
		if !e.CreatedAt.Before(startOfDay) {
			today++
		}
		periodCounts[PeriodOf(e.CreatedAt.Hour())]++
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	var suspicious []string
	for userID, userEvents := range byUser {
		if SuspiciousUser(userEvents, now) {
			suspicious = append(suspicious, userID)
		}
	}

	return &GlobalStats{
		TotalCoffees:    len(events),
		TodayCoffees:    today,
		ActiveUsers:     len(byUser),
		Ranking:         BuildRanking(events, names),
		PeriodCounts:    periodCounts,
		SuspiciousUsers: suspicious,
	}, nil
}

// Achievements returns the user's unlocked milestones.
func (s *statsService) Achievements(ctx context.Context, userID string) ([]Achievement, error) {
	now := s.now()
	events, err := s.coffeeRepo.ListSince(ctx, now.Add(-statsHistoryWindow), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coffee history: %w", err)
	}
	return BuildAchievements(events, now), nil
}
