package core

import (
	"fmt"
	"sort"
	"time"

	"cafezao-backend-go/internal/models"
)

// Day periods used to bucket consumption. Hour ranges are inclusive.
const (
	PeriodMorning   = "Manhã"     // 06-11
	PeriodAfternoon = "Tarde"     // 12-17
	PeriodEvening   = "Noite"     // 18-23
	PeriodDawn      = "Madrugada" // 00-05
)

// Thresholds for flagging suspicious consumption.
const (
	suspiciousMinGap    = 5 * time.Minute
	suspiciousDailyMax  = 10
	rankingSize         = 10
	streakAchievementAt = 7
	volumeAchievementAt = 100
)

// UserStats is one user's consumption profile.
type UserStats struct {
	UserID           string         `json:"userId"`
	TotalCoffees     int            `json:"totalCoffees"`
	TodayCoffees     int            `json:"todayCoffees"`
	StreakDays       int            `json:"streakDays"`
	FavoritePeriod   string         `json:"favoritePeriod"`
	AverageTime      string         `json:"averageTime"` // mean minute of day, HH:MM
	FavoriteQuantity string         `json:"favoriteQuantity"`
	MonthHistogram   map[string]int `json:"monthHistogram"` // day "02" -> count, current month
	Suspicious       bool           `json:"suspicious"`
}

// RankingEntry is one row of the global top list.
type RankingEntry struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Count    int    `json:"count"`
}

// GlobalStats is the all-users consumption summary.
type GlobalStats struct {
	TotalCoffees    int            `json:"totalCoffees"`
	TodayCoffees    int            `json:"todayCoffees"`
	ActiveUsers     int            `json:"activeUsers"`
	Ranking         []RankingEntry `json:"ranking"`
	PeriodCounts    map[string]int `json:"periodCounts"`
	SuspiciousUsers []string       `json:"suspiciousUsers"`
}

// Achievement is an unlocked consumption milestone.
type Achievement struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PeriodOf maps an hour of day onto its consumption period.
func PeriodOf(hour int) string {
	switch {
	case hour >= 6 && hour <= 11:
		return PeriodMorning
	case hour >= 12 && hour <= 17:
		return PeriodAfternoon
	case hour >= 18 && hour <= 23:
		return PeriodEvening
	default:
		return PeriodDawn
	}
}

// StreakDays counts consecutive calendar days with at least one event,
// walking backwards from today. A streak is alive when its latest day is
// today or yesterday.
func StreakDays(events []*models.CoffeeEvent, now time.Time) int {
	if len(events) == 0 {
		return 0
	}
	days := make(map[string]bool, len(events))
	for _, e := range events {
		days[e.CreatedAt.Format("2006-01-02")] = true
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today
	if !days[today.Format("2006-01-02")] {
		start = today.AddDate(0, 0, -1)
		if !days[start.Format("2006-01-02")] {
			return 0
		}
	}

	streak := 0
	for d := start; days[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// FavoritePeriod returns the period with the most events, ties resolved in
// day order starting at Madrugada.
func FavoritePeriod(events []*models.CoffeeEvent) string {
	if len(events) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, e := range events {
		counts[PeriodOf(e.CreatedAt.Hour())]++
	}
	order := []string{PeriodDawn, PeriodMorning, PeriodAfternoon, PeriodEvening}
	best, bestCount := "", -1
	for _, p := range order {
		if counts[p] > bestCount {
			best, bestCount = p, counts[p]
		}
	}
	return best
}

// AverageTime returns the mean minute of day of the events as HH:MM.
func AverageTime(events []*models.CoffeeEvent) string {
	if len(events) == 0 {
		return ""
	}
	total := 0
	for _, e := range events {
		total += e.CreatedAt.Hour()*60 + e.CreatedAt.Minute()
	}
	mean := total / len(events)
	return fmt.Sprintf("%02d:%02d", mean/60, mean%60)
}

// FavoriteQuantity returns the most frequent cup fraction code. The largest
// fraction wins ties.
func FavoriteQuantity(events []*models.CoffeeEvent) string {
	if len(events) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, e := range events {
		counts[e.Quantity]++
	}
	best, bestCount := "", -1
	for _, q := range []string{"1/4", "2/4", "3/4", "4/4"} {
		if counts[q] >= bestCount && counts[q] > 0 {
			best, bestCount = q, counts[q]
		}
	}
	if best == "" {
		// Unrecognized codes still deserve an answer.
		for q, c := range counts {
			if c > bestCount {
				best, bestCount = q, c
			}
		}
	}
	return best
}

// MonthHistogram counts events per day of the current month, keyed by
// zero-padded day number.
func MonthHistogram(events []*models.CoffeeEvent, now time.Time) map[string]int {
	hist := map[string]int{}
	for _, e := range events {
		if e.CreatedAt.Year() == now.Year() && e.CreatedAt.Month() == now.Month() {
			hist[e.CreatedAt.Format("02")]++
		}
	}
	return hist
}

// SuspiciousUser flags consumption patterns the hardware cannot produce:
// two events of the same user closer than the minimum gap, or more events
// today than any honest day allows. events must belong to one user and be
// sorted newest first.
func SuspiciousUser(events []*models.CoffeeEvent, now time.Time) bool {
	today := 0
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i, e := range events {
		if !e.CreatedAt.Before(startOfDay) {
			today++
		}
		if i+1 < len(events) {
			if e.CreatedAt.Sub(events[i+1].CreatedAt) < suspiciousMinGap {
				return true
			}
		}
	}
	return today > suspiciousDailyMax
}

// BuildRanking returns the top consumers by event count, newest-first input
// not required. names maps user IDs to display names.
func BuildRanking(events []*models.CoffeeEvent, names map[string]string) []RankingEntry {
	counts := map[string]int{}
	for _, e := range events {
		counts[e.UserID]++
	}
	entries := make([]RankingEntry, 0, len(counts))
	for userID, count := range counts {
		name := names[userID]
		if name == "" {
			name = "Usuário Desconhecido"
		}
		entries = append(entries, RankingEntry{UserID: userID, UserName: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].UserName < entries[j].UserName
	})
	if len(entries) > rankingSize {
		entries = entries[:rankingSize]
	}
	return entries
}

// BuildAchievements derives the unlocked milestones from a user's history.
func BuildAchievements(events []*models.CoffeeEvent, now time.Time) []Achievement {
	var out []Achievement
	if len(events) > 0 {
		out = append(out, Achievement{
			Code:        "first_coffee",
			Title:       "Primeiro Café",
			Description: "Você tomou seu primeiro café!",
		})
	}
	if len(events) >= volumeAchievementAt {
		out = append(out, Achievement{
			Code:        "centurion",
			Title:       "Centurião do Café",
			Description: "Mais de 100 cafés registrados.",
		})
	}
	if StreakDays(events, now) >= streakAchievementAt {
		out = append(out, Achievement{
			Code:        "week_streak",
			Title:       "Semana Cafeinada",
			Description: "7 dias seguidos tomando café.",
		})
	}
	return out
}
