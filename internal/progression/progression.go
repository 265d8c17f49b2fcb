// Package progression derives level, accuracy and XP history from profile counters and the
// append-only award ledger.
package progression

import (
	"math"
	"sort"
	"time"

	"quizroom/internal/domain"
)

const (
	// XPPerLevel is the XP needed to advance one level.
	XPPerLevel = 100
	// SeriesWindow bounds the number of points returned by Series.
	SeriesWindow = 20
	// XPMasterThreshold is the total XP that unlocks the XP Master badge.
	XPMasterThreshold = 1000
	// XPMasterKey is the ledger key of the XP Master badge award.
	XPMasterKey = "badge_xp_master"

	BadgeSpeedLearner = "Speed Learner"
	BadgeXPMaster     = "XP Master"
)

// View is the derived, never persisted, progression state of a profile.
type View struct {
	Level         int `json:"level"`
	LevelProgress int `json:"levelProgress"`
	TotalXP       int `json:"totalXp"`
	Accuracy      int `json:"accuracy"`
}

// Level returns floor(totalXP/100)+1, never below 1.
func Level(totalXP int) int {
	if totalXP < 0 {
		return 1
	}
	return totalXP/XPPerLevel + 1
}

// LevelProgress returns the XP earned inside the current level.
func LevelProgress(totalXP int) int {
	if totalXP < 0 {
		return 0
	}
	return totalXP % XPPerLevel
}

// Accuracy returns the rounded percentage of correct answers, or 0 with no questions.
func Accuracy(totalCorrect, totalQuestions int) int {
	if totalQuestions <= 0 || totalCorrect <= 0 {
		return 0
	}
	return int(math.Round(float64(totalCorrect) / float64(totalQuestions) * 100))
}

// Derive computes the view for a set of counters.
func Derive(c domain.Counters) View {
	return View{
		Level:         Level(c.TotalXP),
		LevelProgress: LevelProgress(c.TotalXP),
		TotalXP:       c.TotalXP,
		Accuracy:      Accuracy(c.TotalCorrect, c.TotalQuestions),
	}
}

// Totals sums XP and counts awards in a ledger.
func Totals(awards []domain.Award) (totalXP, badges int) {
	for _, a := range awards {
		totalXP += a.XP
	}
	return totalXP, len(awards)
}

// Point is one sample of the cumulative XP series.
type Point struct {
	At time.Time `json:"x"`
	XP int       `json:"y"`
}

// Series orders awards by time, accumulates XP and keeps the latest SeriesWindow points.
func Series(awards []domain.Award) []Point {
	sorted := make([]domain.Award, len(awards))
	copy(sorted, awards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AwardedAt.Before(sorted[j].AwardedAt)
	})

	points := make([]Point, 0, len(sorted))
	sum := 0
	for _, a := range sorted {
		sum += a.XP
		points = append(points, Point{At: a.AwardedAt, XP: sum})
	}
	if len(points) > SeriesWindow {
		points = points[len(points)-SeriesWindow:]
	}
	return points
}

// PerformanceAward builds the per-quiz award for a graded attempt: percent*100 XP, with a 10%
// bonus above 90% and a cap of 110.
func PerformanceAward(quizCode string, result domain.ScoreResult, at time.Time) domain.Award {
	percent := result.Percent()
	xp := percent * 100
	if percent > 0.9 {
		xp *= 1.1
	}
	award := domain.Award{
		Key:       quizCode,
		QuizCode:  quizCode,
		XP:        int(math.Round(math.Min(xp, 110))),
		Percent:   percent,
		AwardedAt: at,
	}
	if percent >= 0.9 {
		award.Badge = BadgeSpeedLearner
	}
	return award
}

// RankAward builds the placement award for a final leaderboard rank.
func RankAward(quizCode string, rank int, at time.Time) domain.Award {
	xp := 10 - (rank - 1)
	if xp < 1 {
		xp = 1
	}
	badge := "Participant"
	switch rank {
	case 1:
		badge = "Gold"
	case 2:
		badge = "Silver"
	case 3:
		badge = "Bronze"
	}
	return domain.Award{
		Key:       quizCode,
		QuizCode:  quizCode,
		XP:        xp,
		Badge:     badge,
		Rank:      rank,
		AwardedAt: at,
	}
}
