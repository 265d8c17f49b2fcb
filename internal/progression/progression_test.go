package progression_test

import (
	"testing"
	"time"

	"quizroom/internal/domain"
	"quizroom/internal/progression"
)

func TestDeriveLevels(t *testing.T) {
	cases := []struct {
		xp, level, progress int
	}{
		{0, 1, 0},
		{99, 1, 99},
		{100, 2, 0},
		{250, 3, 50},
	}
	for _, tc := range cases {
		v := progression.Derive(domain.Counters{TotalXP: tc.xp})
		if v.Level != tc.level || v.LevelProgress != tc.progress || v.TotalXP != tc.xp {
			t.Fatalf("xp=%d: expected level %d progress %d, got %+v", tc.xp, tc.level, tc.progress, v)
		}
	}
}

func TestAccuracyGuardsZeroQuestions(t *testing.T) {
	if got := progression.Accuracy(0, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := progression.Accuracy(5, 0); got != 0 {
		t.Fatalf("expected 0 with no questions, got %d", got)
	}
	if got := progression.Accuracy(2, 3); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
}

func TestSeriesIsCumulativeAndWindowed(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var awards []domain.Award
	for i := 25; i > 0; i-- { // delivered newest first
		awards = append(awards, domain.Award{XP: 1, AwardedAt: t0.Add(time.Duration(i) * time.Hour)})
	}

	series := progression.Series(awards)
	if len(series) != progression.SeriesWindow {
		t.Fatalf("expected %d points, got %d", progression.SeriesWindow, len(series))
	}
	if series[0].XP != 6 || series[len(series)-1].XP != 25 {
		t.Fatalf("expected cumulative 6..25, got first=%d last=%d", series[0].XP, series[len(series)-1].XP)
	}
	for i := 1; i < len(series); i++ {
		if series[i].At.Before(series[i-1].At) {
			t.Fatalf("series not ascending at %d", i)
		}
	}
}

func TestPerformanceAward(t *testing.T) {
	at := time.Now()
	full := progression.PerformanceAward("QZ1", domain.ScoreResult{TotalCorrect: 10, TotalQuestions: 10}, at)
	if full.XP != 110 || full.Badge != progression.BadgeSpeedLearner || full.Key != "QZ1" {
		t.Fatalf("unexpected full marks award %+v", full)
	}
	partial := progression.PerformanceAward("QZ1", domain.ScoreResult{TotalCorrect: 3, TotalQuestions: 4}, at)
	if partial.XP != 75 || partial.Badge != "" {
		t.Fatalf("unexpected partial award %+v", partial)
	}
	ninety := progression.PerformanceAward("QZ1", domain.ScoreResult{TotalCorrect: 9, TotalQuestions: 10}, at)
	if ninety.XP != 90 || ninety.Badge != progression.BadgeSpeedLearner {
		t.Fatalf("unexpected 90%% award %+v", ninety)
	}
	none := progression.PerformanceAward("QZ1", domain.ScoreResult{}, at)
	if none.XP != 0 {
		t.Fatalf("expected 0 xp with no questions, got %+v", none)
	}
}

func TestRankAward(t *testing.T) {
	cases := []struct {
		rank  int
		xp    int
		badge string
	}{
		{1, 10, "Gold"},
		{2, 9, "Silver"},
		{3, 8, "Bronze"},
		{4, 7, "Participant"},
		{15, 1, "Participant"},
	}
	for _, tc := range cases {
		a := progression.RankAward("QZ1", tc.rank, time.Now())
		if a.XP != tc.xp || a.Badge != tc.badge || a.Rank != tc.rank {
			t.Fatalf("rank %d: unexpected award %+v", tc.rank, a)
		}
	}
}
