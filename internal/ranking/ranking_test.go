package ranking_test

import (
	"reflect"
	"testing"

	"quizroom/internal/domain"
	"quizroom/internal/ranking"
)

func TestRankOrdersByScoreThenDuration(t *testing.T) {
	got := ranking.Rank([]domain.LeaderboardEntry{
		{Name: "carol", Score: 80, DurationSeconds: 5},
		{Name: "bob", Score: 90, DurationSeconds: 12},
		{Name: "alice", Score: 90, DurationSeconds: 10},
	})

	names := []string{got[0].Name, got[1].Name, got[2].Name}
	if !reflect.DeepEqual(names, []string{"alice", "bob", "carol"}) {
		t.Fatalf("unexpected order %v", names)
	}
	ranks := []int{got[0].Rank, got[1].Rank, got[2].Rank}
	if !reflect.DeepEqual(ranks, []int{1, 2, 3}) {
		t.Fatalf("unexpected ranks %v", ranks)
	}
}

func TestRankLeavesGapsAfterTies(t *testing.T) {
	got := ranking.Rank([]domain.LeaderboardEntry{
		{Name: "a", Score: 90, DurationSeconds: 10},
		{Name: "b", Score: 90, DurationSeconds: 10},
		{Name: "c", Score: 80, DurationSeconds: 5},
		{Name: "d", Score: 80, DurationSeconds: 5},
		{Name: "e", Score: 70, DurationSeconds: 1},
	})
	want := []int{1, 1, 3, 3, 5}
	for i, e := range got {
		if e.Rank != want[i] {
			t.Fatalf("entry %d (%s): expected rank %d, got %d", i, e.Name, want[i], e.Rank)
		}
	}
}

func TestRankScoresNinetyNinetyEighty(t *testing.T) {
	// same score but different durations is not a tie
	got := ranking.Rank([]domain.LeaderboardEntry{
		{Name: "p1", Score: 90, DurationSeconds: 10},
		{Name: "p2", Score: 90, DurationSeconds: 12},
		{Name: "p3", Score: 80, DurationSeconds: 5},
	})
	if got[2].Rank != 3 {
		t.Fatalf("expected third entry ranked 3, got %d", got[2].Rank)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	input := []domain.LeaderboardEntry{
		{Name: "zed", Score: 3, DurationSeconds: 30},
		{Name: "amy", Score: 3, DurationSeconds: 30},
		{Name: "amy", Score: 5, DurationSeconds: 40},
		{Name: "kim", Score: 0, DurationSeconds: 2},
	}
	first := ranking.Rank(input)
	second := ranking.Rank(input)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output, got %+v vs %+v", first, second)
	}
	if len(first) != 4 {
		t.Fatalf("duplicate names must be kept, got %d rows", len(first))
	}
	if input[0].Rank != 0 {
		t.Fatalf("input must not be mutated")
	}
}

func TestRankEmpty(t *testing.T) {
	if got := ranking.Rank(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
