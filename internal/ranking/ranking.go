// Package ranking orders leaderboard entries and assigns competition ranks.
package ranking

import (
	"sort"

	"quizroom/internal/domain"
)

// Rank returns a sorted copy of entries with Rank set. Entries are ordered by score descending,
// then duration ascending; name breaks remaining ties so the display order is stable.
//
// Ranks are competition ranks with gaps: entries sharing (score, duration) share a rank and the
// next distinct entry is ranked by its position, so scores 90, 90, 80 rank 1, 1, 3.
func Rank(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DurationSeconds != out[j].DurationSeconds {
			return out[i].DurationSeconds < out[j].DurationSeconds
		}
		return out[i].Name < out[j].Name
	})

	for i := range out {
		if i > 0 && sameStanding(out[i], out[i-1]) {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

func sameStanding(a, b domain.LeaderboardEntry) bool {
	return a.Score == b.Score && a.DurationSeconds == b.DurationSeconds
}
