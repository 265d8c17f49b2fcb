// Package reconcile merges leaderboard and activity data arriving from independent sources.
package reconcile

import (
	"sync"

	"quizroom/internal/domain"
	"quizroom/internal/ranking"
)

// Leaderboard holds the two leaderboard slots of one room view: the batch-fetched list and the
// latest live snapshot. Once a live snapshot has arrived it is authoritative and batch results
// are ignored.
type Leaderboard struct {
	mu       sync.Mutex
	fetched  []domain.LeaderboardEntry
	live     []domain.LeaderboardEntry
	liveSeen bool
	closed   bool
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{}
}

// ApplyFetched stores a batch result. It reports whether the displayed set changed, which is
// false once any live snapshot has been observed.
func (l *Leaderboard) ApplyFetched(entries []domain.LeaderboardEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.fetched = clone(entries)
	return !l.liveSeen
}

// ApplyLive replaces the live slot with a complete snapshot.
func (l *Leaderboard) ApplyLive(entries []domain.LeaderboardEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.live = clone(entries)
	l.liveSeen = true
	return true
}

// LiveSeen reports whether a live snapshot has been delivered.
func (l *Leaderboard) LiveSeen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveSeen
}

// View returns the ranked, display-ready entries of the current slot.
func (l *Leaderboard) View() []domain.LeaderboardEntry {
	l.mu.Lock()
	current := l.fetched
	if l.liveSeen {
		current = l.live
	}
	l.mu.Unlock()
	return ranking.Rank(current)
}

// Close makes every later Apply a no-op.
func (l *Leaderboard) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func clone(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out
}
