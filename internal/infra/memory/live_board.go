package memory

import (
	"context"
	"sort"
	"sync"

	"quizroom/internal/domain"
)

// LiveBoard is an in-process live leaderboard mirror. Every write fans a full snapshot of the
// room out to its subscribers.
type LiveBoard struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	entries     map[string]domain.LeaderboardEntry
	subscribers map[chan []domain.LeaderboardEntry]struct{}
}

func NewLiveBoard() *LiveBoard {
	return &LiveBoard{rooms: make(map[string]*room)}
}

func (b *LiveBoard) roomLocked(code string) *room {
	r, ok := b.rooms[code]
	if !ok {
		r = &room{
			entries:     make(map[string]domain.LeaderboardEntry),
			subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
		}
		b.rooms[code] = r
	}
	return r
}

// Upsert replaces the participant's entry (keyed by name) and broadcasts the room snapshot.
func (b *LiveBoard) Upsert(_ context.Context, code string, entry domain.LeaderboardEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.roomLocked(code)
	entry.Rank = 0
	r.entries[entry.Name] = entry
	snapshot := r.snapshot()
	for ch := range r.subscribers {
		publish(ch, snapshot)
	}
	return nil
}

// Entries returns the current snapshot of a room.
func (b *LiveBoard) Entries(_ context.Context, code string) ([]domain.LeaderboardEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rooms[code]
	if !ok {
		return []domain.LeaderboardEntry{}, nil
	}
	return r.snapshot(), nil
}

// Subscribe returns a channel that receives a full snapshot on every change, starting with the
// current one. The caller must invoke the returned cancel function to avoid leaks.
func (b *LiveBoard) Subscribe(_ context.Context, code string) (<-chan []domain.LeaderboardEntry, func(), error) {
	ch := make(chan []domain.LeaderboardEntry, 8)

	b.mu.Lock()
	r := b.roomLocked(code)
	r.subscribers[ch] = struct{}{}
	ch <- r.snapshot()
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}

func (r *room) snapshot() []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// publish never blocks: a slow subscriber loses its oldest pending snapshot.
func publish(ch chan []domain.LeaderboardEntry, snapshot []domain.LeaderboardEntry) {
	select {
	case ch <- snapshot:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
