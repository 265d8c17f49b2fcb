package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizroom/internal/domain"
)

func TestLiveBoardUpsertStoresEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLiveBoard(newClient(mr), time.Hour)
	ctx := context.Background()

	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "bob", Score: 2, DurationSeconds: 20, UID: "u2"})
	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "alice", Score: 1, DurationSeconds: 10})
	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "alice", Score: 3, DurationSeconds: 15})

	if !mr.Exists("leaderboard:ROOM1:entries") {
		t.Fatalf("expected entries hash")
	}
	if mr.TTL("leaderboard:ROOM1:entries") != time.Hour {
		t.Fatalf("expected room ttl to be set")
	}

	entries, err := board.Entries(ctx, "ROOM1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one entry per name, got %+v", entries)
	}
	if entries[0].Name != "alice" || entries[0].Score != 3 || entries[1].UID != "u2" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestLiveBoardSubscribeReceivesSnapshots(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLiveBoard(newClient(mr), 0)
	ctx := context.Background()
	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "alice", Score: 1})

	ch, cancel, err := board.Subscribe(ctx, "ROOM1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	initial := <-ch
	if len(initial) != 1 || initial[0].Name != "alice" {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "bob", Score: 4, UID: "u2"})
	select {
	case snap := <-ch:
		if len(snap) != 2 || snap[1].Name != "bob" || snap[1].UID != "u2" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot published")
	}

	cancel()
	cancel()
	for range ch {
	}
}

func TestLiveBoardRoomsAreIsolated(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLiveBoard(newClient(mr), 0)
	ctx := context.Background()
	_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: "alice", Score: 1})

	entries, err := board.Entries(ctx, "ROOM2")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty room, got %+v", entries)
	}
}

func TestLiveBoardConcurrentUpsertsPublishInWriteOrder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLiveBoard(newClient(mr), time.Hour)
	ctx := context.Background()
	ch, cancel, err := board.Subscribe(ctx, "ROOM1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = board.Upsert(ctx, "ROOM1", domain.LeaderboardEntry{Name: fmt.Sprintf("p%02d", i), Score: i})
		}(i)
	}
	wg.Wait()

	// every snapshot holds at least as many entries as the one before it
	last := 0
	for received := 0; received < writers; {
		select {
		case snap := <-ch:
			received++
			if len(snap) < last {
				t.Fatalf("snapshot shrank from %d to %d entries", last, len(snap))
			}
			last = len(snap)
			if last == writers {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("last snapshot had %d entries, want %d", last, writers)
		}
	}
	t.Fatalf("final snapshot has %d entries, want %d", last, writers)
}
