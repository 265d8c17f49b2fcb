package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"quizroom/internal/domain"
)

// Fetcher is the request/response leaderboard source.
type Fetcher interface {
	FetchLeaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error)
}

// Subscriber is the push leaderboard source. onSnapshot receives complete room snapshots and
// may be called from any goroutine, including after unsubscribe has been requested.
type Subscriber interface {
	SubscribeLeaderboard(ctx context.Context, code string, onSnapshot func([]domain.LeaderboardEntry)) (unsubscribe func(), err error)
}

// Watcher keeps a Leaderboard fed from a polled Fetcher and a live Subscriber for one room.
type Watcher struct {
	code     string
	board    *Leaderboard
	fetcher  Fetcher
	interval time.Duration

	updates chan []domain.LeaderboardEntry
	errs    chan error

	stopped     atomic.Bool
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// Watch starts polling fetcher every interval (immediately first) and subscribes to live
// snapshots. A subscription failure is reported on Errors and the watcher keeps polling.
func Watch(ctx context.Context, code string, fetcher Fetcher, subscriber Subscriber, interval time.Duration) *Watcher {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		code:     code,
		board:    NewLeaderboard(),
		fetcher:  fetcher,
		interval: interval,
		updates:  make(chan []domain.LeaderboardEntry, 4),
		errs:     make(chan error, 4),
		cancel:   cancel,
	}

	if subscriber != nil {
		unsubscribe, err := subscriber.SubscribeLeaderboard(ctx, code, w.onLive)
		if err != nil {
			w.report(fmt.Errorf("subscribe %s: %w", code, err))
		} else {
			w.unsubscribe = unsubscribe
		}
	}

	w.wg.Add(1)
	go w.poll(ctx)
	return w
}

// Updates delivers the ranked view after every change. Slow readers only miss intermediate views.
func (w *Watcher) Updates() <-chan []domain.LeaderboardEntry { return w.updates }

// Errors delivers transport failures; they never stop the watcher.
func (w *Watcher) Errors() <-chan error { return w.errs }

// View returns the current ranked view.
func (w *Watcher) View() []domain.LeaderboardEntry { return w.board.View() }

// Live reports whether the view now comes from the live channel rather than the batch fetch.
func (w *Watcher) Live() bool { return w.board.LiveSeen() }

// Close tears down the poll loop and the subscription. It is safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		w.stopped.Store(true)
		w.board.Close()
		w.cancel()
		if w.unsubscribe != nil {
			w.unsubscribe()
		}
		w.wg.Wait()
	})
}

func (w *Watcher) onLive(entries []domain.LeaderboardEntry) {
	if w.stopped.Load() {
		return
	}
	if w.board.ApplyLive(entries) {
		w.emit()
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer w.wg.Done()

	interval := w.interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.fetchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) fetchOnce(ctx context.Context) {
	entries, err := w.fetcher.FetchLeaderboard(ctx, w.code)
	if w.stopped.Load() {
		return
	}
	if err != nil {
		w.report(fmt.Errorf("fetch leaderboard %s: %w", w.code, err))
		return
	}
	if w.board.ApplyFetched(entries) {
		w.emit()
	}
}

func (w *Watcher) emit() {
	view := w.board.View()
	select {
	case w.updates <- view:
	default:
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- view:
		default:
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
		log.Printf("leaderboard watcher dropped error: %v", err)
	}
}
