package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizroom/internal/domain"
)

// LiveBoard mirrors live leaderboards in Redis so every instance shares them.
// Entries are stored as:   HSET leaderboard:{code}:entries {name} {json}
// Snapshots are sent with: PUBLISH leaderboard:{code} {json array}
type LiveBoard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLiveBoard returns a Redis live board; a positive ttl expires idle rooms.
func NewLiveBoard(client *redis.Client, ttl time.Duration) *LiveBoard {
	return &LiveBoard{client: client, ttl: ttl}
}

// storedEntry keeps the uid, which the public entry encoding omits.
type storedEntry struct {
	Name            string `json:"name"`
	Score           int    `json:"score"`
	DurationSeconds int    `json:"durationSeconds"`
	UID             string `json:"uid,omitempty"`
}

// upsertScript writes one entry and publishes the room snapshot in the same atomic step, so
// subscribers see snapshots in write order. Values are stored JSON objects; the snapshot is
// their JSON array sorted by name.
var upsertScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
local flat = redis.call('HGETALL', KEYS[1])
local names, byName = {}, {}
for i = 1, #flat, 2 do
	names[#names + 1] = flat[i]
	byName[flat[i]] = flat[i + 1]
end
table.sort(names)
local items = {}
for i, name in ipairs(names) do
	items[i] = byName[name]
end
redis.call('PUBLISH', KEYS[2], '[' .. table.concat(items, ',') .. ']')
return #names
`)

func (b *LiveBoard) Upsert(ctx context.Context, code string, entry domain.LeaderboardEntry) error {
	payload, err := json.Marshal(storedEntry{
		Name:            entry.Name,
		Score:           entry.Score,
		DurationSeconds: entry.DurationSeconds,
		UID:             entry.UID,
	})
	if err != nil {
		return err
	}

	keys := []string{b.entriesKey(code), b.channel(code)}
	if err := upsertScript.Run(ctx, b.client, keys, entry.Name, payload, b.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("upsert live entry: %w", err)
	}
	return nil
}

func (b *LiveBoard) Entries(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	all, err := b.client.HGetAll(ctx, b.entriesKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("load live entries: %w", err)
	}
	return decodeEntries(code, all), nil
}

// Subscribe returns a channel that receives a full snapshot on every change, starting with the
// current one. The caller must invoke the returned cancel function to avoid leaks.
func (b *LiveBoard) Subscribe(ctx context.Context, code string) (<-chan []domain.LeaderboardEntry, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel(code))
	// wait for the subscription to be confirmed so no publish after this call is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe live board: %w", err)
	}

	initial, err := b.Entries(ctx, code)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []domain.LeaderboardEntry, 8)
	out <- initial

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		for msg := range pubsub.Channel() {
			var stored []storedEntry
			if err := json.Unmarshal([]byte(msg.Payload), &stored); err != nil {
				log.Printf("live board %s: bad snapshot: %v", code, err)
				continue
			}
			publish(out, fromStored(stored))
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}
	return out, cancel, nil
}

func (b *LiveBoard) entriesKey(code string) string {
	return "leaderboard:" + code + ":entries"
}

func (b *LiveBoard) channel(code string) string {
	return "leaderboard:" + code
}

func decodeEntries(code string, all map[string]string) []domain.LeaderboardEntry {
	stored := make([]storedEntry, 0, len(all))
	for name, raw := range all {
		var e storedEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Printf("live board %s: skipping corrupt entry %q: %v", code, name, err)
			continue
		}
		stored = append(stored, e)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Name < stored[j].Name })
	return fromStored(stored)
}

func fromStored(stored []storedEntry) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(stored))
	for i, e := range stored {
		out[i] = domain.LeaderboardEntry{Name: e.Name, Score: e.Score, DurationSeconds: e.DurationSeconds, UID: e.UID}
	}
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
