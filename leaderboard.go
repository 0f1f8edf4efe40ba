package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LeaderboardKey is the single KV key holding the serialized leaderboard.
const LeaderboardKey = "bingo_leaderboard"

// LeaderboardEntry records one won game. Entries are never modified.
type LeaderboardEntry struct {
	ID             string    `json:"id"`
	ElapsedMs      int64     `json:"elapsedMs"`
	CompletionDate time.Time `json:"completionDate"`
	Topic          string    `json:"topic"`
}

// Leaderboard keeps entries sorted by ascending elapsed time and writes the
// whole list back to the store on every append.
type Leaderboard struct {
	mu       sync.RWMutex
	kv       KVStore
	entries  []LeaderboardEntry
	onRecord func()
}

// LoadLeaderboard reads the persisted leaderboard once. A missing key is an
// empty board; an unreadable value is logged and treated as empty.
func LoadLeaderboard(ctx context.Context, kv KVStore) (*Leaderboard, error) {
	lb := &Leaderboard{kv: kv}

	data, ok, err := kv.Get(ctx, LeaderboardKey)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	if !ok {
		return lb, nil
	}

	if err := json.Unmarshal(data, &lb.entries); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable leaderboard")
		lb.entries = nil
		return lb, nil
	}
	sortEntries(lb.entries)
	return lb, nil
}

// Record appends e, re-sorts and persists. The entry stays in memory even
// when persisting fails; the error is returned for logging.
func (lb *Leaderboard) Record(ctx context.Context, e LeaderboardEntry) error {
	err := lb.record(ctx, e)

	lb.mu.RLock()
	fn := lb.onRecord
	lb.mu.RUnlock()
	if fn != nil {
		fn()
	}
	return err
}

func (lb *Leaderboard) record(ctx context.Context, e LeaderboardEntry) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.entries = append(lb.entries, e)
	sortEntries(lb.entries)

	data, err := json.Marshal(lb.entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := lb.kv.Set(ctx, LeaderboardKey, data); err != nil {
		return fmt.Errorf("persist leaderboard: %w", err)
	}
	return nil
}

// OnRecord registers fn to run after every Record, outside the lock.
func (lb *Leaderboard) OnRecord(fn func()) {
	lb.mu.Lock()
	lb.onRecord = fn
	lb.mu.Unlock()
}

// Entries returns a copy of the fastest entries. limit <= 0 means all.
func (lb *Leaderboard) Entries(limit int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	n := len(lb.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	return slices.Clone(lb.entries[:n])
}

// Rank returns the 1-based position of the entry with id, or 0.
func (lb *Leaderboard) Rank(id string) int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	for i, e := range lb.entries {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

func sortEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ElapsedMs < entries[j].ElapsedMs
	})
}
