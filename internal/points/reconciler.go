// Package points keeps the local gamification view (points, guess streaks)
// in step with the server without blocking practice on the network.
package points

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/store"
)

// StatsAPI is the server side of gamification state.
type StatsAPI interface {
	GetStats(ctx context.Context) (api.Stats, error)
	PostPointsEvent(ctx context.Context, ev api.PointsEvent) error
}

// Reconciler merges optimistic local updates with periodic server refreshes.
//
// Points shown during practice are local estimates; a refresh adopts the
// server total. Longest streaks only ever grow: a refresh takes the max of
// local and server, and when local is ahead a one-time catch-up event pushes
// the local record up.
type Reconciler struct {
	api     StatsAPI
	streaks store.StreakRepo
	cache   store.CacheRepo
	minGap  time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu             sync.Mutex
	totalPoints    int
	longestStreak  int
	currentByVerse map[string]int
	verseStreaks   map[string]store.VerseStreak
	lastRefresh    time.Time
	catchUpDone    bool
}

// New wires a reconciler. minGap is the minimum interval between
// server refreshes.
func New(apiClient StatsAPI, streaks store.StreakRepo, cache store.CacheRepo, minGap time.Duration, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		api:            apiClient,
		streaks:        streaks,
		cache:          cache,
		minGap:         minGap,
		log:            log,
		now:            time.Now,
		currentByVerse: make(map[string]int),
		verseStreaks:   make(map[string]store.VerseStreak),
	}
}

// SetClock overrides the clock (tests).
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// LoadCached seeds the in-memory view from the local stats cache and stored
// streak rows so the header is populated before the first refresh. Current
// streaks resume from their stored values; practice sessions resume where
// they left off, so the live streak does too.
func (r *Reconciler) LoadCached(ctx context.Context) error {
	payload, _, ok, err := r.cache.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("read stats cache: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ok {
		var stats api.Stats
		if err := json.Unmarshal(payload, &stats); err == nil {
			r.totalPoints = stats.TotalPoints
			if stats.LongestWordGuessStreak > r.longestStreak {
				r.longestStreak = stats.LongestWordGuessStreak
			}
		}
	}

	rows, err := r.streaks.All(ctx)
	if err != nil {
		return fmt.Errorf("load streaks: %w", err)
	}
	for _, row := range rows {
		r.verseStreaks[row.VerseReference] = row
		r.currentByVerse[row.VerseReference] = row.CurrentGuessStreak
		if row.LongestGuessStreak > r.longestStreak {
			r.longestStreak = row.LongestGuessStreak
		}
	}
	return nil
}

// Points returns the current (possibly optimistic) total.
func (r *Reconciler) Points() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalPoints
}

// LongestStreak returns the longest word-guess streak across all verses.
func (r *Reconciler) LongestStreak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.longestStreak
}

// CurrentStreak returns the live streak for the verse.
func (r *Reconciler) CurrentStreak(reference string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentByVerse[reference]
}

// VerseStreaks returns a copy of the per-verse streak rows.
func (r *Reconciler) VerseStreaks() []store.VerseStreak {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.VerseStreak, 0, len(r.verseStreaks))
	for _, row := range r.verseStreaks {
		out = append(out, row)
	}
	return out
}

// AddPoints applies an optimistic local increment and posts the event
// best-effort. A failed post is logged, not surfaced; the next refresh
// re-converges on the server total either way.
func (r *Reconciler) AddPoints(ctx context.Context, n int, reason string) {
	r.mu.Lock()
	r.totalPoints += n
	r.mu.Unlock()

	ev := api.PointsEvent{Points: n, Reason: reason, Timestamp: r.now()}
	if err := r.api.PostPointsEvent(ctx, ev); err != nil {
		r.log.Warn("points event post failed", zap.String("reason", reason), zap.Error(err))
	}
}

// AddPointsLocal applies an optimistic increment without posting an event.
// Practice points are recomputed server-side from the uploaded word
// progress, so posting would double-count them.
func (r *Reconciler) AddPointsLocal(n int) {
	r.mu.Lock()
	r.totalPoints += n
	r.mu.Unlock()
}

// BeginVerse makes the verse the live streak context and returns its current
// streak, initialized from the verse's last known value by LoadCached. A
// background refresh never overwrites it; only a miss or reset does.
func (r *Reconciler) BeginVerse(_ context.Context, reference string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentByVerse[reference]
}

// RecordCorrectGuess bumps the verse's current streak, grows the longest
// records, and persists the row.
func (r *Reconciler) RecordCorrectGuess(ctx context.Context, reference string) int {
	r.mu.Lock()
	cur := r.currentByVerse[reference] + 1
	r.currentByVerse[reference] = cur

	row := r.verseStreaks[reference]
	row.VerseReference = reference
	row.CurrentGuessStreak = cur
	if cur > row.LongestGuessStreak {
		row.LongestGuessStreak = cur
	}
	now := r.now()
	row.LastGuessDate = &now
	r.verseStreaks[reference] = row

	if row.LongestGuessStreak > r.longestStreak {
		r.longestStreak = row.LongestGuessStreak
	}
	r.mu.Unlock()

	r.persist(ctx, row)
	return cur
}

// RecordMiss zeroes the verse's current streak. Longest is untouched.
func (r *Reconciler) RecordMiss(ctx context.Context, reference string) {
	r.mu.Lock()
	r.currentByVerse[reference] = 0
	row, ok := r.verseStreaks[reference]
	if ok {
		row.CurrentGuessStreak = 0
		r.verseStreaks[reference] = row
	}
	r.mu.Unlock()

	if ok {
		r.persist(ctx, row)
	}
}

// Refresh pulls server stats and merges them in. Calls within minGap of the
// previous refresh are skipped unless force is set. Returns true when a
// refresh actually ran.
func (r *Reconciler) Refresh(ctx context.Context, force bool) (bool, error) {
	r.mu.Lock()
	if !force && !r.lastRefresh.IsZero() && r.now().Sub(r.lastRefresh) < r.minGap {
		r.mu.Unlock()
		return false, nil
	}
	r.lastRefresh = r.now()
	r.mu.Unlock()

	stats, err := r.api.GetStats(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch stats: %w", err)
	}

	r.merge(ctx, stats)

	if payload, merr := json.Marshal(stats); merr == nil {
		_ = r.cache.PutStats(ctx, payload, r.now())
	}

	r.maybeCatchUp(ctx, stats)
	return true, nil
}

// merge folds server stats into the local view. The server owns the points
// total; longest streaks take the max of both sides; current streaks stay
// local. Local-only verse rows survive.
func (r *Reconciler) merge(ctx context.Context, stats api.Stats) {
	var changed []store.VerseStreak

	r.mu.Lock()
	r.totalPoints = stats.TotalPoints
	if stats.LongestWordGuessStreak > r.longestStreak {
		r.longestStreak = stats.LongestWordGuessStreak
	}

	for _, sv := range stats.VerseStreaks {
		row := r.verseStreaks[sv.VerseReference]
		row.VerseReference = sv.VerseReference
		if sv.LongestGuessStreak > row.LongestGuessStreak {
			row.LongestGuessStreak = sv.LongestGuessStreak
		}
		if sv.LastGuessDate != nil {
			row.LastGuessDate = sv.LastGuessDate
		}
		row.CurrentGuessStreak = r.currentByVerse[sv.VerseReference]
		r.verseStreaks[sv.VerseReference] = row
		changed = append(changed, row)

		if row.LongestGuessStreak > r.longestStreak {
			r.longestStreak = row.LongestGuessStreak
		}
	}
	r.mu.Unlock()

	for _, row := range changed {
		r.persist(ctx, row)
	}
}

// maybeCatchUp posts a zero-point reconciliation event when the local
// longest streak is ahead of the server's, at most once per process.
func (r *Reconciler) maybeCatchUp(ctx context.Context, stats api.Stats) {
	r.mu.Lock()
	local := r.longestStreak
	done := r.catchUpDone
	if !done && local > stats.LongestWordGuessStreak {
		r.catchUpDone = true
	}
	r.mu.Unlock()

	if done || local <= stats.LongestWordGuessStreak {
		return
	}

	ev := api.PointsEvent{
		Points:    0,
		Reason:    "streak_catch_up",
		Metadata:  map[string]string{"longest_word_guess_streak": strconv.Itoa(local)},
		Timestamp: r.now(),
	}
	if err := r.api.PostPointsEvent(ctx, ev); err != nil {
		r.log.Warn("streak catch-up post failed", zap.Int("streak", local), zap.Error(err))
		// Allow a retry on a later refresh.
		r.mu.Lock()
		r.catchUpDone = false
		r.mu.Unlock()
	}
}

func (r *Reconciler) persist(ctx context.Context, row store.VerseStreak) {
	if err := r.streaks.Upsert(ctx, row); err != nil {
		r.log.Warn("streak persist failed", zap.String("verse", row.VerseReference), zap.Error(err))
	}
}
