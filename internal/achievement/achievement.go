// Package achievement detects share-worthy practice milestones.
package achievement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"versekeep/internal/store"
)

// Trigger thresholds. A milestone fires on a long guess streak or on
// completing a short verse in one sitting.
const (
	StreakThreshold    = 50
	ShortVerseMaxWords = 10
)

// StreakSource reports the best guess streak observed so far, across all
// verses and sessions.
type StreakSource interface {
	LongestStreak() int
}

// Service watches practice outcomes and keeps at most one outstanding
// shareable record, always the best streak seen.
type Service struct {
	repo    store.AchievementRepo
	streaks StreakSource
	log     *zap.Logger
	now     func() time.Time
}

// New wires the achievement service. A nil streaks source limits the record
// to the triggering streak.
func New(repo store.AchievementRepo, streaks StreakSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, streaks: streaks, log: log, now: time.Now}
}

// SetClock overrides the clock (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Triggered reports whether the outcome crosses a milestone.
func Triggered(streak, verseWordCount int, completed bool) bool {
	if streak >= StreakThreshold {
		return true
	}
	return completed && verseWordCount > 0 && verseWordCount <= ShortVerseMaxWords
}

// Observe records a milestone when the outcome crosses one. The record
// carries the best streak ever observed, not just the streak that fired the
// trigger: a short-verse completion at a low streak still claims the day's
// long run. An existing record with a better streak is kept; a worse one is
// overwritten. Store failures are logged, never surfaced into practice.
func (s *Service) Observe(ctx context.Context, streak, verseWordCount int, completed bool) {
	if !Triggered(streak, verseWordCount, completed) {
		return
	}

	best := streak
	if s.streaks != nil {
		if longest := s.streaks.LongestStreak(); longest > best {
			best = longest
		}
	}

	existing, err := s.repo.Get(ctx)
	if err != nil {
		s.log.Warn("achievement lookup failed", zap.Error(err))
		return
	}
	if existing != nil && existing.Streak >= best {
		return
	}

	rec := store.AchievementRecord{
		Streak:     best,
		AchievedAt: s.now(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		s.log.Warn("achievement store failed", zap.Int("streak", best), zap.Error(err))
	}
}

// Outstanding returns the pending record without consuming it.
func (s *Service) Outstanding(ctx context.Context) (*store.AchievementRecord, error) {
	return s.repo.Get(ctx)
}

// Share consumes the outstanding record and returns the share text. Returns
// empty text when nothing is pending. The record is gone afterwards; a
// second share needs a new milestone.
func (s *Service) Share(ctx context.Context) (string, error) {
	rec, err := s.repo.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("take achievement: %w", err)
	}
	if rec == nil {
		return "", nil
	}
	return ShareText(*rec), nil
}

// ShareText formats the milestone for pasting elsewhere.
func ShareText(rec store.AchievementRecord) string {
	if rec.Streak >= StreakThreshold {
		return fmt.Sprintf("I just hit a %d-word guess streak memorizing scripture with Versekeep!", rec.Streak)
	}
	return "I just memorized a whole verse in one sitting with Versekeep!"
}
