package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/store"
)

// Phase is the state of a per-verse practice session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseCompleted
	PhaseMasteryActive
)

var (
	// ErrNotActive means the operation is only valid in an Active session.
	ErrNotActive = errors.New("practice session is not active")

	// ErrNotInMastery means the operation is only valid in mastery mode.
	ErrNotInMastery = errors.New("practice session is not in mastery mode")

	// ErrMultiWordInput rejects pasted multi-word text in the guess field.
	// Single-word pastes are permitted.
	ErrMultiWordInput = errors.New("one word at a time")
)

// Emitter receives word-progress events for batched upload.
type Emitter interface {
	Enqueue(ev api.WordProgress)
}

// StatusUpdater requests verse status changes (offline-safe).
type StatusUpdater interface {
	SetStatus(ctx context.Context, reference string, status api.VerseStatus) error
}

// StreakTracker owns the live guess streaks.
type StreakTracker interface {
	// BeginVerse switches the current-verse context and returns the
	// verse's current guess streak.
	BeginVerse(ctx context.Context, reference string) int

	// RecordCorrectGuess increments the streak and returns the new value.
	RecordCorrectGuess(ctx context.Context, reference string) int

	// RecordMiss resets the verse's current streak to zero.
	RecordMiss(ctx context.Context, reference string)
}

// ProgressSource supplies mastery progress and accepts mastery attempts.
type ProgressSource interface {
	// Progress returns the verse's mastery progress, served from a cache
	// no older than five minutes.
	Progress(ctx context.Context, reference string) (api.MasteryProgress, error)

	// SubmitAttempt posts a mastery attempt and returns the server's
	// verdict along with freshly fetched progress.
	SubmitAttempt(ctx context.Context, attempt api.VerseAttempt) (api.AttemptResult, api.MasteryProgress, error)
}

// AchievementSink observes streak updates and verse completions.
type AchievementSink interface {
	Observe(ctx context.Context, streak, verseWordCount int, completed bool)
}

// Session is the practice state machine for one verse.
//
// Word reveals are monotonically non-decreasing until an explicit Reset, and
// each (verse, word index) pair emits at most one word-progress event ever,
// on the first attempt, correct or not.
type Session struct {
	verse    api.Verse
	words    []string
	revealed map[int]bool
	phase    Phase
	progress *api.MasteryProgress
	summary  Summary

	recorder     store.RecordedWordRepo
	emitter      Emitter
	statuses     StatusUpdater
	streaks      StreakTracker
	progressSrc  ProgressSource
	achievements AchievementSink
	log          *zap.Logger
	now          func() time.Time
}

// Summary accumulates per-session practice figures for the completion view.
// Hints are not guesses and do not count.
type Summary struct {
	Guesses    int
	Correct    int
	BestStreak int
}

// Accuracy returns the session's correct-guess ratio, zero before the first
// guess.
func (s Summary) Accuracy() float64 {
	if s.Guesses == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Guesses)
}

// GuessOutcome describes the result of a guess or hint.
type GuessOutcome struct {
	Correct   bool
	WordIndex int
	Word      string // the canonical word, set when revealed
	Streak    int
	Completed bool
	Feedback  string
}

// NewSession creates an Idle session for the verse.
func NewSession(verse api.Verse, recorder store.RecordedWordRepo, emitter Emitter, statuses StatusUpdater, streaks StreakTracker, progressSrc ProgressSource, achievements AchievementSink, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		verse:        verse,
		words:        SplitWords(verse.Text),
		revealed:     make(map[int]bool),
		phase:        PhaseIdle,
		recorder:     recorder,
		emitter:      emitter,
		statuses:     statuses,
		streaks:      streaks,
		progressSrc:  progressSrc,
		achievements: achievements,
		log:          log,
		now:          time.Now,
	}
}

// SetClock overrides the session clock (tests).
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// Phase returns the current state machine phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Verse returns the verse under practice.
func (s *Session) Verse() api.Verse {
	return s.verse
}

// Words returns the canonical word list.
func (s *Session) Words() []string {
	return s.words
}

// Revealed returns the sorted revealed word indexes.
func (s *Session) Revealed() []int {
	var out []int
	for i := range s.words {
		if s.revealed[i] {
			out = append(out, i)
		}
	}
	return out
}

// IsRevealed reports whether the word at index has been revealed.
func (s *Session) IsRevealed(index int) bool {
	return s.revealed[index]
}

// MasteryProgress returns the last fetched mastery progress, or nil.
func (s *Session) MasteryProgress() *api.MasteryProgress {
	return s.progress
}

// Summary returns the running session figures.
func (s *Session) Summary() Summary {
	return s.summary
}

// Start transitions Idle→Active, seeding revealedWords from the recorded
// words for this verse so a reload resumes instead of starting over.
func (s *Session) Start(ctx context.Context) error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("start: session already started")
	}

	indexes, err := s.recorder.Indexes(ctx, s.verse.Reference)
	if err != nil {
		return fmt.Errorf("load recorded words: %w", err)
	}
	for _, idx := range indexes {
		if idx >= 0 && idx < len(s.words) {
			s.revealed[idx] = true
		}
	}

	if s.streaks != nil {
		s.streaks.BeginVerse(ctx, s.verse.Reference)
	}

	if len(s.words) > 0 && s.revealedCount() == len(s.words) {
		s.phase = PhaseCompleted
	} else {
		s.phase = PhaseActive
	}
	return nil
}

// SubmitGuess processes one guess against the next unrevealed word.
func (s *Session) SubmitGuess(ctx context.Context, raw string) (GuessOutcome, error) {
	if s.phase != PhaseActive {
		return GuessOutcome{}, ErrNotActive
	}
	raw = strings.TrimSpace(raw)
	if len(strings.Fields(raw)) > 1 {
		return GuessOutcome{}, ErrMultiWordInput
	}

	next, ok := s.nextIndex()
	if !ok {
		return GuessOutcome{Feedback: "Verse completed — nothing left to guess."}, nil
	}

	expected := s.words[next]
	correct := NormalizeWord(raw) == NormalizeWord(expected)

	if err := s.recordAttempt(ctx, next, raw, correct); err != nil {
		return GuessOutcome{}, err
	}

	s.summary.Guesses++
	if correct {
		s.summary.Correct++
	}

	if !correct {
		if s.streaks != nil {
			s.streaks.RecordMiss(ctx, s.verse.Reference)
		}
		return GuessOutcome{Correct: false, WordIndex: next}, nil
	}

	return s.reveal(ctx, next, expected, true), nil
}

// ShowHint reveals the next unrevealed word without requiring user text. It
// follows the same at-most-once recording rule as a guess.
func (s *Session) ShowHint(ctx context.Context) (GuessOutcome, error) {
	if s.phase != PhaseActive {
		return GuessOutcome{}, ErrNotActive
	}

	next, ok := s.nextIndex()
	if !ok {
		return GuessOutcome{Feedback: "Verse completed — nothing left to reveal."}, nil
	}

	expected := s.words[next]
	if err := s.recordAttempt(ctx, next, expected, true); err != nil {
		return GuessOutcome{}, err
	}

	// A hint is not a guess: the streak neither grows nor resets.
	return s.reveal(ctx, next, expected, false), nil
}

// Reset returns the session to Idle from any state. Recorded progress is
// kept unless clearProgress is true (hard reset).
func (s *Session) Reset(ctx context.Context, clearProgress bool) error {
	s.revealed = make(map[int]bool)
	s.phase = PhaseIdle
	s.progress = nil
	s.summary = Summary{}

	if s.streaks != nil {
		s.streaks.RecordMiss(ctx, s.verse.Reference)
	}

	if clearProgress {
		if err := s.recorder.DeleteAll(ctx, s.verse.Reference); err != nil {
			return fmt.Errorf("clear recorded words: %w", err)
		}
	}
	return nil
}

// EnterMastery transitions Completed→MasteryActive and fetches mastery
// progress for the progress message. A fetch failure still enters mastery
// mode; the error is surfaced inline.
func (s *Session) EnterMastery(ctx context.Context) error {
	if s.phase != PhaseCompleted {
		return fmt.Errorf("enter mastery: verse not completed")
	}
	s.phase = PhaseMasteryActive

	if s.progressSrc == nil {
		return nil
	}
	mp, err := s.progressSrc.Progress(ctx, s.verse.Reference)
	if err != nil {
		return fmt.Errorf("fetch mastery progress: %w", err)
	}
	s.progress = &mp
	return nil
}

// ExitMastery transitions MasteryActive→Completed.
func (s *Session) ExitMastery() error {
	if s.phase != PhaseMasteryActive {
		return ErrNotInMastery
	}
	s.phase = PhaseCompleted
	return nil
}

// SubmitMasteryAttempt scores the attempt text against the canonical verse
// using case-insensitive containment (not position-aware), posts it, and
// adopts the server's mastery progress. The session stays in mastery mode on
// failure so the user can retry.
func (s *Session) SubmitMasteryAttempt(ctx context.Context, attemptText string) (api.AttemptResult, error) {
	if s.phase != PhaseMasteryActive {
		return api.AttemptResult{}, ErrNotInMastery
	}

	attemptNorm := NormalizeText(attemptText)
	correct := 0
	for _, w := range s.words {
		if strings.Contains(attemptNorm, NormalizeWord(w)) {
			correct++
		}
	}

	result, mp, err := s.progressSrc.SubmitAttempt(ctx, api.VerseAttempt{
		VerseReference: s.verse.Reference,
		WordsCorrect:   correct,
		TotalWords:     len(s.words),
		Timestamp:      s.now(),
	})
	if err != nil {
		return api.AttemptResult{}, fmt.Errorf("submit mastery attempt: %w", err)
	}
	s.progress = &mp

	if mp.IsMastered && s.verse.Status != api.StatusMastered {
		if err := s.statuses.SetStatus(ctx, s.verse.Reference, api.StatusMastered); err != nil {
			s.log.Warn("mastered status update failed", zap.String("verse", s.verse.Reference), zap.Error(err))
		} else {
			s.verse.Status = api.StatusMastered
		}
	}

	return result, nil
}

// recordAttempt emits the one-and-only word-progress event for the index if
// it has never been attempted, then marks it recorded. Wrong-then-right
// retries never re-trigger scoring.
func (s *Session) recordAttempt(ctx context.Context, index int, word string, correct bool) error {
	recorded, err := s.recorder.Has(ctx, s.verse.Reference, index)
	if err != nil {
		return fmt.Errorf("check recorded word: %w", err)
	}
	if recorded {
		return nil
	}

	if s.emitter != nil {
		s.emitter.Enqueue(api.WordProgress{
			VerseReference: s.verse.Reference,
			WordIndex:      index,
			Word:           word,
			IsCorrect:      correct,
			Timestamp:      s.now(),
		})
	}
	if err := s.recorder.Record(ctx, s.verse.Reference, index, s.now()); err != nil {
		return fmt.Errorf("record word: %w", err)
	}
	return nil
}

// reveal marks the word revealed, updates streak/status/completion state.
func (s *Session) reveal(ctx context.Context, index int, word string, countsForStreak bool) GuessOutcome {
	s.revealed[index] = true

	streak := 0
	if s.streaks != nil {
		if countsForStreak {
			streak = s.streaks.RecordCorrectGuess(ctx, s.verse.Reference)
		} else {
			streak = s.streaks.BeginVerse(ctx, s.verse.Reference)
		}
	}
	if streak > s.summary.BestStreak {
		s.summary.BestStreak = streak
	}

	// First word of a fresh verse silently moves it to in-progress.
	if index == 0 && s.verse.Status == api.StatusNotStarted {
		if err := s.statuses.SetStatus(ctx, s.verse.Reference, api.StatusInProgress); err != nil {
			s.log.Warn("in-progress status update failed", zap.String("verse", s.verse.Reference), zap.Error(err))
		} else {
			s.verse.Status = api.StatusInProgress
		}
	}

	out := GuessOutcome{
		Correct:   true,
		WordIndex: index,
		Word:      word,
		Streak:    streak,
	}

	if s.revealedCount() == len(s.words) {
		s.phase = PhaseCompleted
		out.Completed = true
	}

	if s.achievements != nil && (countsForStreak || out.Completed) {
		s.achievements.Observe(ctx, streak, len(s.words), out.Completed)
	}

	return out
}

// nextIndex returns the smallest word index not yet revealed.
func (s *Session) nextIndex() (int, bool) {
	for i := range s.words {
		if !s.revealed[i] {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) revealedCount() int {
	n := 0
	for i := range s.words {
		if s.revealed[i] {
			n++
		}
	}
	return n
}
