package practice

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"versekeep/internal/api"
	"versekeep/internal/store"
)

type fakeEmitter struct {
	events []api.WordProgress
}

func (f *fakeEmitter) Enqueue(ev api.WordProgress) {
	f.events = append(f.events, ev)
}

type fakeStatuses struct {
	calls []api.VerseStatus
	err   error
}

func (f *fakeStatuses) SetStatus(_ context.Context, _ string, status api.VerseStatus) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, status)
	return nil
}

type fakeStreaks struct {
	current int
	misses  int
}

func (f *fakeStreaks) BeginVerse(context.Context, string) int { return f.current }

func (f *fakeStreaks) RecordCorrectGuess(context.Context, string) int {
	f.current++
	return f.current
}

func (f *fakeStreaks) RecordMiss(context.Context, string) {
	f.current = 0
	f.misses++
}

type fakeProgressSource struct {
	progress api.MasteryProgress
	result   api.AttemptResult
	attempts []api.VerseAttempt
	err      error
}

func (f *fakeProgressSource) Progress(context.Context, string) (api.MasteryProgress, error) {
	return f.progress, f.err
}

func (f *fakeProgressSource) SubmitAttempt(_ context.Context, attempt api.VerseAttempt) (api.AttemptResult, api.MasteryProgress, error) {
	if f.err != nil {
		return api.AttemptResult{}, api.MasteryProgress{}, f.err
	}
	f.attempts = append(f.attempts, attempt)
	return f.result, f.progress, nil
}

type fakeAchievements struct {
	observed []int
	lastLen  int
	lastDone bool
}

func (f *fakeAchievements) Observe(_ context.Context, streak, verseWordCount int, completed bool) {
	f.observed = append(f.observed, streak)
	f.lastLen = verseWordCount
	f.lastDone = completed
}

type sessionEnv struct {
	session      *Session
	emitter      *fakeEmitter
	statuses     *fakeStatuses
	streaks      *fakeStreaks
	progress     *fakeProgressSource
	achievements *fakeAchievements
	recorder     store.RecordedWordRepo
}

func newSessionEnv(t *testing.T, verse api.Verse) *sessionEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "practice.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &sessionEnv{
		emitter:      &fakeEmitter{},
		statuses:     &fakeStatuses{},
		streaks:      &fakeStreaks{},
		progress:     &fakeProgressSource{},
		achievements: &fakeAchievements{},
		recorder:     st.RecordedWords(),
	}
	env.session = NewSession(verse, env.recorder, env.emitter, env.statuses, env.streaks, env.progress, env.achievements, nil)
	return env
}

func shortVerse() api.Verse {
	return api.Verse{
		Reference: "Psalm 117:2",
		Text:      "Great is his love toward us",
		Status:    api.StatusNotStarted,
	}
}

func TestGuessFlowThroughCompletion(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	s := env.session

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %v, want active", s.Phase())
	}

	// First guess wrong, then right. The wrong first attempt is the only
	// scored event for index 0.
	out, err := s.SubmitGuess(ctx, "small")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if out.Correct {
		t.Fatal("wrong guess reported correct")
	}
	if env.streaks.misses != 1 {
		t.Fatalf("misses = %d, want 1", env.streaks.misses)
	}

	out, err = s.SubmitGuess(ctx, "Great")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if !out.Correct || out.WordIndex != 0 {
		t.Fatalf("outcome = %+v, want correct index 0", out)
	}
	if len(env.emitter.events) != 1 {
		t.Fatalf("events = %d, want 1 (retry must not re-score)", len(env.emitter.events))
	}
	if env.emitter.events[0].IsCorrect {
		t.Fatal("first-attempt event should be incorrect")
	}

	// Revealing word 0 of a not-started verse moves it to in-progress.
	if len(env.statuses.calls) != 1 || env.statuses.calls[0] != api.StatusInProgress {
		t.Fatalf("status calls = %v, want one in_progress", env.statuses.calls)
	}

	for _, w := range []string{"is", "his", "love", "toward", "us"} {
		out, err = s.SubmitGuess(ctx, w)
		if err != nil {
			t.Fatalf("guess %q: %v", w, err)
		}
		if !out.Correct {
			t.Fatalf("guess %q not correct", w)
		}
	}

	if !out.Completed {
		t.Fatal("last reveal did not complete the verse")
	}
	if s.Phase() != PhaseCompleted {
		t.Fatalf("phase = %v, want completed", s.Phase())
	}
	// Each word was attempted exactly once on first try.
	if len(env.emitter.events) != len(s.Words()) {
		t.Fatalf("events = %d, want %d", len(env.emitter.events), len(s.Words()))
	}
	if !env.achievements.lastDone || env.achievements.lastLen != 6 {
		t.Fatalf("achievement observe = (%v, %d), want completed with 6 words", env.achievements.lastDone, env.achievements.lastLen)
	}

	// Seven guesses (one miss), six words revealed.
	sum := s.Summary()
	if sum.Guesses != 7 || sum.Correct != 6 {
		t.Fatalf("summary = %+v, want 6/7 correct", sum)
	}
	if sum.BestStreak != 6 {
		t.Fatalf("best streak = %d, want 6", sum.BestStreak)
	}
}

func TestPunctuationAndCaseInsensitiveMatch(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	})
	if err := env.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if out, _ := env.session.SubmitGuess(ctx, "jesus"); !out.Correct {
		t.Fatal("case-insensitive match failed")
	}
	if out, _ := env.session.SubmitGuess(ctx, "Wept"); !out.Correct {
		t.Fatal("punctuation-stripped match failed")
	}
}

func TestMultiWordGuessRejected(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	if err := env.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err := env.session.SubmitGuess(ctx, "Great is")
	if !errors.Is(err, ErrMultiWordInput) {
		t.Fatalf("err = %v, want ErrMultiWordInput", err)
	}
	if len(env.emitter.events) != 0 {
		t.Fatal("multi-word input must not emit events")
	}
}

func TestHintRevealsWithoutStreakChange(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	if err := env.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	env.streaks.current = 4
	out, err := env.session.ShowHint(ctx)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if !out.Correct || out.Word != "Great" {
		t.Fatalf("hint outcome = %+v", out)
	}
	if env.streaks.current != 4 {
		t.Fatalf("streak = %d, hint must not change it", env.streaks.current)
	}
	if len(env.emitter.events) != 1 || !env.emitter.events[0].IsCorrect {
		t.Fatalf("hint events = %+v, want one correct event", env.emitter.events)
	}
}

func TestHintCompletionTriggersAchievementObserve(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	})
	if err := env.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := env.session.SubmitGuess(ctx, "Jesus"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	out, err := env.session.ShowHint(ctx)
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if !out.Completed {
		t.Fatal("hint reveal of last word did not complete")
	}
	if !env.achievements.lastDone || env.achievements.lastLen != 2 {
		t.Fatalf("completion via hint must reach the achievement sink, got (%v, %d)", env.achievements.lastDone, env.achievements.lastLen)
	}
}

func TestMonotonicReveal(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	prev := 0
	guesses := []string{"Great", "wrong", "is", "wrong", "his", "love"}
	for _, g := range guesses {
		if _, err := s.SubmitGuess(ctx, g); err != nil {
			t.Fatalf("guess %q: %v", g, err)
		}
		n := len(s.Revealed())
		if n < prev {
			t.Fatalf("revealed count decreased: %d -> %d", prev, n)
		}
		prev = n
	}
	if got := s.Revealed(); len(got) != 4 {
		t.Fatalf("revealed = %v, want 4 words", got)
	}
}

func TestResumeFromRecordedWords(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())

	// Previous run scored indexes 0 and 1.
	for _, idx := range []int{0, 1} {
		if err := env.recorder.Record(ctx, "Psalm 117:2", idx, time.Now()); err != nil {
			t.Fatalf("seed recorded word: %v", err)
		}
	}

	if err := env.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := env.session.Revealed(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("revealed = %v, want [0 1]", got)
	}

	// Next guess targets index 2 and the already-recorded words are not
	// re-scored.
	out, err := env.session.SubmitGuess(ctx, "his")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if out.WordIndex != 2 {
		t.Fatalf("word index = %d, want 2", out.WordIndex)
	}
	if len(env.emitter.events) != 1 {
		t.Fatalf("events = %d, want 1", len(env.emitter.events))
	}
}

func TestSoftResetKeepsRecordedWords(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.SubmitGuess(ctx, "Great"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	if err := s.Reset(ctx, false); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase = %v, want idle", s.Phase())
	}
	if env.streaks.current != 0 {
		t.Fatal("reset must zero the current streak")
	}

	// Restart resumes from the surviving record.
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := s.Revealed(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("revealed after soft reset = %v, want [0]", got)
	}
}

func TestHardResetClearsRecordedWords(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.SubmitGuess(ctx, "Great"); err != nil {
		t.Fatalf("guess: %v", err)
	}

	if err := s.Reset(ctx, true); err != nil {
		t.Fatalf("hard reset: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got := s.Revealed(); len(got) != 0 {
		t.Fatalf("revealed after hard reset = %v, want empty", got)
	}

	// Re-guessing index 0 scores it again as a brand-new first attempt.
	if _, err := s.SubmitGuess(ctx, "Great"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	if len(env.emitter.events) != 2 {
		t.Fatalf("events = %d, want 2 after hard reset", len(env.emitter.events))
	}
}

func TestMasteryAttemptScoredByContainment(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	})
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, w := range []string{"Jesus", "wept"} {
		if _, err := s.SubmitGuess(ctx, w); err != nil {
			t.Fatalf("guess: %v", err)
		}
	}
	if err := s.EnterMastery(ctx); err != nil {
		t.Fatalf("enter mastery: %v", err)
	}
	if s.Phase() != PhaseMasteryActive {
		t.Fatalf("phase = %v, want mastery", s.Phase())
	}

	env.progress.result = api.AttemptResult{IsCorrect: true, Message: "Perfect!"}
	if _, err := s.SubmitMasteryAttempt(ctx, "jesus WEPT"); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if len(env.progress.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(env.progress.attempts))
	}
	got := env.progress.attempts[0]
	if got.WordsCorrect != 2 || got.TotalWords != 2 {
		t.Fatalf("attempt = %+v, want 2/2", got)
	}
}

func TestMasteryFailureKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	})
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, w := range []string{"Jesus", "wept"} {
		if _, err := s.SubmitGuess(ctx, w); err != nil {
			t.Fatalf("guess: %v", err)
		}
	}
	if err := s.EnterMastery(ctx); err != nil {
		t.Fatalf("enter mastery: %v", err)
	}

	env.progress.err = errors.New("server down")
	if _, err := s.SubmitMasteryAttempt(ctx, "jesus wept"); err == nil {
		t.Fatal("want error from failed submit")
	}
	if s.Phase() != PhaseMasteryActive {
		t.Fatalf("phase = %v, want mastery mode to survive failure", s.Phase())
	}

	env.progress.err = nil
	if _, err := s.SubmitMasteryAttempt(ctx, "jesus wept"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestMasteredProgressSetsVerseStatus(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	})
	s := env.session
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, w := range []string{"Jesus", "wept"} {
		if _, err := s.SubmitGuess(ctx, w); err != nil {
			t.Fatalf("guess: %v", err)
		}
	}
	if err := s.EnterMastery(ctx); err != nil {
		t.Fatalf("enter mastery: %v", err)
	}

	env.progress.progress = api.MasteryProgress{IsMastered: true}
	env.progress.result = api.AttemptResult{IsCorrect: true}
	if _, err := s.SubmitMasteryAttempt(ctx, "jesus wept"); err != nil {
		t.Fatalf("attempt: %v", err)
	}

	want := []api.VerseStatus{api.StatusMastered}
	if len(env.statuses.calls) != 1 || env.statuses.calls[0] != want[0] {
		t.Fatalf("status calls = %v, want %v", env.statuses.calls, want)
	}
	if s.Verse().Status != api.StatusMastered {
		t.Fatalf("verse status = %v, want mastered", s.Verse().Status)
	}
}

func TestGuessOutsideActivePhase(t *testing.T) {
	ctx := context.Background()
	env := newSessionEnv(t, shortVerse())

	if _, err := env.session.SubmitGuess(ctx, "Great"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive before start", err)
	}
	if err := env.session.ExitMastery(); !errors.Is(err, ErrNotInMastery) {
		t.Fatalf("err = %v, want ErrNotInMastery", err)
	}
}
