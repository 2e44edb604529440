package practice

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/points"
	prac "versekeep/internal/practice"
	"versekeep/internal/router"
	"versekeep/internal/screen"
	"versekeep/internal/store"
	"versekeep/internal/ui/components"
	"versekeep/internal/ui/layout"
)

// Optimistic point values shown during practice. The server recomputes the
// real totals from the uploaded word progress.
const (
	pointsPerWord       = 2
	pointsPerCompletion = 10
)

// PracticeScreen drives one verse through guessing and mastery mode.
type PracticeScreen struct {
	session    *prac.Session
	reconciler *points.Reconciler
	log        *zap.Logger

	input        components.TextInput
	masteryInput components.TextInput

	feedback     string
	feedbackGood bool
	errMsg       string
	submitting   bool
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)

// New creates a practice screen for the verse.
func New(
	verse api.Verse,
	recorder store.RecordedWordRepo,
	emitter prac.Emitter,
	statuses prac.StatusUpdater,
	reconciler *points.Reconciler,
	progressSrc prac.ProgressSource,
	achievements prac.AchievementSink,
	log *zap.Logger,
) *PracticeScreen {
	if log == nil {
		log = zap.NewNop()
	}

	guessInput := components.NewTextInput("Type the next word...", 40)
	guessInput.SingleWord = true

	attemptInput := components.NewTextInput("Type the whole verse from memory...", 0)
	attemptInput.BlockPaste = true

	var streaks prac.StreakTracker
	if reconciler != nil {
		streaks = reconciler
	}

	return &PracticeScreen{
		session:      prac.NewSession(verse, recorder, emitter, statuses, streaks, progressSrc, achievements, log),
		reconciler:   reconciler,
		log:          log,
		input:        guessInput,
		masteryInput: attemptInput,
	}
}

func (p *PracticeScreen) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			return sessionReadyMsg{Err: p.session.Start(context.Background())}
		},
		p.input.Init(),
	)
}

func (p *PracticeScreen) Title() string {
	return p.session.Verse().Reference
}

// HandlesEsc reports whether esc is consumed by the screen instead of
// popping it. Leaving mastery mode returns to the completed view.
func (p *PracticeScreen) HandlesEsc() bool {
	return p.session.Phase() == prac.PhaseMasteryActive
}

func (p *PracticeScreen) KeyHints() []layout.KeyHint {
	switch p.session.Phase() {
	case prac.PhaseCompleted:
		return []layout.KeyHint{
			{Key: "M", Description: "Mastery attempt"},
			{Key: "R", Description: "Practice again"},
			{Key: "Esc", Description: "Back"},
		}
	case prac.PhaseMasteryActive:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit attempt"},
			{Key: "Esc", Description: "Leave mastery"},
		}
	default:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Guess"},
			{Key: "Ctrl+H", Description: "Hint"},
			{Key: "Esc", Description: "Back"},
		}
	}
}

func (p *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionReadyMsg:
		if msg.Err != nil {
			p.errMsg = msg.Err.Error()
		}
		return p, nil

	case masteryEnteredMsg:
		if msg.Err != nil {
			p.feedback = "Could not load mastery progress: " + msg.Err.Error()
			p.feedbackGood = false
		} else {
			p.feedback = prac.ProgressMessage(msg.Progress)
			p.feedbackGood = true
		}
		return p, p.masteryInput.Init()

	case attemptResultMsg:
		p.submitting = false
		if msg.Err != nil {
			p.feedback = "Attempt not saved: " + msg.Err.Error()
			p.feedbackGood = false
			return p, nil
		}
		p.feedback = msg.Result.Message
		p.feedbackGood = msg.Result.IsCorrect
		if mp := p.session.MasteryProgress(); mp != nil && mp.IsMastered {
			p.feedback = prac.ProgressMessage(*mp)
		}
		p.masteryInput.Reset()
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	return p.forwardToInput(msg)
}

func (p *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if p.errMsg != "" {
		return p, func() tea.Msg { return router.PopScreenMsg{} }
	}

	switch p.session.Phase() {
	case prac.PhaseActive:
		switch key {
		case "enter":
			return p.submitGuess()
		case "ctrl+h":
			return p.showHint()
		}

	case prac.PhaseCompleted:
		switch key {
		case "m", "M":
			return p.enterMastery()
		case "r", "R":
			// Practice-again needs the recorded words cleared, otherwise the
			// restart reseeds them and lands straight back here.
			return p.reset(true)
		}
		return p, nil

	case prac.PhaseMasteryActive:
		switch key {
		case "enter":
			return p.submitAttempt()
		case "esc":
			if err := p.session.ExitMastery(); err == nil {
				p.feedback = ""
			}
			return p, nil
		}
	}

	return p.forwardToInput(msg)
}

func (p *PracticeScreen) forwardToInput(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	switch p.session.Phase() {
	case prac.PhaseActive:
		p.input, cmd = p.input.Update(msg)
	case prac.PhaseMasteryActive:
		if !p.submitting {
			p.masteryInput, cmd = p.masteryInput.Update(msg)
		}
	}
	return p, cmd
}

func (p *PracticeScreen) submitGuess() (screen.Screen, tea.Cmd) {
	guess := p.input.Value()
	if guess == "" {
		return p, nil
	}

	out, err := p.session.SubmitGuess(context.Background(), guess)
	switch {
	case errors.Is(err, prac.ErrMultiWordInput):
		p.feedback = "One word at a time."
		p.feedbackGood = false
		p.input.Reset()
		return p, nil
	case err != nil:
		p.feedback = err.Error()
		p.feedbackGood = false
		return p, nil
	}

	p.input.Reset()
	return p.applyOutcome(out, true), nil
}

func (p *PracticeScreen) showHint() (screen.Screen, tea.Cmd) {
	out, err := p.session.ShowHint(context.Background())
	if err != nil {
		p.feedback = err.Error()
		p.feedbackGood = false
		return p, nil
	}
	scr := p.applyOutcome(out, false)
	if out.Word != "" && !out.Completed {
		p.feedback = "Hint: " + out.Word
		p.feedbackGood = true
	}
	return scr, nil
}

func (p *PracticeScreen) applyOutcome(out prac.GuessOutcome, isGuess bool) screen.Screen {
	switch {
	case out.Feedback != "":
		p.feedback = out.Feedback
		p.feedbackGood = true
	case out.Completed:
		p.feedback = "Verse completed!"
		p.feedbackGood = true
		if p.reconciler != nil {
			p.reconciler.AddPointsLocal(pointsPerCompletion)
		}
	case out.Correct:
		p.feedback = ""
		p.feedbackGood = true
		if isGuess && p.reconciler != nil {
			p.reconciler.AddPointsLocal(pointsPerWord)
		}
	default:
		p.feedback = "Not quite — try again."
		p.feedbackGood = false
	}
	return p
}

func (p *PracticeScreen) enterMastery() (screen.Screen, tea.Cmd) {
	return p, func() tea.Msg {
		err := p.session.EnterMastery(context.Background())
		var mp api.MasteryProgress
		if cached := p.session.MasteryProgress(); cached != nil {
			mp = *cached
		}
		return masteryEnteredMsg{Progress: mp, Err: err}
	}
}

func (p *PracticeScreen) submitAttempt() (screen.Screen, tea.Cmd) {
	attempt := p.masteryInput.Value()
	if attempt == "" || p.submitting {
		return p, nil
	}
	p.submitting = true
	p.feedback = "Checking your attempt..."
	p.feedbackGood = true

	return p, func() tea.Msg {
		result, err := p.session.SubmitMasteryAttempt(context.Background(), attempt)
		return attemptResultMsg{Result: result, Err: err}
	}
}

func (p *PracticeScreen) reset(clearProgress bool) (screen.Screen, tea.Cmd) {
	if err := p.session.Reset(context.Background(), clearProgress); err != nil {
		p.feedback = err.Error()
		p.feedbackGood = false
		return p, nil
	}
	p.feedback = ""
	p.input.Reset()
	return p, func() tea.Msg {
		return sessionReadyMsg{Err: p.session.Start(context.Background())}
	}
}
