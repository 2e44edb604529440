// Package verselist shows the user's verses and launches practice.
package verselist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/points"
	prac "versekeep/internal/practice"
	"versekeep/internal/router"
	"versekeep/internal/screen"
	practicescreen "versekeep/internal/screens/practice"
	"versekeep/internal/store"
	"versekeep/internal/ui/layout"
	"versekeep/internal/ui/theme"
	"versekeep/internal/verses"
)

type versesLoadedMsg struct {
	Verses  []api.Verse
	Pending int
	Err     error
}

type verseDeletedMsg struct {
	Reference string
	Queued    bool
	Err       error
}

// VerseListScreen lists verses for practice and management.
type VerseListScreen struct {
	svc          *verses.Service
	recorder     store.RecordedWordRepo
	emitter      prac.Emitter
	reconciler   *points.Reconciler
	progressSrc  prac.ProgressSource
	achievements prac.AchievementSink
	log          *zap.Logger

	verses   []api.Verse
	pending  int
	selected int
	loading  bool
	notice   string
	errMsg   string
}

var _ screen.Screen = (*VerseListScreen)(nil)
var _ screen.KeyHintProvider = (*VerseListScreen)(nil)

// New creates the verse list screen.
func New(
	svc *verses.Service,
	recorder store.RecordedWordRepo,
	emitter prac.Emitter,
	reconciler *points.Reconciler,
	progressSrc prac.ProgressSource,
	achievements prac.AchievementSink,
	log *zap.Logger,
) *VerseListScreen {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerseListScreen{
		svc:          svc,
		recorder:     recorder,
		emitter:      emitter,
		reconciler:   reconciler,
		progressSrc:  progressSrc,
		achievements: achievements,
		log:          log,
		loading:      true,
	}
}

func (v *VerseListScreen) Init() tea.Cmd {
	return v.load()
}

func (v *VerseListScreen) Title() string {
	return "My Verses"
}

func (v *VerseListScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Practice"},
		{Key: "D", Description: "Delete"},
		{Key: "Esc", Description: "Back"},
	}
}

func (v *VerseListScreen) load() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		list, err := v.svc.List(ctx)
		pending, _ := v.svc.UnsavedCount(ctx)
		return versesLoadedMsg{Verses: list, Pending: pending, Err: err}
	}
}

func (v *VerseListScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case versesLoadedMsg:
		v.loading = false
		if msg.Err != nil {
			v.errMsg = msg.Err.Error()
			return v, nil
		}
		v.verses = msg.Verses
		v.pending = msg.Pending
		if v.selected >= len(v.verses) {
			v.selected = len(v.verses) - 1
		}
		if v.selected < 0 {
			v.selected = 0
		}
		return v, nil

	case verseDeletedMsg:
		switch {
		case msg.Err != nil:
			v.notice = "Delete failed: " + msg.Err.Error()
		case msg.Queued:
			v.notice = fmt.Sprintf("%s will be deleted on next sync.", msg.Reference)
		default:
			v.notice = msg.Reference + " deleted."
		}
		return v, v.load()

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *VerseListScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if v.errMsg != "" {
		return v, func() tea.Msg { return router.PopScreenMsg{} }
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.verses)-1 {
			v.selected++
		}
	case "enter":
		if v.selected < len(v.verses) {
			verse := v.verses[v.selected]
			return v, func() tea.Msg {
				return router.PushScreenMsg{Screen: practicescreen.New(
					verse, v.recorder, v.emitter, v.svc,
					v.reconciler, v.progressSrc, v.achievements, v.log,
				)}
			}
		}
	case "d", "D":
		if v.selected < len(v.verses) {
			return v, v.deleteSelected(v.verses[v.selected].Reference)
		}
	}
	return v, nil
}

func (v *VerseListScreen) deleteSelected(reference string) tea.Cmd {
	return func() tea.Msg {
		err := v.svc.Delete(context.Background(), reference)
		if errors.Is(err, verses.ErrQueuedOffline) {
			return verseDeletedMsg{Reference: reference, Queued: true}
		}
		return verseDeletedMsg{Reference: reference, Err: err}
	}
}

func (v *VerseListScreen) View(width, height int) string {
	if v.loading {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  Loading verses...")
	}
	if v.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render("\n\n  " + v.errMsg + "\n\n  Press any key to go back.")
	}
	if len(v.verses) == 0 {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("\n\n  No verses yet.\n\n  Add one with: versekeep verses add")
	}

	var b strings.Builder
	b.WriteString("\n")
	for i, verse := range v.verses {
		line := fmt.Sprintf("%s %-24s %s", statusGlyph(verse.Status), verse.Reference, snippet(verse.Text, 40))
		if i == v.selected {
			b.WriteString(theme.Selected.Render("  ▸ " + line))
		} else {
			b.WriteString(theme.Unselected.Render("    " + line))
		}
		b.WriteString("\n")
	}

	if v.pending > 0 {
		b.WriteString("\n")
		b.WriteString(theme.Warning.Render(fmt.Sprintf("  %d unsaved change(s) waiting to sync", v.pending)))
	}
	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  " + v.notice))
	}
	return b.String()
}

func statusGlyph(status api.VerseStatus) string {
	switch status {
	case api.StatusMastered:
		return theme.Correct.Render("●")
	case api.StatusInProgress:
		return theme.Warning.Render("◐")
	default:
		return theme.Hidden.Render("○")
	}
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
