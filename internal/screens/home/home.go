// Package home is the application's top-level menu.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"versekeep/internal/achievement"
	"versekeep/internal/dispatch"
	"versekeep/internal/points"
	prac "versekeep/internal/practice"
	"versekeep/internal/router"
	"versekeep/internal/screen"
	statsscreen "versekeep/internal/screens/stats"
	"versekeep/internal/screens/verselist"
	"versekeep/internal/store"
	"versekeep/internal/ui/components"
	"versekeep/internal/ui/theme"
	"versekeep/internal/verses"
)

type syncDoneMsg struct {
	Result verses.SyncResult
	Err    error
}

type shareDoneMsg struct {
	Text string
	Err  error
}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	menu         components.Menu
	svc          *verses.Service
	dispatcher   *dispatch.Dispatcher
	achievements *achievement.Service
	pendingCount int
	hasMilestone bool
	notice       string
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(
	svc *verses.Service,
	recorder store.RecordedWordRepo,
	dispatcher *dispatch.Dispatcher,
	reconciler *points.Reconciler,
	progressSrc prac.ProgressSource,
	achievements *achievement.Service,
	log *zap.Logger,
) *HomeScreen {
	ctx := context.Background()
	pending, _ := svc.UnsavedCount(ctx)

	hasMilestone := false
	if achievements != nil {
		if rec, err := achievements.Outstanding(ctx); err == nil && rec != nil {
			hasMilestone = true
		}
	}

	h := &HomeScreen{
		svc:          svc,
		dispatcher:   dispatcher,
		achievements: achievements,
		pendingCount: pending,
		hasMilestone: hasMilestone,
	}

	items := []components.MenuItem{
		{Label: "PRACTICE A VERSE", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: verselist.New(
					svc, recorder, dispatcher, reconciler, progressSrc, achievements, log,
				)}
			}
		}},
		{Label: "STATS", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: statsscreen.New(reconciler)}
			}
		}},
		{Label: "SYNC NOW", Action: func() tea.Cmd {
			return h.syncNow()
		}},
		{Label: "SHARE ACHIEVEMENT", Disabled: !hasMilestone, Action: func() tea.Cmd {
			return h.share()
		}},
		{Label: "EXIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}
	h.menu = components.NewMenu(items)
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) syncNow() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if h.dispatcher != nil {
			h.dispatcher.Flush(ctx)
		}
		result, err := h.svc.FlushPending(ctx)
		return syncDoneMsg{Result: result, Err: err}
	}
}

func (h *HomeScreen) share() tea.Cmd {
	return func() tea.Msg {
		text, err := h.achievements.Share(context.Background())
		return shareDoneMsg{Text: text, Err: err}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case syncDoneMsg:
		pending, _ := h.svc.UnsavedCount(context.Background())
		h.pendingCount = pending
		switch {
		case msg.Err != nil:
			h.notice = "Sync incomplete: " + msg.Err.Error()
		case len(msg.Result.Conflicts) > 0:
			h.notice = fmt.Sprintf("Synced; already on server: %s", strings.Join(msg.Result.Conflicts, ", "))
		default:
			h.notice = fmt.Sprintf("Synced %d change(s).", msg.Result.Applied)
		}
		return h, nil

	case shareDoneMsg:
		if msg.Err != nil {
			h.notice = "Share failed: " + msg.Err.Error()
		} else if msg.Text == "" {
			h.notice = "Nothing to share yet."
		} else {
			h.notice = msg.Text
		}
		h.hasMilestone = false
		for i := range h.menu.Items {
			if h.menu.Items[i].Label == "SHARE ACHIEVEMENT" {
				h.menu.Items[i].Disabled = true
			}
		}
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var sections []string

	title := theme.Title.Width(width).Render("VERSEKEEP")
	subtitle := theme.Subtitle.Width(width).Render("Hide the word in your heart")
	sections = append(sections, title+"\n"+subtitle)

	sections = append(sections, h.menu.View())

	if h.pendingCount > 0 {
		sections = append(sections, theme.Warning.Render(
			fmt.Sprintf("  %d unsaved change(s) — SYNC NOW to push them", h.pendingCount)))
	}
	if h.notice != "" {
		sections = append(sections, theme.Hint.Render("  "+h.notice))
	}

	content := strings.Join(sections, "\n\n")
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		AlignVertical(lipgloss.Center).
		Render(content)
}
