// Package app hosts the root Bubble Tea model and wires the screens to the
// session guardian and the gamification header.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"versekeep/internal/achievement"
	"versekeep/internal/dispatch"
	"versekeep/internal/guardian"
	"versekeep/internal/points"
	prac "versekeep/internal/practice"
	"versekeep/internal/router"
	"versekeep/internal/screens/home"
	"versekeep/internal/store"
	"versekeep/internal/ui/layout"
	"versekeep/internal/verses"
)

// Options carries the services the TUI runs on.
type Options struct {
	Verses       *verses.Service
	Recorder     store.RecordedWordRepo
	Dispatcher   *dispatch.Dispatcher
	Reconciler   *points.Reconciler
	ProgressSrc  prac.ProgressSource
	Achievements *achievement.Service
	Guardian     *guardian.Guardian
	Logger       *zap.Logger
}

// guardianTickMsg drives the once-a-second inactivity evaluation.
type guardianTickMsg time.Time

// expiredMsg is sent after the forced-expiry cleanup finished.
type expiredMsg struct{}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router     *router.Router
	opts       Options
	width      int
	height     int
	warning    time.Duration
	warningOn  bool
	expired    bool
	expiring   bool
}

// newAppModel creates a new AppModel with the home screen.
func newAppModel(opts Options) AppModel {
	homeScreen := home.New(
		opts.Verses,
		opts.Recorder,
		opts.Dispatcher,
		opts.Reconciler,
		opts.ProgressSrc,
		opts.Achievements,
		opts.Logger,
	)
	return AppModel{
		router: router.New(homeScreen),
		opts:   opts,
	}
}

func (m AppModel) Init() tea.Cmd {
	return guardianTick()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case guardianTickMsg:
		return m.handleGuardianTick()

	case expiredMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.expired {
			return m, nil
		}
		// Sign out now, straight from the countdown warning.
		if m.warningOn && msg.String() == "ctrl+l" {
			return m.expire()
		}
		if m.opts.Guardian != nil {
			m.opts.Guardian.NotifyActivity()
		}
		m.warningOn = false

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				// Screens with modal state (mastery mode) take esc first.
				if h, ok := m.router.Active().(interface{ HandlesEsc() bool }); ok && h.HandlesEsc() {
					break
				}
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}

	case tea.PasteMsg, tea.MouseMsg:
		if m.opts.Guardian != nil {
			m.opts.Guardian.NotifyActivity()
		}
		m.warningOn = false
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// handleGuardianTick checks the inactivity deadline and, when crossed,
// flushes queued work and ends the program.
func (m AppModel) handleGuardianTick() (tea.Model, tea.Cmd) {
	if m.opts.Guardian == nil || m.expired {
		return m, guardianTick()
	}

	v := m.opts.Guardian.Evaluate()
	switch v.State {
	case guardian.StateExpired:
		if m.expiring {
			return m, guardianTick()
		}
		return m.expire()
	case guardian.StateWarning:
		m.warningOn = true
		m.warning = v.Remaining
	default:
		m.warningOn = false
	}
	return m, guardianTick()
}

// expire flushes queued work, clears the session, and ends the program.
func (m AppModel) expire() (tea.Model, tea.Cmd) {
	m.expiring = true
	m.expired = true
	g := m.opts.Guardian
	return m, func() tea.Msg {
		_ = g.Expire(context.Background())
		return expiredMsg{}
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if m.expired {
		v.SetContent(lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center).
			AlignVertical(lipgloss.Center).
			Render("Session expired.\n\nYour progress is saved — sign in again to continue."))
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	pointsTotal, streak := 0, 0
	if m.opts.Reconciler != nil {
		pointsTotal = m.opts.Reconciler.Points()
		streak = m.opts.Reconciler.LongestStreak()
	}
	header := layout.RenderHeader(title, pointsTotal, streak, m.width)

	footerHints := m.footerHints(active)
	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight

	warningBanner := ""
	if m.warningOn {
		warningBanner = layout.RenderExpiryWarning(m.warning, m.width)
		contentHeight -= lipgloss.Height(warningBanner)
	}
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	if warningBanner != "" {
		content = warningBanner + "\n" + content
	}
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

func (m AppModel) footerHints(active interface{ Title() string }) []layout.KeyHint {
	if provider, ok := active.(interface{ KeyHints() []layout.KeyHint }); ok {
		if hints := provider.KeyHints(); hints != nil {
			return hints
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// guardianTick returns a 1-second tick command.
func guardianTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return guardianTickMsg(t)
	})
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
