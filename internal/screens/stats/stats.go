// Package stats shows gamification totals and per-verse streaks.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"versekeep/internal/points"
	"versekeep/internal/screen"
	"versekeep/internal/store"
	"versekeep/internal/ui/layout"
	"versekeep/internal/ui/theme"
)

type refreshedMsg struct {
	Ran bool
	Err error
}

// StatsScreen displays points and streaks, refreshing from the server on
// entry (rate limited by the reconciler).
type StatsScreen struct {
	reconciler *points.Reconciler
	refreshing bool
	notice     string
}

var _ screen.Screen = (*StatsScreen)(nil)
var _ screen.KeyHintProvider = (*StatsScreen)(nil)

// New creates the stats screen.
func New(reconciler *points.Reconciler) *StatsScreen {
	return &StatsScreen{reconciler: reconciler, refreshing: true}
}

func (s *StatsScreen) Init() tea.Cmd {
	return s.refresh(false)
}

func (s *StatsScreen) Title() string {
	return "Stats"
}

func (s *StatsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "R", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *StatsScreen) refresh(force bool) tea.Cmd {
	return func() tea.Msg {
		ran, err := s.reconciler.Refresh(context.Background(), force)
		return refreshedMsg{Ran: ran, Err: err}
	}
}

func (s *StatsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		s.refreshing = false
		switch {
		case msg.Err != nil:
			s.notice = "Showing local stats; refresh failed: " + msg.Err.Error()
		case !msg.Ran:
			s.notice = "Recently refreshed."
		default:
			s.notice = ""
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r", "R":
			s.refreshing = true
			return s, s.refresh(true)
		}
	}
	return s, nil
}

func (s *StatsScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")

	totals := fmt.Sprintf("  %s %d points      %s %d longest streak",
		lipgloss.NewStyle().Foreground(theme.Accent).Render("✦"),
		s.reconciler.Points(),
		lipgloss.NewStyle().Foreground(theme.Accent).Render("⚡"),
		s.reconciler.LongestStreak(),
	)
	b.WriteString(theme.Body.Bold(true).Render(totals))
	b.WriteString("\n\n")

	rows := s.reconciler.VerseStreaks()
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].LongestGuessStreak > rows[j].LongestGuessStreak
	})

	if len(rows) == 0 {
		b.WriteString(theme.Hint.Render("  No streaks yet — practice a verse to start one."))
	} else {
		header := fmt.Sprintf("  %-24s %8s %8s  %s", "Verse", "Current", "Longest", "Last guess")
		b.WriteString(theme.Subtitle.Align(lipgloss.Left).Render(header))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render("  " + strings.Repeat("─", min(width-6, 60))))
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(theme.Body.Render(fmt.Sprintf("  %-24s %8d %8d  %s",
				row.VerseReference,
				row.CurrentGuessStreak,
				row.LongestGuessStreak,
				lastGuess(row),
			)))
			b.WriteString("\n")
		}
	}

	if s.refreshing {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  Refreshing..."))
	} else if s.notice != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  " + s.notice))
	}
	return b.String()
}

func lastGuess(row store.VerseStreak) string {
	if row.LastGuessDate == nil {
		return "—"
	}
	return row.LastGuessDate.Format("Jan 2 15:04")
}
