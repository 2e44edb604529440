package practice

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	prac "versekeep/internal/practice"
	"versekeep/internal/ui/theme"
)

func (p *PracticeScreen) View(width, height int) string {
	if p.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render("\n\n  " + p.errMsg + "\n\n  Press any key to go back.")
	}

	var b strings.Builder

	b.WriteString(p.renderInfoLine(width))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width-4, 0))))
	b.WriteString("\n\n")

	b.WriteString(p.renderVerseBody(width))
	b.WriteString("\n\n")

	if p.feedback != "" {
		style := theme.Correct
		if !p.feedbackGood {
			style = theme.Incorrect
		}
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render(style.Render(p.feedback)))
		b.WriteString("\n\n")
	}

	switch p.session.Phase() {
	case prac.PhaseActive:
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render("Next word: " + p.input.View()))

	case prac.PhaseCompleted:
		sum := p.session.Summary()
		if sum.Guesses > 0 {
			b.WriteString(lipgloss.NewStyle().
				Width(width).
				Align(lipgloss.Center).
				Foreground(theme.Text).
				Render(fmt.Sprintf("%d/%d guesses correct (%.0f%%)   best streak %d",
					sum.Correct, sum.Guesses, sum.Accuracy()*100, sum.BestStreak)))
			b.WriteString("\n\n")
		}
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.TextDim).
			Render("Press M to attempt the whole verse from memory, R to practice again."))

	case prac.PhaseMasteryActive:
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Render("Attempt: " + p.masteryInput.View()))
	}

	return b.String()
}

// renderInfoLine shows the verse reference, translation, progress, and the
// live streak.
func (p *PracticeScreen) renderInfoLine(width int) string {
	verse := p.session.Verse()

	label := verse.Reference
	if verse.Translation != "" {
		label += " (" + verse.Translation + ")"
	}
	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("  " + label)

	revealed := len(p.session.Revealed())
	total := len(p.session.Words())
	streak := 0
	if p.reconciler != nil {
		streak = p.reconciler.CurrentStreak(verse.Reference)
	}
	right := lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render(fmt.Sprintf("%d/%d words  %s %d",
			revealed, total,
			lipgloss.NewStyle().Foreground(theme.Accent).Render("⚡"),
			streak,
		))

	line := left
	pad := width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	return line
}

// renderVerseBody shows revealed words in full and hides the rest behind
// length-matched blanks. In mastery mode the whole verse stays hidden.
func (p *PracticeScreen) renderVerseBody(width int) string {
	words := p.session.Words()
	hideAll := p.session.Phase() == prac.PhaseMasteryActive

	parts := make([]string, len(words))
	for i, w := range words {
		if !hideAll && p.session.IsRevealed(i) {
			parts[i] = theme.Revealed.Render(w)
		} else {
			parts[i] = theme.Hidden.Render(strings.Repeat("_", len([]rune(w))))
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 4).
		Render(strings.Join(parts, " "))
}
