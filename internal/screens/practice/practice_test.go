package practice

import (
	"context"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"

	"versekeep/internal/api"
	prac "versekeep/internal/practice"
	"versekeep/internal/store"
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func testPracticeScreen(t *testing.T) *PracticeScreen {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "practice.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	verse := api.Verse{
		Reference: "John 11:35",
		Text:      "Jesus wept.",
		Status:    api.StatusInProgress,
	}
	return New(verse, st.RecordedWords(), nil, nil, nil, nil, nil, nil)
}

func completeVerse(t *testing.T, p *PracticeScreen) {
	t.Helper()
	ctx := context.Background()
	if err := p.session.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, w := range []string{"Jesus", "wept"} {
		if _, err := p.session.SubmitGuess(ctx, w); err != nil {
			t.Fatalf("guess %q: %v", w, err)
		}
	}
	if p.session.Phase() != prac.PhaseCompleted {
		t.Fatalf("phase = %v, want completed", p.session.Phase())
	}
}

func TestPracticeAgainStartsOver(t *testing.T) {
	p := testPracticeScreen(t)
	completeVerse(t, p)

	// Lowercase r on the completed view must clear the recorded words;
	// otherwise the restart reseeds them and lands straight back in the
	// completed view.
	scr, cmd := p.Update(keyPress('r'))
	pp := scr.(*PracticeScreen)
	if cmd == nil {
		t.Fatal("expected a restart command")
	}
	if msg, ok := cmd().(sessionReadyMsg); !ok || msg.Err != nil {
		t.Fatalf("restart result = %#v, want clean sessionReadyMsg", msg)
	}

	if pp.session.Phase() != prac.PhaseActive {
		t.Fatalf("phase = %v, want active after practice again", pp.session.Phase())
	}
	if got := pp.session.Revealed(); len(got) != 0 {
		t.Fatalf("revealed = %v, want a clean slate", got)
	}
}

func TestMasteryKeyEntersMasteryMode(t *testing.T) {
	p := testPracticeScreen(t)
	completeVerse(t, p)

	scr, cmd := p.Update(keyPress('m'))
	pp := scr.(*PracticeScreen)
	if cmd == nil {
		t.Fatal("expected a mastery command")
	}
	cmd()
	if pp.session.Phase() != prac.PhaseMasteryActive {
		t.Fatalf("phase = %v, want mastery active", pp.session.Phase())
	}
}
