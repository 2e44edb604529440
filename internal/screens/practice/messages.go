package practice

import (
	"versekeep/internal/api"
)

// sessionReadyMsg is sent when the session has loaded its recorded words.
type sessionReadyMsg struct {
	Err error
}

// masteryEnteredMsg is sent when mastery mode has been entered and the
// progress fetch finished.
type masteryEnteredMsg struct {
	Progress api.MasteryProgress
	Err      error
}

// attemptResultMsg is sent when a mastery attempt round-trip completes.
type attemptResultMsg struct {
	Result api.AttemptResult
	Err    error
}
