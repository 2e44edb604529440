package api

import "time"

// VerseStatus is the server-side lifecycle status of a verse.
type VerseStatus string

const (
	StatusNotStarted VerseStatus = "not_started"
	StatusInProgress VerseStatus = "in_progress"
	StatusMastered   VerseStatus = "mastered"
)

// Verse is a memorization verse owned by the authenticated user. The
// reference is the natural key everywhere.
type Verse struct {
	Reference    string      `json:"reference"`
	Text         string      `json:"text"`
	Status       VerseStatus `json:"status"`
	LastReviewed *time.Time  `json:"last_reviewed,omitempty"`
	Translation  string      `json:"translation,omitempty"`
}

// VerseUpdate carries the mutable fields of a PUT /verses/:reference call.
// Nil fields are left unchanged by the server.
type VerseUpdate struct {
	Status       *VerseStatus `json:"status,omitempty"`
	LastReviewed *time.Time   `json:"last_reviewed,omitempty"`
}

// WordProgress is one word-level attempt event. Exactly one event exists per
// first attempt on a (verse, word index) pair.
type WordProgress struct {
	VerseReference string    `json:"verse_reference"`
	WordIndex      int       `json:"word_index"`
	Word           string    `json:"word"`
	IsCorrect      bool      `json:"is_correct"`
	Timestamp      time.Time `json:"timestamp"`
}

// VerseAttempt is a full-verse mastery attempt submission.
type VerseAttempt struct {
	VerseReference string    `json:"verse_reference"`
	WordsCorrect   int       `json:"words_correct"`
	TotalWords     int       `json:"total_words"`
	Timestamp      time.Time `json:"timestamp"`
}

// AttemptResult is the server's verdict on a mastery attempt.
type AttemptResult struct {
	IsCorrect bool   `json:"isCorrect"`
	Message   string `json:"message"`
}

// MasteryProgress is the authoritative mastery state for one verse. Cached
// locally for at most five minutes.
type MasteryProgress struct {
	VerseReference     string     `json:"verse_reference"`
	TotalAttempts      int        `json:"total_attempts"`
	OverallAccuracy    float64    `json:"overall_accuracy"`
	ConsecutivePerfect int        `json:"consecutive_perfect"`
	IsMastered         bool       `json:"is_mastered"`
	MasteryDate        *time.Time `json:"mastery_date,omitempty"`
}

// VerseStreakStat is one entry of the server's verse streak list.
type VerseStreakStat struct {
	VerseReference     string     `json:"verse_reference"`
	CurrentGuessStreak int        `json:"current_guess_streak"`
	LongestGuessStreak int        `json:"longest_guess_streak"`
	LastGuessDate      *time.Time `json:"last_guess_date,omitempty"`
}

// Stats is the aggregate gamification payload from GET /gamification/stats.
type Stats struct {
	TotalPoints            int               `json:"total_points"`
	LongestWordGuessStreak int               `json:"longest_word_guess_streak"`
	VerseStreaks           []VerseStreakStat `json:"verse_streaks"`
}

// PointsEvent is a generic point/metadata write. A zero-point event carrying
// a streak in the metadata is the catch-up reconciliation write.
type PointsEvent struct {
	Points    int               `json:"points"`
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// ServerInfo is the server's advertised version metadata.
type ServerInfo struct {
	Version          string `json:"version"`
	MinClientVersion string `json:"min_client_version"`
}
