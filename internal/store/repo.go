package store

import (
	"context"
	"time"
)

// ChangeType identifies the kind of verse mutation held in the ledger.
type ChangeType string

const (
	ChangeStatusUpdate ChangeType = "status_update"
	ChangeAddVerse     ChangeType = "add_verse"
	ChangeDeleteVerse  ChangeType = "delete_verse"
)

// PendingChange is a durable, not-yet-confirmed verse mutation. Entries
// persist until the server confirms them; they are never silently dropped.
type PendingChange struct {
	ID             string
	Type           ChangeType
	VerseReference string
	Payload        string // JSON body for the replayed request, if any
	CreatedAt      time.Time
	Synced         bool
}

// VerseStreak tracks guess streaks for one verse. CurrentGuessStreak is
// locally authoritative; LongestGuessStreak never decreases.
type VerseStreak struct {
	VerseReference     string
	CurrentGuessStreak int
	LongestGuessStreak int
	LastGuessDate      *time.Time
}

// AchievementRecord is the single outstanding shareable achievement.
type AchievementRecord struct {
	Streak     int
	AchievedAt time.Time
	Shared     bool
	ShareCount int
}

// RecordedWordRepo marks verse words as already scored. A (reference, index)
// pair is recorded at most once, which is what makes word scoring idempotent.
type RecordedWordRepo interface {
	// Record marks the word as scored. Recording an already-recorded word
	// is a no-op.
	Record(ctx context.Context, reference string, wordIndex int, at time.Time) error

	// Has reports whether the word has already been scored.
	Has(ctx context.Context, reference string, wordIndex int) (bool, error)

	// Indexes returns the sorted word indexes recorded for the verse.
	Indexes(ctx context.Context, reference string) ([]int, error)

	// DeleteAll removes every recorded word for the verse (hard reset).
	DeleteAll(ctx context.Context, reference string) error
}

// LedgerRepo is the durable queue of verse mutations awaiting sync.
type LedgerRepo interface {
	// Add appends a change with synced=false.
	Add(ctx context.Context, change PendingChange) error

	// Unsynced returns all unsynced changes in insertion order.
	Unsynced(ctx context.Context) ([]PendingChange, error)

	// UnsyncedCount returns the number of unsynced changes.
	UnsyncedCount(ctx context.Context) (int, error)

	// MarkSynced removes the confirmed changes.
	MarkSynced(ctx context.Context, ids []string) error
}

// CacheRepo persists server responses with their fetch time so callers can
// apply a TTL.
type CacheRepo interface {
	// PutMastery stores the serialized MasteryProgress for a verse.
	PutMastery(ctx context.Context, reference string, payload []byte, fetchedAt time.Time) error

	// GetMastery returns the cached payload and fetch time, or ok=false.
	GetMastery(ctx context.Context, reference string) (payload []byte, fetchedAt time.Time, ok bool, err error)

	// PutStats stores the serialized gamification stats.
	PutStats(ctx context.Context, payload []byte, fetchedAt time.Time) error

	// GetStats returns the cached stats payload, or ok=false.
	GetStats(ctx context.Context) (payload []byte, fetchedAt time.Time, ok bool, err error)
}

// StreakRepo persists per-verse guess streaks.
type StreakRepo interface {
	// Get returns the streak row for a verse, or nil if none exists.
	Get(ctx context.Context, reference string) (*VerseStreak, error)

	// All returns every stored verse streak.
	All(ctx context.Context) ([]VerseStreak, error)

	// Upsert writes the streak row, replacing any existing one.
	Upsert(ctx context.Context, streak VerseStreak) error
}

// AchievementRepo holds at most one outstanding achievement record.
type AchievementRepo interface {
	// Put stores the record, overwriting any prior unshared one.
	Put(ctx context.Context, rec AchievementRecord) error

	// Get returns the outstanding record, or nil if none exists.
	Get(ctx context.Context) (*AchievementRecord, error)

	// Take returns the outstanding record and removes it. Returns nil if
	// none exists. The share flow consumes the record exactly once.
	Take(ctx context.Context) (*AchievementRecord, error)
}
