// Package verses manages the user's verse list with offline-safe mutations.
//
// Writes go to the server first. When the server is unreachable the mutation
// is parked in the durable pending-change ledger and replayed on the next
// sync, so closing the app never loses a change.
package verses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/store"
)

// VerseAPI is the server side of verse mutations.
type VerseAPI interface {
	ListVerses(ctx context.Context) ([]api.Verse, error)
	CreateVerse(ctx context.Context, v api.Verse) error
	UpdateVerse(ctx context.Context, reference string, upd api.VerseUpdate) error
	DeleteVerse(ctx context.Context, reference string) error
}

// ErrQueuedOffline reports that the mutation could not reach the server and
// was parked in the ledger instead. The operation is not lost, just pending.
var ErrQueuedOffline = errors.New("change queued for sync")

// Service applies verse mutations with ledger fallback.
type Service struct {
	api    VerseAPI
	ledger store.LedgerRepo
	log    *zap.Logger
	now    func() time.Time
	newID  func() string
}

// New wires the verse service.
func New(apiClient VerseAPI, ledger store.LedgerRepo, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		api:    apiClient,
		ledger: ledger,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// SetClock overrides the clock (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// List returns the user's verses from the server.
func (s *Service) List(ctx context.Context) ([]api.Verse, error) {
	return s.api.ListVerses(ctx)
}

// Add creates the verse. Transient failures park the add in the ledger and
// return ErrQueuedOffline. A conflict (reference already exists) is returned
// as-is so the caller can tell the user.
func (s *Service) Add(ctx context.Context, v api.Verse) error {
	if v.Status == "" {
		v.Status = api.StatusNotStarted
	}
	err := s.api.CreateVerse(ctx, v)
	if err == nil {
		return nil
	}
	if api.IsTransient(err) {
		return s.park(ctx, store.ChangeAddVerse, v.Reference, v, err)
	}
	return err
}

// SetStatus updates the verse status and stamps last_reviewed. Transient
// failures park the update.
func (s *Service) SetStatus(ctx context.Context, reference string, status api.VerseStatus) error {
	now := s.now()
	upd := api.VerseUpdate{Status: &status, LastReviewed: &now}
	err := s.api.UpdateVerse(ctx, reference, upd)
	if err == nil {
		return nil
	}
	if api.IsTransient(err) {
		return s.park(ctx, store.ChangeStatusUpdate, reference, upd, err)
	}
	return err
}

// Delete removes the verse. Transient failures park the delete.
func (s *Service) Delete(ctx context.Context, reference string) error {
	err := s.api.DeleteVerse(ctx, reference)
	if err == nil {
		return nil
	}
	if api.IsTransient(err) {
		return s.park(ctx, store.ChangeDeleteVerse, reference, nil, err)
	}
	return err
}

// UnsavedCount returns the number of ledger entries awaiting sync.
func (s *Service) UnsavedCount(ctx context.Context) (int, error) {
	return s.ledger.UnsyncedCount(ctx)
}

// SyncResult summarizes a ledger replay.
type SyncResult struct {
	Applied   int
	Conflicts []string // verse references whose queued add already existed
}

// FlushPending replays the ledger in insertion order. The first transient
// or auth failure stops the replay and leaves everything from that entry on
// queued. A conflict on a
// queued add means the server already has the verse; the entry is confirmed
// and the reference is reported so the user can reconcile.
func (s *Service) FlushPending(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	changes, err := s.ledger.Unsynced(ctx)
	if err != nil {
		return result, fmt.Errorf("load pending changes: %w", err)
	}

	for _, change := range changes {
		err := s.replay(ctx, change)
		switch {
		case err == nil:
		case errors.Is(err, api.ErrConflict) && change.Type == store.ChangeAddVerse:
			result.Conflicts = append(result.Conflicts, change.VerseReference)
		case errors.Is(err, api.ErrUnauthorized):
			// A dead token rejects everything; the entries stay queued for
			// the next signed-in sync.
			return result, fmt.Errorf("sync needs sign-in at %s %s: %w", change.Type, change.VerseReference, err)
		case api.IsTransient(err):
			return result, fmt.Errorf("sync stalled at %s %s: %w", change.Type, change.VerseReference, err)
		default:
			// Permanent rejection: confirming it is the only way forward,
			// the server will never accept this entry.
			s.log.Warn("pending change rejected",
				zap.String("type", string(change.Type)),
				zap.String("verse", change.VerseReference),
				zap.Error(err))
		}

		if err := s.ledger.MarkSynced(ctx, []string{change.ID}); err != nil {
			return result, fmt.Errorf("confirm change %s: %w", change.ID, err)
		}
		result.Applied++
	}
	return result, nil
}

func (s *Service) replay(ctx context.Context, change store.PendingChange) error {
	switch change.Type {
	case store.ChangeAddVerse:
		var v api.Verse
		if err := json.Unmarshal([]byte(change.Payload), &v); err != nil {
			return fmt.Errorf("decode queued add: %w", err)
		}
		return s.api.CreateVerse(ctx, v)
	case store.ChangeStatusUpdate:
		var upd api.VerseUpdate
		if err := json.Unmarshal([]byte(change.Payload), &upd); err != nil {
			return fmt.Errorf("decode queued update: %w", err)
		}
		return s.api.UpdateVerse(ctx, change.VerseReference, upd)
	case store.ChangeDeleteVerse:
		return s.api.DeleteVerse(ctx, change.VerseReference)
	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

// park writes the failed mutation to the ledger and reports it queued.
func (s *Service) park(ctx context.Context, typ store.ChangeType, reference string, payload any, cause error) error {
	var body string
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode pending change: %w", err)
		}
		body = string(data)
	}

	change := store.PendingChange{
		ID:             s.newID(),
		Type:           typ,
		VerseReference: reference,
		Payload:        body,
		CreatedAt:      s.now(),
	}
	if err := s.ledger.Add(ctx, change); err != nil {
		// Both the server and the local disk failed; surface the original
		// cause, nothing was saved.
		return fmt.Errorf("queue change after %v: %w", cause, err)
	}

	s.log.Info("change queued offline",
		zap.String("type", string(typ)),
		zap.String("verse", reference))
	return fmt.Errorf("%w: %s %s", ErrQueuedOffline, typ, reference)
}
