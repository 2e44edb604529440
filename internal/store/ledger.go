package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type ledgerRepo struct {
	db *sql.DB
}

func (r *ledgerRepo) Add(ctx context.Context, change PendingChange) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_changes (id, change_type, verse_reference, payload, created_at, synced)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		change.ID, string(change.Type), change.VerseReference, change.Payload, change.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("add pending change: %w", err)
	}
	return nil
}

func (r *ledgerRepo) Unsynced(ctx context.Context) ([]PendingChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, change_type, verse_reference, payload, created_at, synced
		 FROM pending_changes WHERE synced = 0 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []PendingChange
	for rows.Next() {
		var c PendingChange
		var typ string
		var synced int
		if err := rows.Scan(&c.ID, &typ, &c.VerseReference, &c.Payload, &c.CreatedAt, &synced); err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		c.Type = ChangeType(typ)
		c.Synced = synced != 0
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *ledgerRepo) UnsyncedCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_changes WHERE synced = 0`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending changes: %w", err)
	}
	return n, nil
}

func (r *ledgerRepo) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_changes WHERE id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return fmt.Errorf("mark changes synced: %w", err)
	}
	return nil
}
