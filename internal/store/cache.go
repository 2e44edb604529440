package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type cacheRepo struct {
	db *sql.DB
}

func (r *cacheRepo) PutMastery(ctx context.Context, reference string, payload []byte, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mastery_cache (verse_reference, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT (verse_reference) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		reference, string(payload), fetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put mastery cache: %w", err)
	}
	return nil
}

func (r *cacheRepo) GetMastery(ctx context.Context, reference string) ([]byte, time.Time, bool, error) {
	var payload string
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM mastery_cache WHERE verse_reference = ?`, reference,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("get mastery cache: %w", err)
	}
	return []byte(payload), fetchedAt, true, nil
}

func (r *cacheRepo) PutStats(ctx context.Context, payload []byte, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stats_cache (id, payload, fetched_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(payload), fetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put stats cache: %w", err)
	}
	return nil
}

func (r *cacheRepo) GetStats(ctx context.Context) ([]byte, time.Time, bool, error) {
	var payload string
	var fetchedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM stats_cache WHERE id = 1`,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("get stats cache: %w", err)
	}
	return []byte(payload), fetchedAt, true, nil
}
