package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type recordedWordRepo struct {
	db *sql.DB
}

func (r *recordedWordRepo) Record(ctx context.Context, reference string, wordIndex int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO recorded_words (verse_reference, word_index, recorded_at)
		 VALUES (?, ?, ?)`,
		reference, wordIndex, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record word %s[%d]: %w", reference, wordIndex, err)
	}
	return nil
}

func (r *recordedWordRepo) Has(ctx context.Context, reference string, wordIndex int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recorded_words WHERE verse_reference = ? AND word_index = ?`,
		reference, wordIndex,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check recorded word: %w", err)
	}
	return n > 0, nil
}

func (r *recordedWordRepo) Indexes(ctx context.Context, reference string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT word_index FROM recorded_words WHERE verse_reference = ? ORDER BY word_index`,
		reference,
	)
	if err != nil {
		return nil, fmt.Errorf("list recorded words: %w", err)
	}
	defer rows.Close()

	var indexes []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan recorded word: %w", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (r *recordedWordRepo) DeleteAll(ctx context.Context, reference string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM recorded_words WHERE verse_reference = ?`, reference,
	)
	if err != nil {
		return fmt.Errorf("delete recorded words: %w", err)
	}
	return nil
}
