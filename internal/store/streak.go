package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type streakRepo struct {
	db *sql.DB
}

func (r *streakRepo) Get(ctx context.Context, reference string) (*VerseStreak, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT verse_reference, current_guess_streak, longest_guess_streak, last_guess_date
		 FROM verse_streaks WHERE verse_reference = ?`, reference,
	)
	vs, err := scanStreak(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verse streak: %w", err)
	}
	return vs, nil
}

func (r *streakRepo) All(ctx context.Context) ([]VerseStreak, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT verse_reference, current_guess_streak, longest_guess_streak, last_guess_date
		 FROM verse_streaks ORDER BY verse_reference`,
	)
	if err != nil {
		return nil, fmt.Errorf("list verse streaks: %w", err)
	}
	defer rows.Close()

	var streaks []VerseStreak
	for rows.Next() {
		vs, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verse streak: %w", err)
		}
		streaks = append(streaks, *vs)
	}
	return streaks, rows.Err()
}

func (r *streakRepo) Upsert(ctx context.Context, streak VerseStreak) error {
	var last any
	if streak.LastGuessDate != nil {
		last = streak.LastGuessDate.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verse_streaks (verse_reference, current_guess_streak, longest_guess_streak, last_guess_date)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (verse_reference) DO UPDATE SET
			current_guess_streak = excluded.current_guess_streak,
			longest_guess_streak = excluded.longest_guess_streak,
			last_guess_date = excluded.last_guess_date`,
		streak.VerseReference, streak.CurrentGuessStreak, streak.LongestGuessStreak, last,
	)
	if err != nil {
		return fmt.Errorf("upsert verse streak: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStreak(row rowScanner) (*VerseStreak, error) {
	var vs VerseStreak
	var last sql.NullTime
	if err := row.Scan(&vs.VerseReference, &vs.CurrentGuessStreak, &vs.LongestGuessStreak, &last); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		vs.LastGuessDate = &t
	}
	return &vs, nil
}
