package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type achievementRepo struct {
	db *sql.DB
}

func (r *achievementRepo) Put(ctx context.Context, rec AchievementRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO achievement (id, streak, achieved_at, shared, share_count)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			streak = excluded.streak,
			achieved_at = excluded.achieved_at,
			shared = excluded.shared,
			share_count = excluded.share_count`,
		rec.Streak, rec.AchievedAt.UTC(), boolToInt(rec.Shared), rec.ShareCount,
	)
	if err != nil {
		return fmt.Errorf("put achievement: %w", err)
	}
	return nil
}

func (r *achievementRepo) Get(ctx context.Context) (*AchievementRecord, error) {
	var rec AchievementRecord
	var shared int
	err := r.db.QueryRowContext(ctx,
		`SELECT streak, achieved_at, shared, share_count FROM achievement WHERE id = 1`,
	).Scan(&rec.Streak, &rec.AchievedAt, &shared, &rec.ShareCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement: %w", err)
	}
	rec.Shared = shared != 0
	return &rec, nil
}

func (r *achievementRepo) Take(ctx context.Context) (*AchievementRecord, error) {
	rec, err := r.Get(ctx)
	if err != nil || rec == nil {
		return rec, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM achievement WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("take achievement: %w", err)
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
