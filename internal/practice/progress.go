package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"versekeep/internal/api"
	"versekeep/internal/store"
)

// MasteryAPI is the server side of mastery progress.
type MasteryAPI interface {
	GetMasteryProgress(ctx context.Context, reference string) (api.MasteryProgress, error)
	PostVerseAttempt(ctx context.Context, attempt api.VerseAttempt) (api.AttemptResult, error)
}

// CachedProgress serves mastery progress from the local cache when it is
// fresh enough, falling back to the server otherwise. Attempt submissions
// always refetch so the next message reflects the new attempt.
type CachedProgress struct {
	api   MasteryAPI
	cache store.CacheRepo
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedProgress wires the mastery progress source. ttl bounds cache age.
func NewCachedProgress(apiClient MasteryAPI, cache store.CacheRepo, ttl time.Duration) *CachedProgress {
	return &CachedProgress{
		api:   apiClient,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetClock overrides the clock (tests).
func (p *CachedProgress) SetClock(now func() time.Time) {
	p.now = now
}

// Progress returns mastery progress, served from cache when younger than the
// TTL. A fetch failure with a stale cache still fails; staleness beyond the
// TTL is not acceptable for mastery decisions.
func (p *CachedProgress) Progress(ctx context.Context, reference string) (api.MasteryProgress, error) {
	payload, fetchedAt, ok, err := p.cache.GetMastery(ctx, reference)
	if err != nil {
		return api.MasteryProgress{}, fmt.Errorf("read mastery cache: %w", err)
	}
	if ok && p.now().Sub(fetchedAt) < p.ttl {
		var mp api.MasteryProgress
		if err := json.Unmarshal(payload, &mp); err == nil {
			return mp, nil
		}
		// Corrupt cache entry falls through to a refetch.
	}
	return p.refresh(ctx, reference)
}

// SubmitAttempt posts the attempt and fetches fresh progress, bypassing the
// cache so the result reflects the attempt just made.
func (p *CachedProgress) SubmitAttempt(ctx context.Context, attempt api.VerseAttempt) (api.AttemptResult, api.MasteryProgress, error) {
	result, err := p.api.PostVerseAttempt(ctx, attempt)
	if err != nil {
		return api.AttemptResult{}, api.MasteryProgress{}, err
	}
	mp, err := p.refresh(ctx, attempt.VerseReference)
	if err != nil {
		return result, api.MasteryProgress{}, err
	}
	return result, mp, nil
}

func (p *CachedProgress) refresh(ctx context.Context, reference string) (api.MasteryProgress, error) {
	mp, err := p.api.GetMasteryProgress(ctx, reference)
	if err != nil {
		return api.MasteryProgress{}, err
	}
	if payload, merr := json.Marshal(mp); merr == nil {
		// Cache write failures are not fatal; the server copy is in hand.
		_ = p.cache.PutMastery(ctx, reference, payload, p.now())
	}
	return mp, nil
}
