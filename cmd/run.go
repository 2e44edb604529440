package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"versekeep/internal/achievement"
	"versekeep/internal/api"
	"versekeep/internal/app"
	"versekeep/internal/auth"
	"versekeep/internal/compat"
	"versekeep/internal/config"
	"versekeep/internal/dispatch"
	"versekeep/internal/guardian"
	"versekeep/internal/logger"
	"versekeep/internal/points"
	"versekeep/internal/practice"
	"versekeep/internal/store"
	"versekeep/internal/verses"
)

// tokenExpiry adapts the auth provider to the guardian's expiry source.
type tokenExpiry struct {
	provider *auth.Provider
}

func (t tokenExpiry) Expiry() time.Time {
	exp, _ := t.provider.Expiry()
	return exp
}

// runApp loads config, opens the store, builds the service graph, and
// launches the TUI.
func runApp(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	log, err := logger.New(cfg, dbPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tokens := auth.NewProvider(cfg.TokenPath)
	if !tokens.Authenticated() {
		fmt.Fprintln(os.Stderr, "Not signed in. Run: versekeep login")
		return errors.New("no active session")
	}

	client := api.New(cfg.APIBaseURL, tokens)

	ctx := context.Background()
	if err := compat.Check(ctx, client, version); err != nil {
		if errors.Is(err, compat.ErrClientTooOld) {
			return err
		}
		log.Warn("version check failed", zap.Error(err))
	}

	dispatcher := dispatch.New(client, tokens, nil, cfg.Debounce, cfg.BatchSize, log)
	defer dispatcher.Close()

	reconciler := points.New(client, st.Streaks(), st.Caches(), cfg.RefreshMinGap, log)
	if err := reconciler.LoadCached(ctx); err != nil {
		log.Warn("stats cache load failed", zap.Error(err))
	}

	verseSvc := verses.New(client, st.Ledger(), log)
	achievements := achievement.New(st.Achievements(), reconciler, log)
	progressSrc := practice.NewCachedProgress(client, st.Caches(), cfg.MasteryCacheTTL)

	guard := guardian.New(cfg.SessionTimeout, cfg.WarningWindow, tokenExpiry{tokens}, tokens, log)
	guard.OnExpire(func(ctx context.Context) error {
		dispatcher.Flush(ctx)
		return nil
	})
	guard.OnExpire(func(ctx context.Context) error {
		_, err := verseSvc.FlushPending(ctx)
		return err
	})

	return app.Run(app.Options{
		Verses:       verseSvc,
		Recorder:     st.RecordedWords(),
		Dispatcher:   dispatcher,
		Reconciler:   reconciler,
		ProgressSrc:  progressSrc,
		Achievements: achievements,
		Guardian:     guard,
		Logger:       log,
	})
}
