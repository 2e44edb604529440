package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"versekeep/internal/api"
	"versekeep/internal/auth"
	"versekeep/internal/config"
	"versekeep/internal/logger"
	"versekeep/internal/store"
	"versekeep/internal/verses"
)

// cliDeps is the service graph shared by the non-TUI subcommands.
type cliDeps struct {
	cfg    *config.Config
	store  *store.Store
	tokens *auth.Provider
	client *api.Client
	log    *zap.Logger
}

func buildDeps(cmd *cobra.Command) (*cliDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	log, err := logger.New(cfg, dbPath)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	tokens := auth.NewProvider(cfg.TokenPath)
	client := api.New(cfg.APIBaseURL, tokens)

	deps := &cliDeps{cfg: cfg, store: st, tokens: tokens, client: client, log: log}
	cleanup := func() {
		_ = log.Sync()
		st.Close()
	}
	return deps, cleanup, nil
}

func buildVerseService(cmd *cobra.Command) (*verses.Service, func(), error) {
	deps, cleanup, err := buildDeps(cmd)
	if err != nil {
		return nil, nil, err
	}
	return verses.New(deps.client, deps.store.Ledger(), deps.log), cleanup, nil
}
