package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"versekeep/internal/config"
	"versekeep/internal/store"
)

// New builds a file-backed logger next to the database. The TUI owns the
// terminal, so nothing is ever written to stdout/stderr.
func New(cfg *config.Config, dbPath string) (*zap.Logger, error) {
	logPath := filepath.Join(filepath.Dir(dbPath), "versekeep.log")
	if err := store.EnsureDir(logPath); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}

	var zcfg zap.Config
	if cfg.Env == "prod" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.OutputPaths = []string{logPath}
	zcfg.ErrorOutputPaths = []string{logPath}

	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
