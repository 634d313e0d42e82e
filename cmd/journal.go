// File: cmd/journal.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/config"
	"github.com/xkilldash9x/hometax-cli/internal/orchestrator"
	"github.com/xkilldash9x/hometax-cli/internal/store"
)

// journal is the part of the run store the commands use.
type journal interface {
	SaveRun(ctx context.Context, meta store.RunMeta, res *orchestrator.Result) error
	RecentRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
}

// journalProvider opens the run journal. It is injected so commands can be
// tested without a database.
type journalProvider interface {
	// Open returns the journal and a cleanup function releasing its resources.
	Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (journal, func(), error)
}

type pgJournalProvider struct{}

// NewJournalProvider returns the PostgreSQL backed provider.
func NewJournalProvider() journalProvider {
	return pgJournalProvider{}
}

func (pgJournalProvider) Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (journal, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (HOMETAX_DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}
