// Package postgresql provides PostgreSQL persistence for workflow documents.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // database/sql driver "postgres"
	"github.com/ryxhub/flowengine/pkg/persistence"
	"github.com/ryxhub/flowengine/pkg/persistence/sqlbase"
)

// Persistence stores workflow documents in PostgreSQL. The document queries live on the
// embedded WorkflowRepository.
type Persistence struct {
	*WorkflowRepository

	db *sql.DB
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to databaseURL, pings it and brings the schema to the latest version.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	logger = logger.With("module", "postgresql")

	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		WorkflowRepository: NewWorkflowRepository(database, logger),
		db:                 database,
	}, nil
}

func open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
