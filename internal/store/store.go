// Package store persists reconciliation runs and their outputs. Two
// backends exist: SQLite for single-operator use and PostgreSQL for shared
// deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the reconciliation pipeline.
// SaveGraph and SaveAttribution are idempotent per run: saving again
// replaces the run's previous rows.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Graph
	SaveGraph(ctx context.Context, runID string, g *hierarchy.Graph) error
	ListConflicts(ctx context.Context, runID string) ([]model.ConflictEntry, error)
	ListAssignments(ctx context.Context, runID string) ([]model.Assignment, error)

	// Attribution
	SaveAttribution(ctx context.Context, runID string, results []model.AttributionResult) error
	ListAttribution(ctx context.Context, runID string) ([]model.AttributionResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a store for the configured driver. An empty driver selects
// SQLite.
func New(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
