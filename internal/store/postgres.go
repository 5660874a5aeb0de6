package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sangam-labs/fieldops-cli/internal/db"
	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS nodes (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	id        TEXT NOT NULL,
	tier      TEXT NOT NULL,
	name      TEXT NOT NULL,
	phone_key TEXT NOT NULL,
	region    TEXT,
	parent_id TEXT,
	PRIMARY KEY (run_id, id)
);

CREATE TABLE IF NOT EXISTS links (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	child_id       TEXT NOT NULL,
	parent_id      TEXT NOT NULL,
	matched_by     TEXT NOT NULL,
	corrected      BOOLEAN NOT NULL DEFAULT false,
	corrected_from TEXT,
	candidates     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS conflicts (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	tier         TEXT NOT NULL,
	name         TEXT NOT NULL,
	raw_phone    TEXT,
	parent_phone TEXT,
	parent_name  TEXT,
	raw_region   TEXT,
	reason       TEXT NOT NULL,
	candidates   INTEGER NOT NULL DEFAULT 0,
	source_row   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	worker_id TEXT NOT NULL,
	region    TEXT NOT NULL,
	metrics   JSONB,
	PRIMARY KEY (run_id, worker_id, region)
);

CREATE TABLE IF NOT EXISTS attribution (
	run_id             TEXT NOT NULL REFERENCES runs(id),
	worker_id          TEXT NOT NULL,
	assigned_region    TEXT NOT NULL,
	status             TEXT NOT NULL,
	include_in_grading BOOLEAN NOT NULL DEFAULT false,
	should_be_red      BOOLEAN NOT NULL DEFAULT false,
	worked_region      TEXT,
	visit_count        INTEGER NOT NULL DEFAULT 0,
	attended_days      INTEGER NOT NULL DEFAULT 0,
	metrics            JSONB,
	PRIMARY KEY (run_id, worker_id, assigned_region)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_nodes_run_tier ON nodes(run_id, tier);
CREATE INDEX IF NOT EXISTS idx_links_run_child ON links(run_id, child_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_run ON conflicts(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, source, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	var r model.Run
	var summaryJSON []byte
	err := row.Scan(&r.ID, &r.Source, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(summaryJSON) > 0 && string(summaryJSON) != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, status, summary, created_at, updated_at FROM runs`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(summaryJSON) > 0 && string(summaryJSON) != "null" {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveGraph replaces the run's graph rows. Nodes, links, and conflicts go
// in via COPY, which keeps large workbook imports to a handful of round
// trips.
func (s *PostgresStore) SaveGraph(ctx context.Context, runID string, g *hierarchy.Graph) error {
	for _, table := range []string{"nodes", "links", "conflicts", "assignments"} {
		if _, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE run_id = $1`, runID); err != nil {
			return eris.Wrapf(err, "postgres: clear %s for run %s", table, runID)
		}
	}

	nodeRows := make([][]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeRows = append(nodeRows, []any{runID, n.ID, string(n.Tier), n.Name, string(n.PhoneKey), n.Region, n.ParentID})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "nodes",
		[]string{"run_id", "id", "tier", "name", "phone_key", "region", "parent_id"}, nodeRows); err != nil {
		return err
	}

	linkRows := make([][]any, 0, len(g.Links))
	for _, l := range g.Links {
		linkRows = append(linkRows, []any{runID, l.ChildID, l.ParentID, string(l.MatchedBy), l.Corrected, string(l.CorrectedFrom), l.AmbiguityCount})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "links",
		[]string{"run_id", "child_id", "parent_id", "matched_by", "corrected", "corrected_from", "candidates"}, linkRows); err != nil {
		return err
	}

	conflictRows := make([][]any, 0, len(g.Conflicts))
	for _, c := range g.Conflicts {
		conflictRows = append(conflictRows, []any{runID, string(c.Tier), c.Name, c.RawPhone,
			c.ParentRef.RawPhone, c.ParentRef.RawName, c.RawRegion, string(c.Reason), c.AmbiguityCount, c.SourceRow})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "conflicts",
		[]string{"run_id", "tier", "name", "raw_phone", "parent_phone", "parent_name", "raw_region", "reason", "candidates", "source_row"}, conflictRows); err != nil {
		return err
	}

	assignmentRows := make([][]any, 0, len(g.Assignments))
	for _, a := range g.Assignments {
		metricsJSON, err := json.Marshal(a.Metrics)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal assignment metrics")
		}
		assignmentRows = append(assignmentRows, []any{runID, a.WorkerID, a.Region, metricsJSON})
	}
	if _, err := db.CopyFrom(ctx, s.pool, "assignments",
		[]string{"run_id", "worker_id", "region", "metrics"}, assignmentRows); err != nil {
		return err
	}

	return nil
}

func (s *PostgresStore) ListConflicts(ctx context.Context, runID string) ([]model.ConflictEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tier, name, raw_phone, parent_phone, parent_name, raw_region, reason, candidates, source_row
		 FROM conflicts WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list conflicts")
	}
	defer rows.Close()

	var conflicts []model.ConflictEntry
	for rows.Next() {
		var c model.ConflictEntry
		var tier, reason string
		if err := rows.Scan(&tier, &c.Name, &c.RawPhone, &c.ParentRef.RawPhone, &c.ParentRef.RawName,
			&c.RawRegion, &reason, &c.AmbiguityCount, &c.SourceRow); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conflict")
		}
		c.Tier = model.Tier(tier)
		c.Reason = model.ConflictReason(reason)
		conflicts = append(conflicts, c)
	}
	return conflicts, eris.Wrap(rows.Err(), "postgres: list conflicts iterate")
}

func (s *PostgresStore) ListAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT worker_id, region, metrics FROM assignments WHERE run_id = $1 ORDER BY worker_id, region`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assignments")
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var metricsJSON []byte
		if err := rows.Scan(&a.WorkerID, &a.Region, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment")
		}
		if len(metricsJSON) > 0 && string(metricsJSON) != "null" {
			if err := json.Unmarshal(metricsJSON, &a.Metrics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal assignment metrics")
			}
		}
		assignments = append(assignments, a)
	}
	return assignments, eris.Wrap(rows.Err(), "postgres: list assignments iterate")
}

// SaveAttribution upserts attribution rows keyed by (run, worker, region),
// so re-running a report for the same window replaces its predecessor.
func (s *PostgresStore) SaveAttribution(ctx context.Context, runID string, results []model.AttributionResult) error {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		metricsJSON, err := json.Marshal(r.Metrics)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal attribution metrics")
		}
		rows = append(rows, []any{runID, r.WorkerID, r.AssignedRegion, string(r.Status),
			r.IncludeInGrading, r.ShouldBeRed, r.WorkedRegion, r.VisitCount, r.AttendedDays, metricsJSON})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "attribution",
		Columns: []string{"run_id", "worker_id", "assigned_region", "status",
			"include_in_grading", "should_be_red", "worked_region", "visit_count", "attended_days", "metrics"},
		ConflictKeys: []string{"run_id", "worker_id", "assigned_region"},
	}, rows)
	return err
}

func (s *PostgresStore) ListAttribution(ctx context.Context, runID string) ([]model.AttributionResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT worker_id, assigned_region, status, include_in_grading, should_be_red, worked_region, visit_count, attended_days, metrics
		 FROM attribution WHERE run_id = $1 ORDER BY worker_id, assigned_region`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list attribution")
	}
	defer rows.Close()

	var results []model.AttributionResult
	for rows.Next() {
		var r model.AttributionResult
		var status string
		var metricsJSON []byte
		if err := rows.Scan(&r.WorkerID, &r.AssignedRegion, &status, &r.IncludeInGrading, &r.ShouldBeRed,
			&r.WorkedRegion, &r.VisitCount, &r.AttendedDays, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan attribution")
		}
		r.Status = model.AttributionStatus(status)
		if len(metricsJSON) > 0 && string(metricsJSON) != "null" {
			if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal attribution metrics")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list attribution iterate")
}
