package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	corrected      INTEGER NOT NULL DEFAULT 0,
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
	metrics   TEXT,
	PRIMARY KEY (run_id, worker_id, region)
);

CREATE TABLE IF NOT EXISTS attribution (
	run_id             TEXT NOT NULL REFERENCES runs(id),
	worker_id          TEXT NOT NULL,
	assigned_region    TEXT NOT NULL,
	status             TEXT NOT NULL,
	include_in_grading INTEGER NOT NULL DEFAULT 0,
	should_be_red      INTEGER NOT NULL DEFAULT 0,
	worked_region      TEXT,
	visit_count        INTEGER NOT NULL DEFAULT 0,
	attended_days      INTEGER NOT NULL DEFAULT 0,
	metrics            TEXT,
	PRIMARY KEY (run_id, worker_id, assigned_region)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_nodes_run_tier ON nodes(run_id, tier);
CREATE INDEX IF NOT EXISTS idx_links_run_child ON links(run_id, child_id);
CREATE INDEX IF NOT EXISTS idx_conflicts_run ON conflicts(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, source, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveGraph(ctx context.Context, runID string, g *hierarchy.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save graph")
	}
	defer tx.Rollback()

	for _, table := range []string{"nodes", "links", "conflicts", "assignments"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s for run %s", table, runID)
		}
	}

	for _, n := range g.Nodes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (run_id, id, tier, name, phone_key, region, parent_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, n.ID, string(n.Tier), n.Name, string(n.PhoneKey), n.Region, n.ParentID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert node %s", n.ID)
		}
	}

	for _, l := range g.Links {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO links (run_id, child_id, parent_id, matched_by, corrected, corrected_from, candidates) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, l.ChildID, l.ParentID, string(l.MatchedBy), l.Corrected, string(l.CorrectedFrom), l.AmbiguityCount,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert link %s", l.ChildID)
		}
	}

	for _, c := range g.Conflicts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conflicts (run_id, tier, name, raw_phone, parent_phone, parent_name, raw_region, reason, candidates, source_row)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, string(c.Tier), c.Name, c.RawPhone, c.ParentRef.RawPhone, c.ParentRef.RawName,
			c.RawRegion, string(c.Reason), c.AmbiguityCount, c.SourceRow,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert conflict")
		}
	}

	for _, a := range g.Assignments {
		metricsJSON, err := json.Marshal(a.Metrics)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal assignment metrics")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO assignments (run_id, worker_id, region, metrics) VALUES (?, ?, ?, ?)`,
			runID, a.WorkerID, a.Region, string(metricsJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert assignment %s", a.WorkerID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save graph")
}

func (s *SQLiteStore) ListConflicts(ctx context.Context, runID string) ([]model.ConflictEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tier, name, raw_phone, parent_phone, parent_name, raw_region, reason, candidates, source_row
		 FROM conflicts WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list conflicts")
	}
	defer rows.Close()

	var conflicts []model.ConflictEntry
	for rows.Next() {
		var c model.ConflictEntry
		var tier, reason string
		if err := rows.Scan(&tier, &c.Name, &c.RawPhone, &c.ParentRef.RawPhone, &c.ParentRef.RawName,
			&c.RawRegion, &reason, &c.AmbiguityCount, &c.SourceRow); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan conflict")
		}
		c.Tier = model.Tier(tier)
		c.Reason = model.ConflictReason(reason)
		conflicts = append(conflicts, c)
	}
	return conflicts, eris.Wrap(rows.Err(), "sqlite: list conflicts iterate")
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, runID string) ([]model.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT worker_id, region, metrics FROM assignments WHERE run_id = ? ORDER BY worker_id, region`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var metricsJSON sql.NullString
		if err := rows.Scan(&a.WorkerID, &a.Region, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		if metricsJSON.Valid && metricsJSON.String != "null" {
			if err := json.Unmarshal([]byte(metricsJSON.String), &a.Metrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal assignment metrics")
			}
		}
		assignments = append(assignments, a)
	}
	return assignments, eris.Wrap(rows.Err(), "sqlite: list assignments iterate")
}

func (s *SQLiteStore) SaveAttribution(ctx context.Context, runID string, results []model.AttributionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save attribution")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attribution WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear attribution for run %s", runID)
	}

	for _, r := range results {
		metricsJSON, err := json.Marshal(r.Metrics)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal attribution metrics")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attribution (run_id, worker_id, assigned_region, status, include_in_grading, should_be_red, worked_region, visit_count, attended_days, metrics)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.WorkerID, r.AssignedRegion, string(r.Status), r.IncludeInGrading, r.ShouldBeRed,
			r.WorkedRegion, r.VisitCount, r.AttendedDays, string(metricsJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert attribution %s", r.WorkerID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save attribution")
}

func (s *SQLiteStore) ListAttribution(ctx context.Context, runID string) ([]model.AttributionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT worker_id, assigned_region, status, include_in_grading, should_be_red, worked_region, visit_count, attended_days, metrics
		 FROM attribution WHERE run_id = ? ORDER BY worker_id, assigned_region`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list attribution")
	}
	defer rows.Close()

	var results []model.AttributionResult
	for rows.Next() {
		var r model.AttributionResult
		var status string
		var metricsJSON sql.NullString
		if err := rows.Scan(&r.WorkerID, &r.AssignedRegion, &status, &r.IncludeInGrading, &r.ShouldBeRed,
			&r.WorkedRegion, &r.VisitCount, &r.AttendedDays, &metricsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attribution")
		}
		r.Status = model.AttributionStatus(status)
		if metricsJSON.Valid && metricsJSON.String != "null" {
			if err := json.Unmarshal([]byte(metricsJSON.String), &r.Metrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal attribution metrics")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list attribution iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Source, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid && summaryJSON.String != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
