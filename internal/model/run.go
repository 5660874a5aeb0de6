package model

import "time"

// RunStatus represents the current state of a reconciliation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single pipeline execution over one workbook. Runs are
// idempotent: re-running the same inputs replaces nothing in place, it
// produces a new run with its own graph and ledger.
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"` // workbook path or label
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the per-run reconciliation counters that the original
// sheet operators review before accepting an import.
type RunSummary struct {
	Coordinators int `json:"coordinators"`
	SubLeaders   int `json:"subleaders"`
	Members      int `json:"members"`
	Linked       int `json:"linked"`
	PhoneMatches int `json:"phone_matches"`
	NameMatches  int `json:"name_matches"`
	Corrected    int `json:"corrected"` // fuzzy phone fixes
	Conflicts    int `json:"conflicts"`
	SkippedRows  int `json:"skipped_rows"`
}
