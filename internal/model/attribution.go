package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// AttendanceWindow is the inclusive date range over which attendance and
// visit activity are aggregated for a report.
type AttendanceWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days the window spans, inclusive.
// Timestamps are truncated to UTC dates first so partial days count whole.
func (w AttendanceWindow) Days() int {
	start := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Validate rejects windows that cannot bound a report. A zero-day window is
// caller misconfiguration and fails the run before any per-pair work starts.
func (w AttendanceWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return eris.New("attendance window: start and end are required")
	}
	if w.Days() <= 0 {
		return eris.Errorf("attendance window: end %s before start %s",
			w.End.Format("2006-01-02"), w.Start.Format("2006-01-02"))
	}
	return nil
}

// VisitEvent is one field visit or meeting, as handed over by the visit-log
// reader: who held it and in which region.
type VisitEvent struct {
	WorkerID string    `json:"worker_id"`
	Region   string    `json:"region"`
	HeldAt   time.Time `json:"held_at,omitempty"`
}

// AttributionStatus is the terminal classification of a (worker, region)
// pair for a window. Exactly one status applies per pair per run.
type AttributionStatus string

const (
	// StatusUnavailable: the worker filed an attendance entry for every
	// calendar day of the window, which in this data encodes leave.
	StatusUnavailable AttributionStatus = "unavailable"
	// StatusWorkedHere: the worker's dominant visit region equals the
	// assigned region; the pair counts toward performance grading.
	StatusWorkedHere AttributionStatus = "worked_here"
	// StatusWorkedElsewhere: the worker was active in a different assigned
	// region; shown with metrics preserved but excluded from grading.
	StatusWorkedElsewhere AttributionStatus = "worked_elsewhere"
	// StatusNoActivitySingle / StatusNoActivityMulti: no visits anywhere in
	// the window, split by how many regions the worker is assigned to.
	StatusNoActivitySingle AttributionStatus = "no_activity_single_region"
	StatusNoActivityMulti  AttributionStatus = "no_activity_multi_region"
)

// AttributionResult is the classification of one (worker, assignedRegion)
// pair for one window. Created fresh per report run, never carried across.
type AttributionResult struct {
	WorkerID         string            `json:"worker_id"`
	AssignedRegion   string            `json:"assigned_region"`
	Status           AttributionStatus `json:"status"`
	IncludeInGrading bool              `json:"include_in_grading"`
	ShouldBeRed      bool              `json:"should_be_red"`
	WorkedRegion     string            `json:"worked_region,omitempty"` // empty when none detected
	VisitCount       int               `json:"visit_count"`
	AttendedDays     int               `json:"attended_days"`
	Metrics          map[string]int    `json:"metrics,omitempty"`
}
