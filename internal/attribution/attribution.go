// Package attribution classifies (worker, region) pairs for a reporting
// window by combining the attendance trail with the visit log.
//
// The attendance signal is inverted relative to what the name suggests: in
// this data an attendance entry is filed on a day OFF, so a worker with an
// entry for every day of the window was away the whole window, while missing
// days mean the worker was in the field at least part of it.
package attribution

import (
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// UnavailableFor is the leave policy: a worker is unavailable for the window
// only when the attendance trail covers every calendar day of it.
func UnavailableFor(attendedDays, windowDays int) bool {
	return windowDays > 0 && attendedDays >= windowDays
}

// RegionTieBreak picks between two regions tied on visit count.
type RegionTieBreak func(current, candidate string) string

// FirstSeenRegion is the default tie-break: the region first encountered in
// visit-log order keeps the lead. Arbitrary but deterministic.
func FirstSeenRegion(current, _ string) string { return current }

// Engine classifies worker activity for one window.
type Engine struct {
	tieBreak RegionTieBreak
}

// NewEngine returns an engine with the default first-seen region tie-break.
func NewEngine() *Engine {
	return &Engine{tieBreak: FirstSeenRegion}
}

// WithTieBreak returns a copy of the engine using an alternate tie-break.
func (e *Engine) WithTieBreak(tb RegionTieBreak) *Engine {
	cp := *e
	cp.tieBreak = tb
	return &cp
}

// workedRegion reduces a worker's visits to the single region they are
// deemed to have worked in: the region with the most visits, ties broken by
// the engine's policy over encounter order.
func (e *Engine) workedRegion(visits []model.VisitEvent) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, v := range visits {
		if v.Region == "" {
			continue
		}
		if _, seen := counts[v.Region]; !seen {
			order = append(order, v.Region)
		}
		counts[v.Region]++
	}

	var winner string
	var best int
	for _, region := range order {
		switch {
		case counts[region] > best:
			winner = region
			best = counts[region]
		case counts[region] == best && winner != "":
			winner = e.tieBreak(winner, region)
		}
	}
	return winner, best
}

// Attribute classifies every assignment for the window. attendedDays maps
// worker ID to the number of window days with an attendance entry; visits is
// the window-filtered visit log. Every input assignment yields exactly one
// result, in input order.
//
// Status rules per (worker, region) pair:
//   - attendance covers the full window: unavailable, metrics zeroed, out
//     of grading
//   - visits exist and the dominant region is this one: worked_here, graded
//   - visits exist elsewhere: worked_elsewhere, metrics kept, not graded
//   - no visits at all: no_activity (single or multi region), graded and
//     flagged red
func (e *Engine) Attribute(window model.AttendanceWindow, assignments []model.Assignment, attendedDays map[string]int, visits []model.VisitEvent) ([]model.AttributionResult, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	windowDays := window.Days()

	visitsByWorker := make(map[string][]model.VisitEvent)
	for _, v := range visits {
		visitsByWorker[v.WorkerID] = append(visitsByWorker[v.WorkerID], v)
	}

	regionsByWorker := make(map[string]int)
	for _, a := range assignments {
		regionsByWorker[a.WorkerID]++
	}

	results := make([]model.AttributionResult, 0, len(assignments))
	for _, a := range assignments {
		attended := attendedDays[a.WorkerID]
		res := model.AttributionResult{
			WorkerID:       a.WorkerID,
			AssignedRegion: a.Region,
			AttendedDays:   attended,
			Metrics:        copyMetrics(a.Metrics),
		}

		if UnavailableFor(attended, windowDays) {
			res.Status = model.StatusUnavailable
			res.Metrics = zeroMetrics(a.Metrics)
			results = append(results, res)
			continue
		}

		worked, count := e.workedRegion(visitsByWorker[a.WorkerID])
		switch {
		case worked == "":
			if regionsByWorker[a.WorkerID] > 1 {
				res.Status = model.StatusNoActivityMulti
			} else {
				res.Status = model.StatusNoActivitySingle
			}
			res.IncludeInGrading = true
			res.ShouldBeRed = true
		case worked == a.Region:
			res.Status = model.StatusWorkedHere
			res.WorkedRegion = worked
			res.VisitCount = count
			res.IncludeInGrading = true
		default:
			res.Status = model.StatusWorkedElsewhere
			res.WorkedRegion = worked
			res.VisitCount = count
		}
		results = append(results, res)
	}

	tally := make(map[model.AttributionStatus]int)
	for _, r := range results {
		tally[r.Status]++
	}
	zap.L().Info("attribution complete",
		zap.Int("pairs", len(results)),
		zap.Int("window_days", windowDays),
		zap.Int("unavailable", tally[model.StatusUnavailable]),
		zap.Int("worked_here", tally[model.StatusWorkedHere]),
		zap.Int("worked_elsewhere", tally[model.StatusWorkedElsewhere]),
		zap.Int("no_activity", tally[model.StatusNoActivitySingle]+tally[model.StatusNoActivityMulti]))

	return results, nil
}

func copyMetrics(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// zeroMetrics keeps the metric keys visible in the report while erasing the
// values, the documented rendering for workers on leave.
func zeroMetrics(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k := range m {
		out[k] = 0
	}
	return out
}
