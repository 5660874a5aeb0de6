// Package report renders run outputs for humans: conflict remediation
// sheets, attribution reports, and a full graph workbook.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sangam-labs/fieldops-cli/internal/model"
)

var conflictHeader = []string{
	"tier", "name", "phone", "parent_phone", "parent_name",
	"region", "reason", "candidates", "source_row",
}

// WriteConflictsCSV writes the conflict remediation sheet. Row order is the
// order conflicts were recorded, which follows the source sheets.
func WriteConflictsCSV(w io.Writer, conflicts []model.ConflictEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(conflictHeader); err != nil {
		return eris.Wrap(err, "report: write conflicts header")
	}
	for _, c := range conflicts {
		row := []string{
			string(c.Tier),
			c.Name,
			c.RawPhone,
			c.ParentRef.RawPhone,
			c.ParentRef.RawName,
			c.RawRegion,
			string(c.Reason),
			strconv.Itoa(c.AmbiguityCount),
			strconv.Itoa(c.SourceRow),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write conflict row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush conflicts")
}

var attributionHeader = []string{
	"worker_id", "assigned_region", "status", "include_in_grading",
	"should_be_red", "worked_region", "visit_count", "attended_days",
}

// WriteAttributionCSV writes one row per (worker, region) pair in result
// order.
func WriteAttributionCSV(w io.Writer, results []model.AttributionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(attributionHeader); err != nil {
		return eris.Wrap(err, "report: write attribution header")
	}
	for _, r := range results {
		row := []string{
			r.WorkerID,
			r.AssignedRegion,
			string(r.Status),
			strconv.FormatBool(r.IncludeInGrading),
			strconv.FormatBool(r.ShouldBeRed),
			r.WorkedRegion,
			strconv.Itoa(r.VisitCount),
			strconv.Itoa(r.AttendedDays),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write attribution row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush attribution")
}
