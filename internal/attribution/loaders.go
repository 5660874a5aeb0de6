package attribution

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/model"
)

// timeLayouts are the accepted timestamp formats, tried in order. The visit
// log mixes bare dates with full timestamps depending on which app version
// exported it.
var timeLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("attribution: unparseable timestamp %q", s)
}

func inWindow(t time.Time, w model.AttendanceWindow) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(w.End.Year(), w.End.Month(), w.End.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}

// LoadAttendanceCSV reads a worker_id,date attendance trail and returns the
// number of distinct window days each worker filed an entry for. Entries
// outside the window and duplicate (worker, day) rows are dropped. A header
// row is skipped when the first field is not a usable record.
func LoadAttendanceCSV(path string, window model.AttendanceWindow) (map[string]int, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return nil, eris.Wrapf(err, "attribution: read attendance %s", path)
	}

	seen := make(map[string]bool)
	days := make(map[string]int)
	skipped := 0
	for _, row := range rows {
		worker := strings.TrimSpace(row[0])
		t, err := parseTime(row[1])
		if worker == "" || err != nil {
			skipped++
			continue
		}
		if !inWindow(t, window) {
			continue
		}
		key := worker + "|" + t.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		days[worker]++
	}

	zap.L().Debug("attendance trail loaded",
		zap.String("path", path),
		zap.Int("workers", len(days)),
		zap.Int("skipped_rows", skipped))
	return days, nil
}

// LoadVisitsCSV reads a worker_id,region,timestamp visit log, keeping only
// events inside the window. Row order is preserved: it is the encounter
// order the region tie-break depends on.
func LoadVisitsCSV(path string, window model.AttendanceWindow) ([]model.VisitEvent, error) {
	rows, err := readCSV(path, 3)
	if err != nil {
		return nil, eris.Wrapf(err, "attribution: read visit log %s", path)
	}

	var visits []model.VisitEvent
	skipped := 0
	for _, row := range rows {
		worker := strings.TrimSpace(row[0])
		region := strings.TrimSpace(row[1])
		t, err := parseTime(row[2])
		if worker == "" || err != nil {
			skipped++
			continue
		}
		if !inWindow(t, window) {
			continue
		}
		visits = append(visits, model.VisitEvent{
			WorkerID: worker,
			Region:   region,
			HeldAt:   t,
		})
	}

	zap.L().Debug("visit log loaded",
		zap.String("path", path),
		zap.Int("visits", len(visits)),
		zap.Int("skipped_rows", skipped))
	return visits, nil
}

// readCSV returns all rows with at least minFields fields, skipping a
// leading header row if its last expected field does not parse as a time.
func readCSV(path string, minFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < minFields {
			continue
		}
		if first {
			first = false
			if _, err := parseTime(row[minFields-1]); err != nil {
				continue // header
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
