package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/attribution"
	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/report"
)

var (
	attributeRunID      string
	attributeStart      string
	attributeEnd        string
	attributeAttendance string
	attributeVisits     string
	attributeOut        string
)

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Classify each worker's window activity against their assigned regions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if attributeAttendance != "" {
			cfg.Attribution.AttendancePath = attributeAttendance
		}
		if attributeVisits != "" {
			cfg.Attribution.VisitsPath = attributeVisits
		}
		if err := cfg.Validate("attribute"); err != nil {
			return err
		}

		window, err := parseWindow(attributeStart, attributeEnd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		if _, err := st.GetRun(ctx, attributeRunID); err != nil {
			return eris.Wrapf(err, "look up run %s", attributeRunID)
		}

		assignments, err := st.ListAssignments(ctx, attributeRunID)
		if err != nil {
			return eris.Wrap(err, "list assignments")
		}
		if len(assignments) == 0 {
			return eris.Errorf("run %s has no assignments; ingest first", attributeRunID)
		}

		attendedDays, err := attribution.LoadAttendanceCSV(cfg.Attribution.AttendancePath, window)
		if err != nil {
			return eris.Wrap(err, "load attendance")
		}
		visits, err := attribution.LoadVisitsCSV(cfg.Attribution.VisitsPath, window)
		if err != nil {
			return eris.Wrap(err, "load visits")
		}

		results, err := attribution.NewEngine().Attribute(window, assignments, attendedDays, visits)
		if err != nil {
			return eris.Wrap(err, "attribute")
		}

		if err := st.SaveAttribution(ctx, attributeRunID, results); err != nil {
			return eris.Wrap(err, "save attribution")
		}

		if attributeOut != "" {
			f, err := os.Create(attributeOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", attributeOut)
			}
			defer f.Close()
			if err := report.WriteAttributionCSV(f, results); err != nil {
				return eris.Wrap(err, "write attribution csv")
			}
		}

		zap.L().Info("attribution complete",
			zap.String("run", attributeRunID),
			zap.Int("pairs", len(results)),
			zap.Int("window_days", window.Days()),
		)
		return nil
	},
}

// parseWindow builds and validates the report window from two YYYY-MM-DD
// dates.
func parseWindow(start, end string) (model.AttendanceWindow, error) {
	var w model.AttendanceWindow

	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return w, eris.Wrapf(err, "parse --start %q", start)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return w, eris.Wrapf(err, "parse --end %q", end)
	}

	w = model.AttendanceWindow{Start: s, End: e}
	if err := w.Validate(); err != nil {
		return w, err
	}
	return w, nil
}

func init() {
	attributeCmd.Flags().StringVar(&attributeRunID, "run", "", "run ID to attribute (required)")
	attributeCmd.Flags().StringVar(&attributeStart, "start", "", "window start date, YYYY-MM-DD (required)")
	attributeCmd.Flags().StringVar(&attributeEnd, "end", "", "window end date, YYYY-MM-DD (required)")
	attributeCmd.Flags().StringVar(&attributeAttendance, "attendance", "", "attendance CSV path (overrides config)")
	attributeCmd.Flags().StringVar(&attributeVisits, "visits", "", "visit log CSV path (overrides config)")
	attributeCmd.Flags().StringVar(&attributeOut, "out", "", "optional path for an attribution CSV")
	_ = attributeCmd.MarkFlagRequired("run")
	_ = attributeCmd.MarkFlagRequired("start")
	_ = attributeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(attributeCmd)
}
