package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/report"
)

var (
	conflictsRunID string
	conflictsOut   string
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Export a run's unresolved records for manual review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		conflicts, err := st.ListConflicts(ctx, conflictsRunID)
		if err != nil {
			return eris.Wrap(err, "list conflicts")
		}

		var w io.Writer = os.Stdout
		if conflictsOut != "" {
			f, err := os.Create(conflictsOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", conflictsOut)
			}
			defer f.Close()
			w = f
		}

		if err := report.WriteConflictsCSV(w, conflicts); err != nil {
			return eris.Wrap(err, "write conflicts csv")
		}

		zap.L().Info("conflicts exported",
			zap.String("run", conflictsRunID),
			zap.Int("conflicts", len(conflicts)),
		)
		return nil
	},
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsRunID, "run", "", "run ID (required)")
	conflictsCmd.Flags().StringVar(&conflictsOut, "out", "", "output CSV path (default stdout)")
	_ = conflictsCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(conflictsCmd)
}
