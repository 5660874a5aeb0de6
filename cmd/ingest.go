package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sangam-labs/fieldops-cli/internal/fetcher"
	"github.com/sangam-labs/fieldops-cli/internal/hierarchy"
	"github.com/sangam-labs/fieldops-cli/internal/model"
	"github.com/sangam-labs/fieldops-cli/internal/region"
	"github.com/sangam-labs/fieldops-cli/internal/report"
)

var (
	ingestWorkbook string
	ingestOut      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Read tier rosters from a workbook and link the hierarchy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		reference, err := region.LoadReference(cfg.Regions.ReferencePath)
		if err != nil {
			return eris.Wrap(err, "load region reference")
		}
		regions, err := region.NewResolver(reference)
		if err != nil {
			return eris.Wrap(err, "build region resolver")
		}

		coordinators, err := fetchRoster(model.TierCoordinator, cfg.Ingest.CoordinatorSheet)
		if err != nil {
			return err
		}
		subLeaders, err := fetchRoster(model.TierSubLeader, cfg.Ingest.SubLeaderSheet)
		if err != nil {
			return err
		}
		members, err := fetchRoster(model.TierMember, cfg.Ingest.MemberSheet)
		if err != nil {
			return err
		}

		builder, err := hierarchy.NewBuilder(regions, cfg.Ingest.Workers)
		if err != nil {
			return eris.Wrap(err, "build hierarchy builder")
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		run, err := st.CreateRun(ctx, ingestWorkbook)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		graph, err := builder.Build(ctx, coordinators, subLeaders, members)
		if err != nil {
			_ = st.FailRun(ctx, run.ID)
			return eris.Wrap(err, "build hierarchy")
		}

		if err := st.SaveGraph(ctx, run.ID, graph); err != nil {
			_ = st.FailRun(ctx, run.ID)
			return eris.Wrap(err, "save graph")
		}
		if err := st.CompleteRun(ctx, run.ID, &graph.Summary); err != nil {
			return eris.Wrap(err, "complete run")
		}

		if ingestOut != "" {
			if err := report.WriteGraphXLSX(ingestOut, graph); err != nil {
				return eris.Wrap(err, "write graph workbook")
			}
		}

		zap.L().Info("ingest complete",
			zap.String("run", run.ID),
			zap.String("workbook", ingestWorkbook),
			zap.Int("linked", graph.Summary.Linked),
			zap.Int("conflicts", graph.Summary.Conflicts),
			zap.Int("skipped", graph.Summary.SkippedRows),
		)
		return nil
	},
}

// fetchRoster reads one tier's sheet with the default header synonyms,
// honoring a configured sheet name override.
func fetchRoster(tier model.Tier, sheetName string) ([]model.PersonRecord, error) {
	spec := fetcher.DefaultSheetSpec(tier)
	spec.XLSX.SheetName = sheetName

	records, stats, err := fetcher.FetchTier(ingestWorkbook, spec)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s roster", tier)
	}

	zap.L().Info("roster fetched",
		zap.String("tier", string(tier)),
		zap.Int("parsed", stats.Parsed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("filled_down", stats.FilledDown),
	)
	return records, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestWorkbook, "workbook", "", "path to roster XLSX workbook (required)")
	ingestCmd.Flags().StringVar(&ingestOut, "out", "", "optional path for a graph review workbook")
	_ = ingestCmd.MarkFlagRequired("workbook")
	rootCmd.AddCommand(ingestCmd)
}
