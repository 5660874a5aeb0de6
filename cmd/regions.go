package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sangam-labs/fieldops-cli/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions [raw name...]",
	Short: "Resolve raw region names against the reference list",
	Long:  "Sanity-check how free-text region names from a workbook will resolve before running a full ingest.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Regions.ReferencePath == "" {
			return eris.New("region reference path is required (FIELDOPS_REGIONS_REFERENCE_PATH)")
		}

		reference, err := region.LoadReference(cfg.Regions.ReferencePath)
		if err != nil {
			return eris.Wrap(err, "load region reference")
		}
		resolver, err := region.NewResolver(reference)
		if err != nil {
			return eris.Wrap(err, "build region resolver")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INPUT\tRESOLVED\tSCORE\tTIER")
		for _, raw := range args {
			m := resolver.Resolve(raw)
			resolved := m.Region
			if resolved == "" {
				resolved = "(unmatched)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", raw, resolved, m.Score, m.Tier)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
