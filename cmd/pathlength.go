package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/pathlen"
)

var (
	plSummaryOnly bool
)

type pathLengthReport struct {
	Summary pathlen.Stats    `json:"summary"`
	Lengths []map[string]any `json:"lengths,omitempty"`
}

var pathLengthCmd = &cobra.Command{
	Use:   "pathlength [source]",
	Short: "Compute the distance from every segment to its outlet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		lengths, err := pathlen.ComputePathLengths(n)
		if err != nil {
			return err
		}

		report := pathLengthReport{Summary: pathlen.Summarize(lengths)}
		if !plSummaryOnly {
			report.Lengths = pathlen.Table(lengths).Records()
		}
		return write(cmd.OutOrStdout(), report)
	},
}

func init() {
	pathLengthCmd.Flags().BoolVar(&plSummaryOnly, "summary", false, "Print only the summary statistics")
	rootCmd.AddCommand(pathLengthCmd)
}
