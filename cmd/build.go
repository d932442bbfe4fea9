package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/ingest"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/pathlen"
	"github.com/agentic-research/hydronet/internal/traverse"
)

var (
	buildPointsPath string
	buildStarts     []int64
	buildModes      []string
)

var buildCmd = &cobra.Command{
	Use:   "build [source] [output.db]",
	Short: "Build a hydronet SQLite database from a flowline source",
	Long: `Build validates the network in source and writes its segments and path
lengths to output.db. --points adds a gages table joined with path lengths.
Every --start is navigated in each --mode and stored in the traversals table.
The database can then be used as the source of the other commands.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := args[1]

		n, err := loadNetwork(source)
		if err != nil {
			return err
		}
		lengths, err := pathlen.ComputePathLengths(n)
		if err != nil {
			return err
		}

		modes := buildModes
		if len(modes) == 0 {
			modes = []string{traverse.UpstreamTributaries.Code()}
		}
		var results []*traverse.Result
		for _, m := range modes {
			rs, err := membershipResults(n, buildStarts, m, false, 0)
			if err != nil {
				return err
			}
			results = append(results, rs...)
		}

		// Setup Writer
		if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("overwrite %s: %w", output, err)
		}
		writer, err := ingest.NewSQLiteWriter(output)
		if err != nil {
			return err
		}
		defer func() { _ = writer.Close() }()

		start := time.Now()
		log.Infow("building", "output", output, "source", source, "run", writer.RunID())

		if err := writer.WriteSegments(n); err != nil {
			return fmt.Errorf("write segments: %w", err)
		}
		if err := writer.WritePathLengths(lengths); err != nil {
			return fmt.Errorf("write path lengths: %w", err)
		}
		for _, r := range results {
			if err := writer.WriteTraversal(r); err != nil {
				return fmt.Errorf("write traversal from %d: %w", r.Start, err)
			}
		}
		if buildPointsPath != "" {
			gages, err := joinPoints(buildPointsPath, lengths, results)
			if err != nil {
				return err
			}
			if err := writer.WriteTable(ingest.GagesTable, gages); err != nil {
				return fmt.Errorf("write gages: %w", err)
			}
		}
		if err := writer.Close(); err != nil {
			return err
		}

		log.Infow("build complete", "output", output, "segments", n.Len(), "traversals", len(results), "elapsed", time.Since(start))
		return write(cmd.OutOrStdout(), map[string]any{
			"run_id":   writer.RunID(),
			"output":   output,
			"segments": n.Len(),
			"summary":  pathlen.Summarize(lengths),
		})
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildPointsPath, "points", "p", "", "Point features to join and store as the gages table")
	f.Int64SliceVar(&buildStarts, "start", nil, "Navigate from this segment and store the result (repeatable)")
	f.StringSliceVarP(&buildModes, "mode", "m", nil, "Modes to navigate for every --start (default UT)")
	rootCmd.AddCommand(buildCmd)
}
