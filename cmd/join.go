package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/ingest"
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/pathlen"
	"github.com/agentic-research/hydronet/internal/traverse"
)

var (
	joinPointsPath string
	joinStarts     []int64
	joinMode       string
	joinDistance   float64
)

var joinCmd = &cobra.Command{
	Use:   "join [source]",
	Short: "Attach path lengths and traversal membership to point features",
	Long: `Join loads point features (gages) already snapped to segments and
left-joins each one with the path length of its segment. With --start, a
membership column per start segment marks the points reached by --mode.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if joinPointsPath == "" {
			return fmt.Errorf("--points is required")
		}
		n, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		lengths, err := pathlen.ComputePathLengths(n)
		if err != nil {
			return err
		}

		var members []*traverse.Result
		if len(joinStarts) > 0 {
			if members, err = membershipResults(n, joinStarts, joinMode, cmd.Flags().Changed("distance"), joinDistance); err != nil {
				return err
			}
		}

		out, err := joinPoints(joinPointsPath, lengths, members)
		if err != nil {
			return err
		}
		return write(cmd.OutOrStdout(), out.Records())
	},
}

func membershipResults(n *network.Network, starts []int64, modeName string, bounded bool, distance float64) ([]*traverse.Result, error) {
	mode, err := traverse.ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	opts, err := traverseOptions()
	if err != nil {
		return nil, err
	}
	if bounded {
		opts = append(opts, traverse.WithMaxDistance(distance))
	}
	results := make([]*traverse.Result, 0, len(starts))
	for _, s := range starts {
		r, err := traverse.Navigate(n, s, mode, opts...)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// membershipColumn names the column marking points reached from r, e.g. "ut_1234".
func membershipColumn(r *traverse.Result) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(r.Mode.Code()), r.Start)
}

// joinPoints loads the points in path and left-joins path lengths and one
// membership column per result onto them by segment_id.
func joinPoints(path string, lengths map[int64]float64, members []*traverse.Result) (*join.Table, error) {
	schema, err := sourceSchema(path)
	if err != nil {
		return nil, err
	}
	points, err := ingest.NewEngine(schema).LoadPoints(path)
	if err != nil {
		return nil, err
	}

	lt := pathlen.Table(lengths)
	if err := lt.Rename("id", "segment_id"); err != nil {
		return nil, err
	}
	out, err := join.Join(points, lt, "segment_id")
	if err != nil {
		return nil, fmt.Errorf("join path lengths: %w", err)
	}

	for _, r := range members {
		mt := join.MembershipTable(r.IDs(), membershipColumn(r))
		if err := mt.Rename("id", "segment_id"); err != nil {
			return nil, err
		}
		if out, err = join.Join(out, mt, "segment_id"); err != nil {
			return nil, fmt.Errorf("join membership of %d: %w", r.Start, err)
		}
	}

	unsnapped := 0
	for _, v := range out.Column("pathlength") {
		if join.IsMissing(v) {
			unsnapped++
		}
	}
	if unsnapped > 0 {
		log.Warnw("points without a segment in the network", "count", unsnapped, "points", out.Len())
	}
	return out, nil
}

func init() {
	f := joinCmd.Flags()
	f.StringVarP(&joinPointsPath, "points", "p", "", "Point features (GeoJSON or SQLite)")
	f.Int64SliceVar(&joinStarts, "start", nil, "Add a membership column for this start segment (repeatable)")
	f.StringVarP(&joinMode, "mode", "m", "UT", "Navigation mode for membership columns")
	f.Float64VarP(&joinDistance, "distance", "d", 0, "Distance cutoff for membership navigation, km")
	rootCmd.AddCommand(joinCmd)
}
