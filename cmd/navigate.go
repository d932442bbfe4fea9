package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/ingest"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/traverse"
)

var (
	navStarts     []int64
	navMode       string
	navDistance   float64
	navDiversions bool
	navDistances  bool
	navDB         string
)

// navigation is the printed form of one traversal.
type navigation struct {
	Start     int64             `json:"start"`
	Mode      string            `json:"mode"`
	Count     int               `json:"count"`
	Segments  []int64           `json:"segments"`
	Distances map[int64]float64 `json:"distances_km,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func newNavigation(r *traverse.Result, withDistances bool) navigation {
	nav := navigation{
		Start:    r.Start,
		Mode:     r.Mode.Code(),
		Count:    r.Len(),
		Segments: r.IDs(),
	}
	if withDistances {
		nav.Distances = r.Distances()
	}
	return nav
}

var navigateCmd = &cobra.Command{
	Use:   "navigate [source]",
	Short: "Trace upstream or downstream from one or more start segments",
	Long: `Navigate follows the flow network from each --start segment.

Modes:
  UT  upstream with tributaries
  UM  upstream mainstem
  DM  downstream mainstem (stops at diversions)
  DD  downstream with diversions`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(navStarts) == 0 {
			return fmt.Errorf("at least one --start is required")
		}
		mode, err := traverse.ParseMode(navMode)
		if err != nil {
			return err
		}
		opts, err := traverseOptions()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("distance") {
			opts = append(opts, traverse.WithMaxDistance(navDistance))
		}
		if navDiversions {
			opts = append(opts, traverse.WithDiversions())
		}

		n, err := loadNetwork(args[0])
		if err != nil {
			return err
		}

		results, navs, err := navigateAll(cmd, n, mode, opts)
		if err != nil {
			return err
		}

		if navDB != "" {
			if err := saveTraversals(navDB, results); err != nil {
				return err
			}
		}
		if len(navs) == 1 {
			return write(cmd.OutOrStdout(), navs[0])
		}
		return write(cmd.OutOrStdout(), navs)
	},
}

// navigateAll runs a single start directly so its error surfaces as the
// command error, and fans several starts out over the worker pool.
func navigateAll(cmd *cobra.Command, n *network.Network, mode traverse.Mode, opts []traverse.Option) ([]*traverse.Result, []navigation, error) {
	if len(navStarts) == 1 {
		r, err := traverse.Navigate(n, navStarts[0], mode, opts...)
		if err != nil {
			return nil, nil, err
		}
		return []*traverse.Result{r}, []navigation{newNavigation(r, navDistances)}, nil
	}

	outcomes, err := traverse.TraverseMany(cmd.Context(), n, navStarts, mode, opts...)
	if err != nil {
		return nil, nil, err
	}
	var results []*traverse.Result
	navs := make([]navigation, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			log.Warnw("navigation failed", "start", o.Start, "error", o.Err)
			navs = append(navs, navigation{Start: o.Start, Mode: mode.Code(), Error: o.Err.Error()})
			continue
		}
		results = append(results, o.Result)
		navs = append(navs, newNavigation(o.Result, navDistances))
	}
	return results, navs, nil
}

func saveTraversals(dbPath string, results []*traverse.Result) error {
	w, err := ingest.NewSQLiteWriter(dbPath)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := w.WriteTraversal(r); err != nil {
			_ = w.Close()
			return fmt.Errorf("save traversal from %d: %w", r.Start, err)
		}
	}
	log.Infow("traversals saved", "db", dbPath, "run", w.RunID(), "count", len(results))
	return w.Close()
}

func init() {
	f := navigateCmd.Flags()
	f.Int64SliceVar(&navStarts, "start", nil, "Start segment identifier (repeatable)")
	f.StringVarP(&navMode, "mode", "m", "UT", "Navigation mode: "+modeCodes())
	f.Float64VarP(&navDistance, "distance", "d", 0, "Stop expanding once the cumulative length reaches this many km")
	f.BoolVar(&navDiversions, "diversions", false, "Also climb diversion contributors in upstream modes")
	f.BoolVar(&navDistances, "distances", false, "Include the cumulative distance of every segment")
	f.StringVar(&navDB, "db", "", "Also record the traversals in this SQLite database")
	rootCmd.AddCommand(navigateCmd)
}

func modeCodes() string {
	return strings.Join(modeList(), ", ")
}
