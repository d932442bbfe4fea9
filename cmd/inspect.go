package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/hydronet/internal/network"
)

var inspectComponents bool

type inspection struct {
	network.Summary
	Outlets       []int64   `json:"outlet_ids"`
	BoundaryExits []int64   `json:"boundary_exit_ids,omitempty"`
	Sizes         []int     `json:"component_sizes"`
	Members       [][]int64 `json:"component_members,omitempty"`
}

func inspectNetwork(n *network.Network, members bool) inspection {
	comps := n.Components()
	in := inspection{
		Summary:       n.Summary(),
		Outlets:       n.Outlets(),
		BoundaryExits: n.BoundaryExits(),
		Sizes:         make([]int, len(comps)),
	}
	for i, c := range comps {
		in.Sizes[i] = len(c)
	}
	if members {
		in.Members = comps
	}
	return in
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [source]",
	Short: "Summarise a flow network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		return write(cmd.OutOrStdout(), inspectNetwork(n, inspectComponents))
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectComponents, "components", false, "List the members of every connected component")
	rootCmd.AddCommand(inspectCmd)
}
