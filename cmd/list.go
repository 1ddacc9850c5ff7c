package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/node"
	"github.com/inference-sim/factorysim/sim/topology"
)

// listCmd prints the names a netlist may use
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List component types, distributions and selection policies",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "types:         %s\n", strings.Join(topology.ValidTypeNames(), ", "))
		fmt.Fprintf(out, "distributions: %s\n", strings.Join(dist.ValidDistNames(), ", "))
		fmt.Fprintf(out, "policies:      %s\n", strings.Join(node.ValidPolicyNames(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
