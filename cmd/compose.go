package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/factorysim/sim/topology"
)

var composeFromPaths []string

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Merge multiple netlists into one",
	Long:  "Load multiple netlist YAML files and merge their components and connections. Output is written to stdout.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(composeFromPaths) == 0 {
			logrus.Fatalf("at least one --from flag is required")
		}

		var netlists []*topology.Netlist
		for _, path := range composeFromPaths {
			n, err := topology.Load(path)
			if err != nil {
				logrus.Fatalf("Failed to load netlist %s: %v", path, err)
			}
			netlists = append(netlists, n)
		}

		merged, err := topology.Compose(netlists)
		if err != nil {
			logrus.Fatalf("Compose failed: %v", err)
		}
		if err := merged.Validate(); err != nil {
			logrus.Warnf("merged netlist does not validate yet: %v", err)
		}
		if err := writeNetlist(cmd.OutOrStdout(), merged); err != nil {
			logrus.Fatalf("Writing netlist failed: %v", err)
		}
	},
}

func writeNetlist(w io.Writer, n *topology.Netlist) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func init() {
	composeCmd.Flags().StringArrayVar(&composeFromPaths, "from", nil, "Path to a netlist YAML file (can be repeated)")
	_ = composeCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(composeCmd)
}
