package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/factorysim/sim/report"
	"github.com/inference-sim/factorysim/sim/topology"
	"github.com/inference-sim/factorysim/sim/trace"
)

var (
	// CLI flags for the run command
	topologyPath    string   // Netlist YAML file
	seed            int64    // Overrides the netlist seed when set
	until           float64  // Overrides the netlist end time when set
	logLevel        string   // Log verbosity level
	outputFormat    string   // Report format: text, json, yaml
	tracePath       string   // Where to write the item trace (empty = no trace file)
	traceComponents []string // Restrict the trace to these component IDs
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "factorysim",
	Short: "Discrete-event simulator for manufacturing flow networks",
}

// runOptions carries the CLI overrides applied on top of a netlist.
type runOptions struct {
	seed            *int64
	until           *float64
	format          string
	trace           io.Writer
	traceComponents []string
}

// runNetlist applies the overrides, builds the model, runs it and writes the
// report to out.
func runNetlist(n *topology.Netlist, opts runOptions, out io.Writer) error {
	if opts.seed != nil {
		n.Seed = *opts.seed
	}
	if opts.until != nil {
		n.Until = *opts.until
	}
	if n.Until <= 0 {
		return fmt.Errorf("no end time: set until in the netlist or pass --until")
	}
	if opts.trace != nil && n.Trace == "" {
		n.Trace = string(trace.TraceLevelItems)
	}
	if !report.IsValidFormat(opts.format) {
		return fmt.Errorf("unknown format %q; valid: text, json, yaml", opts.format)
	}

	m, err := topology.Build(n, topology.Options{TraceComponents: opts.traceComponents})
	if err != nil {
		return err
	}
	if err := m.Run(n.Until); err != nil {
		return err
	}

	var summary *trace.TraceSummary
	if m.Env.Trace != nil {
		summary = trace.Summarize(m.Env.Trace)
		if opts.trace != nil {
			if _, err := m.Env.Trace.WriteTo(opts.trace); err != nil {
				return fmt.Errorf("writing trace: %w", err)
			}
		}
	}
	return report.New(n.Seed, n.Until, m.Snapshots(), summary).Write(out, opts.format)
}

// runCmd executes the simulation described by a netlist
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a production network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		n, err := topology.Load(topologyPath)
		if err != nil {
			logrus.Fatalf("Failed to load netlist: %v", err)
		}

		opts := runOptions{format: outputFormat, traceComponents: traceComponents}
		if cmd.Flags().Changed("seed") {
			logrus.Infof("CLI --seed %d overrides netlist seed %d", seed, n.Seed)
			opts.seed = &seed
		}
		if cmd.Flags().Changed("until") {
			opts.until = &until
		}
		if tracePath != "" {
			f, err := os.Create(tracePath)
			if err != nil {
				logrus.Fatalf("Failed to create trace file: %v", err)
			}
			defer func() {
				if err := f.Close(); err != nil {
					logrus.Errorf("closing trace file: %v", err)
				}
			}()
			opts.trace = f
		}

		startTime := time.Now()
		if err := runNetlist(n, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// validateCmd checks a netlist without running it
var validateCmd = &cobra.Command{
	Use:   "validate <netlist.yaml>",
	Short: "Check a netlist for schema, parameter and wiring errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := topology.Load(args[0])
		if err != nil {
			return err
		}
		if err := n.Validate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d components, %d connections, ok\n", args[0], len(n.Components), len(n.Connections))
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "Path to the netlist YAML file")
	_ = runCmd.MarkFlagRequired("topology")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for stochastic delays and RANDOM selection (overrides the netlist)")
	runCmd.Flags().Float64Var(&until, "until", 0, "Logical end time (overrides the netlist)")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputFormat, "format", report.FormatText, "Report format (text, json, yaml)")
	runCmd.Flags().StringVar(&tracePath, "trace", "", "Write the item lifecycle trace to this file")
	runCmd.Flags().StringSliceVar(&traceComponents, "trace-components", nil, "Only trace these component IDs")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
