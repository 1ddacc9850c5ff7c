// Package report renders end-of-run component statistics as JSON, YAML or a
// plain-text table.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/trace"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var validFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatYAML: true,
}

// IsValidFormat returns true if name is a recognized output format.
func IsValidFormat(name string) bool { return validFormats[name] }

// Report is the result of one run.
type Report struct {
	Seed       int64               `json:"seed" yaml:"seed"`
	Until      float64             `json:"until" yaml:"until"`
	Components []stats.Snapshot    `json:"components" yaml:"components"`
	Trace      *trace.TraceSummary `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// New assembles a report. summary may be nil when tracing was off.
func New(seed int64, until float64, snaps []stats.Snapshot, summary *trace.TraceSummary) *Report {
	return &Report{Seed: seed, Until: until, Components: snaps, Trace: summary}
}

// Component returns the snapshot with the given ID.
func (r *Report) Component(id string) (stats.Snapshot, bool) {
	for _, s := range r.Components {
		if s.ID == id {
			return s, true
		}
	}
	return stats.Snapshot{}, false
}

// AsMap returns the report as a plain mapping with components keyed by ID.
func (r *Report) AsMap() map[string]any {
	comps := make(map[string]any, len(r.Components))
	for _, s := range r.Components {
		comps[s.ID] = s
	}
	m := map[string]any{
		"seed":       r.Seed,
		"until":      r.Until,
		"components": comps,
	}
	if r.Trace != nil {
		m["trace"] = r.Trace
	}
	return m
}

// Write renders the report in the given format.
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return r.writeText(w)
	}
	return fmt.Errorf("unknown report format %q; valid: text, json, yaml", format)
}

// throughput picks the count that best describes what went through a component.
func throughput(s stats.Snapshot) int {
	for _, k := range []string{"received", "generated", "exited", "processed"} {
		if v, ok := s.Counters[k]; ok {
			return v
		}
	}
	return 0
}

func meanUtilization(ws []stats.WorkerSnapshot) float64 {
	if len(ws) == 0 {
		return 0
	}
	var sum float64
	for _, w := range ws {
		sum += w.Utilization
	}
	return sum / float64(len(ws))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Report) writeText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintf(tw, "=== Simulation Report (seed %d, until t=%.2f) ===\n", r.Seed, r.Until)
	fmt.Fprintln(tw, "ID\tTYPE\tITEMS\tDISCARDED\tUTIL\tMEAN OCC\tMAX OCC\tCYCLE MEAN\t")
	for _, s := range r.Components {
		util, occMean, occMax, cycle := "-", "-", "-", "-"
		if len(s.Workers) > 0 {
			util = p.Sprintf("%.1f%%", 100*meanUtilization(s.Workers))
		}
		if s.Occupancy != nil {
			occMean = p.Sprintf("%.2f", s.Occupancy.Mean)
			occMax = p.Sprintf("%.0f/%d", s.Occupancy.Max, s.Occupancy.Capacity)
		}
		if s.CycleTime != nil && s.CycleTime.Count > 0 {
			cycle = p.Sprintf("%.2f", s.CycleTime.Mean)
		}
		p.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t\n",
			s.ID, s.Type, throughput(s), s.Counters["discarded"], util, occMean, occMax, cycle)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== State Times ===")
	for _, s := range r.Components {
		if len(s.States) == 0 {
			continue
		}
		parts := make([]string, 0, len(s.States))
		for _, k := range sortedKeys(s.States) {
			parts = append(parts, p.Sprintf("%s=%.2f", k, s.States[k]))
		}
		fmt.Fprintf(w, "%-16s: %s\n", s.ID, strings.Join(parts, " "))
	}

	if r.Trace != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Item Trace ===")
		p.Fprintf(w, "Records   : %d\n", r.Trace.TotalRecords)
		p.Fprintf(w, "Created   : %d\n", r.Trace.Created)
		p.Fprintf(w, "Absorbed  : %d\n", r.Trace.Absorbed)
		p.Fprintf(w, "Discarded : %d\n", r.Trace.Discarded)
		if r.Trace.Absorbed > 0 {
			p.Fprintf(w, "Cycle time: mean %.2f, p50 %.2f, p90 %.2f, max %.2f\n",
				r.Trace.CycleTimeMean, r.Trace.CycleTimeP50, r.Trace.CycleTimeP90, r.Trace.CycleTimeMax)
		}
	}
	return nil
}
