package trace

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TraceSummary aggregates statistics from an ItemTrace.
type TraceSummary struct {
	TotalRecords int `json:"total_records" yaml:"total_records"`
	Created      int `json:"created" yaml:"created"`
	Absorbed     int `json:"absorbed" yaml:"absorbed"`
	Discarded    int `json:"discarded" yaml:"discarded"`
	// Cycle time is measured from create to absorb for items seen doing both.
	CycleTimeMean float64 `json:"cycle_time_mean" yaml:"cycle_time_mean"`
	CycleTimeP50  float64 `json:"cycle_time_p50" yaml:"cycle_time_p50"`
	CycleTimeP90  float64 `json:"cycle_time_p90" yaml:"cycle_time_p90"`
	CycleTimeMax  float64 `json:"cycle_time_max" yaml:"cycle_time_max"`
	// Component → number of enter records.
	Visits map[string]int `json:"visits" yaml:"visits"`
}

// Summarize computes aggregate statistics from an ItemTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *ItemTrace) *TraceSummary {
	summary := &TraceSummary{
		Visits: make(map[string]int),
	}
	if t == nil {
		return summary
	}

	summary.TotalRecords = len(t.Records)
	created := make(map[string]float64)
	var cycle []float64
	for _, r := range t.Records {
		switch r.Kind {
		case KindCreate:
			summary.Created++
			created[r.ItemID] = r.Time
		case KindAbsorb:
			summary.Absorbed++
			if born, ok := created[r.ItemID]; ok {
				cycle = append(cycle, r.Time-born)
			}
		case KindDiscard:
			summary.Discarded++
		case KindEnter:
			summary.Visits[r.Component]++
		}
	}

	if len(cycle) > 0 {
		sort.Float64s(cycle)
		summary.CycleTimeMean = stat.Mean(cycle, nil)
		summary.CycleTimeP50 = stat.Quantile(0.5, stat.Empirical, cycle, nil)
		summary.CycleTimeP90 = stat.Quantile(0.9, stat.Empirical, cycle, nil)
		summary.CycleTimeMax = cycle[len(cycle)-1]
	}
	return summary
}
