package stats

// Snapshot is the end-of-run statistics of one component.
type Snapshot struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"`
	// Counters holds item counts such as entered, exited, generated,
	// processed, discarded and received.
	Counters map[string]int `json:"counters,omitempty" yaml:"counters,omitempty"`
	// States is the time spent in each observational state.
	States map[string]float64 `json:"state_times,omitempty" yaml:"state_times,omitempty"`
	// Occupancy is set for edges.
	Occupancy *OccupancySummary `json:"occupancy,omitempty" yaml:"occupancy,omitempty"`
	// CycleTime is set for sinks.
	CycleTime *SampleSummary   `json:"cycle_time,omitempty" yaml:"cycle_time,omitempty"`
	Workers   []WorkerSnapshot `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// OccupancySummary describes how full an edge was.
type OccupancySummary struct {
	Capacity    int     `json:"capacity" yaml:"capacity"`
	Final       int     `json:"final" yaml:"final"`
	Mean        float64 `json:"mean" yaml:"mean"` // exact, time-weighted
	Max         float64 `json:"max" yaml:"max"`
	SampledMean float64 `json:"sampled_mean,omitempty" yaml:"sampled_mean,omitempty"` // 0 when sampling is off
}

// SampleSummary condenses a Sample.
type SampleSummary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	P50    float64 `json:"p50" yaml:"p50"`
	P90    float64 `json:"p90" yaml:"p90"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summarize condenses s.
func (s *Sample) Summarize() SampleSummary {
	return SampleSummary{
		Count:  s.Len(),
		Mean:   s.Mean(),
		StdDev: s.StdDev(),
		P50:    s.Quantile(0.5),
		P90:    s.Quantile(0.9),
		Max:    s.Max(),
	}
}

// WorkerSnapshot is the end-of-run view of one worker.
type WorkerSnapshot struct {
	ID          int                `json:"id" yaml:"id"`
	States      map[string]float64 `json:"state_times" yaml:"state_times"`
	Completed   int                `json:"completed" yaml:"completed"`
	Utilization float64            `json:"utilization" yaml:"utilization"`
}

// Snapshot captures w at now, with utilization measured from start.
func (w *WorkerStats) Snapshot(start, now float64) WorkerSnapshot {
	return WorkerSnapshot{
		ID:          w.ID,
		States:      w.Timer.Totals(now),
		Completed:   w.Completed,
		Utilization: w.Utilization(start, now),
	}
}
