package stats

// Worker states shared by machines, splitters, combiners, sources, sinks and
// fleet transporters.
const (
	WorkerIdle       = "idle"
	WorkerProcessing = "processing"
	WorkerBlocked    = "blocked"
)

// WorkerStats tracks one worker's time split between idle, processing and
// blocked, plus how many items it completed.
type WorkerStats struct {
	ID        int
	Timer     *StateTimer
	Completed int
}

// NewWorkerStats starts an idle worker at now.
func NewWorkerStats(id int, now float64) *WorkerStats {
	return &WorkerStats{ID: id, Timer: NewStateTimer(WorkerIdle, now)}
}

// Idle, Processing and Blocked switch the worker's state.
func (w *WorkerStats) Idle(now float64)       { w.Timer.Set(WorkerIdle, now) }
func (w *WorkerStats) Processing(now float64) { w.Timer.Set(WorkerProcessing, now) }
func (w *WorkerStats) Blocked(now float64)    { w.Timer.Set(WorkerBlocked, now) }

// Utilization returns the share of [start, now] spent processing.
func (w *WorkerStats) Utilization(start, now float64) float64 {
	return w.Timer.Fractions(start, now)[WorkerProcessing]
}
