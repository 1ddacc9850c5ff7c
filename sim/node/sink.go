package node

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/trace"
)

// SinkConfig configures a Sink.
type SinkConfig struct {
	InSelector Selector
	// KeepHistory retains every absorbed item and its arrival time. Without
	// it only counts and the cycle-time sample grow with the run.
	KeepHistory bool
}

// Sink absorbs items and records their cycle times.
type Sink struct {
	base
	cfg      SinkConfig
	cycle    stats.Sample
	arrivals []float64
	items    []*sim.Item
}

// NewSink requires at least one in-edge and no out-edges.
func NewSink(env *sim.Environment, id string, in []edge.Edge, cfg SinkConfig) (*Sink, error) {
	b, err := newBase(env, id, "Sink", in, nil)
	if err != nil {
		return nil, err
	}
	if cfg.InSelector == nil {
		cfg.InSelector = &FirstAvailable{}
	}
	s := &Sink{base: b, cfg: cfg}
	s.spawn(s.newWorker(), s.absorb)
	return s, nil
}

func (s *Sink) absorb(p *sim.Process, w *stats.WorkerStats) error {
	for {
		item, err := s.pull(p, s.cfg.InSelector)
		if err != nil {
			return err
		}
		now := p.Now()
		item.Enter(s.id, now)
		s.env.Record(trace.KindAbsorb, item, s.id)
		item.Destroy(now)
		s.processed++
		w.Completed++
		s.cycle.Add(item.CycleTime(now))
		if s.cfg.KeepHistory {
			s.arrivals = append(s.arrivals, now)
			s.items = append(s.items, item)
		}
		s.log.Debugf("[t=%.3f] absorbed %s (cycle time %.3f)", now, item.ID, item.CycleTime(now))
	}
}

// Received returns the number of items absorbed.
func (s *Sink) Received() int { return s.processed }

// Arrivals returns the absorption times in order. Empty unless KeepHistory is set.
func (s *Sink) Arrivals() []float64 { return append([]float64(nil), s.arrivals...) }

// Items returns the absorbed items in order. Empty unless KeepHistory is set.
func (s *Sink) Items() []*sim.Item { return append([]*sim.Item(nil), s.items...) }

// CycleTimes returns the cycle-time sample.
func (s *Sink) CycleTimes() *stats.Sample { return &s.cycle }

// Snapshot implements Node.
func (s *Sink) Snapshot(now float64) stats.Snapshot {
	snap := s.snapshot(now, map[string]int{"received": s.processed})
	delete(snap.Counters, "discarded")
	sum := s.cycle.Summarize()
	snap.CycleTime = &sum
	return snap
}

func (s *Sink) String() string {
	return fmt.Sprintf("Sink(%s, received=%d)", s.id, s.processed)
}
