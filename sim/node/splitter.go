package node

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/trace"
)

// SplitterConfig configures a Splitter. The fields mean what they mean for
// a Machine.
type SplitterConfig struct {
	WorkCapacity    int
	ProcessingDelay dist.Delay
	OutSelector     Selector
	Blocking        bool
}

// Splitter unpacks pallets: it pulls one composite item, pushes each
// sub-item and finally the empty carrier. Each push picks its own out-edge.
type Splitter struct {
	base
	cfg  SplitterConfig
	sel  Selector
	subs int
}

// NewSplitter requires exactly one in-edge and two out-edges.
func NewSplitter(env *sim.Environment, id string, in, out []edge.Edge, cfg SplitterConfig) (*Splitter, error) {
	b, err := newBase(env, id, "Splitter", in, out)
	if err != nil {
		return nil, err
	}
	if cfg.WorkCapacity <= 0 {
		cfg.WorkCapacity = 1
	}
	if cfg.ProcessingDelay == nil {
		cfg.ProcessingDelay = dist.Constant(0)
	}
	if cfg.OutSelector == nil {
		cfg.OutSelector = &FirstAvailable{}
	}
	s := &Splitter{base: b, cfg: cfg, sel: &FirstAvailable{}}
	for i := 0; i < cfg.WorkCapacity; i++ {
		s.spawn(s.newWorker(), s.work)
	}
	return s, nil
}

func (s *Splitter) work(p *sim.Process, w *stats.WorkerStats) error {
	for {
		w.Idle(p.Now())
		carrier, err := s.pull(p, s.sel)
		if err != nil {
			return err
		}
		carrier.Enter(s.id, p.Now())
		w.Processing(p.Now())
		if err := p.Hold(s.cfg.ProcessingDelay.Next()); err != nil {
			return err
		}
		for _, sub := range carrier.Unpack() {
			sub.Enter(s.id, p.Now())
			s.env.Record(trace.KindSplit, sub, s.id)
			sub.Exit(s.id, p.Now())
			s.subs++
			if _, err := s.push(p, w, sub, s.cfg.OutSelector, s.cfg.Blocking); err != nil {
				return err
			}
		}
		carrier.Exit(s.id, p.Now())
		s.processed++
		w.Completed++
		if _, err := s.push(p, w, carrier, s.cfg.OutSelector, s.cfg.Blocking); err != nil {
			return err
		}
	}
}

// SubItems returns how many sub-items were released.
func (s *Splitter) SubItems() int { return s.subs }

// Snapshot implements Node.
func (s *Splitter) Snapshot(now float64) stats.Snapshot {
	return s.snapshot(now, map[string]int{"sub_items": s.subs})
}

func (s *Splitter) String() string {
	return fmt.Sprintf("Splitter(%s, processed=%d, sub_items=%d)", s.id, s.processed, s.subs)
}
