package node

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/trace"
)

// SourceConfig configures a Source.
type SourceConfig struct {
	InterArrival dist.Delay
	OutSelector  Selector
	Blocking     bool
	// MaxItems stops generation after that many items. Zero means unlimited.
	MaxItems int
	// PayloadSize > 0 makes every generated item a pallet carrying that many
	// sub-items.
	PayloadSize int
}

// Source generates items on its inter-arrival schedule and pushes them
// downstream. The first item appears after one inter-arrival time.
type Source struct {
	base
	cfg       SourceConfig
	generated int
}

// NewSource requires at least one out-edge and no in-edges.
func NewSource(env *sim.Environment, id string, out []edge.Edge, cfg SourceConfig) (*Source, error) {
	b, err := newBase(env, id, "Source", nil, out)
	if err != nil {
		return nil, err
	}
	if cfg.InterArrival == nil {
		return nil, sim.NewTopologyError(id, "Source needs an inter-arrival time")
	}
	if c, ok := cfg.InterArrival.(dist.Constant); ok && c <= 0 {
		return nil, sim.NewTopologyError(id, "Source inter-arrival time must be positive, got %g", float64(c))
	}
	if cfg.OutSelector == nil {
		cfg.OutSelector = &FirstAvailable{}
	}
	s := &Source{base: b, cfg: cfg}
	s.spawn(s.newWorker(), s.generate)
	return s, nil
}

func (s *Source) generate(p *sim.Process, w *stats.WorkerStats) error {
	for s.cfg.MaxItems == 0 || s.generated < s.cfg.MaxItems {
		w.Idle(p.Now())
		if err := p.Hold(s.cfg.InterArrival.Next()); err != nil {
			return err
		}
		s.generated++
		item := s.env.NewItem(fmt.Sprintf("%s-%d", s.id, s.generated))
		for i := 1; i <= s.cfg.PayloadSize; i++ {
			item.Append(s.env.NewItem(fmt.Sprintf("%s-%d.%d", s.id, s.generated, i)))
		}
		s.env.Record(trace.KindCreate, item, s.id)
		s.log.Debugf("[t=%.3f] created %s", p.Now(), item.ID)

		pushed, err := s.push(p, w, item, s.cfg.OutSelector, s.cfg.Blocking)
		if err != nil {
			return err
		}
		if pushed {
			s.processed++
			w.Completed++
		}
	}
	w.Idle(p.Now())
	s.log.Debugf("[t=%.3f] reached max_items=%d", p.Now(), s.cfg.MaxItems)
	return nil
}

// Generated returns the number of items created so far.
func (s *Source) Generated() int { return s.generated }

// Snapshot implements Node.
func (s *Source) Snapshot(now float64) stats.Snapshot {
	return s.snapshot(now, map[string]int{"generated": s.generated})
}

func (s *Source) String() string {
	return fmt.Sprintf("Source(%s, generated=%d, discarded=%d)", s.id, s.generated, s.discarded)
}
