package node

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/trace"
)

// CombinerConfig configures a Combiner.
type CombinerConfig struct {
	WorkCapacity int
	// PayloadCount is the number of items loaded onto each carrier. Zero means 1.
	PayloadCount    int
	ProcessingDelay dist.Delay
	OutSelector     Selector
	Blocking        bool
}

// Combiner builds pallets: the first in-edge supplies carriers, the second
// the items loaded onto them.
type Combiner struct {
	base
	cfg CombinerConfig
	one Selector
}

// NewCombiner requires exactly two in-edges and one out-edge.
func NewCombiner(env *sim.Environment, id string, in, out []edge.Edge, cfg CombinerConfig) (*Combiner, error) {
	b, err := newBase(env, id, "Combiner", in, out)
	if err != nil {
		return nil, err
	}
	if cfg.WorkCapacity <= 0 {
		cfg.WorkCapacity = 1
	}
	if cfg.PayloadCount <= 0 {
		cfg.PayloadCount = 1
	}
	if cfg.ProcessingDelay == nil {
		cfg.ProcessingDelay = dist.Constant(0)
	}
	if cfg.OutSelector == nil {
		cfg.OutSelector = &FirstAvailable{}
	}
	c := &Combiner{base: b, cfg: cfg, one: NewSequence(0)}
	for i := 0; i < cfg.WorkCapacity; i++ {
		c.spawn(c.newWorker(), c.work)
	}
	return c, nil
}

func (c *Combiner) work(p *sim.Process, w *stats.WorkerStats) error {
	carriers, parts := c.in[:1], c.in[1:]
	for {
		w.Idle(p.Now())
		carrier, err := c.pullFrom(p, carriers, c.one)
		if err != nil {
			return err
		}
		carrier.Enter(c.id, p.Now())
		payload := make([]*sim.Item, 0, c.cfg.PayloadCount)
		for len(payload) < c.cfg.PayloadCount {
			item, err := c.pullFrom(p, parts, c.one)
			if err != nil {
				return err
			}
			item.Enter(c.id, p.Now())
			payload = append(payload, item)
		}

		w.Processing(p.Now())
		if err := p.Hold(c.cfg.ProcessingDelay.Next()); err != nil {
			return err
		}
		for _, item := range payload {
			item.Exit(c.id, p.Now())
			c.env.Record(trace.KindCombine, item, c.id)
		}
		carrier.Append(payload...)
		carrier.Exit(c.id, p.Now())
		c.processed++
		w.Completed++
		if _, err := c.push(p, w, carrier, c.cfg.OutSelector, c.cfg.Blocking); err != nil {
			return err
		}
	}
}

// Snapshot implements Node.
func (c *Combiner) Snapshot(now float64) stats.Snapshot {
	return c.snapshot(now, map[string]int{"payload_count": c.cfg.PayloadCount})
}

func (c *Combiner) String() string {
	return fmt.Sprintf("Combiner(%s, processed=%d)", c.id, c.processed)
}
