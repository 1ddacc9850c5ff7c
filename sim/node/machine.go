package node

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/edge"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
	"github.com/inference-sim/factorysim/sim/trace"
)

// MachineConfig configures a Machine.
type MachineConfig struct {
	// WorkCapacity is the number of concurrent workers. Zero means 1.
	WorkCapacity int
	// SlotCapacity caps concurrent processing below WorkCapacity. Zero means no cap.
	SlotCapacity    int
	ProcessingDelay dist.Delay
	InSelector      Selector
	OutSelector     Selector
	// Blocking makes workers wait for room downstream; otherwise a finished
	// item that finds its out-edge full is discarded.
	Blocking bool
}

// Machine pulls one item at a time per worker, holds it for the processing
// delay and pushes it downstream.
type Machine struct {
	base
	cfg   MachineConfig
	slots *store.Store
}

// NewMachine validates edge arity and starts the workers.
func NewMachine(env *sim.Environment, id string, in, out []edge.Edge, cfg MachineConfig) (*Machine, error) {
	b, err := newBase(env, id, "Machine", in, out)
	if err != nil {
		return nil, err
	}
	if cfg.WorkCapacity <= 0 {
		cfg.WorkCapacity = 1
	}
	slots := cfg.WorkCapacity
	if cfg.SlotCapacity > 0 && cfg.SlotCapacity < slots {
		slots = cfg.SlotCapacity
	}
	if cfg.ProcessingDelay == nil {
		cfg.ProcessingDelay = dist.Constant(0)
	}
	if cfg.InSelector == nil {
		cfg.InSelector = &FirstAvailable{}
	}
	if cfg.OutSelector == nil {
		cfg.OutSelector = &FirstAvailable{}
	}
	m := &Machine{
		base:  b,
		cfg:   cfg,
		slots: store.New(env, store.Config{Name: id + ":slots", Capacity: slots}),
	}
	for i := 0; i < cfg.WorkCapacity; i++ {
		m.spawn(m.newWorker(), m.work)
	}
	m.log.Debugf("created: workers=%d slots=%d blocking=%v delay=%v", cfg.WorkCapacity, slots, cfg.Blocking, cfg.ProcessingDelay)
	return m, nil
}

func (m *Machine) work(p *sim.Process, w *stats.WorkerStats) error {
	for {
		w.Idle(p.Now())
		slot := m.slots.ReservePut()
		if !slot.Granted() {
			if _, err := p.Wait(slot.Event()); err != nil {
				return err
			}
		}
		item, err := m.pull(p, m.cfg.InSelector)
		if err != nil {
			return err
		}
		item.Enter(m.id, p.Now())
		m.env.Record(trace.KindEnter, item, m.id)

		w.Processing(p.Now())
		if err := p.Hold(m.cfg.ProcessingDelay.Next()); err != nil {
			return err
		}
		item.Exit(m.id, p.Now())
		m.env.Record(trace.KindExit, item, m.id)
		m.processed++
		w.Completed++
		m.log.Debugf("[t=%.3f] worker %d finished %s", p.Now(), w.ID, item.ID)

		if _, err := m.push(p, w, item, m.cfg.OutSelector, m.cfg.Blocking); err != nil {
			return err
		}
		if err := m.slots.Cancel(slot); err != nil {
			return fmt.Errorf("%s: release processing slot: %w", m.id, err)
		}
	}
}

// Busy returns the number of workers holding a processing slot.
func (m *Machine) Busy() int { return m.slots.GrantedPuts() }

// Snapshot implements Node.
func (m *Machine) Snapshot(now float64) stats.Snapshot {
	return m.snapshot(now, nil)
}

// String returns a readable summary.
func (m *Machine) String() string {
	return fmt.Sprintf("Machine(%s, workers=%d, processed=%d, discarded=%d)", m.id, len(m.workers), m.processed, m.discarded)
}
