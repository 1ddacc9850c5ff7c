package edge

import (
	"fmt"
	"math"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
)

// Conveyor belt states.
const (
	BeltEmpty   = "empty"
	BeltMoving  = "moving"
	BeltStalled = "stalled"
)

// ConveyorConfig configures a ConveyorBelt.
type ConveyorConfig struct {
	// Capacity is the number of slots C.
	Capacity int
	// SlotDelay is the time d an item needs to advance one slot.
	SlotDelay float64
	// Accumulating lets items behind a stalled head keep moving and queue
	// up behind it. A non-accumulating belt stops entirely.
	Accumulating   bool
	SampleInterval float64
}

// ConveyorBelt is a slotted transport link. Items enter at most one per slot
// period, need C×d of belt motion to reach the exit, and leave strictly in
// order from the head.
type ConveyorBelt struct {
	ports
	store *store.Store
	gate  *beltGate
	state *stats.StateTimer
	occ   *occupancy
	cfg   ConveyorConfig
}

// NewConveyorBelt creates a belt and starts its state tracker and sampler.
func NewConveyorBelt(env *sim.Environment, id string, cfg ConveyorConfig) *ConveyorBelt {
	if cfg.SlotDelay < 0 {
		panic(fmt.Sprintf("NewConveyorBelt(%s): negative slot delay %g", id, cfg.SlotDelay))
	}
	g := &beltGate{
		slots:        cfg.Capacity,
		d:            cfg.SlotDelay,
		accumulating: cfg.Accumulating,
		lastAdmit:    math.Inf(-1),
		lastRemoved:  math.Inf(-1),
	}
	s := store.New(env, store.Config{Name: id, Capacity: cfg.Capacity, Mode: store.FIFO, Gate: g})
	b := &ConveyorBelt{
		ports: newPorts(env, id, "ConveyorBelt", s, s),
		store: s,
		gate:  g,
		state: stats.NewStateTimer(BeltEmpty, env.Now()),
		cfg:   cfg,
	}
	b.occ = watchOccupancy(env, s, nil)
	b.occ.sample(env, id, s, cfg.SampleInterval)
	env.Process(id+":belt", b.track)
	b.log.Debugf("created: slots=%d slot_delay=%g accumulating=%t", cfg.Capacity, cfg.SlotDelay, cfg.Accumulating)
	return b
}

// stateAt derives the belt state from its contents.
func (b *ConveyorBelt) stateAt(now float64) string {
	switch {
	case b.store.Len() == 0:
		return BeltEmpty
	case b.gate.headReady() <= now || b.store.Len() >= b.store.Capacity():
		return BeltStalled
	default:
		return BeltMoving
	}
}

// track records state transitions. It wakes on every store change and when
// the head item finishes its transit.
func (b *ConveyorBelt) track(p *sim.Process) error {
	env := p.Env()
	for {
		now := p.Now()
		st := b.stateAt(now)
		if st != b.state.State() {
			b.log.Debugf("[t=%.3f] %s -> %s", now, b.state.State(), st)
		}
		b.state.Set(st, now)

		wake := b.store.Changed().Wait()
		if st == BeltMoving {
			wake = env.AnyOf(wake, env.TimeoutAt(b.gate.headReady()))
		}
		if _, err := p.Wait(wake); err != nil {
			return err
		}
	}
}

// State returns empty, moving or stalled.
func (b *ConveyorBelt) State() string { return b.state.State() }

// Len returns the number of items on the belt.
func (b *ConveyorBelt) Len() int { return b.store.Len() }

// Store exposes the underlying store for inspection.
func (b *ConveyorBelt) Store() *store.Store { return b.store }

// TransitTime returns C×d.
func (b *ConveyorBelt) TransitTime() float64 { return b.gate.transit() }

// Snapshot implements Edge.
func (b *ConveyorBelt) Snapshot(now float64) stats.Snapshot {
	return stats.Snapshot{
		ID:        b.id,
		Type:      b.kind,
		Counters:  b.counters(),
		States:    b.state.Totals(now),
		Occupancy: b.occ.summary(now, b.store),
	}
}

func (b *ConveyorBelt) String() string {
	return fmt.Sprintf("ConveyorBelt(%s, %s, %d/%d)", b.id, b.State(), b.store.Len(), b.store.Capacity())
}

// beltGate turns a FIFO store into a belt. dues[i] is the time the i-th item
// (front first) reaches the exit if the belt keeps moving.
//
// Non-accumulating: once the head is at the exit the whole belt stops; no
// item is admitted, and when the head leaves every due time and the entry
// clock shift by the stall duration.
// Accumulating: the belt keeps moving under a waiting head; after the head
// leaves at T the next one may leave at max(its due time, T+d).
type beltGate struct {
	slots        int
	d            float64
	accumulating bool

	lastAdmit   float64
	lastRemoved float64
	dues        []float64
}

func (g *beltGate) transit() float64 { return float64(g.slots) * g.d }

func (g *beltGate) headReady() float64 {
	if len(g.dues) == 0 {
		return math.Inf(1)
	}
	t := g.dues[0]
	if g.accumulating && g.lastRemoved+g.d > t {
		t = g.lastRemoved + g.d
	}
	return t
}

func (g *beltGate) AdmitAt(now float64) float64 {
	if !g.accumulating && g.headReady() <= now {
		return math.Inf(1)
	}
	return g.lastAdmit + g.d
}

func (g *beltGate) Admitted(now float64) { g.lastAdmit = now }

func (g *beltGate) Inserted(now float64, _ store.Slot) {
	g.dues = append(g.dues, now+g.transit())
}

func (g *beltGate) ReleaseAt(pos int, _ store.Slot) float64 {
	if pos != 0 {
		return math.Inf(1)
	}
	return g.headReady()
}

func (g *beltGate) Removed(now float64, pos int, _ store.Slot) {
	if pos != 0 {
		panic(fmt.Sprintf("beltGate.Removed: item at position %d left before the head", pos))
	}
	ready := g.headReady()
	g.dues = g.dues[1:]
	if !g.accumulating && now > ready {
		stall := now - ready
		for i := range g.dues {
			g.dues[i] += stall
		}
		g.lastAdmit += stall
	}
	g.lastRemoved = now
}
