package edge

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
)

// Buffer observational states.
const (
	BufferIdle      = "IDLE"
	BufferReleasing = "RELEASING"
	BufferBlocked   = "BLOCKED"
)

// BufferConfig configures a Buffer.
type BufferConfig struct {
	Capacity int
	Mode     store.Mode
	// Delay is the availability delay. Nil means items are available at once.
	// A non-constant generator is sampled once per item on insertion.
	Delay dist.Delay
	// SampleInterval is the occupancy sampling period; <= 0 disables sampling.
	SampleInterval float64
}

// Buffer is a FIFO or LIFO queue whose items become available for retrieval
// once they have aged Delay.
type Buffer struct {
	ports
	store *store.Store
	state *stats.StateTimer
	occ   *occupancy
	start float64
}

// NewBuffer creates a buffer and starts its occupancy sampler.
func NewBuffer(env *sim.Environment, id string, cfg BufferConfig) *Buffer {
	var gate store.Gate
	switch d := cfg.Delay.(type) {
	case nil:
	case dist.Constant:
		gate = store.DelayGate{Delay: float64(d)}
	default:
		gate = newItemDelayGate(d)
	}
	s := store.New(env, store.Config{Name: id, Capacity: cfg.Capacity, Mode: cfg.Mode, Gate: gate})
	b := &Buffer{
		ports: newPorts(env, id, "Buffer", s, s),
		store: s,
		state: stats.NewStateTimer(BufferIdle, env.Now()),
		start: env.Now(),
	}
	b.occ = watchOccupancy(env, s, func(now float64, items int) {
		b.state.Set(b.stateFor(items), now)
	})
	b.occ.sample(env, id, s, cfg.SampleInterval)
	b.log.Debugf("created: capacity=%d mode=%s", cfg.Capacity, cfg.Mode)
	return b
}

func (b *Buffer) stateFor(items int) string {
	switch {
	case items == 0:
		return BufferIdle
	case items >= b.store.Capacity():
		return BufferBlocked
	default:
		return BufferReleasing
	}
}

// State returns IDLE, RELEASING or BLOCKED.
func (b *Buffer) State() string { return b.state.State() }

// Len returns the number of stored items.
func (b *Buffer) Len() int { return b.store.Len() }

// Store exposes the underlying store for inspection.
func (b *Buffer) Store() *store.Store { return b.store }

// MeanOccupancy returns the exact time-weighted average item count up to now.
func (b *Buffer) MeanOccupancy(now float64) float64 { return b.occ.tw.Mean(now) }

// MaxOccupancy returns the highest item count seen.
func (b *Buffer) MaxOccupancy() int { return int(b.occ.tw.Max()) }

// Snapshot implements Edge.
func (b *Buffer) Snapshot(now float64) stats.Snapshot {
	return stats.Snapshot{
		ID:        b.id,
		Type:      b.kind,
		Counters:  b.counters(),
		States:    b.state.Totals(now),
		Occupancy: b.occ.summary(now, b.store),
	}
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%s, %s, %d/%d)", b.id, b.State(), b.store.Len(), b.store.Capacity())
}

// itemDelayGate draws an availability delay for every inserted item.
type itemDelayGate struct {
	delay dist.Delay
	due   map[*sim.Item]float64
}

func newItemDelayGate(d dist.Delay) *itemDelayGate {
	return &itemDelayGate{delay: d, due: make(map[*sim.Item]float64)}
}

func (g *itemDelayGate) AdmitAt(now float64) float64 { return now }
func (g *itemDelayGate) Admitted(float64)            {}

func (g *itemDelayGate) Inserted(now float64, s store.Slot) {
	g.due[s.Item] = now + g.delay.Next()
}

func (g *itemDelayGate) ReleaseAt(_ int, s store.Slot) float64 { return g.due[s.Item] }

func (g *itemDelayGate) Removed(_ float64, _ int, s store.Slot) {
	delete(g.due, s.Item)
}
