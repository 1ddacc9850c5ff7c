// Package edge implements the links between nodes: Buffer, ConveyorBelt and
// Fleet. Every edge exposes the reservation contract of package store; nodes
// never touch an edge's items any other way.
package edge

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
	"github.com/inference-sim/factorysim/sim/trace"
)

// Edge is what nodes see of a link. Reservations come from ReservePut and
// ReserveGet and must be redeemed with Put and Get on the same edge, or
// released with Cancel.
type Edge interface {
	ID() string
	ReservePut() *store.Reservation
	Put(r *store.Reservation, item *sim.Item) error
	ReserveGet() *store.Reservation
	Get(r *store.Reservation) (*sim.Item, error)
	Cancel(r *store.Reservation) error
	// CanPut reports whether a put reserved now would be granted at once.
	CanPut() bool
	// CanGet reports whether a get reserved now would be granted at once.
	CanGet() bool
	// Len returns the number of items held.
	Len() int
	Snapshot(now float64) stats.Snapshot
}

// ports implements the item-moving half of Edge over an entry store (puts)
// and an exit store (gets). Buffers and belts use one store for both.
type ports struct {
	id   string
	env  *sim.Environment
	in   *store.Store
	out  *store.Store
	log  *logrus.Entry
	kind string

	entered int
	exited  int
}

func newPorts(env *sim.Environment, id, kind string, in, out *store.Store) ports {
	return ports{
		id:   id,
		env:  env,
		in:   in,
		out:  out,
		kind: kind,
		log:  logrus.WithFields(logrus.Fields{"component": id, "type": kind}),
	}
}

func (p *ports) ID() string { return p.id }

func (p *ports) ReservePut() *store.Reservation { return p.in.ReservePut() }

func (p *ports) ReserveGet() *store.Reservation { return p.out.ReserveGet() }

func (p *ports) CanPut() bool { return p.in.CanPut() }

func (p *ports) CanGet() bool { return p.out.CanGet() }

func (p *ports) Put(r *store.Reservation, item *sim.Item) error {
	if err := p.in.Put(r, item); err != nil {
		return fmt.Errorf("%s: %w", p.id, err)
	}
	now := p.env.Now()
	item.Enter(p.id, now)
	p.env.Record(trace.KindEnter, item, p.id)
	p.entered++
	return nil
}

func (p *ports) Get(r *store.Reservation) (*sim.Item, error) {
	item, err := p.out.Get(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.id, err)
	}
	item.Exit(p.id, p.env.Now())
	p.env.Record(trace.KindExit, item, p.id)
	p.exited++
	return item, nil
}

func (p *ports) Cancel(r *store.Reservation) error {
	if r == nil || (r.Store() != p.in && r.Store() != p.out) {
		return fmt.Errorf("%s cancel: foreign token: %w", p.id, sim.ErrInvalidToken)
	}
	if err := r.Store().Cancel(r); err != nil {
		return fmt.Errorf("%s: %w", p.id, err)
	}
	return nil
}

func (p *ports) counters() map[string]int {
	return map[string]int{"entered": p.entered, "exited": p.exited}
}

// occupancy tracks the exact time-weighted item count of a store and,
// optionally, periodic samples of it.
type occupancy struct {
	tw      *stats.TimeWeighted
	samples stats.Sample
}

func watchOccupancy(env *sim.Environment, s *store.Store, onChange func(now float64, items int)) *occupancy {
	o := &occupancy{tw: stats.NewTimeWeighted(env.Now())}
	s.OnChange(func(now float64, items int) {
		o.tw.Update(now, float64(items))
		if onChange != nil {
			onChange(now, items)
		}
	})
	return o
}

// sample starts a process recording s.Len() every interval. A non-positive
// interval disables sampling.
func (o *occupancy) sample(env *sim.Environment, id string, s *store.Store, interval float64) {
	if interval <= 0 {
		return
	}
	env.Process(id+":sampler", func(p *sim.Process) error {
		for {
			o.samples.Add(float64(s.Len()))
			if err := p.Hold(interval); err != nil {
				return err
			}
		}
	})
}

func (o *occupancy) summary(now float64, s *store.Store) *stats.OccupancySummary {
	return &stats.OccupancySummary{
		Capacity:    s.Capacity(),
		Final:       s.Len(),
		Mean:        o.tw.Mean(now),
		Max:         o.tw.Max(),
		SampledMean: o.samples.Mean(),
	}
}
