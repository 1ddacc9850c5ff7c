package edge

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
	"github.com/inference-sim/factorysim/sim/dist"
	"github.com/inference-sim/factorysim/sim/stats"
	"github.com/inference-sim/factorysim/sim/store"
)

// FleetConfig configures a Fleet.
type FleetConfig struct {
	// Capacity bounds both the pickup and the delivery store.
	Capacity     int
	Mode         store.Mode
	Transporters int
	// LoadCapacity is the number of items a transporter carries per trip.
	LoadCapacity int
	// Delay is the loaded travel time.
	Delay dist.Delay
	// ReturnDelay is the empty return trip; nil reuses Delay.
	ReturnDelay    dist.Delay
	SampleInterval float64
}

// Fleet is a link served by mobile transporters. Upstream nodes put into a
// pickup store; each transporter loads up to LoadCapacity waiting items,
// travels, unloads into the delivery store (waiting for room) and returns.
// Downstream nodes get from the delivery store.
type Fleet struct {
	ports
	pickup    *store.Store
	delivery  *store.Store
	cfg       FleetConfig
	workers   []*stats.WorkerStats
	occ       *occupancy
	inTransit int
	trips     int
	start     float64
}

// NewFleet creates a fleet and starts its transporters.
func NewFleet(env *sim.Environment, id string, cfg FleetConfig) *Fleet {
	if cfg.Transporters < 1 || cfg.LoadCapacity < 1 {
		panic(fmt.Sprintf("NewFleet(%s): need at least one transporter with load capacity >= 1", id))
	}
	if cfg.Delay == nil {
		cfg.Delay = dist.Constant(0)
	}
	if cfg.ReturnDelay == nil {
		cfg.ReturnDelay = cfg.Delay
	}
	pickup := store.New(env, store.Config{Name: id + ":pickup", Capacity: cfg.Capacity, Mode: cfg.Mode})
	delivery := store.New(env, store.Config{Name: id + ":delivery", Capacity: cfg.Capacity, Mode: store.FIFO})
	f := &Fleet{
		ports:    newPorts(env, id, "Fleet", pickup, delivery),
		pickup:   pickup,
		delivery: delivery,
		cfg:      cfg,
		start:    env.Now(),
	}
	f.occ = watchOccupancy(env, pickup, nil)
	f.occ.sample(env, id, pickup, cfg.SampleInterval)
	for i := 0; i < cfg.Transporters; i++ {
		w := stats.NewWorkerStats(i, env.Now())
		f.workers = append(f.workers, w)
		env.Process(fmt.Sprintf("%s:transporter-%d", id, i), func(p *sim.Process) error {
			return f.transport(p, w)
		})
	}
	f.log.Debugf("created: transporters=%d load_capacity=%d", cfg.Transporters, cfg.LoadCapacity)
	return f
}

func (f *Fleet) transport(p *sim.Process, w *stats.WorkerStats) error {
	for {
		w.Idle(p.Now())
		r := f.pickup.ReserveGet()
		if _, err := p.Wait(r.Event()); err != nil {
			return err
		}
		first, err := f.pickup.Get(r)
		if err != nil {
			return err
		}
		load := []*sim.Item{first}
		for len(load) < f.cfg.LoadCapacity && f.pickup.CanGet() {
			more, err := f.pickup.Get(f.pickup.ReserveGet())
			if err != nil {
				return err
			}
			load = append(load, more)
		}
		f.inTransit += len(load)
		w.Processing(p.Now())
		f.log.Debugf("[t=%.3f] transporter %d departs with %d item(s)", p.Now(), w.ID, len(load))
		if err := p.Hold(f.cfg.Delay.Next()); err != nil {
			return err
		}

		for _, item := range load {
			r := f.delivery.ReservePut()
			if !r.Granted() {
				w.Blocked(p.Now())
				if _, err := p.Wait(r.Event()); err != nil {
					return err
				}
				w.Processing(p.Now())
			}
			if err := f.delivery.Put(r, item); err != nil {
				return err
			}
			f.inTransit--
		}
		w.Completed += len(load)
		f.trips++
		if err := p.Hold(f.cfg.ReturnDelay.Next()); err != nil {
			return err
		}
	}
}

// Len returns the items held by the fleet: waiting, in transit and delivered.
func (f *Fleet) Len() int { return f.pickup.Len() + f.inTransit + f.delivery.Len() }

// Trips returns the number of completed deliveries.
func (f *Fleet) Trips() int { return f.trips }

// Pickup and Delivery expose the stores for inspection.
func (f *Fleet) Pickup() *store.Store   { return f.pickup }
func (f *Fleet) Delivery() *store.Store { return f.delivery }

// Snapshot implements Edge. Occupancy describes the pickup store.
func (f *Fleet) Snapshot(now float64) stats.Snapshot {
	c := f.counters()
	c["trips"] = f.trips
	c["in_transit"] = f.inTransit
	c["delivered_waiting"] = f.delivery.Len()
	snap := stats.Snapshot{
		ID:        f.id,
		Type:      f.kind,
		Counters:  c,
		Occupancy: f.occ.summary(now, f.pickup),
	}
	for _, w := range f.workers {
		snap.Workers = append(snap.Workers, w.Snapshot(f.start, now))
	}
	return snap
}
