// Package store implements the reservation-based store every queueing and
// transport edge is built on.
//
// A producer reserves a slot before it has an item and a consumer reserves an
// item before one exists. Grants are issued in request order; a granted get is
// bound to one concrete entry at grant time, so workers granted in order A, B
// redeem in order A, B no matter which physical item arrives first.
//
// Invariant: stored items + granted unredeemed puts <= capacity, at every instant.
package store

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/factorysim/sim"
)

// Mode is the release discipline of a store.
type Mode int

const (
	// FIFO releases in insertion order.
	FIFO Mode = iota
	// LIFO releases newest first.
	LIFO
)

func (m Mode) String() string {
	if m == LIFO {
		return "LIFO"
	}
	return "FIFO"
}

// ParseMode converts "FIFO"/"LIFO" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "FIFO", "":
		return FIFO, nil
	case "LIFO":
		return LIFO, nil
	default:
		return FIFO, fmt.Errorf("unknown store mode %q (valid: FIFO, LIFO)", s)
	}
}

type entry struct {
	item       *sim.Item
	insertedAt float64
	bound      *Reservation
}

func (e *entry) slot() Slot { return Slot{Item: e.item, InsertedAt: e.insertedAt} }

// Config configures a Store.
type Config struct {
	Name     string
	Capacity int
	Mode     Mode
	Gate     Gate // nil admits and releases immediately
}

// Counters are cumulative operation counts.
type Counters struct {
	Puts    int
	Gets    int
	Cancels int
}

// Store is a bounded container with reserve-then-commit put and get.
// It is owned by one edge; nodes only reach it through reservations.
type Store struct {
	env      *sim.Environment
	name     string
	capacity int
	mode     Mode
	gate     Gate

	entries     []*entry
	putQ        waitQueue
	getQ        waitQueue
	grantedPuts int
	seq         uint64

	wakeAt  float64
	wakeGen uint64

	changed   *sim.Signal
	observers []func(now float64, items int)
	counters  Counters
}

// New creates a store. Capacity must be positive.
func New(env *sim.Environment, cfg Config) *Store {
	if cfg.Capacity <= 0 {
		panic(fmt.Sprintf("store.New(%s): capacity must be positive, got %d", cfg.Name, cfg.Capacity))
	}
	gate := cfg.Gate
	if gate == nil {
		gate = openGate{}
	}
	return &Store{
		env:      env,
		name:     cfg.Name,
		capacity: cfg.Capacity,
		mode:     cfg.Mode,
		gate:     gate,
		wakeAt:   math.Inf(1),
		changed:  env.NewSignal(cfg.Name + ":changed"),
	}
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Capacity returns C.
func (s *Store) Capacity() int { return s.capacity }

// Mode returns the release discipline.
func (s *Store) Mode() Mode { return s.mode }

// Len returns the number of stored items.
func (s *Store) Len() int { return len(s.entries) }

// GrantedPuts returns the number of granted, unredeemed put reservations.
func (s *Store) GrantedPuts() int { return s.grantedPuts }

// PendingPuts returns the number of queued put reservations.
func (s *Store) PendingPuts() int { return s.putQ.Len() }

// PendingGets returns the number of queued get reservations.
func (s *Store) PendingGets() int { return s.getQ.Len() }

// Counters returns cumulative operation counts.
func (s *Store) Counters() Counters { return s.counters }

// Changed returns a signal fired after every put, get and cancel.
func (s *Store) Changed() *sim.Signal { return s.changed }

// OnChange registers fn to be called with the item count whenever it changes.
func (s *Store) OnChange(fn func(now float64, items int)) {
	s.observers = append(s.observers, fn)
}

// Items returns the stored items in release order (front first).
func (s *Store) Items() []*sim.Item {
	items := make([]*sim.Item, len(s.entries))
	for i, e := range s.entries {
		items[i] = e.item
	}
	return items
}

// CanPut reports whether a put reservation issued now would be granted
// immediately.
func (s *Store) CanPut() bool {
	return s.putQ.Len() == 0 &&
		s.capacity-len(s.entries) > s.grantedPuts &&
		s.gate.AdmitAt(s.env.Now()) <= s.env.Now()
}

// CanGet reports whether a get reservation issued now would be granted
// immediately.
func (s *Store) CanGet() bool {
	return s.getQ.Len() == 0 && s.releasable(s.env.Now()) != nil
}

// ReservePut requests a slot. The returned reservation's event succeeds
// when the slot is guaranteed.
func (s *Store) ReservePut() *Reservation {
	r := s.newReservation(KindPut)
	s.putQ.Enqueue(r)
	s.dispatch()
	return r
}

// ReserveGet requests an item. The returned reservation's event succeeds
// when an item is bound to it.
func (s *Store) ReserveGet() *Reservation {
	r := s.newReservation(KindGet)
	s.getQ.Enqueue(r)
	s.dispatch()
	return r
}

func (s *Store) newReservation(kind Kind) *Reservation {
	s.seq++
	return &Reservation{
		ev:          s.env.NewEvent(fmt.Sprintf("%s:%s#%d", s.name, kind, s.seq)),
		store:       s,
		kind:        kind,
		seq:         s.seq,
		RequestedAt: s.env.Now(),
		GrantedAt:   math.NaN(),
	}
}

func (s *Store) check(r *Reservation, kind Kind, op string) error {
	if r == nil || r.store != s || r.kind != kind || r.state != Granted {
		state := "unknown"
		if r != nil && r.store == s {
			state = r.state.String()
		}
		return fmt.Errorf("%s %s: %s token: %w", s.name, op, state, sim.ErrInvalidToken)
	}
	return nil
}

// Put redeems a granted put reservation by storing item.
func (s *Store) Put(r *Reservation, item *sim.Item) error {
	if err := s.check(r, KindPut, "put"); err != nil {
		return err
	}
	now := s.env.Now()
	r.state = Redeemed
	s.grantedPuts--
	e := &entry{item: item, insertedAt: now}
	if s.mode == LIFO {
		s.entries = append([]*entry{e}, s.entries...)
	} else {
		s.entries = append(s.entries, e)
	}
	s.gate.Inserted(now, e.slot())
	s.counters.Puts++
	if err := s.checkCapacity(); err != nil {
		return err
	}
	logrus.Debugf("[t=%.3f] %s: put %s (%d/%d)", now, s.name, item.ID, len(s.entries), s.capacity)
	s.changedNow(now)
	return nil
}

// Get redeems a granted get reservation and returns the item bound to it.
func (s *Store) Get(r *Reservation) (*sim.Item, error) {
	if err := s.check(r, KindGet, "get"); err != nil {
		return nil, err
	}
	now := s.env.Now()
	e := r.entry
	pos := s.indexOf(e)
	if pos < 0 {
		panic(fmt.Sprintf("store %s: bound entry for %s missing", s.name, r))
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	r.state = Redeemed
	r.entry = nil
	e.bound = nil
	s.gate.Removed(now, pos, e.slot())
	s.counters.Gets++
	logrus.Debugf("[t=%.3f] %s: get %s (%d/%d)", now, s.name, e.item.ID, len(s.entries), s.capacity)
	s.changedNow(now)
	return e.item, nil
}

// Cancel withdraws a reservation. A pending one leaves its queue without
// disturbing the order of the others. A granted put returns its slot; a
// granted get releases its entry, which is re-offered to the earliest waiting
// get. Canceling a redeemed or already canceled reservation fails with
// ErrInvalidToken.
func (s *Store) Cancel(r *Reservation) error {
	if r == nil || r.store != s {
		return fmt.Errorf("%s cancel: unknown token: %w", s.name, sim.ErrInvalidToken)
	}
	switch r.state {
	case Pending:
		q := &s.putQ
		if r.kind == KindGet {
			q = &s.getQ
		}
		if !q.Remove(r) {
			panic(fmt.Sprintf("store %s: pending %s not queued", s.name, r))
		}
	case Granted:
		if r.kind == KindPut {
			s.grantedPuts--
		} else {
			r.entry.bound = nil
			r.entry = nil
		}
	default:
		return fmt.Errorf("%s cancel: %s token: %w", s.name, r.state, sim.ErrInvalidToken)
	}
	r.state = Canceled
	s.counters.Cancels++
	s.dispatch()
	s.changed.Fire(s)
	return nil
}

func (s *Store) changedNow(now float64) {
	for _, fn := range s.observers {
		fn(now, len(s.entries))
	}
	s.dispatch()
	s.changed.Fire(s)
}

func (s *Store) checkCapacity() error {
	if len(s.entries)+s.grantedPuts > s.capacity {
		return fmt.Errorf("%s: %d items + %d granted puts > capacity %d: %w",
			s.name, len(s.entries), s.grantedPuts, s.capacity, sim.ErrCapacityViolation)
	}
	return nil
}

func (s *Store) indexOf(e *entry) int {
	for i, x := range s.entries {
		if x == e {
			return i
		}
	}
	return -1
}

// releasable returns the front-most unbound entry the gate releases by now.
func (s *Store) releasable(now float64) *entry {
	for i, e := range s.entries {
		if e.bound == nil && s.gate.ReleaseAt(i, e.slot()) <= now {
			return e
		}
	}
	return nil
}

// dispatch grants queued reservations in arrival order for as long as the
// store and gate allow, then arms a wake-up for the next time-gated grant.
func (s *Store) dispatch() {
	now := s.env.Now()
	for s.putQ.Len() > 0 &&
		len(s.entries)+s.grantedPuts < s.capacity &&
		s.gate.AdmitAt(now) <= now {
		r := s.putQ.Dequeue()
		r.state = Granted
		r.GrantedAt = now
		s.grantedPuts++
		s.gate.Admitted(now)
		_ = r.ev.Succeed(r)
	}
	for s.getQ.Len() > 0 {
		e := s.releasable(now)
		if e == nil {
			break
		}
		r := s.getQ.Dequeue()
		r.state = Granted
		r.GrantedAt = now
		r.entry = e
		e.bound = r
		_ = r.ev.Succeed(r)
	}
	s.armWake(now)
}

func (s *Store) armWake(now float64) {
	next := math.Inf(1)
	if s.putQ.Len() > 0 && len(s.entries)+s.grantedPuts < s.capacity {
		if t := s.gate.AdmitAt(now); t > now {
			next = t
		}
	}
	if s.getQ.Len() > 0 {
		for i, e := range s.entries {
			if e.bound != nil {
				continue
			}
			if t := s.gate.ReleaseAt(i, e.slot()); t > now && t < next {
				next = t
			}
		}
	}
	if math.IsInf(next, 1) || next >= s.wakeAt {
		return
	}
	s.wakeAt = next
	s.wakeGen++
	gen := s.wakeGen
	s.env.TimeoutAt(next).AddCallback(func(*sim.Event) {
		if gen != s.wakeGen {
			return
		}
		s.wakeAt = math.Inf(1)
		s.dispatch()
	})
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(%s, %s, %d/%d, puts=%s gets=%s)",
		s.name, s.mode, len(s.entries), s.capacity, s.putQ.String(), s.getQ.String())
}
