package store

import (
	"fmt"

	"github.com/inference-sim/factorysim/sim"
)

// Kind tells put reservations from get reservations.
type Kind int

const (
	KindPut Kind = iota
	KindGet
)

func (k Kind) String() string {
	if k == KindPut {
		return "put"
	}
	return "get"
}

// State is the lifecycle stage of a Reservation.
type State int

const (
	// Pending reservations wait in the store's queue.
	Pending State = iota
	// Granted reservations hold a slot (put) or are bound to an item (get).
	Granted
	// Redeemed reservations have been consumed by Put or Get.
	Redeemed
	// Canceled reservations were withdrawn before redemption.
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Granted:
		return "granted"
	case Redeemed:
		return "redeemed"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Reservation is a token for one future put or get on a Store.
// Its event succeeds when the store grants it; the event value is the
// reservation itself. A granted reservation must be redeemed exactly once
// (Put/Get) or canceled.
type Reservation struct {
	ev    *sim.Event
	store *Store
	kind  Kind
	state State
	seq   uint64

	// entry is the item a granted get is bound to.
	entry *entry

	RequestedAt float64
	GrantedAt   float64
}

// Event returns the event a process waits on for the grant.
func (r *Reservation) Event() *sim.Event { return r.ev }

// Store returns the store that issued the reservation.
func (r *Reservation) Store() *Store { return r.store }

// Kind returns whether this is a put or a get reservation.
func (r *Reservation) Kind() Kind { return r.kind }

// State returns the lifecycle stage.
func (r *Reservation) State() State { return r.state }

// Granted reports whether the reservation is granted and not yet redeemed or canceled.
func (r *Reservation) Granted() bool { return r.state == Granted }

// Item returns the item a granted get is bound to, or nil.
func (r *Reservation) Item() *sim.Item {
	if r.entry == nil {
		return nil
	}
	return r.entry.item
}

func (r *Reservation) String() string {
	return fmt.Sprintf("Reservation(%s/%s#%d, %s)", r.store.name, r.kind, r.seq, r.state)
}
