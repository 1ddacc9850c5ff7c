package store

import (
	"math"

	"github.com/inference-sim/factorysim/sim"
)

// Slot is a read-only view of a stored item for a Gate.
type Slot struct {
	Item       *sim.Item
	InsertedAt float64
}

// Gate adds timing to a store's admission and release. Buffers use it for
// availability delays and conveyor belts for slot spacing and transit.
// Capacity and ordering stay with the store.
//
// Times returned by AdmitAt and ReleaseAt may lie in the future; the store
// then arms a wake-up for the earliest one. +Inf means "not until something
// else changes" and arms nothing.
type Gate interface {
	// AdmitAt returns the earliest time a put reservation may be granted.
	AdmitAt(now float64) float64
	// Admitted is called when a put reservation is granted.
	Admitted(now float64)
	// Inserted is called after an item is stored.
	Inserted(now float64, s Slot)
	// ReleaseAt returns the earliest time the entry at pos (0 = front) may be
	// bound to a get reservation.
	ReleaseAt(pos int, s Slot) float64
	// Removed is called after the entry at pos is taken out by Get.
	Removed(now float64, pos int, s Slot)
}

// openGate admits and releases immediately.
type openGate struct{}

func (openGate) AdmitAt(float64) float64     { return math.Inf(-1) }
func (openGate) Admitted(float64)            {}
func (openGate) Inserted(float64, Slot)      {}
func (openGate) ReleaseAt(int, Slot) float64 { return math.Inf(-1) }
func (openGate) Removed(float64, int, Slot)  {}

// DelayGate releases an item once it has aged Delay time units.
type DelayGate struct {
	Delay float64
}

func (g DelayGate) AdmitAt(float64) float64 { return math.Inf(-1) }
func (g DelayGate) Admitted(float64)        {}
func (g DelayGate) Inserted(float64, Slot)  {}

func (g DelayGate) ReleaseAt(_ int, s Slot) float64 {
	return s.InsertedAt + g.Delay
}

func (g DelayGate) Removed(float64, int, Slot) {}
