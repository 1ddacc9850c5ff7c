// Defines the Item struct that models an individual unit of material flowing
// through the production network. Tracks creation time, the components it
// visited, and (for pallets) the sub-items it carries.

package sim

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// itemNamespace scopes item UUIDs so they never collide with other name-based UUIDs.
var itemNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("factorysim/item"))

// Visit records one stay of an item inside a component.
// Exited is NaN while the item is still inside.
type Visit struct {
	Component string
	Entered   float64
	Exited    float64
}

// Item is an opaque flow unit. It is owned by whichever store or worker
// currently holds it. A composite item (pallet) owns an ordered Payload.
type Item struct {
	ID          string    // "<source>-<seq>", unique within a run
	UUID        uuid.UUID // name-derived from (seed, ID): stable across identical runs
	CreatedAt   float64
	DestroyedAt float64 // NaN until absorbed by a sink or discarded
	Visits      []Visit
	Payload     []*Item
}

// NewItem creates an item born at now. The UUID derives from the simulation
// key and id, so it is reproducible.
func NewItem(key SimulationKey, id string, now float64) *Item {
	return &Item{
		ID:          id,
		UUID:        uuid.NewSHA1(itemNamespace, []byte(fmt.Sprintf("%d/%s", int64(key), id))),
		CreatedAt:   now,
		DestroyedAt: math.NaN(),
	}
}

// NewItem creates an item in this environment at the current time.
func (env *Environment) NewItem(id string) *Item {
	return NewItem(env.RNG.Key(), id, env.now)
}

// Enter opens a visit to component.
func (it *Item) Enter(component string, now float64) {
	it.Visits = append(it.Visits, Visit{Component: component, Entered: now, Exited: math.NaN()})
}

// Exit closes the most recent open visit to component. Exiting a component the
// item never entered is ignored.
func (it *Item) Exit(component string, now float64) {
	for i := len(it.Visits) - 1; i >= 0; i-- {
		v := &it.Visits[i]
		if v.Component == component && math.IsNaN(v.Exited) {
			v.Exited = now
			return
		}
	}
}

// Destroy stamps the destruction time of the item and its payload.
func (it *Item) Destroy(now float64) {
	it.DestroyedAt = now
	for _, sub := range it.Payload {
		sub.Destroy(now)
	}
}

// Destroyed reports whether Destroy has been called.
func (it *Item) Destroyed() bool { return !math.IsNaN(it.DestroyedAt) }

// Append adds sub-items to the payload, turning the item into a pallet.
func (it *Item) Append(subs ...*Item) {
	it.Payload = append(it.Payload, subs...)
}

// Unpack removes and returns the payload in order, leaving an empty carrier.
func (it *Item) Unpack() []*Item {
	subs := it.Payload
	it.Payload = nil
	return subs
}

// CycleTime returns the time from creation to now.
func (it *Item) CycleTime(now float64) float64 {
	return now - it.CreatedAt
}

// This method returns a human-readable string representation of an Item.
func (it *Item) String() string {
	return fmt.Sprintf("Item(ID: %s, CreatedAt: %.3f, Payload: %d)", it.ID, it.CreatedAt, len(it.Payload))
}
