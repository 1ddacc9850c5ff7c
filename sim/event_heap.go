package sim

import "container/heap"

// scheduledEvent is one heap entry: an event due at a logical time.
type scheduledEvent struct {
	time float64
	seq  uint64
	ev   *Event
}

// EventHeap implements a priority queue with deterministic ordering.
// Ordering: timestamp → insertion sequence.
// Events scheduled for the same instant run in the order they were scheduled.
type EventHeap struct {
	entries []scheduledEvent
}

// NewEventHeap creates a new event heap
func NewEventHeap() *EventHeap {
	h := &EventHeap{
		entries: make([]scheduledEvent, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EventHeap) Len() int {
	return len(h.entries)
}

// Less implements heap.Interface with deterministic ordering
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.entries[i], h.entries[j]
	if ei.time != ej.time {
		return ei.time < ej.time
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (h *EventHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

// Push implements heap.Interface
func (h *EventHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(scheduledEvent))
}

// Pop implements heap.Interface
func (h *EventHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	item := old[n-1]
	h.entries = old[0 : n-1]
	return item
}

// schedule adds an event to the heap
func (h *EventHeap) schedule(time float64, seq uint64, ev *Event) {
	heap.Push(h, scheduledEvent{time: time, seq: seq, ev: ev})
}

// popNext removes and returns the next entry; ok is false on an empty heap.
func (h *EventHeap) popNext() (scheduledEvent, bool) {
	if h.Len() == 0 {
		return scheduledEvent{}, false
	}
	return heap.Pop(h).(scheduledEvent), true
}

// PeekTime returns the time of the next event without removing it.
func (h *EventHeap) PeekTime() (float64, bool) {
	if h.Len() == 0 {
		return 0, false
	}
	return h.entries[0].time, true
}

// clear drops every pending entry.
func (h *EventHeap) clear() {
	h.entries = h.entries[:0]
}
