package store

import (
	"fmt"
	"strings"
)

// waitQueue is a FIFO queue of reservations waiting for a grant.
// Removal from the middle (cancellation) keeps the relative order of the rest.
type waitQueue struct {
	queue []*Reservation
}

// Enqueue adds a reservation to the back of the queue.
func (wq *waitQueue) Enqueue(r *Reservation) {
	wq.queue = append(wq.queue, r)
}

// Len returns the number of waiting reservations.
func (wq *waitQueue) Len() int {
	return len(wq.queue)
}

// Dequeue removes and returns the front reservation, or nil.
func (wq *waitQueue) Dequeue() *Reservation {
	if len(wq.queue) == 0 {
		return nil
	}
	r := wq.queue[0]
	wq.queue[0] = nil
	wq.queue = wq.queue[1:]
	return r
}

// Remove deletes r from the queue. Returns false if r is not queued.
func (wq *waitQueue) Remove(r *Reservation) bool {
	for i, q := range wq.queue {
		if q == r {
			copy(wq.queue[i:], wq.queue[i+1:])
			wq.queue[len(wq.queue)-1] = nil
			wq.queue = wq.queue[:len(wq.queue)-1]
			return true
		}
	}
	return false
}

func (wq *waitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val.seq))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
