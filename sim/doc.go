// Package sim provides the discrete-event kernel for factorysim, a simulator
// of manufacturing flow networks.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - environment.go: the logical clock, the event heap and the single runner
//   - process.go: cooperative processes (Hold, Wait) backed by goroutines
//   - item.go: work items and their visit history
//
// # Architecture
//
// The sim package defines the kernel; the flow model lives in sub-packages:
//   - sim/store/: capacity-bounded item storage with put/get reservations
//   - sim/edge/: Buffer, ConveyorBelt and Fleet, built on store
//   - sim/node/: Source, Sink, Machine, Splitter and Combiner
//   - sim/dist/: delay generators (constants, streams, parametric, empirical)
//   - sim/stats/: state timers, time-weighted levels and samples
//   - sim/topology/: netlist parsing, validation and model assembly
//   - sim/trace/: item lifecycle trace and its summary
//   - sim/report/: text, JSON and YAML reports
//
// Exactly one process runs at a time. A process gives control back to the
// runner only inside Hold or Wait, so component state needs no locking.
//
// # Determinism
//
// Events at equal times fire in scheduling order. Every random draw comes
// from a PartitionedRNG subsystem keyed by component ID and parameter, so
// adding a component does not perturb the draws of the others.
package sim
