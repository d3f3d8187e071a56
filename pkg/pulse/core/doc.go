// Package core implements the zero-allocation storage layer of pulse:
// the fixed-capacity event pool and the bounded intrusive event queues.
//
// All storage is sized at construction and never grows. Events are
// identified by slot index (Ref) into the pool's backing array, and
// queue membership is expressed as index links through the pool rather
// than pointer-based lists, so an event is provably in at most one
// queue at a time and there is no use-after-free class of bug.
//
// Producers running in interrupt-equivalent contexts call Acquire and
// Push; both are O(1), never block, and fail fast with a named error
// when storage is exhausted. Mutation of shared state happens inside a
// hal.Section critical section held for a small constant duration.
package core
