package engine

import (
	"sync"

	"github.com/slimfix/slimd/internal/wire"
)

const (
	// OK is the success sentinel for instructions with no meaningful
	// return payload (Make, Import).
	OK = "OK"
	// VoidSentinel is returned when a Call/CallAndAssign method returns
	// nothing.
	VoidSentinel = "/__VOID__/"
)

// ResultEntry pairs an instruction id with its outcome payload, per
// spec.md §3/§4.5. Payload is a wire.Value rather than a plain string
// because a Call/CallAndAssign returning a list flattens to a nested wire
// list, not a flat string.
type ResultEntry struct {
	ID      string
	Payload wire.Value
}

// ResultCollector accumulates outcomes in execution order.
type ResultCollector struct {
	mu      sync.Mutex
	entries []ResultEntry
}

// NewResultCollector returns an empty collector.
func NewResultCollector() *ResultCollector {
	return &ResultCollector{}
}

// Record appends one outcome — OK, a stringified value, the void
// sentinel, or an exception string — in execution order.
func (c *ResultCollector) Record(id string, payload wire.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, ResultEntry{ID: id, Payload: payload})
}

// Raised records an exception outcome for an instruction that never made
// it to Execute (e.g. a parse-time MALFORMED_INSTRUCTION).
func (c *ResultCollector) Raised(id string, err *InstructionError) {
	c.Record(id, wire.String(FormatException(err)))
}

// Snapshot returns a stable copy of the collected entries in order; later
// mutation of the collector is not visible through a previously taken
// snapshot (spec.md §4.5).
func (c *ResultCollector) Snapshot() []ResultEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ResultEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Encode renders the collected entries as the top-level wire list the
// session loop sends back: a list of (id, payload) pairs.
func (c *ResultCollector) Encode() wire.Value {
	entries := c.Snapshot()
	pairs := make([]wire.Value, len(entries))
	for i, e := range entries {
		pairs[i] = wire.List(wire.String(e.ID), e.Payload)
	}
	return wire.List(pairs...)
}
