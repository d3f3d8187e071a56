package config

import (
	"fmt"

	"github.com/quartzos/pulse/pkg/pulse/core"
)

// Default sizes for a small watch-face deployment.
const (
	DefaultPoolCapacity  = 32
	DefaultTimerCapacity = 16
)

// QueueDef describes one event queue.
type QueueDef struct {
	// Name identifies the queue in logs, metrics, and lookups.
	Name string

	// Capacity bounds the queue length.
	Capacity int

	// Priority ranks the queue at the dispatcher; 0 is serviced
	// first.
	Priority int

	// Policy decides behavior on a full queue.
	Policy core.FullPolicy
}

// System is the validated, typed system configuration.
type System struct {
	// PoolCapacity is the event pool size.
	PoolCapacity int

	// TimerCapacity is the timer table size.
	TimerCapacity int

	// DebugChecks enables pool lifecycle assertions.
	DebugChecks bool

	// Queues are the event queues, in declaration order.
	Queues []QueueDef
}

// SystemFromConfig extracts and validates a System from a Config.
//
// Expected shape (YAML):
//
//	pool:
//	  capacity: 32
//	  debug_checks: true
//	timers:
//	  capacity: 16
//	queues:
//	  - name: input
//	    capacity: 8
//	    priority: 0
//	    policy: reject
func SystemFromConfig(c Config) (System, error) {
	pool := c.Section("pool")
	timers := c.Section("timers")

	sys := System{
		PoolCapacity:  pool.Int("capacity", DefaultPoolCapacity),
		TimerCapacity: timers.Int("capacity", DefaultTimerCapacity),
		DebugChecks:   pool.Bool("debug_checks", false),
	}

	defs := c.List("queues")
	if len(defs) == 0 {
		return System{}, fmt.Errorf("configuration declares no queues")
	}

	seen := make(map[string]bool, len(defs))
	for i, qc := range defs {
		name := qc.String("name", "")
		if name == "" {
			return System{}, fmt.Errorf("queue %d: name is required", i)
		}
		if seen[name] {
			return System{}, fmt.Errorf("queue %q declared twice", name)
		}
		seen[name] = true

		capacity := qc.Int("capacity", 0)
		if capacity <= 0 {
			return System{}, fmt.Errorf("queue %q: capacity must be positive", name)
		}
		if capacity > sys.PoolCapacity {
			return System{}, fmt.Errorf("queue %q: capacity %d exceeds pool capacity %d",
				name, capacity, sys.PoolCapacity)
		}

		policy, err := core.ParseFullPolicy(qc.String("policy", ""))
		if err != nil {
			return System{}, fmt.Errorf("queue %q: %w", name, err)
		}

		sys.Queues = append(sys.Queues, QueueDef{
			Name:     name,
			Capacity: capacity,
			Priority: qc.Int("priority", i),
			Policy:   policy,
		})
	}

	if err := sys.Validate(); err != nil {
		return System{}, err
	}
	return sys, nil
}

// Validate checks a hand-built System for consistency.
func (s System) Validate() error {
	if s.PoolCapacity <= 0 {
		return fmt.Errorf("pool capacity must be positive, got %d", s.PoolCapacity)
	}
	if s.TimerCapacity <= 0 {
		return fmt.Errorf("timer capacity must be positive, got %d", s.TimerCapacity)
	}
	if len(s.Queues) == 0 {
		return fmt.Errorf("at least one queue is required")
	}
	return nil
}
