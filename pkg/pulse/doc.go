/*
Package pulse provides a zero-allocation, interrupt-safe event
dispatch core for watch-face firmware and similar constrained targets.

# Overview

pulse is the layer between interrupt-driven producers (sensors,
buttons, timers) and run-to-completion application handlers. Events
live in a fixed-capacity pool, travel through bounded intrusive FIFO
queues, and are routed by a single-context dispatcher that polls its
queues in strict priority order. A timer service delivers one-shot and
periodic events without busy-waiting. After construction nothing
allocates, nothing blocks on the producer side, and no failure mode
can leak a pool slot or halt the run loop.

# Basic Usage

Build a system from configuration, register handlers by kind, and run:

	cfg, err := config.FromFile("pulse.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	sys, err := config.SystemFromConfig(cfg)
	if err != nil {
	    log.Fatal(err)
	}

	system, err := pulse.NewSystem(sys,
	    pulse.WithLogger(slog.Default()),
	    pulse.WithMetrics(observability.NewCounterRecorder()),
	)
	if err != nil {
	    log.Fatal(err)
	}

	system.Dispatcher.Register(kindButtonPress, pulse.HandlerFunc(
	    func(ctx context.Context, evt *core.Event) error {
	        // bounded, run-to-completion work
	        return nil
	    }))

	go producer(system) // calls system.Emit from its own context
	system.Dispatcher.Run(ctx)

# Failure Semantics

Producer-side exhaustion (pool empty, queue full) returns a named
error to the producing context, which drops or coalesces the work; the
core never retries. Dispatcher-side faults (unhandled kind, handler
error, handler panic) are counted, logged, and the event is returned
to the pool; the loop continues. A lower-priority queue is only
serviced when all higher-priority queues are empty, so sustained
high-priority load starves low ranks by design.
*/
package pulse
