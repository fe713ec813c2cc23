// Package cpuclock measures elapsed time for search budgets.
//
// The default clock is the per-process CPU clock, so budgets keep their meaning when many searches
// compete for the CPU in separate processes. Searches running concurrently in the same process should
// use the Wall clock instead, since they share the process CPU time.
package cpuclock

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Clock returns a monotonic reading, only meaningful as a difference between two readings.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to a Clock.
type ClockFunc func() time.Duration

// Now implements Clock.
func (f ClockFunc) Now() time.Duration { return f() }

var wallStart = time.Now()

var (
	// Process is the CPU time consumed by the current process.
	Process Clock = ClockFunc(processTime)

	// Wall is the monotonic wall-clock.
	Wall Clock = ClockFunc(func() time.Duration { return time.Since(wallStart) })
)

// ByName returns the clock named "cpu" (or "process") or "wall".
func ByName(name string) (Clock, error) {
	switch strings.ToLower(name) {
	case "", "cpu", "process":
		return Process, nil
	case "wall":
		return Wall, nil
	}
	return nil, errors.Errorf("unknown clock %q, valid values are \"cpu\" or \"wall\"", name)
}

// Stopwatch measures time elapsed since it was started.
type Stopwatch struct {
	clock Clock
	start time.Duration
}

// Start returns a Stopwatch started now. A nil clock defaults to Process.
func Start(clock Clock) Stopwatch {
	if clock == nil {
		clock = Process
	}
	return Stopwatch{clock: clock, start: clock.Now()}
}

// Elapsed time since the Stopwatch was started.
func (s Stopwatch) Elapsed() time.Duration {
	if s.clock == nil {
		return 0
	}
	return s.clock.Now() - s.start
}
