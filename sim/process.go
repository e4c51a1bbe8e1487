package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrProcessFinished is returned when a finished process is interrupted or rescheduled.
	ErrProcessFinished = errors.New("process has already finished")
	// ErrSelfInterrupt is returned when a process tries to interrupt itself.
	ErrSelfInterrupt = errors.New("a process cannot interrupt itself")
)

// Process is a suspended computation driven by a Scheduler.
// Step is called every time the process is resumed. intr is nil for an ordinary
// resumption (initial start or an elapsed timeout) and non-nil when the process was
// forced out of its wait by Scheduler.Interrupt. The returned Wait is the next
// suspension point; a process that does not want to handle an interrupt propagates
// it by returning Exit().
type Process interface {
	Step(s *Scheduler, intr *Interrupt) Wait
}

// ProcessFunc adapts a plain function to the Process interface.
type ProcessFunc func(s *Scheduler, intr *Interrupt) Wait

// Step calls f(s, intr).
func (f ProcessFunc) Step(s *Scheduler, intr *Interrupt) Wait {
	return f(s, intr)
}

// Interrupt is the signal delivered to a process by Scheduler.Interrupt.
type Interrupt struct {
	Cause string  // free-form reason supplied by the interrupter
	At    float64 // simulation time the interrupt was raised
}

// Error implements error so an interrupt can be propagated as one.
func (i *Interrupt) Error() string {
	return fmt.Sprintf("interrupted at t=%g: %s", i.At, i.Cause)
}

type waitKind int

const (
	waitTimeout waitKind = iota
	waitUntil
	waitPassive
	waitExit
)

// Wait is a suspension request returned from Process.Step.
type Wait struct {
	kind  waitKind
	delay float64
	at    float64
}

// Timeout suspends the process for d units of simulation time.
// A negative d is a programming error and panics when the wait is issued.
func Timeout(d float64) Wait {
	return Wait{kind: waitTimeout, delay: d}
}

// Until suspends the process until the absolute simulation time t. Processes stepping
// on a fixed grid use it to avoid drift from summing delays.
// A t before the current time is a programming error and panics when the wait is issued.
func Until(t float64) Wait {
	return Wait{kind: waitUntil, at: t}
}

// Passivate suspends the process until it is interrupted or explicitly rescheduled.
func Passivate() Wait {
	return Wait{kind: waitPassive}
}

// Exit terminates the process. It is never resumed again.
func Exit() Wait {
	return Wait{kind: waitExit}
}

// Handle identifies a process registered with a Scheduler.
type Handle struct {
	id      int64
	name    string
	proc    Process
	pending *entry
	done    bool
}

// ID returns the registration order of the process (starting at 1).
func (h *Handle) ID() int64 { return h.id }

// Name returns the name given at Start.
func (h *Handle) Name() string { return h.name }

// IsAlive reports whether the process can still be resumed.
func (h *Handle) IsAlive() bool { return !h.done }
