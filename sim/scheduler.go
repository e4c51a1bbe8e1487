// sim/scheduler.go
package sim

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// entry is one pending resumption. Cancelled entries stay in the heap and are
// skipped when popped.
type entry struct {
	at        float64
	seq       int64
	handle    *Handle
	intr      *Interrupt
	cancelled bool
}

// readyQueue is a min-heap ordered by (at, urgency, seq): at equal times interrupt
// deliveries come before ordinary resumptions.
// Implements heap.Interface.
type readyQueue []*entry

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	if urgent := q[i].intr != nil; urgent != (q[j].intr != nil) {
		return urgent
	}
	return q[i].seq < q[j].seq
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(*entry))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler is the simulation clock and the ready queue of suspended processes.
//
// Thread-safety: NOT thread-safe. All calls must come from the goroutine running Run,
// or happen before Run is called.
type Scheduler struct {
	now     float64
	queue   readyQueue
	seq     int64
	procs   int64
	active  *Handle
	ctx     context.Context
	resumed int64
}

// NewScheduler creates a Scheduler with its clock at 0.
func NewScheduler() *Scheduler {
	return &Scheduler{
		queue: make(readyQueue, 0),
		ctx:   context.Background(),
	}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() float64 {
	return s.now
}

// Context returns the context passed to the current Run call.
// Before Run it is context.Background().
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// Pending returns the number of live entries in the ready queue.
func (s *Scheduler) Pending() int {
	n := 0
	for _, e := range s.queue {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// Resumptions returns how many times a process has been resumed so far.
func (s *Scheduler) Resumptions() int64 {
	return s.resumed
}

// Start registers p and schedules its first resumption at the current time.
func (s *Scheduler) Start(name string, p Process) *Handle {
	return s.StartAfter(name, p, 0)
}

// StartAfter registers p and schedules its first resumption delay time units from now.
func (s *Scheduler) StartAfter(name string, p Process, delay float64) *Handle {
	s.procs++
	h := &Handle{id: s.procs, name: name, proc: p}
	s.enqueue(h, s.now+checkDelay(name, delay), nil)
	return h
}

// ScheduleTimeout replaces whatever h is waiting on with a resumption d time units from now.
// It is used to wake a passivated process; a process suspending itself returns Timeout instead.
func (s *Scheduler) ScheduleTimeout(h *Handle, d float64) error {
	if h.done {
		return fmt.Errorf("schedule timeout for %q: %w", h.name, ErrProcessFinished)
	}
	s.cancelPending(h)
	s.enqueue(h, s.now+checkDelay(h.name, d), nil)
	return nil
}

// Interrupt forces h out of its current wait. The process is resumed at the current time
// with a non-nil *Interrupt, ahead of ordinary resumptions already queued for this instant
// (interrupts raised at the same instant are delivered in the order they were raised).
// If h already has an undelivered interrupt, the first cause is kept.
func (s *Scheduler) Interrupt(h *Handle, cause string) error {
	if h.done {
		return fmt.Errorf("interrupt %q: %w", h.name, ErrProcessFinished)
	}
	if h == s.active {
		return fmt.Errorf("interrupt %q: %w", h.name, ErrSelfInterrupt)
	}
	if h.pending != nil && h.pending.intr != nil {
		return nil
	}
	s.cancelPending(h)
	s.enqueue(h, s.now, &Interrupt{Cause: cause, At: s.now})
	return nil
}

// Run resumes processes in (time, insertion order) until the queue is empty or the next
// resumption is due at or after until. Pass math.Inf(1) to run until the queue drains.
// When the horizon stops the run, the clock is advanced to until.
// Run returns ctx.Err() if ctx is cancelled between two resumptions.
func (s *Scheduler) Run(ctx context.Context, until float64) error {
	s.ctx = ctx
	logrus.Debugf("[t=%g] Scheduler run started, until=%g, pending=%d", s.now, until, s.Pending())
	for s.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := s.queue[0]
		if next.at >= until {
			s.now = until
			break
		}
		heap.Pop(&s.queue)
		if next.cancelled {
			continue
		}
		s.now = next.at
		s.resume(next)
	}
	logrus.Debugf("[t=%g] Scheduler run stopped after %d resumptions", s.now, s.resumed)
	return nil
}

func (s *Scheduler) resume(e *entry) {
	h := e.handle
	h.pending = nil
	s.active = h
	s.resumed++
	w := h.proc.Step(s, e.intr)
	s.active = nil

	switch w.kind {
	case waitTimeout:
		s.enqueue(h, s.now+checkDelay(h.name, w.delay), nil)
	case waitUntil:
		checkDelay(h.name, w.at-s.now)
		s.enqueue(h, w.at, nil)
	case waitPassive:
		// only Interrupt or ScheduleTimeout can resume h
	case waitExit:
		h.done = true
		logrus.Tracef("[t=%g] process %q exited", s.now, h.name)
	}
}

func (s *Scheduler) enqueue(h *Handle, at float64, intr *Interrupt) {
	s.seq++
	e := &entry{at: at, seq: s.seq, handle: h, intr: intr}
	h.pending = e
	heap.Push(&s.queue, e)
}

func (s *Scheduler) cancelPending(h *Handle) {
	if h.pending != nil {
		h.pending.cancelled = true
		h.pending = nil
	}
}

func checkDelay(name string, d float64) float64 {
	if d < 0 || math.IsNaN(d) {
		panic(fmt.Sprintf("sim: invalid delay %g for process %q", d, name))
	}
	return d
}
