package sim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ticker records every resumption time and reschedules itself with a fixed period.
type ticker struct {
	label  string
	period float64
	log    *[]string
	times  []float64
}

func (tk *ticker) Step(s *Scheduler, intr *Interrupt) Wait {
	if intr != nil {
		*tk.log = append(*tk.log, tk.label+":interrupted")
		return Exit()
	}
	tk.times = append(tk.times, s.Now())
	*tk.log = append(*tk.log, tk.label)
	return Timeout(tk.period)
}

func TestScheduler_Run_ResumesInTimeOrder(t *testing.T) {
	// GIVEN two processes with different periods
	s := NewScheduler()
	var log []string
	fast := &ticker{label: "fast", period: 1, log: &log}
	slow := &ticker{label: "slow", period: 3, log: &log}
	s.Start("fast", fast)
	s.Start("slow", slow)

	// WHEN running until t=4
	require.NoError(t, s.Run(context.Background(), 4))

	// THEN each process ran at its own times and resumptions at t=4 were not processed
	assert.Equal(t, []float64{0, 1, 2, 3}, fast.times)
	assert.Equal(t, []float64{0, 3}, slow.times)
	assert.Equal(t, 4.0, s.Now())
}

func TestScheduler_Run_EqualTimesFireInInsertionOrder(t *testing.T) {
	// GIVEN three processes started at the same instant
	s := NewScheduler()
	var log []string
	for _, name := range []string{"a", "b", "c"} {
		s.Start(name, &ticker{label: name, period: 1, log: &log})
	}

	// WHEN running two ticks
	require.NoError(t, s.Run(context.Background(), 2))

	// THEN the registration order is the tie-break at every tick
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, log)
}

func TestScheduler_Interrupt_DeliversSignalAndCancelsTimeout(t *testing.T) {
	// GIVEN a sleeper waiting for 100 and a waker firing at 5
	s := NewScheduler()
	var got *Interrupt
	var resumedAt []float64
	sleeper := s.Start("sleeper", ProcessFunc(func(s *Scheduler, intr *Interrupt) Wait {
		resumedAt = append(resumedAt, s.Now())
		if intr != nil {
			got = intr
			return Exit()
		}
		return Timeout(100)
	}))
	s.StartAfter("waker", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		require.NoError(t, s.Interrupt(sleeper, "wake up"))
		return Exit()
	}), 5)

	// WHEN the queue drains
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))

	// THEN the sleeper was resumed at 0 and at 5 only, with the interrupt cause
	require.NotNil(t, got)
	assert.Equal(t, "wake up", got.Cause)
	assert.Equal(t, 5.0, got.At)
	assert.Equal(t, []float64{0, 5}, resumedAt)
	assert.False(t, sleeper.IsAlive())
	assert.Equal(t, 5.0, s.Now(), "clock stays at the last resumption when the queue drains")
}

func TestScheduler_Interrupt_FinishedProcess_ReturnsError(t *testing.T) {
	s := NewScheduler()
	h := s.Start("once", ProcessFunc(func(*Scheduler, *Interrupt) Wait { return Exit() }))
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))

	err := s.Interrupt(h, "late")
	assert.ErrorIs(t, err, ErrProcessFinished)
	assert.ErrorIs(t, s.ScheduleTimeout(h, 1), ErrProcessFinished)
}

func TestScheduler_Interrupt_Self_ReturnsError(t *testing.T) {
	s := NewScheduler()
	var err error
	var h *Handle
	h = s.Start("self", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		err = s.Interrupt(h, "me")
		return Exit()
	}))
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))
	assert.ErrorIs(t, err, ErrSelfInterrupt)
}

func TestScheduler_Interrupt_Twice_KeepsFirstCause(t *testing.T) {
	s := NewScheduler()
	var causes []string
	target := s.Start("target", ProcessFunc(func(_ *Scheduler, intr *Interrupt) Wait {
		if intr != nil {
			causes = append(causes, intr.Cause)
			return Exit()
		}
		return Passivate()
	}))
	s.StartAfter("double", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		require.NoError(t, s.Interrupt(target, "first"))
		require.NoError(t, s.Interrupt(target, "second"))
		return Exit()
	}), 1)

	require.NoError(t, s.Run(context.Background(), math.Inf(1)))
	assert.Equal(t, []string{"first"}, causes)
}

func TestScheduler_ScheduleTimeout_WakesPassiveProcess(t *testing.T) {
	// GIVEN a passive process
	s := NewScheduler()
	var wokenAt []float64
	passive := s.Start("passive", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		wokenAt = append(wokenAt, s.Now())
		return Passivate()
	}))
	s.StartAfter("alarm", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		require.NoError(t, s.ScheduleTimeout(passive, 2))
		return Exit()
	}), 3)

	// WHEN the queue drains
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))

	// THEN it was resumed at start and 2 units after the alarm
	assert.Equal(t, []float64{0, 5}, wokenAt)
	assert.True(t, passive.IsAlive())
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_Run_CancelledContext_ReturnsError(t *testing.T) {
	s := NewScheduler()
	var log []string
	s.Start("tick", &ticker{label: "tick", period: 1, log: &log})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
}

func TestScheduler_NegativeTimeout_Panics(t *testing.T) {
	s := NewScheduler()
	s.Start("bad", ProcessFunc(func(*Scheduler, *Interrupt) Wait { return Timeout(-1) }))
	assert.Panics(t, func() { _ = s.Run(context.Background(), 10) })
}

func TestScheduler_Handles_HaveRegistrationIDs(t *testing.T) {
	s := NewScheduler()
	a := s.Start("a", ProcessFunc(func(*Scheduler, *Interrupt) Wait { return Exit() }))
	b := s.Start("b", ProcessFunc(func(*Scheduler, *Interrupt) Wait { return Exit() }))
	assert.Equal(t, int64(1), a.ID())
	assert.Equal(t, int64(2), b.ID())
	assert.Equal(t, "b", b.Name())
	assert.Equal(t, 2, s.Pending())
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))
	assert.Equal(t, int64(2), s.Resumptions())
}

func TestScheduler_Interrupt_DeliveredBeforeSameInstantResumptions(t *testing.T) {
	// GIVEN a bystander due at 5 and a waker at 5 that interrupts a sleeper, registered later
	s := NewScheduler()
	var log []string
	sleeper := s.Start("sleeper", ProcessFunc(func(_ *Scheduler, intr *Interrupt) Wait {
		if intr != nil {
			log = append(log, "sleeper:interrupted")
			return Exit()
		}
		return Passivate()
	}))
	s.StartAfter("waker", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		log = append(log, "waker")
		require.NoError(t, s.Interrupt(sleeper, "now"))
		return Exit()
	}), 5)
	s.StartAfter("bystander", ProcessFunc(func(*Scheduler, *Interrupt) Wait {
		log = append(log, "bystander")
		return Exit()
	}), 5)

	// WHEN the queue drains
	require.NoError(t, s.Run(context.Background(), math.Inf(1)))

	// THEN the interrupt jumps ahead of the bystander already queued for t=5
	assert.Equal(t, []string{"waker", "sleeper:interrupted", "bystander"}, log)
}

func TestScheduler_Until_ResumesAtExactGridTimes(t *testing.T) {
	// GIVEN a process stepping on the grid k*0.1 via absolute waits
	s := NewScheduler()
	var times []float64
	k := 0
	s.Start("grid", ProcessFunc(func(s *Scheduler, _ *Interrupt) Wait {
		times = append(times, s.Now())
		k++
		return Until(float64(k) * 0.1)
	}))

	// WHEN run to 10*0.1
	require.NoError(t, s.Run(context.Background(), 10*0.1))

	// THEN exactly ticks 0..9 ran, each at k*0.1 with no accumulated drift
	require.Len(t, times, 10)
	for i, at := range times {
		assert.Equal(t, float64(i)*0.1, at)
	}
	assert.Equal(t, 1.0, s.Now())
}

func TestScheduler_UntilInThePast_Panics(t *testing.T) {
	s := NewScheduler()
	s.StartAfter("late", ProcessFunc(func(*Scheduler, *Interrupt) Wait { return Until(1) }), 2)
	assert.Panics(t, func() { _ = s.Run(context.Background(), math.Inf(1)) })
}
