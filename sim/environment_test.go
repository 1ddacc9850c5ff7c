package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironment_Hold_AdvancesClock(t *testing.T) {
	// GIVEN a process that holds for 1 then 2 time units
	env := NewEnvironment(42)
	defer env.Close()
	var seen []float64
	env.Process("p", func(p *Process) error {
		if err := p.Hold(1); err != nil {
			return err
		}
		seen = append(seen, p.Now())
		if err := p.Hold(2); err != nil {
			return err
		}
		seen = append(seen, p.Now())
		return nil
	})

	// WHEN the environment runs until 10
	require.NoError(t, env.Run(10))

	// THEN the process resumed at t=1 and t=3 and the clock ends at 10
	assert.Equal(t, []float64{1, 3}, seen)
	assert.Equal(t, 10.0, env.Now())
}

func TestEnvironment_Run_StopsBeforeUntil(t *testing.T) {
	// GIVEN a ticking process
	env := NewEnvironment(42)
	defer env.Close()
	ticks := 0
	env.Process("ticker", func(p *Process) error {
		for {
			if err := p.Hold(1); err != nil {
				return err
			}
			ticks++
		}
	})

	// WHEN run until 5
	require.NoError(t, env.Run(5))

	// THEN ticks at 1..4 happened, the tick at 5 is still pending
	assert.Equal(t, 4, ticks)
	assert.Equal(t, 1, env.Pending())

	// AND a second Run continues from where the first stopped
	require.NoError(t, env.Run(7))
	assert.Equal(t, 6, ticks)
}

func TestEnvironment_SameTimeEvents_RunInScheduleOrder(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		env.Process(name, func(p *Process) error {
			if err := p.Hold(1); err != nil {
				return err
			}
			order = append(order, name)
			return nil
		})
	}
	require.NoError(t, env.Run(2))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestEnvironment_ProcessError_AbortsRun(t *testing.T) {
	// GIVEN a process that returns ErrInvalidToken at t=2
	env := NewEnvironment(42)
	defer env.Close()
	env.Process("bad", func(p *Process) error {
		if err := p.Hold(2); err != nil {
			return err
		}
		return ErrInvalidToken
	})
	later := false
	env.Process("late", func(p *Process) error {
		if err := p.Hold(3); err != nil {
			return err
		}
		later = true
		return nil
	})

	// WHEN run
	err := env.Run(10)

	// THEN the run stops with the wrapped sentinel and no later event runs
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.False(t, later)
	assert.Equal(t, 2.0, env.Now())
}

func TestEnvironment_ProcessPanic_AbortsRun(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	env.Process("boom", func(p *Process) error {
		panic("kaboom")
	})
	err := env.Run(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestEnvironment_Wait_FailedEvent_ReturnsError(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	ev := env.NewEvent("x")
	boom := errors.New("boom")
	var got error
	env.Process("waiter", func(p *Process) error {
		_, got = p.Wait(ev)
		return nil
	})
	env.Process("failer", func(p *Process) error {
		if err := p.Hold(1); err != nil {
			return err
		}
		return ev.Fail(boom)
	})
	require.NoError(t, env.Run(5))
	assert.Equal(t, boom, got)
}

func TestEnvironment_Wait_ProcessedEvent_ReturnsImmediately(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	ev := env.NewEvent("x")
	require.NoError(t, ev.Succeed("v"))
	var got any
	var at float64 = -1
	env.Process("late", func(p *Process) error {
		if err := p.Hold(1); err != nil {
			return err
		}
		got, _ = p.Wait(ev)
		at = p.Now()
		return nil
	})
	require.NoError(t, env.Run(5))
	assert.Equal(t, "v", got)
	assert.Equal(t, 1.0, at)
}

func TestEvent_SucceedTwice_Fails(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	ev := env.NewEvent("x")
	require.NoError(t, ev.Succeed(1))
	err := ev.Succeed(2)
	assert.True(t, errors.Is(err, ErrEventTriggered))
	assert.True(t, errors.Is(ev.Fail(errors.New("late")), ErrEventTriggered))
	assert.Equal(t, 1, ev.Value())
}

func TestProcess_Done_WakesJoiner(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	child := env.Process("child", func(p *Process) error { return p.Hold(4) })
	var joinedAt float64
	env.Process("parent", func(p *Process) error {
		_, err := p.Wait(child.Done())
		joinedAt = p.Now()
		return err
	})
	require.NoError(t, env.Run(10))
	assert.Equal(t, 4.0, joinedAt)
	assert.False(t, child.Alive())
}

func TestEnvironment_Close_TerminatesSuspendedProcesses(t *testing.T) {
	// GIVEN a process suspended forever on an event nobody triggers
	env := NewEnvironment(42)
	never := env.NewEvent("never")
	p := env.Process("stuck", func(p *Process) error {
		_, err := p.Wait(never)
		return err
	})
	require.NoError(t, env.Run(1))
	require.True(t, p.Alive())
	require.Equal(t, never, p.WaitingOn())

	// WHEN closed
	env.Close()

	// THEN the process is gone, pending events are dropped and Run refuses to continue
	assert.False(t, p.Alive())
	assert.Equal(t, 0, env.Pending())
	assert.True(t, errors.Is(env.Run(2), ErrEnvironmentClosed))
}

func TestEnvironment_Run_UntilInPast_Fails(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	require.NoError(t, env.Run(5))
	assert.Error(t, env.Run(3))
}

func TestSignal_Fire_WakesCurrentWaitersOnly(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	sig := env.NewSignal("changed")
	var wakes []float64
	env.Process("listener", func(p *Process) error {
		for i := 0; i < 2; i++ {
			if _, err := p.Wait(sig.Wait()); err != nil {
				return err
			}
			wakes = append(wakes, p.Now())
		}
		return nil
	})
	env.Process("firer", func(p *Process) error {
		for _, at := range []float64{1, 2, 3} {
			if err := p.Hold(at - p.Now()); err != nil {
				return err
			}
			sig.Fire(nil)
		}
		return nil
	})
	require.NoError(t, env.Run(10))
	assert.Equal(t, []float64{1, 2}, wakes)
}
