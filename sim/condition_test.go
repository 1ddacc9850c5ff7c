package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnyOf_FiresOnFirstSubEvent(t *testing.T) {
	// GIVEN two timeouts at 5 and 2
	env := NewEnvironment(42)
	defer env.Close()
	var at float64
	var value *ConditionValue
	var slow, fast *Event
	env.Process("p", func(p *Process) error {
		slow = env.Timeout(5)
		fast = env.Timeout(2)
		v, err := p.Wait(env.AnyOf(slow, fast))
		if err != nil {
			return err
		}
		value = v.(*ConditionValue)
		at = p.Now()
		return nil
	})

	// WHEN run
	require.NoError(t, env.Run(10))

	// THEN the condition fired at 2 with only the fast timeout
	assert.Equal(t, 2.0, at)
	assert.True(t, value.Contains(fast))
	assert.False(t, value.Contains(slow))
	// AND the condition deregistered itself from the slow timeout
	assert.False(t, slow.HasWaiters())
}

func TestAllOf_FiresAfterLastSubEvent(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	var at float64
	var fired int
	env.Process("p", func(p *Process) error {
		v, err := p.Wait(env.AllOf(env.Timeout(1), env.Timeout(4), env.Timeout(3)))
		if err != nil {
			return err
		}
		fired = len(v.(*ConditionValue).Events)
		at = p.Now()
		return nil
	})
	require.NoError(t, env.Run(10))
	assert.Equal(t, 4.0, at)
	assert.Equal(t, 3, fired)
}

func TestAnyOf_AlreadyProcessedSubEvent_FiresImmediately(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	done := env.NewEvent("done")
	require.NoError(t, done.Succeed(nil))
	require.True(t, env.Step())
	require.True(t, done.Processed())

	cond := env.AnyOf(done, env.NewEvent("never"))
	assert.True(t, cond.Triggered())
}

func TestAnyOf_Empty_SucceedsImmediately(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	assert.True(t, env.AnyOf().Triggered())
	assert.True(t, env.AllOf().Triggered())
}

func TestAllOf_FailingSubEvent_FailsCondition(t *testing.T) {
	env := NewEnvironment(42)
	defer env.Close()
	bad := env.NewEvent("bad")
	boom := errors.New("boom")
	var got error
	env.Process("waiter", func(p *Process) error {
		_, got = p.Wait(env.AllOf(env.Timeout(5), bad))
		return nil
	})
	env.Process("failer", func(p *Process) error {
		if err := p.Hold(1); err != nil {
			return err
		}
		return bad.Fail(boom)
	})
	require.NoError(t, env.Run(10))
	assert.Equal(t, boom, got)
}
