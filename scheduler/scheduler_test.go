package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAddDelay_Fires(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var fired atomic.Bool
	s.AddDelay("t1", 10*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, s.Pending("t1"))

	assert.Eventually(t, func() bool { return fired.Load() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !s.Pending("t1") }, time.Second, 5*time.Millisecond)
}

func TestAddDelay_RemoveCancels(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var fired atomic.Bool
	s.AddDelay("t1", 30*time.Millisecond, func() { fired.Store(true) })
	s.Remove("t1")
	assert.False(t, s.Pending("t1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestAddDelay_SameNameReplaces(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var first, second atomic.Bool
	s.AddDelay("t1", 20*time.Millisecond, func() { first.Store(true) })
	s.AddDelay("t1", 20*time.Millisecond, func() { second.Store(true) })

	assert.Eventually(t, func() bool { return second.Load() }, time.Second, 5*time.Millisecond)
	assert.False(t, first.Load())
}

func TestAddTicker_RunsRepeatedly(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var n atomic.Int32
	s.AddTicker("tick", 10*time.Millisecond, func() { n.Add(1) })

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Remove("tick")
	stopped := n.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, n.Load(), stopped+1)
}

func TestRunSafe_PanicRecovered(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Stop()

	var after atomic.Bool
	s.AddDelay("boom", 5*time.Millisecond, func() { panic("boom") })
	s.AddDelay("ok", 20*time.Millisecond, func() { after.Store(true) })

	assert.Eventually(t, func() bool { return after.Load() }, time.Second, 5*time.Millisecond)
}
