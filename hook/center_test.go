package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCenter(t *testing.T) {
	c := NewCenter()
	require.NotNil(t, c)
}

func TestTrigger_NoHandlers(t *testing.T) {
	c := NewCenter()
	out, err := c.Trigger(context.Background(), "noop", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestRegister_SingleHandler(t *testing.T) {
	c := NewCenter()
	called := false
	c.Register("ev", 0, "h1", func(ctx context.Context, event string, data interface{}) (interface{}, error) {
		called = true
		assert.Equal(t, "ev", event)
		return data, nil
	})
	_, err := c.Trigger(context.Background(), "ev", "hello")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestTrigger_DataPassThrough(t *testing.T) {
	c := NewCenter()
	c.Register("ev", 0, "double", func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		return data.(int) * 2, nil
	})
	c.Register("ev", 1, "addTen", func(_ context.Context, _ string, data interface{}) (interface{}, error) {
		return data.(int) + 10, nil
	})
	out, err := c.Trigger(context.Background(), "ev", 5)
	require.NoError(t, err)
	assert.Equal(t, 20, out) // (5*2)+10
}

func TestTrigger_PriorityOrder(t *testing.T) {
	c := NewCenter()
	var order []int
	c.Register("ev", 10, "high", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		order = append(order, 10)
		return d, nil
	})
	c.Register("ev", 1, "low", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		order = append(order, 1)
		return d, nil
	})
	c.Register("ev", 5, "mid", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		order = append(order, 5)
		return d, nil
	})
	c.Trigger(context.Background(), "ev", nil)
	assert.Equal(t, []int{1, 5, 10}, order)
}

func TestTrigger_ErrInterrupt(t *testing.T) {
	c := NewCenter()
	var secondCalled bool
	c.Register("ev", 0, "stopper", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		return d, ErrInterrupt
	})
	c.Register("ev", 1, "should_not_run", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		secondCalled = true
		return d, nil
	})
	_, err := c.Trigger(context.Background(), "ev", nil)
	assert.True(t, errors.Is(err, ErrInterrupt))
	assert.False(t, secondCalled)
}

func TestUnregister_ByName(t *testing.T) {
	c := NewCenter()
	var called bool
	c.Register("ev", 0, "h1", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		called = true
		return d, nil
	})
	c.Unregister("ev", "h1")
	c.Trigger(context.Background(), "ev", nil)
	assert.False(t, called)
}

func TestUnregister_OnlyNamed(t *testing.T) {
	c := NewCenter()
	var c1, c2 bool
	c.Register("ev", 0, "h1", func(_ context.Context, _ string, d interface{}) (interface{}, error) { c1 = true; return d, nil })
	c.Register("ev", 1, "h2", func(_ context.Context, _ string, d interface{}) (interface{}, error) { c2 = true; return d, nil })
	c.Unregister("ev", "h1")
	c.Trigger(context.Background(), "ev", nil)
	assert.False(t, c1)
	assert.True(t, c2)
}

func TestTrigger_NonInterruptError_Continues(t *testing.T) {
	c := NewCenter()
	var secondCalled bool
	c.Register("ev", 0, "err", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		return d, errors.New("some error")
	})
	c.Register("ev", 1, "second", func(_ context.Context, _ string, d interface{}) (interface{}, error) {
		secondCalled = true
		return d, nil
	})
	_, err := c.Trigger(context.Background(), "ev", nil)
	assert.NoError(t, err) // last handler returned nil
	assert.True(t, secondCalled)
}

func TestGuildEventConstants(t *testing.T) {
	for _, c := range []string{BeforeGuildDisband, AfterGuildDisband, AfterGuildCreate} {
		assert.NotEmpty(t, c)
	}
}
