package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeFiresInDueOrder(t *testing.T) {
	c := NewFake(time.Time{})
	var order []string

	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStopPreventsCallback(t *testing.T) {
	c := NewFake(time.Time{})
	fired := false
	task := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, task.Stop())
	require.False(t, task.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeRescheduleFromCallback(t *testing.T) {
	c := NewFake(time.Time{})
	start := c.Now()
	var ticks []time.Duration

	var tick func()
	tick = func() {
		ticks = append(ticks, c.Now().Sub(start))
		if len(ticks) < 3 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, ticks)
	assert.Equal(t, start.Add(10*time.Second), c.Now())
}

func TestFakeStopAfterFireReportsFalse(t *testing.T) {
	c := NewFake(time.Time{})
	task := c.AfterFunc(0, func() {})
	c.Advance(0)
	assert.False(t, task.Stop())
}
