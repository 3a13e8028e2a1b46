package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	c := RealClock{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	assert.False(t, got.Before(before), "clock.Now() should not return time before actual time.Now()")
	assert.False(t, got.After(after), "clock.Now() should not return time after actual time.Now()")
}

func TestRealClock_SleepNonPositive(t *testing.T) {
	c := RealClock{}

	start := time.Now()
	c.Sleep(0)
	c.Sleep(-time.Second)

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestFake(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewFake(start)

	assert.Equal(t, start, c.Now())

	c.Sleep(5 * time.Second)
	c.Sleep(10 * time.Second)

	assert.Equal(t, start.Add(15*time.Second), c.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, c.Sleeps())
}
