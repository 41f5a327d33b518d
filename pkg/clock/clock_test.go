package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestFakeStopPreventsFiring(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeCallbackMaySchedule(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	var fired []string
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "first")
		c.AfterFunc(time.Second, func() { fired = append(fired, "chained") })
	})

	// The chained timer lands inside the advanced window and fires too
	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"first", "chained"}, fired)

	assert.Equal(t, time.Unix(2, 0), c.Now())
}
