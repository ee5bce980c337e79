package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func waitFired(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
		return ""
	}
}

func TestTimers_FiresAfterDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	fired := make(chan string, 1)

	timers.Schedule("s1", 3*time.Second, func() { fired <- "done" })
	assert.True(t, timers.Pending("s1"))

	clock.Advance(2 * time.Second)
	assert.Empty(t, fired)

	clock.Advance(time.Second)
	assert.Equal(t, "done", waitFired(t, fired))
	assert.Eventually(t, func() bool { return !timers.Pending("s1") }, time.Second, 5*time.Millisecond)
}

func TestTimers_ScheduleReplaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	fired := make(chan string, 2)

	timers.Schedule("s1", time.Second, func() { fired <- "first" })
	timers.Schedule("s1", 2*time.Second, func() { fired <- "second" })

	clock.Advance(2 * time.Second)
	assert.Equal(t, "second", waitFired(t, fired))
	assert.Never(t, func() bool { return len(fired) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTimers_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	var calls atomic.Int32

	timers.Schedule("s1", time.Second, func() { calls.Add(1) })
	assert.True(t, timers.Cancel("s1"))
	assert.False(t, timers.Cancel("s1"))
	assert.False(t, timers.Pending("s1"))

	clock.Advance(time.Minute)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTimers_SessionsAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	fired := make(chan string, 2)

	timers.Schedule("a", time.Second, func() { fired <- "a" })
	timers.Schedule("b", time.Second, func() { fired <- "b" })
	timers.Cancel("a")

	clock.Advance(time.Second)
	assert.Equal(t, "b", waitFired(t, fired))
}

func TestTimers_Stop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	var calls atomic.Int32

	timers.Schedule("a", time.Second, func() { calls.Add(1) })
	timers.Schedule("b", time.Second, func() { calls.Add(1) })
	timers.Stop()

	clock.Advance(time.Second)
	assert.False(t, timers.Pending("a"))
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTimers_CallbackMayReschedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timers := NewTimers(clock, zerolog.Nop())
	fired := make(chan string, 2)

	timers.Schedule("s1", time.Second, func() {
		fired <- "end"
		timers.Schedule("s1", time.Second, func() { fired <- "reveal" })
	})

	clock.Advance(time.Second)
	assert.Equal(t, "end", waitFired(t, fired))
	assert.Eventually(t, func() bool { return timers.Pending("s1") }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Second)
	assert.Equal(t, "reveal", waitFired(t, fired))
}
