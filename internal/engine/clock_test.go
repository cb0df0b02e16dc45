package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTime drives a clock deterministically.
type fakeTime struct {
	current time.Time
}

func (f *fakeTime) now() time.Time {
	return f.current
}

func (f *fakeTime) advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestClock(cfg Config) (*Clock, *fakeTime) {
	ft := &fakeTime{current: time.Unix(1000, 0)}
	c := NewClock(cfg)
	c.now = ft.now
	c.wallStart = ft.current
	c.lastStep = ft.current
	return c, ft
}

func TestClockStartsStopped(t *testing.T) {
	c, _ := newTestClock(DefaultConfig())

	assert.Equal(t, ClockStopped, c.State())
	assert.Equal(t, uint64(0), c.SimulationTimeNs())

	_, stepped := c.Advance()
	assert.False(t, stepped, "a stopped clock must not advance")
}

func TestClockAdvanceOneStep(t *testing.T) {
	cfg := DefaultConfig() // 60 steps/sec, one step = 16_666_666ns
	c, ft := newTestClock(cfg)

	c.Start()
	ft.advance(20 * time.Millisecond)

	step, stepped := c.Advance()
	require.True(t, stepped)

	stepNs := uint64(time.Second) / uint64(cfg.TargetStepsPerSecond)
	assert.Equal(t, time.Duration(stepNs), step)
	assert.Equal(t, stepNs, c.SimulationTimeNs())
	assert.Equal(t, uint64(1), c.TotalSteps())

	// Not enough wall time accumulated for a second step yet.
	_, stepped = c.Advance()
	assert.False(t, stepped)
}

func TestClockAccumulatorCarriesRemainder(t *testing.T) {
	cfg := DefaultConfig()
	c, ft := newTestClock(cfg)
	c.Start()

	// 50ms covers three 16.67ms steps with some remainder; Advance takes
	// one step per call.
	ft.advance(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_, stepped := c.Advance()
		require.True(t, stepped, "step %d", i)
	}
	_, stepped := c.Advance()
	assert.False(t, stepped)
	assert.Equal(t, uint64(3), c.TotalSteps())
}

func TestClockTimeMultiplier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimulationTimeMultiplier = 2.0
	c, ft := newTestClock(cfg)
	c.Start()

	// 10ms of wall time scaled by 2 covers one 16.67ms step.
	ft.advance(10 * time.Millisecond)
	_, stepped := c.Advance()
	assert.True(t, stepped)
}

func TestClockPauseDiscardsElapsedTime(t *testing.T) {
	c, ft := newTestClock(DefaultConfig())
	c.Start()
	c.Pause()

	ft.advance(10 * time.Second)

	_, stepped := c.Advance()
	require.False(t, stepped, "a paused clock must not advance")

	// Resume rebases the last-step instant, so time spent paused does
	// not flow into the accumulator.
	c.Resume()
	_, stepped = c.Advance()
	assert.False(t, stepped)

	ft.advance(20 * time.Millisecond)
	_, stepped = c.Advance()
	assert.True(t, stepped)
}

func TestClockReset(t *testing.T) {
	c, ft := newTestClock(DefaultConfig())
	c.Start()
	ft.advance(100 * time.Millisecond)

	_, stepped := c.Advance()
	require.True(t, stepped)
	require.NotZero(t, c.SimulationTimeNs())

	c.Reset()
	assert.Equal(t, uint64(0), c.SimulationTimeNs())
	assert.Equal(t, uint64(0), c.TotalSteps())
}

func TestClockTick(t *testing.T) {
	cfg := DefaultConfig().WithFidelity(FidelityLow) // 10 steps/sec
	c, _ := newTestClock(cfg)

	assert.Equal(t, 100*time.Millisecond, c.Tick())
}
