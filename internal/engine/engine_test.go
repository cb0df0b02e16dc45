package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFidelityLevels(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		level     FidelityLevel
		steps     uint32
		entities  int
		expectErr bool
	}{
		{name: "low", input: "low", level: FidelityLow, steps: 10, entities: 100},
		{name: "medium", input: "medium", level: FidelityMedium, steps: 30, entities: 1000},
		{name: "high", input: "high", level: FidelityHigh, steps: 60, entities: 10000},
		{name: "ultra", input: "ultra", level: FidelityUltra, steps: 120, entities: 50000},
		{name: "mixed case", input: "HIGH", level: FidelityHigh, steps: 60, entities: 10000},
		{name: "invalid", input: "extreme", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseFidelity(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.steps, level.StepsPerSecond())
			assert.Equal(t, tt.entities, level.MaxEntities())
		})
	}
}

func TestConfigWithFidelity(t *testing.T) {
	cfg := DefaultConfig().WithFidelity(FidelityUltra)

	assert.Equal(t, FidelityUltra, cfg.Fidelity)
	assert.Equal(t, uint32(120), cfg.TargetStepsPerSecond)
}

func TestEngineLifecycle(t *testing.T) {
	e := New(DefaultConfig(), testLogger())
	assert.Equal(t, StateStopped, e.State())

	e.Start()
	assert.Equal(t, StateRunning, e.State())

	e.Pause()
	assert.Equal(t, StatePaused, e.State())

	e.Resume()
	assert.Equal(t, StateRunning, e.State())

	e.Stop()
	assert.Equal(t, StateStopped, e.State())
}

func TestEngineStepWhileStopped(t *testing.T) {
	e := New(DefaultConfig(), testLogger())

	_, stepped := e.Step()
	assert.False(t, stepped, "a stopped engine must not step")
	assert.Equal(t, uint64(0), e.SimulationTimeNs())
}

func TestEngineResetReturnsToStopped(t *testing.T) {
	e := New(DefaultConfig(), testLogger())
	e.Start()

	e.Reset()
	assert.Equal(t, StateStopped, e.State())
	assert.Equal(t, uint64(0), e.SimulationTimeNs())
	assert.Equal(t, uint64(0), e.TotalSteps())
}

func TestEngineRunAdvancesSimulationTime(t *testing.T) {
	cfg := DefaultConfig().WithFidelity(FidelityUltra) // 120 steps/sec
	e := New(cfg, testLogger())
	e.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	// A few ticks at ~8.3ms each is plenty for at least one step.
	require.Eventually(t, func() bool {
		return e.TotalSteps() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.NotZero(t, e.SimulationTimeNs())
}

func TestEngineStepHook(t *testing.T) {
	e := New(DefaultConfig(), testLogger())

	now := time.Unix(1000, 0)
	e.clock.now = func() time.Time { return now }

	steps := 0
	e.OnStep(func() { steps++ })

	e.Start()
	now = now.Add(time.Second)

	for {
		if _, stepped := e.Step(); !stepped {
			break
		}
	}

	assert.Equal(t, int(e.TotalSteps()), steps)
	assert.NotZero(t, steps)
}

func TestEngineConcurrentAccess(t *testing.T) {
	e := New(DefaultConfig(), testLogger())
	e.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			e.Step()
			e.SimulationTimeNs()
		}
		close(done)
	}()

	for i := 0; i < 500; i++ {
		e.Pause()
		e.Resume()
		_ = e.State()
	}
	<-done
}
