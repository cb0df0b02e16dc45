package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleForwardOnly(t *testing.T) {
	var l lifecycle
	assert.Equal(t, PhaseRunning, l.Phase())

	assert.True(t, l.advance(PhaseDraining))
	assert.Equal(t, PhaseDraining, l.Phase())

	// Transitions never go backwards or repeat.
	assert.False(t, l.advance(PhaseRunning))
	assert.False(t, l.advance(PhaseDraining))

	assert.True(t, l.advance(PhaseStopped))
	assert.Equal(t, PhaseStopped, l.Phase())
	assert.False(t, l.advance(PhaseStopped))
}

func TestLifecycleSkipsDraining(t *testing.T) {
	var l lifecycle
	assert.True(t, l.advance(PhaseStopped))
	assert.Equal(t, PhaseStopped, l.Phase())
	assert.False(t, l.advance(PhaseDraining))
}
