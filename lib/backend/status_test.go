package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromFlags_Precedence(t *testing.T) {
	assert.Equal(t, StatusStopped, StatusFromFlags(false, false))
	assert.Equal(t, StatusRunning, StatusFromFlags(true, false))
	assert.Equal(t, StatusSuspended, StatusFromFlags(true, true))

	// A paused flag on a non-running container must not win: the running
	// flag is checked first.
	assert.Equal(t, StatusStopped, StatusFromFlags(false, true))
}

func TestTransitionGuards(t *testing.T) {
	assert.True(t, StatusStopped.CanStart())
	assert.False(t, StatusRunning.CanStart())
	assert.False(t, StatusSuspended.CanStart())

	assert.False(t, StatusStopped.CanStop())
	assert.True(t, StatusRunning.CanStop())
	assert.True(t, StatusSuspended.CanStop())

	assert.False(t, StatusStopped.CanSuspend())
	assert.True(t, StatusRunning.CanSuspend())
	assert.False(t, StatusSuspended.CanSuspend())

	assert.False(t, StatusStopped.CanResume())
	assert.False(t, StatusRunning.CanResume())
	assert.True(t, StatusSuspended.CanResume())

	assert.True(t, StatusRunning.CanExec())
	assert.False(t, StatusStopped.CanExec())
	assert.False(t, StatusSuspended.CanExec())
}
