package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framejoin/internal/ir"
)

func TestSubstateSetOutputOnce(t *testing.T) {
	ss := newSubstate(label(0, 0), 2)
	require.NoError(t, ss.SetOutput(1, 2, 0, 0, true))

	err := ss.SetOutput(1, 0, 0, 1, false)
	require.Error(t, err)
	assert.True(t, IsRoutingConflict(err))
	assert.Equal(t, 2, ss.Outputs[1].Stream, "first assignment kept")
}

func TestSubstateHardwareState(t *testing.T) {
	ss := newSubstate(label(0, 0), 3)
	assert.Equal(t, 0, ss.HardwareState())

	require.NoError(t, ss.SetOutput(0, 2, 0, 0, false))
	require.NoError(t, ss.SetOutput(2, 1, 0, 0, false))
	assert.Equal(t, 1, ss.HardwareState())
}

func TestBuildSubstates(t *testing.T) {
	routing := ir.NewRouting(2, 2)
	routing[0][0] = []ir.RouteTarget{
		{Label: label(1, 0), Time: 0, OutLane: 0},
		{Label: label(0, 1), Time: 2, OutLane: 1, FromLastWord: true},
	}
	routing[1][1] = []ir.RouteTarget{
		{Label: label(0, 0), Time: 1, OutLane: 0, FromLastWord: true},
	}

	substates, maxLookahead, err := BuildSubstates(Request{WordBytes: 2, StreamCount: 2, Routing: routing})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, maxLookahead)
	require.Len(t, substates, 3)
	assert.Equal(t, label(0, 0), substates[0].Label)
	assert.Equal(t, label(0, 1), substates[1].Label)
	assert.Equal(t, label(1, 0), substates[2].Label)

	assert.Same(t, substates[1], substates[0].Successor())
	assert.Nil(t, substates[1].Successor())
	assert.Nil(t, substates[2].Successor())

	assert.Equal(t, Output{Stream: 1, Time: 1, Lane: 1, FromLastWord: true, Valid: true}, substates[0].Outputs[0])
	assert.False(t, substates[0].Outputs[1].Valid)
	assert.Equal(t, 1, substates[0].HardwareState())
	assert.Equal(t, 0, substates[1].HardwareState())
}

func TestOutputString(t *testing.T) {
	assert.Equal(t, "X", Output{}.String())
	assert.Equal(t, "(stream 1, time 0, lane 2, last true)",
		Output{Stream: 1, Lane: 2, FromLastWord: true, Valid: true}.String())
}
