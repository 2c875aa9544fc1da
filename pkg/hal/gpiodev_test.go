//+build !windows

package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adiod/pkg/port"
)

func TestDevChannelSettle(t *testing.T) {
	c := &devChannel{}

	// lines start low, a settled low is not a new edge
	require.False(t, c.settle(0))
	require.True(t, c.settle(1))
	require.False(t, c.settle(1))
	require.True(t, c.settle(0))
	require.True(t, c.settle(1))
}

func TestEdgeEvent(t *testing.T) {
	e := edgeEvent(port.State(true), 10*time.Millisecond)
	require.Equal(t, port.Event{Timestamp: 10 * time.Millisecond, Type: port.RisingEdge}, e)

	e = edgeEvent(port.State(false), 25*time.Millisecond)
	require.Equal(t, port.Event{Timestamp: 25 * time.Millisecond, Type: port.FallingEdge}, e)
}
