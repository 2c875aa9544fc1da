package hal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adiod/pkg/port"
)

func TestSimReadWrite(t *testing.T) {
	s := NewSim()

	v, err := s.ReadRaw(0)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)

	require.NoError(t, s.WriteRaw(0, 42))
	v, err = s.ReadRaw(0)
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	_, err = s.ReadRaw(-1)
	require.ErrorIs(t, err, ErrInvalidChannel)
	_, err = s.ReadRaw(Channels)
	require.ErrorIs(t, err, ErrInvalidChannel)
	require.ErrorIs(t, s.WriteRaw(Channels, 1), ErrInvalidChannel)
	require.ErrorIs(t, s.ConfigureChannel(Channels, DigitalIn), ErrInvalidChannel)
}

func TestSimConfigureResetsValue(t *testing.T) {
	s := NewSim()

	require.NoError(t, s.WriteRaw(3, 7))
	require.NoError(t, s.ConfigureChannel(3, AnalogIn))

	v, err := s.ReadRaw(3)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}

func TestSimEdges(t *testing.T) {
	s := NewSim()

	var events []port.Event
	require.NoError(t, s.Watch(2, func(evt port.Event) {
		events = append(events, evt)
	}))

	// only one watcher per channel
	require.ErrorIs(t, s.Watch(2, func(port.Event) {}), ErrChannelWatched)

	s.SetRaw(2, 1)
	s.SetRaw(2, 1) // no transition, no edge
	s.SetRaw(2, 0)

	require.Len(t, events, 2)
	require.Equal(t, port.RisingEdge, events[0].Type)
	require.Equal(t, port.FallingEdge, events[1].Type)

	s.InjectEdge(2, port.RisingEdge, 123*time.Millisecond)
	require.Len(t, events, 3)
	require.Equal(t, 123*time.Millisecond, events[2].Timestamp)

	s.Unwatch(2)
	s.SetRaw(2, 1)
	require.Len(t, events, 3)
}

func TestOpenSelectsBackend(t *testing.T) {
	var lines [Channels]int

	hw, err := Open("sim", lines, 0)
	require.NoError(t, err)
	require.IsType(t, &Sim{}, hw)

	hw, err = Open("", lines, 0)
	require.NoError(t, err)
	require.IsType(t, &Sim{}, hw)

	_, err = Open("nope", lines, 0)
	require.Error(t, err)
}
