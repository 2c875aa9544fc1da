package adi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigitalRead(t *testing.T) {
	e, sim := newTestEngine(t)

	require.NoError(t, e.SetConfig(1, DigitalIn))

	v, err := e.DigitalRead(1)
	require.NoError(t, err)
	require.False(t, v)

	sim.SetRaw(0, 1)
	v, err = e.DigitalRead(1)
	require.NoError(t, err)
	require.True(t, v)

	// reads on an analog port are refused
	require.NoError(t, e.SetConfig(2, AnalogIn))
	_, err = e.DigitalRead(2)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestDigitalGetNewPress(t *testing.T) {
	e, sim := newTestEngine(t)

	require.NoError(t, e.SetConfig(4, DigitalIn))

	// low input, no press
	pressed, err := e.DigitalGetNewPress(4)
	require.NoError(t, err)
	require.False(t, pressed)

	// rising edge reports exactly once
	sim.SetRaw(3, 1)
	pressed, err = e.DigitalGetNewPress(4)
	require.NoError(t, err)
	require.True(t, pressed)

	pressed, err = e.DigitalGetNewPress(4)
	require.NoError(t, err)
	require.False(t, pressed)

	// release and press again
	sim.SetRaw(3, 0)
	pressed, err = e.DigitalGetNewPress(4)
	require.NoError(t, err)
	require.False(t, pressed)

	sim.SetRaw(3, 1)
	pressed, err = e.DigitalGetNewPress(4)
	require.NoError(t, err)
	require.True(t, pressed)
}

func TestDigitalWrite(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(3, DigitalOut))

	require.NoError(t, e.DigitalWrite(3, true))
	v, err := e.GetValue(3)
	require.NoError(t, err)
	require.Equal(t, int32(1), v)

	require.NoError(t, e.DigitalWrite(3, false))
	v, err = e.GetValue(3)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)

	// writing to an input configured port is a hard error
	require.NoError(t, e.SetConfig(3, DigitalIn))
	require.ErrorIs(t, e.DigitalWrite(3, true), ErrNotConfigured)
}
