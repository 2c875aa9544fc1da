package adi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"adiod/pkg/hal"
)

func newTestEngine(t *testing.T) (*Engine, *hal.Sim) {
	t.Helper()
	sim := hal.NewSim()
	return New(sim), sim
}

func TestPortIndex(t *testing.T) {
	tests := []struct {
		port byte
		idx  int
		ok   bool
	}{
		{1, 0, true},
		{8, 7, true},
		{'a', 0, true},
		{'h', 7, true},
		{'A', 0, true},
		{'H', 7, true},
		{'c', 2, true},
		{0, 0, false},
		{9, 0, false},
		{'i', 0, false},
		{'I', 0, false},
		{'z', 0, false},
		{200, 0, false},
	}

	for _, tt := range tests {
		idx, err := portIndex(tt.port)
		if !tt.ok {
			require.ErrorIs(t, err, ErrInvalidPort, "port %v", tt.port)
			continue
		}
		require.NoError(t, err, "port %v", tt.port)
		require.Equal(t, tt.idx, idx, "port %v", tt.port)
	}
}

func TestSetGetConfig(t *testing.T) {
	e, _ := newTestEngine(t)

	configs := []PortConfig{
		AnalogIn, AnalogOut, DigitalIn, DigitalOut, SmartButton, SmartPot,
		LegacyButton, LegacyPot, LegacyLineSensor, LegacyLightSensor,
		LegacyGyro, LegacyAccelerometer, LegacyServo, LegacyPWM,
		LegacyEncoder, LegacyUltrasonic, Undefined,
	}

	for p := byte(1); p <= NumPorts; p++ {
		for _, cfg := range configs {
			require.NoError(t, e.SetConfig(p, cfg))

			got, err := e.GetConfig(p)
			require.NoError(t, err)
			require.Equal(t, cfg, got)
		}
	}

	// letter and number address the same port
	require.NoError(t, e.SetConfig('C', AnalogIn))
	got, err := e.GetConfig(3)
	require.NoError(t, err)
	require.Equal(t, AnalogIn, got)
}

func TestDefaultUndefined(t *testing.T) {
	e, _ := newTestEngine(t)

	for p := byte(1); p <= NumPorts; p++ {
		cfg, err := e.GetConfig(p)
		require.NoError(t, err)
		require.Equal(t, Undefined, cfg)
	}
}

func TestInvalidPortNeverMutates(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.SetConfig(1, DigitalOut))
	before := e.Snapshot()

	for _, p := range []byte{0, 9, 'i', 'z', 'Z', 255} {
		_, err := e.GetConfig(p)
		require.ErrorIs(t, err, ErrInvalidPort)

		require.ErrorIs(t, e.SetConfig(p, DigitalIn), ErrInvalidPort)

		_, err = e.GetValue(p)
		require.ErrorIs(t, err, ErrInvalidPort)

		require.ErrorIs(t, e.SetValue(p, 1), ErrInvalidPort)
		require.ErrorIs(t, e.PinMode(p, Input), ErrInvalidPort)

		_, err = e.AnalogCalibrate(p)
		require.ErrorIs(t, err, ErrInvalidPort)
		_, err = e.AnalogRead(p)
		require.ErrorIs(t, err, ErrInvalidPort)
		_, err = e.DigitalRead(p)
		require.ErrorIs(t, err, ErrInvalidPort)
		_, err = e.DigitalGetNewPress(p)
		require.ErrorIs(t, err, ErrInvalidPort)
		require.ErrorIs(t, e.DigitalWrite(p, true), ErrInvalidPort)
		require.ErrorIs(t, e.MotorSet(p, 10), ErrInvalidPort)
		_, err = e.MotorGet(p)
		require.ErrorIs(t, err, ErrInvalidPort)

		_, err = e.EncoderInit(p, 2, false)
		require.ErrorIs(t, err, ErrInvalidPort)
		_, err = e.UltrasonicInit(p, 2)
		require.ErrorIs(t, err, ErrInvalidPort)
	}

	require.Equal(t, before, e.Snapshot())
}

func TestPinMode(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		mode uint8
		want PortConfig
	}{
		{Input, DigitalIn},
		{Output, DigitalOut},
		{InputAnalog, AnalogIn},
		{OutputAnalog, AnalogOut},
	}

	for _, tt := range tests {
		require.NoError(t, e.PinMode(4, tt.mode))
		cfg, err := e.GetConfig(4)
		require.NoError(t, err)
		require.Equal(t, tt.want, cfg)
	}

	require.Error(t, e.PinMode(4, 0x42))
}

func TestSetValueRequiresOutput(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(2, DigitalIn))
	require.ErrorIs(t, e.SetValue(2, 1), ErrNotConfigured)

	require.NoError(t, e.SetConfig(2, Undefined))
	require.ErrorIs(t, e.SetValue(2, 1), ErrNotConfigured)
}

func TestSetValueClamping(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(5, AnalogOut))
	require.NoError(t, e.SetValue(5, 5000))
	v, err := e.GetValue(5)
	require.NoError(t, err)
	require.Equal(t, int32(4095), v)

	require.NoError(t, e.SetValue(5, -7))
	v, err = e.GetValue(5)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)

	require.NoError(t, e.SetConfig(5, DigitalOut))
	require.NoError(t, e.SetValue(5, 200))
	v, err = e.GetValue(5)
	require.NoError(t, err)
	require.Equal(t, int32(1), v)
}

func TestReconfigureResetsDerivedState(t *testing.T) {
	e, sim := newTestEngine(t)

	require.NoError(t, e.SetConfig(6, AnalogIn))
	sim.SetRaw(5, 1000)
	e.CalibrationSamples = 3
	_, err := e.AnalogCalibrate(6)
	require.NoError(t, err)

	// reconfiguring drops the calibration offset
	require.NoError(t, e.SetConfig(6, AnalogIn))
	sim.SetRaw(5, 1000)
	v, err := e.AnalogReadCalibrated(6)
	require.NoError(t, err)
	require.Equal(t, int32(1000), v)
}
