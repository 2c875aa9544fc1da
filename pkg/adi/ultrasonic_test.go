package adi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"adiod/pkg/port"
)

func TestUltrasonicInitGeometry(t *testing.T) {
	e, _ := newTestEngine(t)
	e.UltrasonicInterval = time.Hour

	// echo must sit on an odd port
	_, err := e.UltrasonicInit(2, 3)
	require.ErrorIs(t, err, ErrInvalidPort)

	// ping must be the port right after the echo port
	_, err = e.UltrasonicInit(1, 3)
	require.ErrorIs(t, err, ErrInvalidPort)
	_, err = e.UltrasonicInit(3, 3)
	require.ErrorIs(t, err, ErrInvalidPort)

	u, err := e.UltrasonicInit(1, 2)
	require.NoError(t, err)
	require.NoError(t, u.Shutdown())

	// letters work like numbers
	u, err = e.UltrasonicInit('e', 'f')
	require.NoError(t, err)
	require.NoError(t, u.Shutdown())
}

func TestUltrasonicDistance(t *testing.T) {
	e, sim := newTestEngine(t)
	e.UltrasonicInterval = time.Hour

	u, err := e.UltrasonicInit(3, 4)
	require.NoError(t, err)

	cfg, err := e.GetConfig(3)
	require.NoError(t, err)
	require.Equal(t, LegacyUltrasonic, cfg)

	// a 1160us echo pulse is 20cm
	base := 10 * time.Millisecond
	sim.InjectEdge(2, port.RisingEdge, base)
	sim.InjectEdge(2, port.FallingEdge, base+1160*time.Microsecond)

	d, err := u.Get()
	require.NoError(t, err)
	require.Equal(t, int32(20), d)

	// the echo port shows the distance as port value
	v, err := e.GetValue(3)
	require.NoError(t, err)
	require.Equal(t, int32(20), v)

	require.NoError(t, u.Shutdown())
}

func TestUltrasonicTimeout(t *testing.T) {
	e, sim := newTestEngine(t)
	e.UltrasonicInterval = 10 * time.Millisecond

	u, err := e.UltrasonicInit(1, 2)
	require.NoError(t, err)

	sim.InjectEdge(0, port.RisingEdge, time.Millisecond)
	sim.InjectEdge(0, port.FallingEdge, time.Millisecond+580*time.Microsecond)

	// after two strobes without an echo the distance expires to 0
	time.Sleep(50 * time.Millisecond)

	d, err := u.Get()
	require.NoError(t, err)
	require.Equal(t, int32(0), d)

	require.NoError(t, u.Shutdown())
}

func TestUltrasonicPortInUse(t *testing.T) {
	e, _ := newTestEngine(t)
	e.UltrasonicInterval = time.Hour

	_, err := e.EncoderInit(1, 2, false)
	require.NoError(t, err)

	_, err = e.UltrasonicInit(1, 2)
	require.ErrorIs(t, err, ErrPortInUse)

	u, err := e.UltrasonicInit(3, 4)
	require.NoError(t, err)
	_, err = e.UltrasonicInit(3, 4)
	require.ErrorIs(t, err, ErrPortInUse)

	require.NoError(t, u.Shutdown())
}

func TestUltrasonicClaimResetsPingState(t *testing.T) {
	e, sim := newTestEngine(t)
	e.UltrasonicInterval = time.Hour
	e.CalibrationSamples = 5
	e.CalibrationInterval = time.Millisecond

	// leave a calibration offset behind on the future ping port
	require.NoError(t, e.SetConfig(2, AnalogIn))
	sim.SetRaw(1, 2000)
	offset, err := e.AnalogCalibrate(2)
	require.NoError(t, err)
	require.Equal(t, int32(2000), offset)

	u, err := e.UltrasonicInit(1, 2)
	require.NoError(t, err)

	rec := &e.ports[1]
	rec.mu.Lock()
	require.Equal(t, LegacyUltrasonic, rec.config)
	require.Zero(t, rec.calOffset)
	require.Zero(t, rec.calOffsetHR)
	require.False(t, rec.lastState)
	rec.mu.Unlock()

	require.NoError(t, u.Shutdown())
}

func TestUltrasonicShutdown(t *testing.T) {
	e, _ := newTestEngine(t)
	e.UltrasonicInterval = time.Hour

	u, err := e.UltrasonicInit(7, 8)
	require.NoError(t, err)

	require.NoError(t, u.Shutdown())

	cfg, err := e.GetConfig(7)
	require.NoError(t, err)
	require.Equal(t, Undefined, cfg)
	cfg, err = e.GetConfig(8)
	require.NoError(t, err)
	require.Equal(t, Undefined, cfg)

	_, err = u.Get()
	require.ErrorIs(t, err, ErrInvalidPort)
	require.ErrorIs(t, u.Shutdown(), ErrInvalidPort)
}
