package adi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMotor(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(7, LegacyPWM))

	require.NoError(t, e.MotorSet(7, 100))
	v, err := e.MotorGet(7)
	require.NoError(t, err)
	require.Equal(t, int32(100), v)

	require.NoError(t, e.MotorSet(7, -100))
	v, err = e.MotorGet(7)
	require.NoError(t, err)
	require.Equal(t, int32(-100), v)

	require.NoError(t, e.MotorStop(7))
	v, err = e.MotorGet(7)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}

func TestMotorClamp(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(7, LegacyServo))

	require.NoError(t, e.MotorSet(7, 300))
	v, err := e.MotorGet(7)
	require.NoError(t, err)
	require.Equal(t, int32(127), v)

	require.NoError(t, e.MotorSet(7, -300))
	v, err = e.MotorGet(7)
	require.NoError(t, err)
	require.Equal(t, int32(-127), v)
}

func TestMotorRequiresMotorPort(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.SetConfig(1, DigitalOut))
	require.ErrorIs(t, e.MotorSet(1, 50), ErrNotConfigured)
	_, err := e.MotorGet(1)
	require.ErrorIs(t, err, ErrNotConfigured)
	require.ErrorIs(t, e.MotorStop(1), ErrNotConfigured)
}
