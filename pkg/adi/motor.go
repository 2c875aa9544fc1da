package adi

import (
	"fmt"
)

// MotorSet sets the duty cycle of the motor on the port, -127 full reverse
// to 127 full forward. Out of range values are clamped.
func (e *Engine) MotorSet(p byte, speed int32) error {
	idx, err := portIndex(p)
	if err != nil {
		return err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !motorPort(rec.config) {
		return ErrNotConfigured
	}

	speed = clamp(speed, -127, 127)
	if err := e.hw.WriteRaw(idx, speed); err != nil {
		return fmt.Errorf("write channel %d: %w", idx, err)
	}

	rec.value = speed
	return nil
}

// MotorGet returns the last set duty cycle of the motor on the port.
// This is an echo of the commanded value, not a hardware reading.
func (e *Engine) MotorGet(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !motorPort(rec.config) {
		return 0, ErrNotConfigured
	}
	return rec.value, nil
}

// MotorStop stops the motor on the port.
func (e *Engine) MotorStop(p byte) error {
	return e.MotorSet(p, 0)
}
