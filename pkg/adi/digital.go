package adi

import (
	"fmt"
)

// DigitalRead returns the current electrical state of a digital input
// configured port.
func (e *Engine) DigitalRead(p byte) (bool, error) {
	idx, err := portIndex(p)
	if err != nil {
		return false, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return e.digitalReadLocked(idx, rec)
}

// DigitalGetNewPress reports a rising edge on the port: true exactly once
// per low to high transition, false while the input stays high or low.
//
// The edge history is kept per port, not per caller. Only a single task
// should poll a given port through this method, concurrent readers see
// inconsistent edge history.
func (e *Engine) DigitalGetNewPress(p byte) (bool, error) {
	idx, err := portIndex(p)
	if err != nil {
		return false, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	cur, err := e.digitalReadLocked(idx, rec)
	if err != nil {
		return false, err
	}

	pressed := cur && !rec.lastState
	rec.lastState = cur
	return pressed, nil
}

// DigitalWrite sets the state of a DigitalOut configured port.
// Writing to any other configuration fails with ErrNotConfigured.
func (e *Engine) DigitalWrite(p byte, value bool) error {
	idx, err := portIndex(p)
	if err != nil {
		return err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.config != DigitalOut {
		return ErrNotConfigured
	}

	var v int32
	if value {
		v = 1
	}
	if err := e.hw.WriteRaw(idx, v); err != nil {
		return fmt.Errorf("write channel %d: %w", idx, err)
	}

	rec.value = v
	return nil
}

func (e *Engine) digitalReadLocked(idx int, rec *portRecord) (bool, error) {
	if !digitalInput(rec.config) {
		return false, ErrNotConfigured
	}

	v, err := e.hw.ReadRaw(idx)
	if err != nil {
		return false, fmt.Errorf("read channel %d: %w", idx, err)
	}

	rec.value = v
	return v != 0, nil
}
