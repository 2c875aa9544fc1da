package adi

import (
	"fmt"
	"time"

	"github.com/womat/debug"
)

const (
	defaultCalibrationSamples  = 500
	defaultCalibrationInterval = time.Millisecond
)

// AnalogCalibrate samples the port over the calibration window (by default
// 500 samples 1ms apart, blocking for about half a second) and stores the
// arithmetic mean as the calibration offset of the port.
//
// The method assumes the true sensor value is not changing during the
// window. Do not calibrate a gyro while it rotates or an accelerometer
// while it moves.
//
// Only the calibrating port is blocked, operations on other ports proceed.
func (e *Engine) AnalogCalibrate(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !analogInput(rec.config) {
		return 0, ErrNotConfigured
	}

	samples := e.CalibrationSamples
	if samples <= 0 {
		samples = defaultCalibrationSamples
	}
	interval := e.CalibrationInterval
	if interval <= 0 {
		interval = defaultCalibrationInterval
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()

	var total int64
	for i := 0; i < samples; i++ {
		<-tick.C

		v, err := e.hw.ReadRaw(idx)
		if err != nil {
			// a failed calibration leaves the offset undefined
			rec.calOffset = 0
			rec.calOffsetHR = 0
			return 0, fmt.Errorf("calibration sample %d: %w", i, err)
		}
		total += int64(v)
	}

	rec.calOffset = int32(total / int64(samples))
	// keep 4 extra bits of precision for the high resolution reading
	rec.calOffsetHR = int32(total * 16 / int64(samples))

	debug.DebugLog.Printf("port %d calibrated, offset %d", idx+1, rec.calOffset)
	return rec.calOffset, nil
}

// AnalogRead returns the raw 12 bit sample of the port, 0 to 4095.
func (e *Engine) AnalogRead(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return e.analogReadLocked(idx, rec)
}

// AnalogReadCalibrated returns the sample relative to the calibration
// offset, -4095 to 4095. Inappropriate for integrated readings, round-off
// error accumulates, use AnalogReadCalibratedHR there.
func (e *Engine) AnalogReadCalibrated(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	v, err := e.analogReadLocked(idx, rec)
	if err != nil {
		return 0, err
	}
	return v - rec.calOffset, nil
}

// AnalogReadCalibratedHR returns the calibrated sample scaled by 16,
// -16384 to 16384. The extra precision keeps the error of an average
// sitting between two raw counts out of integrated values such as gyro
// headings.
func (e *Engine) AnalogReadCalibratedHR(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	v, err := e.analogReadLocked(idx, rec)
	if err != nil {
		return 0, err
	}
	return v*16 - rec.calOffsetHR, nil
}

func (e *Engine) analogReadLocked(idx int, rec *portRecord) (int32, error) {
	if !analogInput(rec.config) {
		return 0, ErrNotConfigured
	}

	v, err := e.hw.ReadRaw(idx)
	if err != nil {
		return 0, fmt.Errorf("read channel %d: %w", idx, err)
	}

	rec.value = v
	return v, nil
}
