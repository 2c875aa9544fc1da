package adi

import (
	"sync/atomic"

	"adiod/pkg/port"
)

// TicksPerRevolution is the resolution of the quadrature shaft encoder.
const TicksPerRevolution = 360

// Encoder is a quadrature shaft encoder on a pair of ports. The top wire
// delivers the count pulses, the level of the bottom wire at pulse time
// gives the direction.
//
// Tick accumulation is driven by the edge source of the hal backend and
// runs independently of any caller.
type Encoder struct {
	eng         *Engine
	top, bottom int
	reverse     bool

	// ticks and valid are accessed from the edge handler, atomics only
	ticks int32
	valid int32
}

// EncoderInit claims both ports for a shaft encoder and starts counting.
// Fails with ErrPortInUse when either port is already owned by an active
// encoder or ultrasonic.
func (e *Engine) EncoderInit(portTop, portBottom byte, reverse bool) (*Encoder, error) {
	top, err := portIndex(portTop)
	if err != nil {
		return nil, err
	}
	bottom, err := portIndex(portBottom)
	if err != nil {
		return nil, err
	}
	if top == bottom {
		return nil, ErrInvalidPort
	}

	e.claimMu.Lock()
	defer e.claimMu.Unlock()

	if e.claimedLocked(top) || e.claimedLocked(bottom) {
		return nil, ErrPortInUse
	}

	enc := &Encoder{eng: e, top: top, bottom: bottom, reverse: reverse, valid: 1}

	for _, idx := range []int{top, bottom} {
		if err := e.configureLocked(idx, LegacyEncoder); err != nil {
			return nil, err
		}
	}

	if err := e.hw.Watch(top, enc.edge); err != nil {
		_ = e.configureLocked(top, Undefined)
		_ = e.configureLocked(bottom, Undefined)
		return nil, err
	}

	for _, idx := range []int{top, bottom} {
		rec := &e.ports[idx]
		rec.mu.Lock()
		rec.enc = enc
		rec.mu.Unlock()
	}

	return enc, nil
}

// claimedLocked reports whether the port is owned by an active encoder or
// ultrasonic. claimMu must be held.
func (e *Engine) claimedLocked(idx int) bool {
	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.enc != nil || rec.ult != nil
}

// edge is the hal edge handler of the top channel.
func (enc *Encoder) edge(evt port.Event) {
	if atomic.LoadInt32(&enc.valid) == 0 || evt.Type != port.RisingEdge {
		return
	}

	dir := int32(1)
	if v, err := enc.eng.hw.ReadRaw(enc.bottom); err == nil && v != 0 {
		dir = -1
	}
	if enc.reverse {
		dir = -dir
	}

	atomic.AddInt32(&enc.ticks, dir)
}

// Get returns the signed cumulative tick count since init or the last
// reset.
func (enc *Encoder) Get() (int32, error) {
	if err := enc.check(); err != nil {
		return 0, err
	}
	return atomic.LoadInt32(&enc.ticks), nil
}

// Reset zeroes the tick count without disabling the encoder. Safe to call
// while ticks are being accumulated.
func (enc *Encoder) Reset() error {
	if err := enc.check(); err != nil {
		return err
	}
	atomic.StoreInt32(&enc.ticks, 0)
	return nil
}

// Shutdown stops counting and returns both ports to Undefined.
func (enc *Encoder) Shutdown() error {
	if atomic.LoadInt32(&enc.valid) == 0 {
		return ErrInvalidPort
	}

	enc.eng.claimMu.Lock()
	defer enc.eng.claimMu.Unlock()

	enc.teardown()
	return nil
}

// teardown releases the claim. claimMu must be held.
func (enc *Encoder) teardown() {
	if !atomic.CompareAndSwapInt32(&enc.valid, 1, 0) {
		return
	}

	e := enc.eng
	e.hw.Unwatch(enc.top)

	for _, idx := range []int{enc.top, enc.bottom} {
		rec := &e.ports[idx]
		rec.mu.Lock()
		rec.enc = nil
		rec.reset(Undefined)
		rec.mu.Unlock()
	}
}

// check verifies the encoder is still active and its ports still hold the
// encoder configuration.
func (enc *Encoder) check() error {
	if atomic.LoadInt32(&enc.valid) == 0 {
		return ErrInvalidPort
	}

	rec := &enc.eng.ports[enc.top]
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.config != LegacyEncoder {
		return ErrNotConfigured
	}
	return nil
}

// ticksNow is the snapshot hook used by Engine.GetValue.
func (enc *Encoder) ticksNow() int32 {
	return atomic.LoadInt32(&enc.ticks)
}
