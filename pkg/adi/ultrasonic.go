package adi

import (
	"sync"
	"sync/atomic"
	"time"

	"adiod/pkg/hal"
	"adiod/pkg/port"
)

const (
	defaultUltrasonicInterval = 60 * time.Millisecond
	// round trip time of sound per centimeter
	echoPerCm = 58 * time.Microsecond
	// width of the strobe on the ping line
	pingPulse = 10 * time.Microsecond
)

// Ultrasonic is a ping/echo rangefinder on a pair of adjacent ports.
// The echo wire must sit on an odd port (1, 3, 5, 7), the ping wire on the
// next port. A background strobe fires the transducer periodically, the
// distance is computed from the echo pulse width.
type Ultrasonic struct {
	eng        *Engine
	echo, ping int
	valid      int32

	mu        sync.Mutex
	distance  int32
	echoStart time.Duration
	gotEcho   bool

	quit chan struct{}
}

// UltrasonicInit claims both ports for a rangefinder and starts the
// strobe. Fails with ErrInvalidPort when the echo port is even or the ping
// port is not the next port, and ErrPortInUse when either port is owned by
// an active encoder or ultrasonic.
func (e *Engine) UltrasonicInit(portEcho, portPing byte) (*Ultrasonic, error) {
	echo, err := portIndex(portEcho)
	if err != nil {
		return nil, err
	}
	ping, err := portIndex(portPing)
	if err != nil {
		return nil, err
	}

	// echo on port 1, 3, 5 or 7 and ping on the port right after it
	if echo%2 != 0 || ping != echo+1 {
		return nil, ErrInvalidPort
	}

	e.claimMu.Lock()
	defer e.claimMu.Unlock()

	if e.claimedLocked(echo) || e.claimedLocked(ping) {
		return nil, ErrPortInUse
	}

	u := &Ultrasonic{
		eng:   e,
		echo:  echo,
		ping:  ping,
		valid: 1,
		quit:  make(chan struct{}),
	}

	if err := e.configureLocked(echo, LegacyUltrasonic); err != nil {
		return nil, err
	}
	if err := e.hw.ConfigureChannel(ping, hal.DigitalOut); err != nil {
		_ = e.configureLocked(echo, Undefined)
		return nil, err
	}
	rec := &e.ports[ping]
	rec.mu.Lock()
	rec.reset(LegacyUltrasonic)
	rec.mu.Unlock()

	if err := e.hw.Watch(echo, u.edge); err != nil {
		_ = e.configureLocked(echo, Undefined)
		_ = e.configureLocked(ping, Undefined)
		return nil, err
	}

	for _, idx := range []int{echo, ping} {
		rec := &e.ports[idx]
		rec.mu.Lock()
		rec.ult = u
		rec.mu.Unlock()
	}

	interval := e.UltrasonicInterval
	if interval <= 0 {
		interval = defaultUltrasonicInterval
	}
	go u.pinger(interval)

	return u, nil
}

// Get returns the last measured distance in centimeters, 0 when no echo
// returned within the strobe period.
func (u *Ultrasonic) Get() (int32, error) {
	if err := u.check(); err != nil {
		return 0, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.distance, nil
}

// Shutdown stops the strobe and returns both ports to Undefined.
func (u *Ultrasonic) Shutdown() error {
	if atomic.LoadInt32(&u.valid) == 0 {
		return ErrInvalidPort
	}

	u.eng.claimMu.Lock()
	defer u.eng.claimMu.Unlock()

	u.teardown()
	return nil
}

// pinger strobes the ping line and expires measurements that got no echo
// before the next strobe.
func (u *Ultrasonic) pinger(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-u.quit:
			return
		case <-tick.C:
		}

		u.mu.Lock()
		if !u.gotEcho {
			u.distance = 0
		}
		u.gotEcho = false
		u.echoStart = 0
		u.mu.Unlock()

		_ = u.eng.hw.WriteRaw(u.ping, 1)
		time.Sleep(pingPulse)
		_ = u.eng.hw.WriteRaw(u.ping, 0)
	}
}

// edge is the hal edge handler of the echo channel. The rising edge opens
// the measurement, the falling edge closes it.
func (u *Ultrasonic) edge(evt port.Event) {
	if atomic.LoadInt32(&u.valid) == 0 {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	switch evt.Type {
	case port.RisingEdge:
		u.echoStart = evt.Timestamp
	case port.FallingEdge:
		if u.echoStart == 0 {
			return
		}
		u.distance = int32((evt.Timestamp - u.echoStart) / echoPerCm)
		u.gotEcho = true
		u.echoStart = 0
	}
}

// teardown releases the claim. claimMu must be held.
func (u *Ultrasonic) teardown() {
	if !atomic.CompareAndSwapInt32(&u.valid, 1, 0) {
		return
	}

	close(u.quit)
	e := u.eng
	e.hw.Unwatch(u.echo)

	for _, idx := range []int{u.echo, u.ping} {
		rec := &e.ports[idx]
		rec.mu.Lock()
		rec.ult = nil
		rec.reset(Undefined)
		rec.mu.Unlock()
	}
}

// check verifies the rangefinder is still active and its ports still hold
// the ultrasonic configuration.
func (u *Ultrasonic) check() error {
	if atomic.LoadInt32(&u.valid) == 0 {
		return ErrInvalidPort
	}

	rec := &u.eng.ports[u.echo]
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.config != LegacyUltrasonic {
		return ErrNotConfigured
	}
	return nil
}

// distanceNow is the snapshot hook used by Engine.GetValue.
func (u *Ultrasonic) distanceNow() int32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.distance
}
