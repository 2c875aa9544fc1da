//+build !windows

package hal

import (
	"sync"
	"time"

	"github.com/warthog618/gpio"
	"github.com/womat/debug"

	"adiod/pkg/port"
)

// gpioMem drives the ADI channels over /dev/gpiomem memory mapped GPIO.
// Digital only: the expander has no ADC on this transport, analog and pwm
// modes fail with ErrNotSupported.
type gpioMem struct {
	mu    sync.Mutex
	start time.Time
	// bounceTime defines the key bounce time,
	// the value 0 ignores key bouncing.
	bounceTime time.Duration
	chans      [Channels]*memChannel
}

type memChannel struct {
	pin     *gpio.Pin
	handler func(port.Event)
	// while debouncing is set, new edges are ignored (suppress key bouncing)
	debouncing bool
	lastLevel  bool
}

// byPin resolves the watch callback argument back to a channel,
// the gpio package hands the handler a *gpio.Pin only.
var (
	memMu    sync.Mutex
	memByPin map[int]*memChannel
	memOwner *gpioMem
)

func openGpioMem(lines [Channels]int, bounce time.Duration) (Raw, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	g := &gpioMem{start: time.Now(), bounceTime: bounce}

	memMu.Lock()
	memByPin = make(map[int]*memChannel, Channels)
	memOwner = g
	for i, offset := range lines {
		c := &memChannel{pin: gpio.NewPin(offset)}
		c.pin.Input()
		g.chans[i] = c
		memByPin[offset] = c
	}
	memMu.Unlock()

	return g, nil
}

func (g *gpioMem) ReadRaw(channel int) (int32, error) {
	if !validChannel(channel) {
		return 0, ErrInvalidChannel
	}

	if g.chans[channel].pin.Read() {
		return 1, nil
	}
	return 0, nil
}

func (g *gpioMem) WriteRaw(channel int, value int32) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	if value != 0 {
		g.chans[channel].pin.High()
	} else {
		g.chans[channel].pin.Low()
	}
	return nil
}

func (g *gpioMem) ConfigureChannel(channel int, mode ChannelMode) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	switch mode {
	case DigitalIn:
		g.chans[channel].pin.Input()
	case DigitalOut:
		g.chans[channel].pin.Output()
		g.chans[channel].pin.Low()
	default:
		return ErrNotSupported
	}
	return nil
}

// Watch the channel for level changes.
// The handler is called once the bounce timeout expired and the level still
// differs from the last reported one.
func (g *gpioMem) Watch(channel int, handler func(port.Event)) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	g.mu.Lock()
	c := g.chans[channel]
	if c.handler != nil {
		g.mu.Unlock()
		return ErrChannelWatched
	}
	c.handler = handler
	c.lastLevel = bool(c.pin.Read())
	g.mu.Unlock()

	return c.pin.Watch(gpio.EdgeBoth, memEdge)
}

func (g *gpioMem) Unwatch(channel int) {
	if !validChannel(channel) {
		return
	}

	g.mu.Lock()
	c := g.chans[channel]
	c.handler = nil
	g.mu.Unlock()
	c.pin.Unwatch()
}

// Close removes the interrupt handlers and unmaps the GPIO memory.
func (g *gpioMem) Close() error {
	for i := range g.chans {
		g.Unwatch(i)
	}

	memMu.Lock()
	if memOwner == g {
		memByPin = nil
		memOwner = nil
	}
	memMu.Unlock()

	return gpio.Close()
}

// memEdge is the edge callback registered with the gpio package.
// It debounces the raw interrupt and reports the settled level.
func memEdge(p *gpio.Pin) {
	memMu.Lock()
	g := memOwner
	c := memByPin[p.Pin()]
	memMu.Unlock()

	if g == nil || c == nil {
		return
	}

	g.mu.Lock()
	if c.handler == nil || c.debouncing {
		g.mu.Unlock()
		return
	}

	if g.bounceTime == 0 {
		level := bool(c.pin.Read())
		handler := c.handler
		c.lastLevel = level
		g.mu.Unlock()

		handler(edgeEvent(port.State(level), time.Since(g.start)))
		return
	}

	c.debouncing = true
	g.mu.Unlock()

	go func() {
		// wait until the bounce timer expired and check if the pin still
		// holds a changed level
		time.Sleep(g.bounceTime)

		g.mu.Lock()
		level := bool(c.pin.Read())
		handler := c.handler
		if handler == nil || level == c.lastLevel {
			c.debouncing = false
			g.mu.Unlock()
			debug.TraceLog.Printf("pin %d: no changed level after bounce delay", p.Pin())
			return
		}
		c.lastLevel = level
		c.debouncing = false
		g.mu.Unlock()

		handler(edgeEvent(port.State(level), time.Since(g.start)))
	}()
}
