//+build !windows

package hal

import (
	"sync"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"adiod/pkg/port"
)

// gpioDev drives the ADI channels over the gpio character device.
// Like gpioMem it is digital only.
type gpioDev struct {
	mu   sync.Mutex
	chip *gpiod.Chip
	// bounceTime defines the key bounce time,
	// the value 0 ignores key bouncing.
	bounceTime time.Duration
	chans      [Channels]*devChannel
}

type devChannel struct {
	offset     int
	mode       ChannelMode
	line       *gpiod.Line
	handler    func(port.Event)
	debouncing bool
	lastValue  int
}

// settle records the debounced level and reports whether it differs from
// the last settled one. The backend lock must be held.
func (c *devChannel) settle(v int) bool {
	if v == c.lastValue {
		return false
	}
	c.lastValue = v
	return true
}

func openGpioDev(lines [Channels]int, bounce time.Duration) (Raw, error) {
	chip, err := gpiod.NewChip("gpiochip0")
	if err != nil {
		return nil, err
	}

	g := &gpioDev{chip: chip, bounceTime: bounce}
	for i, offset := range lines {
		c := &devChannel{offset: offset, mode: DigitalIn}
		if c.line, err = chip.RequestLine(offset, gpiod.AsInput); err != nil {
			_ = g.Close()
			return nil, err
		}
		g.chans[i] = c
	}

	return g, nil
}

func (g *gpioDev) ReadRaw(channel int) (int32, error) {
	if !validChannel(channel) {
		return 0, ErrInvalidChannel
	}

	g.mu.Lock()
	line := g.chans[channel].line
	g.mu.Unlock()

	if line == nil {
		return 0, ErrNotSupported
	}

	v, err := line.Value()
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return 1, nil
	}
	return 0, nil
}

func (g *gpioDev) WriteRaw(channel int, value int32) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	g.mu.Lock()
	c := g.chans[channel]
	g.mu.Unlock()

	if c.line == nil || c.mode != DigitalOut {
		return ErrNotSupported
	}

	v := 0
	if value != 0 {
		v = 1
	}
	return c.line.SetValue(v)
}

// ConfigureChannel releases the requested line and re-requests it in the
// new direction. A registered watcher does not survive reconfiguration.
func (g *gpioDev) ConfigureChannel(channel int, mode ChannelMode) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.chans[channel]
	if c.line != nil {
		_ = c.line.Close()
		c.line = nil
	}
	c.handler = nil

	var err error
	switch mode {
	case DigitalIn:
		c.line, err = g.chip.RequestLine(c.offset, gpiod.AsInput)
	case DigitalOut:
		c.line, err = g.chip.RequestLine(c.offset, gpiod.AsOutput(0))
	default:
		return ErrNotSupported
	}
	if err != nil {
		return err
	}

	c.mode = mode
	return nil
}

// Watch re-requests the line with an edge event handler.
// There can only be one watcher on a channel at a time.
func (g *gpioDev) Watch(channel int, handler func(port.Event)) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.chans[channel]
	if c.handler != nil {
		return ErrChannelWatched
	}
	if c.mode != DigitalIn {
		return ErrNotSupported
	}

	if c.line != nil {
		_ = c.line.Close()
		c.line = nil
	}

	line, err := g.chip.RequestLine(c.offset,
		gpiod.WithEventHandler(func(evt gpiod.LineEvent) { g.edge(c, evt) }),
		gpiod.WithBothEdges, gpiod.AsInput)
	if err != nil {
		return err
	}

	c.line = line
	c.handler = handler
	return nil
}

func (g *gpioDev) Unwatch(channel int) {
	if !validChannel(channel) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.chans[channel]
	if c.handler == nil {
		return
	}
	c.handler = nil

	// drop the event request, fall back to a plain input line
	if c.line != nil {
		_ = c.line.Close()
	}
	c.line, _ = g.chip.RequestLine(c.offset, gpiod.AsInput)
}

// Close releases all requested lines and the chip.
func (g *gpioDev) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range g.chans {
		if c != nil && c.line != nil {
			_ = c.line.Close()
			c.line = nil
			c.handler = nil
		}
	}
	return g.chip.Close()
}

// edge debounces a line event and hands the settled edge to the channel
// watcher.
func (g *gpioDev) edge(c *devChannel, evt gpiod.LineEvent) {
	g.mu.Lock()
	if c.handler == nil || c.debouncing {
		g.mu.Unlock()
		return
	}

	if g.bounceTime == 0 {
		handler := c.handler
		g.mu.Unlock()

		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			handler(port.Event{Timestamp: evt.Timestamp, Type: port.RisingEdge})
		case gpiod.LineEventFallingEdge:
			handler(port.Event{Timestamp: evt.Timestamp, Type: port.FallingEdge})
		}
		return
	}

	c.debouncing = true
	g.mu.Unlock()

	go func() {
		time.Sleep(g.bounceTime)

		g.mu.Lock()
		handler := c.handler
		line := c.line
		if handler == nil || line == nil {
			c.debouncing = false
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()

		v, err := line.Value()

		// debouncing stays set until the settled level is recorded, the
		// compare and set on lastValue must not overlap
		g.mu.Lock()
		c.debouncing = false
		state := port.Invalid
		if err == nil {
			state = port.State(v != 0)
		}
		switch {
		case state == port.Invalid:
			g.mu.Unlock()
			debug.ErrorLog.Printf("line %d: %v", c.offset, err)
		case !c.settle(v):
			g.mu.Unlock()
			debug.TraceLog.Printf("line %d: no changed value after bounce delay", c.offset)
		default:
			g.mu.Unlock()
			handler(edgeEvent(state, evt.Timestamp+g.bounceTime))
		}
	}()
}
