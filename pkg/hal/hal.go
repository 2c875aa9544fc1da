// Package hal is the raw hardware access layer backing the ADI ports.
//
// A backend maps the 8 logical ADI channels to whatever the platform
// provides (memory mapped GPIO, the gpio character device, or an in-memory
// simulator) and delivers edge events for watched channels.
package hal

import (
	"fmt"
	"time"

	"adiod/pkg/port"
)

// Channels is the number of raw channels backing the ADI bank.
const Channels = 8

// ChannelMode selects the electrical function of a raw channel.
type ChannelMode int

const (
	DigitalIn ChannelMode = iota
	DigitalOut
	AnalogIn
	AnalogOut
	PWMOut
)

var (
	ErrInvalidChannel = fmt.Errorf("invalid channel")
	ErrNotSupported   = fmt.Errorf("not supported by hal backend")
	ErrChannelWatched = fmt.Errorf("channel already watched")
)

// Raw is the hardware collaborator consumed by the adi engine.
//
// ReadRaw returns a 12-bit sample for analog channels and 0/1 for digital
// channels. Watch registers the single edge handler of a channel; there can
// only be one watcher on a channel at a time.
type Raw interface {
	ReadRaw(channel int) (int32, error)
	WriteRaw(channel int, value int32) error
	ConfigureChannel(channel int, mode ChannelMode) error
	Watch(channel int, handler func(port.Event)) error
	Unwatch(channel int)
	Close() error
}

// Open creates the backend selected by name.
//   lines holds the BCM line offsets backing channels 0-7 (ignored by sim).
//   bounce suppresses edges repeating faster than the given duration,
//   0 disables debouncing.
func Open(backend string, lines [Channels]int, bounce time.Duration) (Raw, error) {
	switch backend {
	case "", "sim":
		return NewSim(), nil
	case "gpiomem":
		return openGpioMem(lines, bounce)
	case "gpiod":
		return openGpioDev(lines, bounce)
	}
	return nil, fmt.Errorf("unknown hal backend %q", backend)
}

func validChannel(channel int) bool {
	return channel >= 0 && channel < Channels
}

// edgeEvent maps a settled line state to the edge event reporting it.
func edgeEvent(state port.StateType, ts time.Duration) port.Event {
	if state == port.High {
		return port.Event{Timestamp: ts, Type: port.RisingEdge}
	}
	return port.Event{Timestamp: ts, Type: port.FallingEdge}
}
