package hal

import (
	"sync"
	"time"

	"adiod/pkg/port"
)

// Sim is the in-memory hal backend.
// It is the default backend on hosts without GPIO hardware and the test
// double for the adi engine: raw values are plain registers and edges are
// injected by the caller.
type Sim struct {
	mu    sync.Mutex
	start time.Time
	chans [Channels]simChannel
}

type simChannel struct {
	mode    ChannelMode
	value   int32
	handler func(port.Event)
}

// NewSim creates a simulator with all channels as digital inputs at 0.
func NewSim() *Sim {
	return &Sim{start: time.Now()}
}

func (s *Sim) ReadRaw(channel int) (int32, error) {
	if !validChannel(channel) {
		return 0, ErrInvalidChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chans[channel].value, nil
}

func (s *Sim) WriteRaw(channel int, value int32) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chans[channel].value = value
	return nil
}

func (s *Sim) ConfigureChannel(channel int, mode ChannelMode) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chans[channel].mode = mode
	s.chans[channel].value = 0
	return nil
}

func (s *Sim) Watch(channel int, handler func(port.Event)) error {
	if !validChannel(channel) {
		return ErrInvalidChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chans[channel].handler != nil {
		return ErrChannelWatched
	}
	s.chans[channel].handler = handler
	return nil
}

func (s *Sim) Unwatch(channel int) {
	if !validChannel(channel) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chans[channel].handler = nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chans {
		s.chans[i].handler = nil
	}
	return nil
}

// SetRaw sets the sampled value of an input channel. A digital 0/1
// transition is reported to the channel watcher as an edge.
func (s *Sim) SetRaw(channel int, value int32) {
	if !validChannel(channel) {
		return
	}

	s.mu.Lock()
	old := s.chans[channel].value
	s.chans[channel].value = value
	handler := s.chans[channel].handler
	ts := time.Since(s.start)
	s.mu.Unlock()

	if handler == nil {
		return
	}

	oldState, newState := port.State(old != 0), port.State(value != 0)
	if oldState == newState {
		return
	}

	// the handler runs without the sim lock, it may call back into ReadRaw
	handler(edgeEvent(newState, ts))
}

// InjectEdge delivers an edge with an explicit timestamp to the watcher of
// the channel, without touching the stored value.
func (s *Sim) InjectEdge(channel int, typ port.EventType, ts time.Duration) {
	if !validChannel(channel) {
		return
	}

	s.mu.Lock()
	handler := s.chans[channel].handler
	s.mu.Unlock()

	if handler != nil {
		handler(port.Event{Timestamp: ts, Type: typ})
	}
}
