// Package adi implements the port engine for the 8 port analog/digital
// bank of the controller.
//
// Ports are addressed as 1-8 or 'a'-'h'/'A'-'H' (case-insensitive) like on
// the expander label. All operations are safe for concurrent use, with the
// documented exception of DigitalGetNewPress which keeps per-port edge
// history for a single reader.
package adi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"adiod/pkg/hal"
)

// NumPorts is the number of ports of the ADI bank.
const NumPorts = 8

var (
	ErrInvalidPort   = errors.New("invalid port")
	ErrNotConfigured = errors.New("port not configured for this operation")
	ErrPortInUse     = errors.New("port already in use")
)

// PortConfig is the sensor type a port is configured as.
type PortConfig int

const (
	AnalogIn PortConfig = iota
	AnalogOut
	DigitalIn
	DigitalOut
	SmartButton
	SmartPot
	LegacyButton
	LegacyPot
	LegacyLineSensor
	LegacyLightSensor
	LegacyGyro
	LegacyAccelerometer
	LegacyServo
	LegacyPWM
	LegacyEncoder
	LegacyUltrasonic

	Undefined PortConfig = 255
)

var configNames = map[PortConfig]string{
	AnalogIn:            "analogIn",
	AnalogOut:           "analogOut",
	DigitalIn:           "digitalIn",
	DigitalOut:          "digitalOut",
	SmartButton:         "smartButton",
	SmartPot:            "smartPot",
	LegacyButton:        "legacyButton",
	LegacyPot:           "legacyPot",
	LegacyLineSensor:    "legacyLineSensor",
	LegacyLightSensor:   "legacyLightSensor",
	LegacyGyro:          "legacyGyro",
	LegacyAccelerometer: "legacyAccelerometer",
	LegacyServo:         "legacyServo",
	LegacyPWM:           "legacyPwm",
	LegacyEncoder:       "legacyEncoder",
	LegacyUltrasonic:    "legacyUltrasonic",
	Undefined:           "undefined",
}

func (c PortConfig) String() string {
	if s, ok := configNames[c]; ok {
		return s
	}
	return fmt.Sprintf("portConfig(%d)", int(c))
}

// channelModes maps a port configuration to the electrical mode of the raw
// channel behind it. Undefined has no entry, the channel is left alone.
var channelModes = map[PortConfig]hal.ChannelMode{
	AnalogIn:            hal.AnalogIn,
	AnalogOut:           hal.AnalogOut,
	DigitalIn:           hal.DigitalIn,
	DigitalOut:          hal.DigitalOut,
	SmartButton:         hal.DigitalIn,
	SmartPot:            hal.AnalogIn,
	LegacyButton:        hal.DigitalIn,
	LegacyPot:           hal.AnalogIn,
	LegacyLineSensor:    hal.AnalogIn,
	LegacyLightSensor:   hal.AnalogIn,
	LegacyGyro:          hal.AnalogIn,
	LegacyAccelerometer: hal.AnalogIn,
	LegacyServo:         hal.PWMOut,
	LegacyPWM:           hal.PWMOut,
	LegacyEncoder:       hal.DigitalIn,
	LegacyUltrasonic:    hal.DigitalIn,
}

// Engine owns the 8 port records and the raw hardware behind them.
type Engine struct {
	hw hal.Raw

	// claimMu serializes configuration changes and port pair claims,
	// lock order is claimMu before any portRecord.mu.
	claimMu sync.Mutex
	ports   [NumPorts]portRecord

	// CalibrationSamples and CalibrationInterval size the sampling window
	// of AnalogCalibrate. Zero values fall back to 500 samples 1ms apart.
	CalibrationSamples  int
	CalibrationInterval time.Duration

	// UltrasonicInterval is the strobe period of ultrasonic rangefinders,
	// zero falls back to 60ms.
	UltrasonicInterval time.Duration
}

type portRecord struct {
	mu     sync.Mutex
	config PortConfig
	// value is the last raw or computed value, its meaning depends on the
	// configuration
	value       int32
	calOffset   int32
	calOffsetHR int32
	// lastState is the edge detection shadow of DigitalGetNewPress
	lastState bool

	enc *Encoder
	ult *Ultrasonic
}

// reset installs cfg and clears all derived state of the previous
// configuration. rec.mu must be held.
func (rec *portRecord) reset(cfg PortConfig) {
	rec.config = cfg
	rec.value = 0
	rec.calOffset = 0
	rec.calOffsetHR = 0
	rec.lastState = false
}

// New creates an engine on top of the given hardware backend with all
// ports undefined.
func New(hw hal.Raw) *Engine {
	e := &Engine{hw: hw}
	for i := range e.ports {
		e.ports[i].config = Undefined
	}
	return e
}

// portIndex normalizes a port identifier (1-8, 'a'-'h', 'A'-'H') to a zero
// based index.
func portIndex(p byte) (int, error) {
	switch {
	case p >= 1 && p <= NumPorts:
		return int(p - 1), nil
	case p >= 'a' && p <= 'h':
		return int(p - 'a'), nil
	case p >= 'A' && p <= 'H':
		return int(p - 'A'), nil
	}
	return 0, ErrInvalidPort
}

// GetConfig returns the current configuration of the port.
func (e *Engine) GetConfig(p byte) (PortConfig, error) {
	idx, err := portIndex(p)
	if err != nil {
		return Undefined, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.config, nil
}

// SetConfig configures the port as the given sensor type.
// Reconfiguring resets the derived state of the port (calibration offset,
// edge detection shadow) and dissolves any encoder or ultrasonic claim
// covering it.
func (e *Engine) SetConfig(p byte, cfg PortConfig) error {
	idx, err := portIndex(p)
	if err != nil {
		return err
	}

	e.claimMu.Lock()
	defer e.claimMu.Unlock()

	e.releaseLocked(idx)
	return e.configureLocked(idx, cfg)
}

// configureLocked applies cfg to the port. claimMu must be held.
func (e *Engine) configureLocked(idx int, cfg PortConfig) error {
	if mode, ok := channelModes[cfg]; ok {
		if err := e.hw.ConfigureChannel(idx, mode); err != nil {
			return fmt.Errorf("configure channel %d: %w", idx, err)
		}
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.reset(cfg)
	return nil
}

// releaseLocked dissolves the encoder or ultrasonic claim covering the
// port, if any. claimMu must be held.
func (e *Engine) releaseLocked(idx int) {
	rec := &e.ports[idx]
	rec.mu.Lock()
	enc, ult := rec.enc, rec.ult
	rec.mu.Unlock()

	if enc != nil {
		enc.teardown()
	}
	if ult != nil {
		ult.teardown()
	}
}

// GetValue returns the last recorded value of the port. Input type ports
// are sampled first, output type ports echo the last written value.
func (e *Engine) GetValue(p byte) (int32, error) {
	idx, err := portIndex(p)
	if err != nil {
		return 0, err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	switch {
	case rec.enc != nil:
		rec.value = rec.enc.ticksNow()
	case rec.ult != nil:
		rec.value = rec.ult.distanceNow()
	case analogInput(rec.config), digitalInput(rec.config):
		if v, err := e.hw.ReadRaw(idx); err == nil {
			rec.value = v
		}
	}
	return rec.value, nil
}

// SetValue writes a value to an output configured port.
// Writing to a port that is not configured as an output fails with
// ErrNotConfigured.
func (e *Engine) SetValue(p byte, value int32) error {
	idx, err := portIndex(p)
	if err != nil {
		return err
	}

	rec := &e.ports[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	switch {
	case rec.config == AnalogOut:
		value = clamp(value, 0, 4095)
	case rec.config == DigitalOut:
		if value != 0 {
			value = 1
		}
	case motorPort(rec.config):
		value = clamp(value, -127, 127)
	default:
		return ErrNotConfigured
	}

	if err := e.hw.WriteRaw(idx, value); err != nil {
		return fmt.Errorf("write channel %d: %w", idx, err)
	}
	rec.value = value
	return nil
}

// Pin modes of the compatibility PinMode call.
const (
	Input        = 0x00
	Output       = 0x01
	InputAnalog  = 0x02
	OutputAnalog = 0x03
)

var pinModes = map[uint8]PortConfig{
	Input:        DigitalIn,
	Output:       DigitalOut,
	InputAnalog:  AnalogIn,
	OutputAnalog: AnalogOut,
}

// PinMode configures the port using the flat compatibility mode constants.
func (e *Engine) PinMode(p byte, mode uint8) error {
	cfg, ok := pinModes[mode]
	if !ok {
		return fmt.Errorf("invalid pin mode 0x%02x", mode)
	}
	return e.SetConfig(p, cfg)
}

// PortStatus is the externally visible state of one port.
type PortStatus struct {
	Port   int    `json:"port"`
	Config string `json:"config"`
	Value  int32  `json:"value"`
}

// Snapshot returns the status of all 8 ports.
func (e *Engine) Snapshot() []PortStatus {
	s := make([]PortStatus, NumPorts)
	for i := range s {
		v, _ := e.GetValue(byte(i + 1))
		cfg, _ := e.GetConfig(byte(i + 1))
		s[i] = PortStatus{Port: i + 1, Config: cfg.String(), Value: v}
	}
	return s
}

func analogInput(c PortConfig) bool {
	switch c {
	case AnalogIn, SmartPot, LegacyPot, LegacyLineSensor, LegacyLightSensor,
		LegacyGyro, LegacyAccelerometer:
		return true
	}
	return false
}

func digitalInput(c PortConfig) bool {
	switch c {
	case DigitalIn, SmartButton, LegacyButton:
		return true
	}
	return false
}

func motorPort(c PortConfig) bool {
	return c == LegacyPWM || c == LegacyServo
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
