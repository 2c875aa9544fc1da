package app

import (
	"encoding/json"
	"time"

	"github.com/womat/debug"

	"adiod/pkg/adi"
	"adiod/pkg/mqtt"
)

// pollInterval is the snapshot rate of the telemetry loop. Snapshots are
// published when a port changed or the configured mqtt interval elapsed.
const pollInterval = 500 * time.Millisecond

// telemetry watches the port bank and publishes snapshots to the mqtt
// broker.
func (app *App) telemetry() {
	var last []adi.PortStatus
	var lastSent time.Time

	for range time.Tick(pollInterval) {
		s := app.adi.Snapshot()

		if snapshotsEqual(s, last) && time.Since(lastSent) < app.config.MQTT.Interval {
			continue
		}

		app.sendMQTT(app.config.MQTT.Topic, s)
		last = s
		lastSent = time.Now()
	}
}

// snapshotsEqual reports whether two port snapshots carry the same state.
func snapshotsEqual(a, b []adi.PortStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sendMQTT sends the message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}
