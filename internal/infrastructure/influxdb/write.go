package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementLightState = "light_state"
	MeasurementSession    = "ws_session"
)

// WriteLightState records the strip turning on or off at the given time.
func (c *Client) WriteLightState(on bool, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(lightStatePoint(c.device, on, at))
}

// WriteSession records the end of a control server session.
func (c *Client) WriteSession(duration time.Duration, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sessionPoint(c.device, duration, at))
}

func lightStatePoint(device string, on bool, at time.Time) *write.Point {
	value := 0
	if on {
		value = 1
	}
	return write.NewPoint(
		MeasurementLightState,
		map[string]string{"device": device},
		map[string]interface{}{"on": on, "value": value},
		at,
	)
}

func sessionPoint(device string, duration time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementSession,
		map[string]string{"device": device},
		map[string]interface{}{"duration_s": duration.Seconds()},
		at,
	)
}
