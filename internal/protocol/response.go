package protocol

import (
	"encoding/json"

	"github.com/nerrad567/wakelight/internal/alarm"
)

// Status is the device snapshot sent on connect and after every change.
type Status struct {
	Alarms       []alarm.Alarm `json:"alarms"`
	InternalIP   string        `json:"internal_ip"`
	TimeZone     string        `json:"time_zone"`
	UptimeApp    uint64        `json:"uptime_app"`
	ConnectedFor uint64        `json:"connected_for"`
	Uptime       uint64        `json:"uptime"`
	Version      string        `json:"version"`
}

// LedStatus reports whether the strip is lit.
type LedStatus struct {
	Status bool `json:"status"`
}

type payload struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

type response struct {
	Data  payload `json:"data"`
	Cache *bool   `json:"cache,omitempty"`
}

// StatusFrame encodes s. Status frames ask the server to cache them.
func StatusFrame(s Status) ([]byte, error) {
	if s.Alarms == nil {
		s.Alarms = []alarm.Alarm{}
	}
	cache := true
	return json.Marshal(response{Data: payload{Name: NameStatus, Data: s}, Cache: &cache})
}

// LedStatusFrame encodes the light state.
func LedStatusFrame(on bool) ([]byte, error) {
	return json.Marshal(response{Data: payload{Name: NameLedStatus, Data: LedStatus{Status: on}}})
}
