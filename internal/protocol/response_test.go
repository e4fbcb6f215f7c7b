package protocol

import (
	"encoding/json"
	"testing"

	"github.com/nerrad567/wakelight/internal/alarm"
)

func TestStatusFrame(t *testing.T) {
	frame, err := StatusFrame(Status{
		Alarms:       []alarm.Alarm{{ID: 3, Day: 1, Hour: 6, Minute: 30}},
		InternalIP:   "192.168.1.20",
		TimeZone:     "Europe/Berlin",
		UptimeApp:    12,
		ConnectedFor: 4,
		Uptime:       3600,
		Version:      "1.2.3",
	})
	if err != nil {
		t.Fatalf("StatusFrame() error = %v", err)
	}

	var got struct {
		Data struct {
			Name string         `json:"name"`
			Data map[string]any `json:"data"`
		} `json:"data"`
		Cache *bool `json:"cache"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Data.Name != NameStatus {
		t.Errorf("name = %q, want %q", got.Data.Name, NameStatus)
	}
	if got.Cache == nil || !*got.Cache {
		t.Errorf("cache = %v, want true", got.Cache)
	}
	for _, key := range []string{"alarms", "internal_ip", "time_zone", "uptime_app", "connected_for", "uptime", "version"} {
		if _, ok := got.Data.Data[key]; !ok {
			t.Errorf("status data missing %q", key)
		}
	}
	alarms, ok := got.Data.Data["alarms"].([]any)
	if !ok || len(alarms) != 1 {
		t.Fatalf("alarms = %v, want one entry", got.Data.Data["alarms"])
	}
	first, _ := alarms[0].(map[string]any)
	if first["alarm_id"] != float64(3) || first["day"] != float64(1) {
		t.Errorf("alarm = %v", first)
	}
}

func TestStatusFrame_EmptyAlarmsIsArray(t *testing.T) {
	frame, err := StatusFrame(Status{})
	if err != nil {
		t.Fatalf("StatusFrame() error = %v", err)
	}
	var got struct {
		Data struct {
			Data struct {
				Alarms json.RawMessage `json:"alarms"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if string(got.Data.Data.Alarms) != "[]" {
		t.Errorf("alarms = %s, want []", got.Data.Data.Alarms)
	}
}

func TestLedStatusFrame(t *testing.T) {
	tests := []struct {
		on   bool
		want string
	}{
		{on: true, want: `{"data":{"name":"led_status","data":{"status":true}}}`},
		{on: false, want: `{"data":{"name":"led_status","data":{"status":false}}}`},
	}
	for _, tt := range tests {
		frame, err := LedStatusFrame(tt.on)
		if err != nil {
			t.Fatalf("LedStatusFrame(%v) error = %v", tt.on, err)
		}
		if string(frame) != tt.want {
			t.Errorf("LedStatusFrame(%v) = %s, want %s", tt.on, frame, tt.want)
		}
	}
}
