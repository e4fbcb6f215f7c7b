package protocol

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Command
	}{
		{
			name:  "add alarm",
			frame: `{"data":{"name":"add_alarm","body":{"days":[0,4,6],"hour":6,"minute":30}}}`,
			want:  AddAlarm{Days: []uint8{0, 4, 6}, Hour: 6, Minute: 30},
		},
		{
			name:  "add alarm without days",
			frame: `{"data":{"name":"add_alarm","body":{"days":[],"hour":23,"minute":59}}}`,
			want:  AddAlarm{Days: []uint8{}, Hour: 23, Minute: 59},
		},
		{
			name:  "delete one",
			frame: `{"data":{"name":"delete_one","body":{"alarm_id":12}}}`,
			want:  DeleteAlarm{ID: 12},
		},
		{
			name:  "delete all",
			frame: `{"data":{"name":"delete_all"}}`,
			want:  DeleteAllAlarms{},
		},
		{
			name:  "light on",
			frame: `{"data":{"name":"light","body":{"status":true}}}`,
			want:  SetLight{On: true},
		},
		{
			name:  "light off",
			frame: `{"data":{"name":"light","body":{"status":false}}}`,
			want:  SetLight{On: false},
		},
		{
			name:  "time zone",
			frame: `{"data":{"name":"time_zone","body":{"zone":"Europe/Berlin"}}}`,
			want:  SetTimeZone{Zone: "Europe/Berlin"},
		},
		{name: "led status", frame: `{"data":{"name":"led_status"}}`, want: GetLedStatus{}},
		{name: "status", frame: `{"data":{"name":"status"}}`, want: GetStatus{}},
		{name: "restart", frame: `{"data":{"name":"restart"}}`, want: Restart{}},
		{
			name:  "unused body ignored",
			frame: `{"data":{"name":"status","body":{"anything":1}},"unique":"abc"}`,
			want:  GetStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
			if got.Name() != tt.want.Name() {
				t.Errorf("Name() = %q, want %q", got.Name(), tt.want.Name())
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{name: "empty", frame: ``, wantErr: ErrMalformed},
		{name: "not json", frame: `hello`, wantErr: ErrMalformed},
		{name: "empty object", frame: `{}`, wantErr: ErrUnknownMessage},
		{name: "null data", frame: `{"data":null}`, wantErr: ErrUnknownMessage},
		{name: "data not an object", frame: `{"data":"status"}`, wantErr: ErrMalformed},
		{name: "unknown name", frame: `{"data":{"name":"reboot"}}`, wantErr: ErrUnknownMessage},
		{name: "add alarm missing body", frame: `{"data":{"name":"add_alarm"}}`, wantErr: ErrInvalidBody},
		{name: "add alarm missing minute", frame: `{"data":{"name":"add_alarm","body":{"days":[1],"hour":6}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm hour as string", frame: `{"data":{"name":"add_alarm","body":{"days":[1],"hour":"6","minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm day as string", frame: `{"data":{"name":"add_alarm","body":{"days":["1"],"hour":6,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm day out of range", frame: `{"data":{"name":"add_alarm","body":{"days":[8],"hour":6,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm negative day", frame: `{"data":{"name":"add_alarm","body":{"days":[-1],"hour":6,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm too many days", frame: `{"data":{"name":"add_alarm","body":{"days":[0,1,2,3,4,5,6,0],"hour":6,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm hour 24", frame: `{"data":{"name":"add_alarm","body":{"days":[1],"hour":24,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm minute 60", frame: `{"data":{"name":"add_alarm","body":{"days":[1],"hour":6,"minute":60}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm bad hour no days", frame: `{"data":{"name":"add_alarm","body":{"days":[],"hour":25,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "add alarm fractional hour", frame: `{"data":{"name":"add_alarm","body":{"days":[1],"hour":6.5,"minute":0}}}`, wantErr: ErrInvalidBody},
		{name: "delete one id zero", frame: `{"data":{"name":"delete_one","body":{"alarm_id":0}}}`, wantErr: ErrInvalidBody},
		{name: "delete one id string", frame: `{"data":{"name":"delete_one","body":{"alarm_id":"3"}}}`, wantErr: ErrInvalidBody},
		{name: "delete one missing id", frame: `{"data":{"name":"delete_one","body":{}}}`, wantErr: ErrInvalidBody},
		{name: "light status string", frame: `{"data":{"name":"light","body":{"status":"true"}}}`, wantErr: ErrInvalidBody},
		{name: "light missing status", frame: `{"data":{"name":"light","body":{}}}`, wantErr: ErrInvalidBody},
		{name: "unknown zone", frame: `{"data":{"name":"time_zone","body":{"zone":"Mars/Olympus"}}}`, wantErr: ErrInvalidBody},
		{name: "empty zone", frame: `{"data":{"name":"time_zone","body":{"zone":""}}}`, wantErr: ErrInvalidBody},
		{name: "local zone", frame: `{"data":{"name":"time_zone","body":{"zone":"Local"}}}`, wantErr: ErrInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse([]byte(tt.frame))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if cmd != nil {
				t.Errorf("Parse() command = %#v, want nil", cmd)
			}
		})
	}
}

func TestParse_RemoteError(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "error in envelope", frame: `{"data":{"name":"status"},"error":"token expired"}`},
		{name: "top level error object", frame: `{"error":"something","message":"bad request"}`},
		{name: "structured error", frame: `{"error":{"code":401}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.frame))
			var remote *RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("Parse() error = %v, want *RemoteError", err)
			}
			if remote.Raw == "" {
				t.Error("RemoteError.Raw is empty")
			}
		})
	}
}
