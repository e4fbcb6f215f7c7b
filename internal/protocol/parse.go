package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/wakelight/internal/alarm"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

type named struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"body"`
}

type addAlarmBody struct {
	Days   *[]int `json:"days"`
	Hour   *int   `json:"hour"`
	Minute *int   `json:"minute"`
}

type deleteOneBody struct {
	AlarmID *int64 `json:"alarm_id"`
}

type lightBody struct {
	Status *bool `json:"status"`
}

type timeZoneBody struct {
	Zone *string `json:"zone"`
}

// Parse decodes and validates one text frame.
func Parse(frame []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if present(env.Error) {
		return nil, &RemoteError{Raw: string(env.Error)}
	}
	if !present(env.Data) {
		return nil, ErrUnknownMessage
	}

	var msg named
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch msg.Name {
	case NameAddAlarm:
		return parseAddAlarm(msg.Body)
	case NameDeleteOne:
		return parseDeleteOne(msg.Body)
	case NameLight:
		return parseLight(msg.Body)
	case NameTimeZone:
		return parseTimeZone(msg.Body)
	case NameDeleteAll:
		return DeleteAllAlarms{}, nil
	case NameLedStatus:
		return GetLedStatus{}, nil
	case NameStatus:
		return GetStatus{}, nil
	case NameRestart:
		return Restart{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Name)
	}
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func decodeBody(name string, raw json.RawMessage, v any) error {
	if !present(raw) {
		return invalid(name, "missing body")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalid(name, "%v", err)
	}
	return nil
}

func parseAddAlarm(raw json.RawMessage) (Command, error) {
	var body addAlarmBody
	if err := decodeBody(NameAddAlarm, raw, &body); err != nil {
		return nil, err
	}
	if body.Days == nil || body.Hour == nil || body.Minute == nil {
		return nil, invalid(NameAddAlarm, "days, hour and minute are required")
	}
	if len(*body.Days) > maxDaysPerAlarm {
		return nil, invalid(NameAddAlarm, "too many days")
	}

	cmd := AddAlarm{Days: make([]uint8, 0, len(*body.Days))}
	for _, d := range *body.Days {
		if err := alarm.Validate(d, *body.Hour, *body.Minute); err != nil {
			return nil, invalid(NameAddAlarm, "%v", err)
		}
		cmd.Days = append(cmd.Days, uint8(d))
	}
	// Hour and minute are checked even when no days were given.
	if err := alarm.Validate(0, *body.Hour, *body.Minute); err != nil {
		return nil, invalid(NameAddAlarm, "%v", err)
	}
	cmd.Hour = uint8(*body.Hour)
	cmd.Minute = uint8(*body.Minute)
	return cmd, nil
}

func parseDeleteOne(raw json.RawMessage) (Command, error) {
	var body deleteOneBody
	if err := decodeBody(NameDeleteOne, raw, &body); err != nil {
		return nil, err
	}
	if body.AlarmID == nil {
		return nil, invalid(NameDeleteOne, "alarm_id is required")
	}
	if *body.AlarmID < 1 {
		return nil, invalid(NameDeleteOne, "%d smaller than 1", *body.AlarmID)
	}
	return DeleteAlarm{ID: *body.AlarmID}, nil
}

func parseLight(raw json.RawMessage) (Command, error) {
	var body lightBody
	if err := decodeBody(NameLight, raw, &body); err != nil {
		return nil, err
	}
	if body.Status == nil {
		return nil, invalid(NameLight, "status is required")
	}
	return SetLight{On: *body.Status}, nil
}

func parseTimeZone(raw json.RawMessage) (Command, error) {
	var body timeZoneBody
	if err := decodeBody(NameTimeZone, raw, &body); err != nil {
		return nil, err
	}
	if body.Zone == nil {
		return nil, invalid(NameTimeZone, "zone is required")
	}
	if err := alarm.ValidateZone(*body.Zone); err != nil {
		return nil, invalid(NameTimeZone, "%v", err)
	}
	return SetTimeZone{Zone: *body.Zone}, nil
}
