package protocol

// Message names used on the wire.
const (
	NameAddAlarm    = "add_alarm"
	NameDeleteAll   = "delete_all"
	NameDeleteOne   = "delete_one"
	NameLedStatus   = "led_status"
	NameLight       = "light"
	NameRestart     = "restart"
	NameStatus      = "status"
	NameTimeZone    = "time_zone"
	maxDaysPerAlarm = 7
)

// Command is one validated instruction from the control server. The set of
// implementations is closed.
type Command interface {
	// Name returns the wire name of the command.
	Name() string
	isCommand()
}

// AddAlarm stores one alarm per listed day at hour:minute.
type AddAlarm struct {
	Days   []uint8
	Hour   uint8
	Minute uint8
}

// DeleteAlarm removes the alarm with the given id.
type DeleteAlarm struct {
	ID int64
}

// DeleteAllAlarms removes every alarm.
type DeleteAllAlarms struct{}

// SetTimeZone replaces the stored zone. Zone is a loadable IANA name.
type SetTimeZone struct {
	Zone string
}

// SetLight switches the light on or off.
type SetLight struct {
	On bool
}

// GetLedStatus asks for the light state.
type GetLedStatus struct{}

// GetStatus asks for a full status snapshot.
type GetStatus struct{}

// Restart asks the client to close the connection and exit.
type Restart struct{}

func (AddAlarm) Name() string        { return NameAddAlarm }
func (DeleteAlarm) Name() string     { return NameDeleteOne }
func (DeleteAllAlarms) Name() string { return NameDeleteAll }
func (SetTimeZone) Name() string     { return NameTimeZone }
func (SetLight) Name() string        { return NameLight }
func (GetLedStatus) Name() string    { return NameLedStatus }
func (GetStatus) Name() string       { return NameStatus }
func (Restart) Name() string         { return NameRestart }

func (AddAlarm) isCommand()        {}
func (DeleteAlarm) isCommand()     {}
func (DeleteAllAlarms) isCommand() {}
func (SetTimeZone) isCommand()     {}
func (SetLight) isCommand()        {}
func (GetLedStatus) isCommand()    {}
func (GetStatus) isCommand()       {}
func (Restart) isCommand()         {}
