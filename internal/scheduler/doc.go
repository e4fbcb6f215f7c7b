// Package scheduler decides, once a second, whether an alarm is due.
//
// A Scheduler owns at most one evaluation loop. The loop reads the local
// time in the stored zone, emits a Trigger when the second is zero and an
// alarm matches the weekday, hour and minute, then sleeps for whatever is
// left of the tick. Reset swaps the loop for one built from freshly loaded
// alarms; the old loop has stopped before the new one starts.
//
// Triggers are consumed by Run, which hands them to the light controller.
// The loop itself never touches the light.
package scheduler
