// Package alarm stores wake-up alarms and the device timezone.
//
// An alarm is a (weekday, hour, minute) triple with Monday as day 0. Adding
// an alarm for several days stores one row per day. The timezone table holds
// a single row naming the IANA zone used for every wall-clock comparison; it
// is seeded with the configured default the first time the client starts.
//
// Range checks happen twice: Validate before any write, and CHECK
// constraints in the schema.
package alarm
