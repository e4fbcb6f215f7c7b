// Package protocol converts control server frames to commands and status
// values to frames.
//
// Inbound frames are JSON envelopes:
//
//	{"data": {"name": "add_alarm", "body": {"days": [0, 4], "hour": 6, "minute": 30}}}
//
// Parse validates the body completely, so a Command that comes out of it
// can be acted on without further checks. Outbound frames wrap a named
// payload and may ask the server to cache it:
//
//	{"data": {"name": "led_status", "data": {"status": true}}}
//	{"data": {"name": "status", "data": {...}}, "cache": true}
package protocol
