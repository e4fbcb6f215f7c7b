// Package light drives the LED strip.
//
// A Controller owns one Device and a shared on/off flag. Two kinds of
// session light the strip:
//
//   - manual: warm white at full brightness, switched off by TurnOff or
//     after five minutes
//   - alarm: a ten step ramp from 10% to 100% brightness, five minutes per
//     step and a longer final step, ending with the strip off
//
// Both announce every change on the event bus. Only one session runs at a
// time; starting one while the light is on does nothing.
//
// Devices render whole frames. Simulated keeps frames in memory and logs
// them; MQTTStrip publishes them for a strip driven by another board.
package light
