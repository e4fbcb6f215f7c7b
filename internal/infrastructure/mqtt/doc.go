// Package mqtt connects wakelight to an optional MQTT broker.
//
// The broker is used for two things: publishing rendered frames when the
// light driver is "mqtt" (a networked strip subscribes to them) and
// mirroring the light state for home automation, which may also switch
// the light through the set topic.
//
// Topic layout, for prefix "wakelight" and device "bedroom":
//
//	wakelight/bedroom/status        retained online/offline, LWT
//	wakelight/bedroom/light/state   retained {"on":true,...}
//	wakelight/bedroom/light/set     inbound on/off commands
//	wakelight/bedroom/light/frame   retained frames for the strip
//
// The websocket session never depends on the broker: every MQTT failure is
// logged by the caller and otherwise ignored.
package mqtt
