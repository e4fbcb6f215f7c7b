package mqtt

import "strings"

// Topics builds the topic names used by one wakelight device. Every topic
// lives under <prefix>/<device>/.
//
//	topics := mqtt.NewTopics("wakelight", "bedroom")
//	topics.LightState() // "wakelight/bedroom/light/state"
type Topics struct {
	base string
}

// NewTopics returns the topic builder for device under prefix.
// Empty segments are skipped so a blank prefix yields "<device>/...".
func NewTopics(prefix, device string) Topics {
	parts := make([]string, 0, 2)
	for _, p := range []string{prefix, device} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return Topics{base: strings.Join(parts, "/")}
}

func (t Topics) join(suffix string) string {
	if t.base == "" {
		return suffix
	}
	return t.base + "/" + suffix
}

// Availability is the retained online/offline topic, also used for the LWT.
//
// Example: wakelight/bedroom/status
func (t Topics) Availability() string { return t.join("status") }

// LightState carries the retained on/off state of the strip.
//
// Example: wakelight/bedroom/light/state
func (t Topics) LightState() string { return t.join("light/state") }

// LightSet receives on/off commands from home automation.
//
// Example: wakelight/bedroom/light/set
func (t Topics) LightSet() string { return t.join("light/set") }

// LightFrame carries rendered frames for a networked strip.
//
// Example: wakelight/bedroom/light/frame
func (t Topics) LightFrame() string { return t.join("light/frame") }
