// Package lightbridge mirrors the light state to MQTT and accepts on/off
// commands from home automation.
//
// The state is published retained on <prefix>/<device>/light/state as
// {"on":true,"ts":"2024-01-01T06:30:00Z"}. Commands arrive on
// <prefix>/<device>/light/set as {"on":true} or the plain strings ON and OFF.
package lightbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/infrastructure/mqtt"
)

// ErrBadCommand is returned by the set handler for unrecognised payloads.
var ErrBadCommand = errors.New("lightbridge: unrecognised light command")

// Broker is the part of the MQTT client the bridge uses.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Light is the part of the illumination controller the bridge drives.
type Light interface {
	IsOn() bool
	TurnOn(ctx context.Context) bool
	TurnOff() bool
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type statePayload struct {
	On        bool   `json:"on"`
	Timestamp string `json:"ts"`
}

type setPayload struct {
	On *bool `json:"on"`
}

// Bridge connects the event bus and the light controller to MQTT.
type Bridge struct {
	broker Broker
	topics mqtt.Topics
	qos    byte
	light  Light
	sub    *eventbus.Subscription
	logger Logger

	wg sync.WaitGroup
}

// New creates a bridge and subscribes it to bus immediately, so changes
// published before Run are not lost.
func New(broker Broker, topics mqtt.Topics, qos byte, light Light, bus *eventbus.Bus) *Bridge {
	return &Bridge{
		broker: broker,
		topics: topics,
		qos:    qos,
		light:  light,
		sub:    bus.Subscribe(),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger. Call before Run.
func (b *Bridge) SetLogger(l Logger) {
	b.logger = l
}

// Run subscribes to the set topic, publishes the current state and then
// mirrors every change until ctx is done or the bus closes. Broker errors
// are logged and never stop the bridge.
//
// Parameters:
//   - ctx: Context for shutdown
//
// Returns:
//   - error: Always nil; broker failures are logged
func (b *Bridge) Run(ctx context.Context) error {
	defer b.wg.Wait()
	defer b.sub.Close()

	if err := b.broker.Subscribe(b.topics.LightSet(), b.qos, b.setHandler(ctx)); err != nil {
		b.logger.Warn("subscribing to light commands", "topic", b.topics.LightSet(), "error", err)
	}
	b.publish(b.light.IsOn(), time.Now())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-b.sub.C():
			if !ok {
				return nil
			}
			if ev.Kind == eventbus.KindLightChanged {
				b.publish(ev.On, ev.At)
			}
		}
	}
}

func (b *Bridge) publish(on bool, at time.Time) {
	payload, err := json.Marshal(statePayload{On: on, Timestamp: at.UTC().Format(time.RFC3339)})
	if err != nil {
		b.logger.Warn("encoding light state", "error", err)
		return
	}
	if err := b.broker.PublishRetained(b.topics.LightState(), payload); err != nil {
		b.logger.Warn("publishing light state", "error", err)
		return
	}
	b.logger.Debug("light state published", "on", on)
}

// setHandler returns the handler for the set topic. Manual sessions block,
// so TurnOn runs in its own goroutine and is waited for by Run.
func (b *Bridge) setHandler(ctx context.Context) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		on, err := parseSet(payload)
		if err != nil {
			return err
		}
		if !on {
			b.light.TurnOff()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.light.TurnOn(ctx)
		}()
		return nil
	}
}

func parseSet(payload []byte) (bool, error) {
	trimmed := bytes.TrimSpace(payload)
	switch {
	case bytes.EqualFold(trimmed, []byte("ON")):
		return true, nil
	case bytes.EqualFold(trimmed, []byte("OFF")):
		return false, nil
	}

	var msg setPayload
	if err := json.Unmarshal(trimmed, &msg); err != nil || msg.On == nil {
		return false, fmt.Errorf("%w: %q", ErrBadCommand, trimmed)
	}
	return *msg.On, nil
}
