package light

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/wakelight/internal/infrastructure/config"
)

// Device is an addressable LED strip.
//
// Show replaces the whole strip with frame. Implementations need not be
// safe for concurrent use; the Controller serialises calls.
type Device interface {
	Pixels() int
	Show(frame Frame) error
	Close() error
}

// Simulated is a Device with no hardware behind it. Frames are logged at
// trace level and the last one is kept for inspection.
type Simulated struct {
	pixels int
	logger Logger

	mu     sync.Mutex
	last   Frame
	shown  int
	closed bool
}

// NewSimulated creates a simulated strip of n pixels.
func NewSimulated(n int, logger Logger) *Simulated {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Simulated{pixels: n, logger: logger, last: Blank(n)}
}

// Pixels returns the strip length.
func (s *Simulated) Pixels() int { return s.pixels }

// Show records frame.
func (s *Simulated) Show(frame Frame) error {
	if len(frame) != s.pixels {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(frame), s.pixels)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.last = append(s.last[:0], frame...)
	s.shown++

	traceLog(s.logger, "frame shown", "lit", frame.Lit(), "pixels", len(frame))
	return nil
}

// Last returns a copy of the most recent frame.
func (s *Simulated) Last() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Frame(nil), s.last...)
}

// Shown returns how many frames have been displayed.
func (s *Simulated) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Close marks the device closed.
func (s *Simulated) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// FramePublisher sends a retained message, as *mqtt.Client does.
type FramePublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// framePayload is the JSON document a networked strip receives.
type framePayload struct {
	Pixels []Pixel `json:"pixels"`
	Lit    bool    `json:"lit"`
	TS     string  `json:"ts"`
}

// MQTTStrip publishes frames to a broker for a strip driven by another
// board. Consecutive identical frames are sent once.
type MQTTStrip struct {
	pub    FramePublisher
	topic  string
	pixels int

	mu     sync.Mutex
	last   Frame
	closed bool
}

// NewMQTTStrip creates a Device that publishes n-pixel frames to topic.
func NewMQTTStrip(pub FramePublisher, topic string, n int) *MQTTStrip {
	return &MQTTStrip{pub: pub, topic: topic, pixels: n}
}

// Pixels returns the strip length.
func (m *MQTTStrip) Pixels() int { return m.pixels }

// Show publishes frame unless it equals the previous one.
func (m *MQTTStrip) Show(frame Frame) error {
	if len(frame) != m.pixels {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(frame), m.pixels)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.last != nil && m.last.Equal(frame) {
		return nil
	}

	body, err := json.Marshal(framePayload{
		Pixels: frame,
		Lit:    frame.Lit(),
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if err := m.pub.PublishRetained(m.topic, body); err != nil {
		return fmt.Errorf("publishing frame: %w", err)
	}
	m.last = append(Frame(nil), frame...)
	return nil
}

// Close publishes a blank frame so the strip does not stay lit, then stops
// accepting frames.
func (m *MQTTStrip) Close() error {
	err := m.Show(Blank(m.pixels))
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("blanking strip on close: %w", err)
	}
	return nil
}

// openBlinkt is replaced in tests to simulate hardware.
var openBlinkt = func(n int) (Device, error) { return OpenBlinkt(n) }

// OpenDevice returns the Device selected by cfg.Driver. When the selected
// driver cannot start, because the mqtt driver has no publisher or the
// blinkt GPIO pins are unavailable, the simulated strip is used instead and
// a warning is logged.
//
// Parameters:
//   - cfg: light section of the configuration
//   - pub: broker connection for the mqtt driver, nil when MQTT is disabled
//   - topic: topic frames are published to by the mqtt driver
//   - logger: receives device logs, may be nil
//
// Returns:
//   - Device: always usable; never nil
func OpenDevice(cfg config.LightConfig, pub FramePublisher, topic string, logger Logger) Device {
	if logger == nil {
		logger = noopLogger{}
	}
	switch cfg.Driver {
	case config.DriverMQTT:
		if pub != nil {
			logger.Info("light device opened", "driver", config.DriverMQTT, "topic", topic, "pixels", cfg.Pixels)
			return NewMQTTStrip(pub, topic, cfg.Pixels)
		}
		logger.Warn("mqtt light driver unavailable, using simulated strip")
	case config.DriverBlinkt:
		dev, err := openBlinkt(cfg.Pixels)
		if err == nil {
			logger.Info("light device opened", "driver", config.DriverBlinkt, "pixels", cfg.Pixels)
			return dev
		}
		logger.Warn("blinkt light driver unavailable, using simulated strip", "error", err)
	}
	logger.Info("light device opened", "driver", config.DriverSimulated, "pixels", cfg.Pixels)
	return NewSimulated(cfg.Pixels, logger)
}
