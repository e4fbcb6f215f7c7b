// Package sysinfo assembles the status snapshot reported to the control
// server and the diagnostics endpoint.
package sysinfo

import (
	"bytes"
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/clock"
	"github.com/nerrad567/wakelight/internal/protocol"
)

// UnknownIP is reported when the address file is missing or too short.
const UnknownIP = "N/A"

// Logger is the logging interface used by the collector.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Config holds the snapshot sources.
type Config struct {
	IPAddressFile string
	UptimeFile    string
	Version       string
}

// Collector builds protocol.Status values. It is safe for concurrent use.
type Collector struct {
	cfg     Config
	alarms  alarm.Repository
	zones   alarm.TimezoneRepository
	clock   clock.Clock
	started time.Time
	logger  Logger

	connectedAt atomic.Int64
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the wall clock.
func WithClock(c clock.Clock) Option {
	return func(col *Collector) { col.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(col *Collector) { col.logger = l }
}

// New creates a collector. The application start time is taken from the
// clock at construction.
func New(cfg Config, alarms alarm.Repository, zones alarm.TimezoneRepository, opts ...Option) *Collector {
	c := &Collector{
		cfg:    cfg,
		alarms: alarms,
		zones:  zones,
		clock:  clock.Real{},
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.started = c.clock.Now()
	return c
}

// MarkConnected records the instant the current session was established.
func (c *Collector) MarkConnected(at time.Time) {
	c.connectedAt.Store(at.UnixNano())
}

// Collect reads every source. Failing sources degrade to defaults.
func (c *Collector) Collect(ctx context.Context) protocol.Status {
	now := c.clock.Now()

	alarms, err := c.alarms.All(ctx)
	if err != nil {
		c.logger.Warn("reading alarms for status", "error", err)
		alarms = []alarm.Alarm{}
	}

	var connectedFor uint64
	if at := c.connectedAt.Load(); at != 0 {
		connectedFor = seconds(now.Sub(time.Unix(0, at)))
	}

	return protocol.Status{
		Alarms:       alarms,
		InternalIP:   ReadIP(c.cfg.IPAddressFile),
		TimeZone:     alarm.CurrentTimezone(ctx, c.zones).Name,
		UptimeApp:    seconds(now.Sub(c.started)),
		ConnectedFor: connectedFor,
		Uptime:       ReadUptime(c.cfg.UptimeFile),
		Version:      c.cfg.Version,
	}
}

// ReadIP returns the trimmed contents of path, or UnknownIP.
func ReadIP(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil || len(raw) < 2 {
		return UnknownIP
	}
	ip := string(bytes.TrimSpace(raw))
	if ip == "" {
		return UnknownIP
	}
	return ip
}

// ReadUptime parses the whole seconds at the start of a /proc/uptime style
// file. It returns 0 when the file cannot be read or parsed.
func ReadUptime(path string) uint64 {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	fields := bytes.Fields(raw)
	if len(fields) == 0 {
		return 0
	}
	whole, _, _ := bytes.Cut(fields[0], []byte("."))
	secs, err := strconv.ParseUint(string(whole), 10, 64)
	if err != nil {
		return 0
	}
	return secs
}

func seconds(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Second)
}
