package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for devices without /usr/share/zoneinfo

	"gopkg.in/yaml.v3"
)

// Light driver names accepted by light.driver.
const (
	DriverSimulated = "simulated"
	DriverMQTT      = "mqtt"
	DriverBlinkt    = "blinkt"
)

// Config is the root configuration structure for the wakelight client.
// Values are loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Database    DatabaseConfig    `yaml:"database"`
	Connection  ConnectionConfig  `yaml:"connection"`
	Light       LightConfig       `yaml:"light"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Timezone    TimezoneConfig    `yaml:"timezone"`
	SysInfo     SysInfoConfig     `yaml:"sysinfo"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies this client.
type DeviceConfig struct {
	Name string `yaml:"name"`

	// Version replaces the build version in status reports when set.
	Version string `yaml:"version"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ConnectionConfig contains the remote control server settings.
type ConnectionConfig struct {
	// Address is the websocket base address, e.g. "wss://example.com/pi".
	Address string `yaml:"address"`

	// TokenAddress is the HTTP endpoint that exchanges credentials for a token.
	TokenAddress string `yaml:"token_address"`

	APIKey   string `yaml:"api_key"`
	Password string `yaml:"password"`

	// IdleTimeout closes a session that has not seen a ping for this many seconds.
	IdleTimeout int `yaml:"idle_timeout"`

	// ShortDelay and LongDelay are reconnect delays in seconds. LongDelay applies
	// once FailureThreshold consecutive attempts have failed.
	ShortDelay       int `yaml:"short_delay"`
	LongDelay        int `yaml:"long_delay"`
	FailureThreshold int `yaml:"failure_threshold"`

	// CloseTimeout bounds the close handshake, in seconds.
	CloseTimeout int `yaml:"close_timeout"`
}

// LightConfig contains light strip settings.
type LightConfig struct {
	Driver           string `yaml:"driver"`
	Pixels           int    `yaml:"pixels"`
	FinalStepMinutes int    `yaml:"final_step_minutes"`
	Rainbow          bool   `yaml:"rainbow"`
}

// SchedulerConfig contains alarm loop settings.
type SchedulerConfig struct {
	// TickMS is the loop period in milliseconds.
	TickMS int `yaml:"tick_ms"`
}

// TimezoneConfig contains the zone seeded into an empty database.
type TimezoneConfig struct {
	Default string `yaml:"default"`
}

// SysInfoConfig contains status snapshot sources.
type SysInfoConfig struct {
	IPAddressFile string `yaml:"ip_address_file"`
	UptimeFile    string `yaml:"uptime_file"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DiagnosticsConfig contains the local HTTP endpoint settings.
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file, applies environment variable
// overrides and validates the result.
//
// The loading order is:
//  1. Default values
//  2. YAML file values, when the file exists
//  3. Environment variables
//
// A missing file is not an error; the client is commonly configured from the
// environment alone.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for maintenance commands that only need
// the database and logging sections.
func Read(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "wakelight",
		},
		Database: DatabaseConfig{
			Path:        "./data/wakelight.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Connection: ConnectionConfig{
			IdleTimeout:      40,
			ShortDelay:       5,
			LongDelay:        60,
			FailureThreshold: 20,
			CloseTimeout:     2,
		},
		Light: LightConfig{
			Driver:           DriverSimulated,
			Pixels:           8,
			FinalStepMinutes: 45,
		},
		Scheduler: SchedulerConfig{
			TickMS: 1000,
		},
		Timezone: TimezoneConfig{
			Default: "Etc/UTC",
		},
		SysInfo: SysInfoConfig{
			IPAddressFile: "./ip.addr",
			UptimeFile:    "/proc/uptime",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wakelight",
			},
			QoS:         1,
			TopicPrefix: "wakelight",
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "wakelight",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Diagnostics: DiagnosticsConfig{
			Listen: "127.0.0.1:8088",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// WAKELIGHT_SECTION_KEY variables are read first, then the short names used by
// existing deployments (WS_ADDRESS, LOCATION_SQLITE, ...), which win.
func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
			}
		}
	}
	setBool := func(dst *bool, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				if b, err := strconv.ParseBool(v); err == nil {
					*dst = b
				}
			}
		}
	}

	// Database
	setString(&cfg.Database.Path, "WAKELIGHT_DATABASE_PATH", "LOCATION_SQLITE")

	// Connection
	setString(&cfg.Connection.Address, "WAKELIGHT_CONNECTION_ADDRESS", "WS_ADDRESS")
	setString(&cfg.Connection.TokenAddress, "WAKELIGHT_CONNECTION_TOKEN_ADDRESS", "WS_TOKEN_ADDRESS")
	setString(&cfg.Connection.APIKey, "WAKELIGHT_CONNECTION_API_KEY", "WS_APIKEY")
	setString(&cfg.Connection.Password, "WAKELIGHT_CONNECTION_PASSWORD", "WS_PASSWORD")

	// Light
	setString(&cfg.Light.Driver, "WAKELIGHT_LIGHT_DRIVER")
	setBool(&cfg.Light.Rainbow, "WAKELIGHT_LIGHT_RAINBOW", "RAINBOW")

	// Timezone and sysinfo
	setString(&cfg.Timezone.Default, "WAKELIGHT_TIMEZONE_DEFAULT", "TZ")
	setString(&cfg.SysInfo.IPAddressFile, "WAKELIGHT_SYSINFO_IP_ADDRESS_FILE", "LOCATION_IP_ADDRESS")

	// MQTT
	setString(&cfg.MQTT.Broker.Host, "WAKELIGHT_MQTT_HOST")
	setString(&cfg.MQTT.Auth.Username, "WAKELIGHT_MQTT_USERNAME")
	setString(&cfg.MQTT.Auth.Password, "WAKELIGHT_MQTT_PASSWORD")

	// InfluxDB
	setString(&cfg.InfluxDB.Token, "WAKELIGHT_INFLUXDB_TOKEN")

	// Logging
	setString(&cfg.Logging.Level, "WAKELIGHT_LOG_LEVEL")
	var debug, trace bool
	setBool(&debug, "LOG_DEBUG")
	setBool(&trace, "LOG_TRACE")
	switch {
	case trace:
		cfg.Logging.Level = "trace"
	case debug:
		cfg.Logging.Level = "debug"
	}
}

// Validate checks the configuration for errors.
// Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if !strings.HasPrefix(c.Connection.Address, "wss://") {
		errs = append(errs, "connection.address must start with wss:// (set WS_ADDRESS)")
	}
	if c.Connection.TokenAddress == "" {
		errs = append(errs, "connection.token_address is required (set WS_TOKEN_ADDRESS)")
	}
	if c.Connection.APIKey == "" {
		errs = append(errs, "connection.api_key is required (set WS_APIKEY)")
	}
	if c.Connection.IdleTimeout < 1 {
		errs = append(errs, "connection.idle_timeout must be positive")
	}
	if c.Connection.ShortDelay < 0 || c.Connection.LongDelay < c.Connection.ShortDelay {
		errs = append(errs, "connection.long_delay must be >= connection.short_delay >= 0")
	}
	if c.Connection.FailureThreshold < 1 {
		errs = append(errs, "connection.failure_threshold must be positive")
	}

	switch c.Light.Driver {
	case DriverSimulated, DriverBlinkt:
	case DriverMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "light.driver mqtt requires mqtt.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("light.driver must be one of %q, %q, %q", DriverSimulated, DriverMQTT, DriverBlinkt))
	}
	if c.Light.Pixels < 1 {
		errs = append(errs, "light.pixels must be positive")
	}
	if c.Light.FinalStepMinutes < 45 || c.Light.FinalStepMinutes > 90 {
		errs = append(errs, "light.final_step_minutes must be between 45 and 90")
	}

	if c.Scheduler.TickMS < 1 {
		errs = append(errs, "scheduler.tick_ms must be positive")
	}

	if _, err := time.LoadLocation(c.Timezone.Default); err != nil {
		errs = append(errs, fmt.Sprintf("timezone.default %q is not a known zone", c.Timezone.Default))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Diagnostics.Enabled && c.Diagnostics.Listen == "" {
		errs = append(errs, "diagnostics.listen is required when diagnostics is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetIdleTimeout returns the session idle watchdog period.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Connection.IdleTimeout) * time.Second
}

// GetShortDelay returns the reconnect delay used below the failure threshold.
func (c *Config) GetShortDelay() time.Duration {
	return time.Duration(c.Connection.ShortDelay) * time.Second
}

// GetLongDelay returns the reconnect delay used at or above the failure threshold.
func (c *Config) GetLongDelay() time.Duration {
	return time.Duration(c.Connection.LongDelay) * time.Second
}

// GetCloseTimeout returns the close handshake bound.
func (c *Config) GetCloseTimeout() time.Duration {
	return time.Duration(c.Connection.CloseTimeout) * time.Second
}

// GetTick returns the scheduler loop period.
func (c *Config) GetTick() time.Duration {
	return time.Duration(c.Scheduler.TickMS) * time.Millisecond
}

// GetFinalStep returns how long the last alarm ramp step stays lit.
func (c *Config) GetFinalStep() time.Duration {
	return time.Duration(c.Light.FinalStepMinutes) * time.Minute
}
