package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/auth"
	"github.com/nerrad567/wakelight/internal/diagnostics"
	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/infrastructure/config"
	"github.com/nerrad567/wakelight/internal/infrastructure/database"
	"github.com/nerrad567/wakelight/internal/infrastructure/influxdb"
	"github.com/nerrad567/wakelight/internal/infrastructure/logging"
	"github.com/nerrad567/wakelight/internal/infrastructure/mqtt"
	"github.com/nerrad567/wakelight/internal/light"
	"github.com/nerrad567/wakelight/internal/lightbridge"
	"github.com/nerrad567/wakelight/internal/scheduler"
	"github.com/nerrad567/wakelight/internal/supervisor"
	"github.com/nerrad567/wakelight/internal/sysinfo"
	"github.com/nerrad567/wakelight/migrations"
)

// shutdownSettle gives a running light session time to notice the cleared
// flag and blank the strip before the device is closed.
const shutdownSettle = 250 * time.Millisecond

// run starts every component and blocks until ctx is cancelled or the
// server requests a restart. A restart returns nil so the service manager
// starts a fresh process.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown or restart, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting wakelight",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"device", cfg.Device.Name,
	)

	ctx, restart := context.WithCancel(ctx)
	defer restart()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", cfg.Database.Path)

	alarms := alarm.NewSQLiteRepository(db.DB)
	zones := alarm.NewSQLiteTimezoneRepository(db.DB)
	if _, err := zones.EnsureDefault(ctx, cfg.Timezone.Default); err != nil {
		return fmt.Errorf("seeding time zone: %w", err)
	}

	checks := map[string]diagnostics.HealthCheck{"database": db.HealthCheck}

	mqttClient := connectMQTT(cfg, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient.HealthCheck
	}

	influxClient := connectInflux(cfg, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		checks["influxdb"] = influxClient.HealthCheck
	}

	bus := eventbus.New()
	defer bus.Close()

	// Typed nils must not reach the interfaces below.
	var (
		frames   light.FramePublisher
		states   light.StateWriter
		sessions supervisor.SessionRecorder
	)
	if mqttClient != nil {
		frames = mqttClient
	}
	if influxClient != nil {
		states = influxClient
		sessions = influxClient
	}

	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix, cfg.Device.Name)
	device := light.OpenDevice(cfg.Light, frames, topics.LightFrame(), log.With("component", "device"))
	ctrl := light.NewController(device, bus, light.DefaultTiming(cfg.GetFinalStep()),
		light.WithLogger(log.With("component", "light")),
		light.WithRainbow(cfg.Light.Rainbow),
	)
	defer func() {
		ctrl.Wait()
		if closeErr := ctrl.Close(); closeErr != nil {
			log.Error("error closing light", "error", closeErr)
		}
	}()
	recorder := light.NewRecorder(bus, states)

	var bridge *lightbridge.Bridge
	if mqttClient != nil {
		bridge = lightbridge.New(mqttClient, mqttClient.Topics(), mqttClient.QoS(), ctrl, bus)
		bridge.SetLogger(log.With("component", "lightbridge"))
	}

	loader := scheduler.StoreLoader{Alarms: alarms, Zones: zones}
	sched := scheduler.New(loader,
		scheduler.WithTick(cfg.GetTick()),
		scheduler.WithLogger(log.With("component", "scheduler")),
	)
	initial, loc, err := loader.Load(ctx)
	if err != nil {
		log.Error("loading alarms, starting with none", "error", err)
		initial, loc = nil, time.UTC
	}
	sched.Start(ctx, initial, loc)
	defer sched.Stop()
	log.Info("scheduler started", "alarms", len(initial), "time_zone", loc.String())

	reported := version
	if cfg.Device.Version != "" {
		reported = cfg.Device.Version
	}
	status := sysinfo.New(sysinfo.Config{
		IPAddressFile: cfg.SysInfo.IPAddressFile,
		UptimeFile:    cfg.SysInfo.UptimeFile,
		Version:       reported,
	}, alarms, zones, sysinfo.WithLogger(log.With("component", "sysinfo")))

	tokens := auth.New(auth.Config{
		TokenAddress: cfg.Connection.TokenAddress,
		APIKey:       cfg.Connection.APIKey,
		Password:     cfg.Connection.Password,
	}, auth.WithLogger(log.With("component", "auth")))

	var restarting atomic.Bool
	sup := supervisor.New(supervisor.Config{
		Address:          cfg.Connection.Address,
		APIKey:           cfg.Connection.APIKey,
		IdleTimeout:      cfg.GetIdleTimeout(),
		ShortDelay:       cfg.GetShortDelay(),
		LongDelay:        cfg.GetLongDelay(),
		FailureThreshold: cfg.Connection.FailureThreshold,
		CloseTimeout:     cfg.GetCloseTimeout(),
	}, supervisor.Deps{
		Tokens:    tokens,
		Alarms:    alarms,
		Zones:     zones,
		Scheduler: sched,
		Light:     ctrl,
		Status:    status,
		Bus:       bus,
		Sessions:  sessions,
		Restarter: supervisor.RestartFunc(func() {
			restarting.Store(true)
			restart()
		}),
	}, supervisor.WithLogger(log.With("component", "supervisor")))

	if cfg.Diagnostics.Enabled {
		diag := diagnostics.New(cfg.Diagnostics.Listen, diagnostics.Deps{
			Status:  status,
			Light:   ctrl,
			Checks:  checks,
			Version: reported,
		}, log.With("component", "diagnostics"))
		if err := diag.Start(ctx); err != nil {
			return fmt.Errorf("starting diagnostics server: %w", err)
		}
		defer func() {
			log.Info("stopping diagnostics server")
			if closeErr := diag.Close(); closeErr != nil {
				log.Error("error stopping diagnostics server", "error", closeErr)
			}
		}()
		log.Info("diagnostics server listening", "addr", cfg.Diagnostics.Listen)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx, ctrl)
		return nil
	})
	g.Go(func() error {
		recorder.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return sup.Run(gctx)
	})
	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	log.Info("initialisation complete")
	<-gctx.Done()
	log.Info("shutting down")

	ctrl.TurnOff()
	time.Sleep(shutdownSettle)

	if err := g.Wait(); err != nil {
		log.Error("component stopped with error", "error", err)
	}
	if restarting.Load() {
		log.Info("restart requested by server")
	}
	log.Info("wakelight stopped")
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS()); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// connectMQTT returns nil when MQTT is disabled or the broker is unreachable;
// the client works without it.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil
	}
	client, err := mqtt.Connect(cfg.MQTT, cfg.Device.Name)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without it", "error", err)
		return nil
	}
	client.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

func connectInflux(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Device.Name)
	if err != nil {
		if cfg.InfluxDB.Enabled {
			log.Warn("InfluxDB unavailable, continuing without it", "error", err)
		} else {
			log.Info("InfluxDB disabled")
		}
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}
