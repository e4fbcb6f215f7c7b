package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler metrics
	SchedulerTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wakelight_scheduler_triggers_total",
			Help: "Alarm matches raised by the scheduler loop",
		},
	)

	SchedulerTriggersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wakelight_scheduler_triggers_dropped_total",
			Help: "Alarm matches dropped because the trigger channel was full",
		},
	)

	SchedulerResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakelight_scheduler_resets_total",
			Help: "Scheduler loop replacements by result",
		},
		[]string{"result"},
	)

	// Light metrics
	LightOn = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wakelight_light_on",
			Help: "Whether the strip is currently illuminated (1 = on)",
		},
	)

	LightSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakelight_light_sessions_total",
			Help: "Illumination sessions started by mode",
		},
		[]string{"mode"},
	)

	// Connection metrics
	ConnectionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakelight_connection_attempts_total",
			Help: "Connection attempts to the control server by result",
		},
		[]string{"result"},
	)

	ConnectionBackoff = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wakelight_connection_backoff_seconds",
			Help: "Delay applied before the next connection attempt",
		},
	)

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wakelight_session_duration_seconds",
			Help:    "Lifetime of control server sessions",
			Buckets: []float64{1, 10, 60, 300, 1800, 3600, 6 * 3600, 24 * 3600},
		},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wakelight_commands_total",
			Help: "Commands received from the control server by name",
		},
		[]string{"name"},
	)

	// Event bus metrics
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wakelight_eventbus_dropped_total",
			Help: "Events not delivered because a subscriber buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(SchedulerTriggers)
	prometheus.MustRegister(SchedulerTriggersDropped)
	prometheus.MustRegister(SchedulerResets)
	prometheus.MustRegister(LightOn)
	prometheus.MustRegister(LightSessions)
	prometheus.MustRegister(ConnectionAttempts)
	prometheus.MustRegister(ConnectionBackoff)
	prometheus.MustRegister(SessionDuration)
	prometheus.MustRegister(Commands)
	prometheus.MustRegister(EventsDropped)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBool sets g to 1 when v is true and 0 otherwise.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
