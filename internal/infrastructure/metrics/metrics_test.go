package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestSetBool(t *testing.T) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_bool", Help: "test"})

	SetBool(g, true)
	if got := gaugeValue(t, g); got != 1 {
		t.Errorf("after SetBool(true) = %v, want 1", got)
	}
	SetBool(g, false)
	if got := gaugeValue(t, g); got != 0 {
		t.Errorf("after SetBool(false) = %v, want 0", got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	Commands.WithLabelValues("status").Inc()
	SchedulerTriggers.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"wakelight_commands_total",
		"wakelight_scheduler_triggers_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
