package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/protocol"
)

type fakeStatus struct{}

func (fakeStatus) Collect(context.Context) protocol.Status {
	return protocol.Status{
		Alarms:   []alarm.Alarm{{ID: 1, Day: 0, Hour: 6, Minute: 30}},
		TimeZone: "Europe/Berlin",
		Version:  "1.0.0",
	}
}

type fakeLight bool

func (l fakeLight) IsOn() bool { return bool(l) }

func newTestServer(t *testing.T, checks map[string]HealthCheck) *httptest.Server {
	t.Helper()
	s := New("127.0.0.1:0", Deps{
		Status:  fakeStatus{},
		Light:   fakeLight(true),
		Checks:  checks,
		Version: "1.0.0",
	}, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url) //nolint:noctx // test request
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		srv := newTestServer(t, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		})
		resp, body := get(t, srv.URL+"/healthz")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var h healthResponse
		if err := json.Unmarshal(body, &h); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if h.Status != "ok" || h.Checks["database"] != "ok" || h.Version != "1.0.0" {
			t.Errorf("health = %+v", h)
		}
	})

	t.Run("failing check", func(t *testing.T) {
		srv := newTestServer(t, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"mqtt":     func(context.Context) error { return errors.New("not connected") },
		})
		resp, body := get(t, srv.URL+"/healthz")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", resp.StatusCode)
		}
		var h healthResponse
		if err := json.Unmarshal(body, &h); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if h.Status != "degraded" || h.Checks["mqtt"] != "not connected" || h.Checks["database"] != "ok" {
			t.Errorf("health = %+v", h)
		}
	})
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := get(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var st protocol.Status
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if st.TimeZone != "Europe/Berlin" || len(st.Alarms) != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestLight(t *testing.T) {
	srv := newTestServer(t, nil)
	_, body := get(t, srv.URL+"/light")
	if strings.TrimSpace(string(body)) != `{"on":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "wakelight_light_on") {
		t.Error("metrics output missing wakelight_light_on")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStartAndClose(t *testing.T) {
	s := New("127.0.0.1:0", Deps{Status: fakeStatus{}, Light: fakeLight(false)}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := New("127.0.0.1:0", Deps{}, nil).Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}
