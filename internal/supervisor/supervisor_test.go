package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/light"
	"github.com/nerrad567/wakelight/internal/sysinfo"
)

const testAPIKey = "api-key"

// peer is a control server stand-in. Accepted connections are delivered on
// conns.
type peer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn

	mu   sync.Mutex
	open []*websocket.Conn
}

func newPeer(t *testing.T) *peer {
	t.Helper()
	p := &peer{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{Subprotocols: []string{testAPIKey}}

	p.srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Sec-WebSocket-Protocol") != testAPIKey {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Path != "/pi/tok" {
			http.NotFound(w, r)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.open = append(p.open, c)
		p.mu.Unlock()
		p.conns <- c
	}))

	t.Cleanup(func() {
		p.srv.Close()
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.open {
			c.Close()
		}
	})
	return p
}

func (p *peer) address() string {
	return "wss://" + strings.TrimPrefix(p.srv.URL, "https://") + "/pi"
}

func (p *peer) dialer() *websocket.Dialer {
	transport := p.srv.Client().Transport.(*http.Transport)
	return &websocket.Dialer{
		TLSClientConfig:  transport.TLSClientConfig,
		HandshakeTimeout: 2 * time.Second,
	}
}

func (p *peer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-p.conns:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no connection from supervisor")
		return nil
	}
}

type frame struct {
	Data struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	} `json:"data"`
	Cache *bool `json:"cache"`
}

func readFrame(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", raw, err)
	}
	return f
}

func readLed(t *testing.T, c *websocket.Conn) bool {
	t.Helper()
	f := readFrame(t, c)
	if f.Data.Name != "led_status" {
		t.Fatalf("frame name = %q, want led_status", f.Data.Name)
	}
	if f.Cache != nil {
		t.Errorf("led_status cache = %v, want omitted", *f.Cache)
	}
	var body struct {
		Status bool `json:"status"`
	}
	if err := json.Unmarshal(f.Data.Data, &body); err != nil {
		t.Fatalf("led body: %v", err)
	}
	return body.Status
}

type statusBody struct {
	Alarms   []alarm.Alarm `json:"alarms"`
	TimeZone string        `json:"time_zone"`
	Version  string        `json:"version"`
}

func readStatus(t *testing.T, c *websocket.Conn) statusBody {
	t.Helper()
	f := readFrame(t, c)
	if f.Data.Name != "status" {
		t.Fatalf("frame name = %q, want status", f.Data.Name)
	}
	if f.Cache == nil || !*f.Cache {
		t.Error("status frame should ask to be cached")
	}
	var body statusBody
	if err := json.Unmarshal(f.Data.Data, &body); err != nil {
		t.Fatalf("status body: %v", err)
	}
	return body
}

func send(t *testing.T, c *websocket.Conn, msg string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

// handshake accepts a session and consumes the connect snapshot.
func handshake(t *testing.T, p *peer) *websocket.Conn {
	t.Helper()
	c := p.accept(t)
	readStatus(t, c)
	if readLed(t, c) {
		t.Fatal("initial led_status = true, want false")
	}
	return c
}

type memAlarms struct {
	mu     sync.Mutex
	nextID int64
	alarms []alarm.Alarm
}

func (m *memAlarms) All(context.Context) ([]alarm.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alarm.Alarm{}, m.alarms...), nil
}

func (m *memAlarms) Add(_ context.Context, day, hour, minute int) (alarm.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alarms {
		if a.Matches(day, hour, minute) {
			return alarm.Alarm{}, alarm.ErrDuplicate
		}
	}
	m.nextID++
	a := alarm.Alarm{ID: m.nextID, Day: uint8(day), Hour: uint8(hour), Minute: uint8(minute)}
	m.alarms = append(m.alarms, a)
	return a, nil
}

func (m *memAlarms) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alarms {
		if a.ID == id {
			m.alarms = append(m.alarms[:i], m.alarms[i+1:]...)
			return nil
		}
	}
	return alarm.ErrNotFound
}

func (m *memAlarms) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.alarms))
	m.alarms = nil
	return n, nil
}

type memZones struct {
	mu   sync.Mutex
	zone string
}

func (m *memZones) Get(context.Context) (alarm.Timezone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return alarm.Timezone{ID: 1, Name: m.zone}, nil
}

func (m *memZones) Update(_ context.Context, name string) (alarm.Timezone, error) {
	if err := alarm.ValidateZone(name); err != nil {
		return alarm.Timezone{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zone = name
	return alarm.Timezone{ID: 1, Name: name}, nil
}

type countingResetter struct{ n atomic.Int32 }

func (r *countingResetter) Reset(context.Context) error {
	r.n.Add(1)
	return nil
}

type fakeTokens struct {
	failures     atomic.Int32
	calls        atomic.Int32
	invalidateds atomic.Int32
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return "", errors.New("token endpoint unavailable")
	}
	return "tok", nil
}

func (f *fakeTokens) Invalidate() { f.invalidateds.Add(1) }

type sessionCounter struct{ n atomic.Int32 }

func (s *sessionCounter) WriteSession(time.Duration, time.Time) { s.n.Add(1) }

type harness struct {
	peer     *peer
	alarms   *memAlarms
	zones    *memZones
	resets   *countingResetter
	tokens   *fakeTokens
	sessions *sessionCounter
	bus      *eventbus.Bus
	light    *light.Controller
	restarts atomic.Int32
	dialer   *websocket.Dialer
	logger   Logger
	cancel   context.CancelFunc
	done     chan error
}

func testConfig(address string) Config {
	return Config{
		Address:          address,
		APIKey:           testAPIKey,
		IdleTimeout:      5 * time.Second,
		ShortDelay:       10 * time.Millisecond,
		LongDelay:        50 * time.Millisecond,
		FailureThreshold: 3,
		CloseTimeout:     200 * time.Millisecond,
	}
}

func start(t *testing.T, tune func(*Config, *harness)) *harness {
	t.Helper()
	h := &harness{
		peer:     newPeer(t),
		alarms:   &memAlarms{},
		zones:    &memZones{zone: alarm.DefaultZone},
		resets:   &countingResetter{},
		tokens:   &fakeTokens{},
		sessions: &sessionCounter{},
		bus:      eventbus.New(),
		done:     make(chan error, 1),
	}
	h.dialer = h.peer.dialer()
	h.light = light.NewController(light.NewSimulated(8, nil), h.bus, light.Timing{
		Render:       2 * time.Millisecond,
		ManualLimit:  time.Minute,
		RampStep:     10 * time.Millisecond,
		FinalStep:    30 * time.Millisecond,
		RainbowPixel: time.Millisecond,
	})

	cfg := testConfig(h.peer.address())
	if tune != nil {
		tune(&cfg, h)
	}

	opts := []Option{WithDialer(h.dialer)}
	if h.logger != nil {
		opts = append(opts, WithLogger(h.logger))
	}
	sup := New(cfg, Deps{
		Tokens:    h.tokens,
		Alarms:    h.alarms,
		Zones:     h.zones,
		Scheduler: h.resets,
		Light:     h.light,
		Status:    sysinfo.New(sysinfo.Config{Version: "test"}, h.alarms, h.zones),
		Bus:       h.bus,
		Sessions:  h.sessions,
		Restarter: RestartFunc(func() { h.restarts.Add(1) }),
	}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- sup.Run(ctx) }()

	t.Cleanup(func() {
		h.light.TurnOff()
		cancel()
		select {
		case err := <-h.done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
		h.light.Wait()
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSupervisor_ConnectSnapshot(t *testing.T) {
	h := start(t, nil)
	c := h.peer.accept(t)

	st := readStatus(t, c)
	if st.Version != "test" || st.TimeZone != alarm.DefaultZone {
		t.Errorf("status = %+v", st)
	}
	if st.Alarms == nil {
		t.Error("alarms should be an empty array, not null")
	}
	if readLed(t, c) {
		t.Error("led_status = true, want false")
	}
}

func TestSupervisor_AlarmCommands(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `{"data":{"name":"add_alarm","body":{"days":[0,2],"hour":6,"minute":30}}}`)
	st := readStatus(t, c)
	if len(st.Alarms) != 2 {
		t.Fatalf("alarms after add = %v, want 2", st.Alarms)
	}
	if n := h.resets.n.Load(); n != 1 {
		t.Errorf("resets = %d, want 1", n)
	}

	send(t, c, `{"data":{"name":"delete_one","body":{"alarm_id":1}}}`)
	st = readStatus(t, c)
	if len(st.Alarms) != 1 || st.Alarms[0].ID != 2 {
		t.Fatalf("alarms after delete = %v", st.Alarms)
	}

	send(t, c, `{"data":{"name":"delete_one","body":{"alarm_id":99}}}`)
	if st = readStatus(t, c); len(st.Alarms) != 1 {
		t.Fatalf("alarms after deleting unknown id = %v", st.Alarms)
	}

	send(t, c, `{"data":{"name":"delete_all"}}`)
	if st = readStatus(t, c); len(st.Alarms) != 0 {
		t.Fatalf("alarms after delete_all = %v", st.Alarms)
	}
	if n := h.resets.n.Load(); n != 4 {
		t.Errorf("resets = %d, want 4", n)
	}
}

func TestSupervisor_TimeZone(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `{"data":{"name":"time_zone","body":{"zone":"Europe/Berlin"}}}`)
	if st := readStatus(t, c); st.TimeZone != "Europe/Berlin" {
		t.Errorf("time_zone = %q, want Europe/Berlin", st.TimeZone)
	}
	if n := h.resets.n.Load(); n != 1 {
		t.Errorf("resets = %d, want 1", n)
	}
}

func TestSupervisor_InvalidMessagesIgnored(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `garbage`)
	send(t, c, `{"data":{"name":"add_alarm","body":{"days":[9],"hour":6,"minute":0}}}`)
	send(t, c, `{"data":{"name":"time_zone","body":{"zone":"Mars/Olympus"}}}`)
	send(t, c, `{"error":"bad token"}`)
	send(t, c, `{"data":{"name":"status"}}`)

	if st := readStatus(t, c); len(st.Alarms) != 0 || st.TimeZone != alarm.DefaultZone {
		t.Errorf("status = %+v", st)
	}
	if n := h.resets.n.Load(); n != 0 {
		t.Errorf("resets = %d, want 0", n)
	}
}

func TestSupervisor_ManualOnThenOff(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `{"data":{"name":"light","body":{"status":true}}}`)
	if !readLed(t, c) {
		t.Fatal("led_status after light on = false")
	}
	waitFor(t, "light on", h.light.IsOn)

	send(t, c, `{"data":{"name":"light","body":{"status":false}}}`)
	if readLed(t, c) {
		t.Fatal("led_status after light off = true")
	}

	// No third notification: the next frame is the status reply.
	time.Sleep(100 * time.Millisecond)
	send(t, c, `{"data":{"name":"status"}}`)
	readStatus(t, c)
}

func TestSupervisor_LightOffWhenAlreadyOff(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `{"data":{"name":"light","body":{"status":false}}}`)
	if readLed(t, c) {
		t.Error("led_status = true, want false")
	}

	send(t, c, `{"data":{"name":"led_status"}}`)
	if readLed(t, c) {
		t.Error("led_status = true, want false")
	}
}

func TestSupervisor_ForwardsBusEvents(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	if !h.light.AlarmIlluminate(context.Background()) {
		t.Fatal("AlarmIlluminate() = false")
	}
	if !readLed(t, c) {
		t.Error("first forwarded event = false, want true")
	}
	if readLed(t, c) {
		t.Error("second forwarded event = true, want false after the ramp")
	}
}

func TestSupervisor_WatchdogKeptAliveByPings(t *testing.T) {
	const idle = 300 * time.Millisecond
	h := start(t, func(cfg *Config, _ *harness) { cfg.IdleTimeout = idle })
	c := handshake(t, h.peer)

	ping := func() {
		if err := c.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second)); err != nil {
			t.Fatalf("ping: %v", err)
		}
	}

	// Three idle periods of pings just under the limit.
	for _i := 0; _i < 9; _i++ {
		ping()
		time.Sleep(idle / 3)
	}
	send(t, c, `{"data":{"name":"led_status"}}`)
	readLed(t, c)

	ping()
	lastPing := time.Now()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	if elapsed := time.Since(lastPing); elapsed < idle-50*time.Millisecond {
		t.Errorf("session closed %v after last ping, want about %v", elapsed, idle)
	}

	// The supervisor reconnects right away after a session that had connected.
	handshake(t, h.peer)
}

func TestSupervisor_ReconnectsAfterPeerClose(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("close: %v", err)
	}

	handshake(t, h.peer)
	waitFor(t, "session recorded", func() bool { return h.sessions.n.Load() == 1 })
}

func TestSupervisor_BacksOffOnFailures(t *testing.T) {
	h := start(t, func(cfg *Config, h *harness) {
		cfg.ShortDelay = 20 * time.Millisecond
		cfg.LongDelay = 100 * time.Millisecond
		cfg.FailureThreshold = 2
		h.tokens.failures.Store(3)
	})

	began := time.Now()
	handshake(t, h.peer)
	elapsed := time.Since(began)

	if n := h.tokens.calls.Load(); n != 4 {
		t.Errorf("token calls = %d, want 4", n)
	}
	// 20ms after the first failure, 100ms after each of the next two.
	if elapsed < 200*time.Millisecond {
		t.Errorf("connected after %v, want at least 220ms of backoff", elapsed)
	}
}

func TestSupervisor_RejectedHandshakeInvalidatesToken(t *testing.T) {
	h := start(t, func(cfg *Config, _ *harness) { cfg.APIKey = "wrong-key" })

	waitFor(t, "token invalidation", func() bool { return h.tokens.invalidateds.Load() >= 2 })
	select {
	case <-h.peer.conns:
		t.Error("handshake with wrong api key should be rejected")
	default:
	}
}

func TestSupervisor_Restart(t *testing.T) {
	h := start(t, nil)
	c := handshake(t, h.peer)

	send(t, c, `{"data":{"name":"restart"}}`)
	waitFor(t, "restart", func() bool { return h.restarts.Load() == 1 })

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := c.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal close", err)
	}
}

func TestSupervisor_RunStopsOnCancel(t *testing.T) {
	h := start(t, nil)
	handshake(t, h.peer)

	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
		h.done <- nil
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
