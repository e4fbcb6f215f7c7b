package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/clock"
	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/infrastructure/metrics"
	"github.com/nerrad567/wakelight/internal/protocol"
)

// Rainbow greeting window, local hours inclusive.
const (
	greetFrom = 7
	greetTo   = 22
)

// Config holds connection settings.
type Config struct {
	// Address is the wss:// base address; the token is appended as a path segment.
	Address string
	APIKey  string

	IdleTimeout      time.Duration
	ShortDelay       time.Duration
	LongDelay        time.Duration
	FailureThreshold int
	CloseTimeout     time.Duration
}

// DefaultConfig returns the production timings for address.
func DefaultConfig(address, apiKey string) Config {
	return Config{
		Address:          address,
		APIKey:           apiKey,
		IdleTimeout:      40 * time.Second,
		ShortDelay:       5 * time.Second,
		LongDelay:        60 * time.Second,
		FailureThreshold: 20,
		CloseTimeout:     2 * time.Second,
	}
}

// Light is the part of the illumination controller the supervisor drives.
type Light interface {
	IsOn() bool
	TurnOn(ctx context.Context) bool
	TurnOff() bool
	Rainbow(ctx context.Context)
}

// Resetter reloads the alarm loop after the store changed.
type Resetter interface {
	Reset(ctx context.Context) error
}

// StatusSource builds status snapshots.
type StatusSource interface {
	Collect(ctx context.Context) protocol.Status
	MarkConnected(at time.Time)
}

// SessionRecorder receives the duration of every finished session.
type SessionRecorder interface {
	WriteSession(duration time.Duration, at time.Time)
}

// Restarter ends the process after a restart command.
type Restarter interface {
	Restart()
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func()

// Restart calls f.
func (f RestartFunc) Restart() { f() }

// Deps are the collaborators a Supervisor needs. Sessions and Restarter may
// be nil.
type Deps struct {
	Tokens    TokenSource
	Alarms    alarm.Repository
	Zones     alarm.TimezoneRepository
	Scheduler Resetter
	Light     Light
	Status    StatusSource
	Bus       *eventbus.Bus
	Sessions  SessionRecorder
	Restarter Restarter
}

// Logger is the logging interface used by the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor owns the connection to the control server.
type Supervisor struct {
	cfg     Config
	deps    Deps
	dialer  *websocket.Dialer
	clock   clock.Clock
	logger  Logger
	backoff *Backoff

	// handlers tracks command goroutines across sessions.
	handlers sync.WaitGroup
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Supervisor) { s.dialer = d }
}

// WithClock overrides the clock used for session timestamps and the
// greeting window.
func WithClock(c clock.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// New creates a supervisor. Call Run to start it.
//
// Parameters:
//   - cfg: Server address, API key, timeouts and backoff tiers
//   - deps: Store, scheduler, light and status collaborators
//   - opts: Optional logger, dialer and clock
//
// Returns:
//   - *Supervisor: Supervisor ready to Run
func New(cfg Config, deps Deps, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:     cfg,
		deps:    deps,
		dialer:  defaultDialer(),
		clock:   clock.Real{},
		logger:  noopLogger{},
		backoff: NewBackoff(cfg.ShortDelay, cfg.LongDelay, cfg.FailureThreshold),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run connects and serves sessions until ctx is cancelled. It returns nil
// after the last command handler has finished.
//
// Parameters:
//   - ctx: Context for shutdown; cancelling it closes the live session
//
// Returns:
//   - error: Always nil; connection failures are retried, not returned
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.handlers.Wait()

	for {
		if d := s.backoff.Delay(); d > 0 {
			metrics.ConnectionBackoff.Set(d.Seconds())
			s.logger.Debug("waiting before reconnect", "delay", d, "failures", s.backoff.Failures())
			if !sleepCtx(ctx, d) {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.backoff.Fail()
			metrics.ConnectionAttempts.WithLabelValues("failure").Inc()
			s.logger.Warn("connection failed", "error", err, "failures", s.backoff.Failures())
			continue
		}

		s.backoff.Connected()
		metrics.ConnectionAttempts.WithLabelValues("success").Inc()
		metrics.ConnectionBackoff.Set(0)
		s.serve(ctx, conn)
	}
}

// serve runs one session to completion.
func (s *Supervisor) serve(ctx context.Context, conn *websocket.Conn) {
	id := uuid.NewString()
	started := s.clock.Now()
	s.deps.Status.MarkConnected(started)
	s.logger.Info("connected", "session", id)

	s.greet(ctx)

	sctx, fail := context.WithCancelCause(ctx)
	defer fail(nil)
	sess := newSession(id, conn, s.cfg.CloseTimeout, fail)

	watchdog := time.AfterFunc(s.cfg.IdleTimeout, func() {
		fail(ErrIdle)
	})
	defer watchdog.Stop()

	conn.SetPingHandler(func(data string) error {
		watchdog.Reset(s.cfg.IdleTimeout)
		if err := sess.pong(data); err != nil {
			s.logger.Debug("pong failed", "session", id, "error", err)
		}
		return nil
	})

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error { return s.inbound(ctx, gctx, sess) })
	g.Go(func() error { return s.outbound(gctx, sess) })
	g.Go(func() error {
		<-gctx.Done()
		sess.close()
		return nil
	})
	err := g.Wait()

	if cause := context.Cause(sctx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	duration := s.clock.Now().Sub(started)
	metrics.SessionDuration.Observe(duration.Seconds())
	if s.deps.Sessions != nil {
		s.deps.Sessions.WriteSession(duration, s.clock.Now())
	}

	switch {
	case ctx.Err() != nil:
		s.logger.Info("session closed for shutdown", "session", id, "duration", duration)
	case errors.Is(err, ErrPeerClosed):
		s.logger.Info("session closed by peer", "session", id, "duration", duration)
	default:
		s.logger.Warn("session ended", "session", id, "duration", duration, "error", err)
	}
}

// greet shows the rainbow when the local hour in the stored zone is inside
// the greeting window.
func (s *Supervisor) greet(ctx context.Context) {
	loc := alarm.CurrentTimezone(ctx, s.deps.Zones).Location()
	if clock.HourWithin(s.clock.Now(), loc, greetFrom, greetTo) {
		s.deps.Light.Rainbow(ctx)
	}
}

// inbound reads until the connection fails. It always returns a non-nil
// error so the session group is cancelled. Handlers run with root so that
// store writes and manual light sessions outlive the connection.
func (s *Supervisor) inbound(root, ctx context.Context, sess *session) error {
	for {
		kind, data, err := sess.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case ctx.Err() != nil:
				return context.Cause(ctx)
			case errors.As(err, &closeErr):
				return fmt.Errorf("%w: %w", ErrPeerClosed, err)
			default:
				return fmt.Errorf("reading: %w", err)
			}
		}
		if kind != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "session", sess.id, "type", kind)
			continue
		}

		cmd, err := protocol.Parse(data)
		if err != nil {
			s.logger.Debug("ignoring invalid message", "session", sess.id, "error", err)
			continue
		}
		metrics.Commands.WithLabelValues(cmd.Name()).Inc()
		s.logger.Debug("command received", "session", sess.id, "command", cmd.Name())

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(root, sess, cmd)
		}()
	}
}

// outbound pushes the snapshot and then forwards light changes. The bus
// subscription is taken before the snapshot so no change is missed.
func (s *Supervisor) outbound(ctx context.Context, sess *session) error {
	sub := s.deps.Bus.Subscribe()
	defer sub.Close()

	if err := sess.sendStatus(s.deps.Status.Collect(ctx)); err != nil {
		return err
	}
	if err := sess.sendLedStatus(s.deps.Light.IsOn()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return errBusClosed
			}
			if ev.Kind != eventbus.KindLightChanged {
				continue
			}
			if err := sess.sendLedStatus(ev.On); err != nil {
				return err
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
