package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/wakelight/internal/alarm"
	"github.com/nerrad567/wakelight/internal/clock"
	"github.com/nerrad567/wakelight/internal/infrastructure/metrics"
)

// DefaultTick is the loop period.
const DefaultTick = time.Second

// triggerBuffer bounds how many undelivered triggers are kept.
const triggerBuffer = 4

// ErrNotStarted is returned by Reset before Start.
var ErrNotStarted = errors.New("scheduler: not started")

// Trigger reports an alarm match.
type Trigger struct {
	At    time.Time
	Alarm alarm.Alarm
}

// Logger is the logging interface used by the scheduler.
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

// Scheduler owns the alarm loop.
//
// Thread Safety:
//   - Start, Reset, Stop and Snapshot are safe for concurrent use.
//   - Resets are serialised; the last one to finish defines the live loop.
type Scheduler struct {
	loader   Loader
	clock    clock.Clock
	tick     time.Duration
	triggers chan Trigger
	logger   Logger

	mu     sync.Mutex
	base   context.Context
	handle *loopHandle

	running atomic.Int32

	// fired is the Unix minute of the last emitted trigger. It outlives
	// loop replacement so a Reset inside second 0 does not fire again.
	fired atomic.Int64
}

// loopHandle is the single live loop.
type loopHandle struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	alarms []alarm.Alarm
	loc    *time.Location
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used for matching.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTick replaces the loop period.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a stopped scheduler.
//
// Parameters:
//   - loader: Source of alarms and time zone for Reset
//   - opts: Optional tick interval and logger
//
// Returns:
//   - *Scheduler: Scheduler with no loop; call Start
func New(loader Loader, opts ...Option) *Scheduler {
	s := &Scheduler{
		loader:   loader,
		clock:    clock.Real{},
		tick:     DefaultTick,
		triggers: make(chan Trigger, triggerBuffer),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Triggers exposes the trigger channel. It is never closed.
func (s *Scheduler) Triggers() <-chan Trigger {
	return s.triggers
}

// Start installs a loop over alarms in loc. Loops started now and by later
// Resets live until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context, alarms []alarm.Alarm, loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ctx
	s.install(alarms, loc)
}

// Reset reloads alarms and zone and replaces the live loop. On a load error
// the previous loop keeps running and the error is returned.
//
// Parameters:
//   - ctx: Context for the store read
//
// Returns:
//   - error: Load failure, or nil once the new loop is installed
func (s *Scheduler) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == nil {
		return ErrNotStarted
	}

	alarms, loc, err := s.loader.Load(ctx)
	if err != nil {
		metrics.SchedulerResets.WithLabelValues("error").Inc()
		return fmt.Errorf("resetting scheduler: %w", err)
	}

	s.install(alarms, loc)
	metrics.SchedulerResets.WithLabelValues("ok").Inc()
	return nil
}

// install stops the live loop, waits for it to return, then starts a new
// one. Callers hold s.mu.
func (s *Scheduler) install(alarms []alarm.Alarm, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}

	var gen uint64 = 1
	if old := s.handle; old != nil {
		old.cancel()
		<-old.done
		gen = old.gen + 1
	}

	ctx, cancel := context.WithCancel(s.base)
	h := &loopHandle{
		gen:    gen,
		cancel: cancel,
		done:   make(chan struct{}),
		alarms: append([]alarm.Alarm(nil), alarms...),
		loc:    loc,
	}
	s.handle = h

	s.running.Add(1)
	go func() {
		defer close(h.done)
		defer s.running.Add(-1)
		s.loop(ctx, h)
	}()

	s.logger.Info("alarm loop started", "generation", gen, "alarms", len(h.alarms), "zone", loc.String())
}

// Stop cancels the live loop and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		s.handle.cancel()
		<-s.handle.done
		s.handle = nil
	}
}

// Snapshot describes the live loop.
type Snapshot struct {
	Generation uint64
	Alarms     []alarm.Alarm
	Location   *time.Location
}

// Snapshot returns the live loop's generation and inputs. Generation is 0
// when no loop is installed.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return Snapshot{}
	}
	return Snapshot{
		Generation: s.handle.gen,
		Alarms:     append([]alarm.Alarm(nil), s.handle.alarms...),
		Location:   s.handle.loc,
	}
}

func (s *Scheduler) loop(ctx context.Context, h *loopHandle) {
	for {
		started := time.Now()
		now := s.clock.Now()

		if a, ok := match(clock.In(now, h.loc), h.alarms); ok {
			minute := now.Truncate(time.Minute).Unix()
			if s.fired.Swap(minute) != minute {
				s.emit(Trigger{At: now, Alarm: a})
			}
		}

		if !sleepCtx(ctx, sleepFor(s.tick, time.Since(started))) {
			return
		}
	}
}

// emit sends t without blocking; a full channel drops it.
func (s *Scheduler) emit(t Trigger) {
	select {
	case s.triggers <- t:
		metrics.SchedulerTriggers.Inc()
		s.logger.Info("alarm triggered", "alarm", t.Alarm.String())
	default:
		metrics.SchedulerTriggersDropped.Inc()
		s.logger.Warn("alarm trigger dropped", "alarm", t.Alarm.String())
	}
}

// match returns the first alarm due at local, which only happens on second 0.
func match(local clock.Local, alarms []alarm.Alarm) (alarm.Alarm, bool) {
	if local.Second != 0 {
		return alarm.Alarm{}, false
	}
	for _, a := range alarms {
		if a.Matches(local.Weekday, local.Hour, local.Minute) {
			return a, true
		}
	}
	return alarm.Alarm{}, false
}

// sleepFor returns tick minus the time already spent, never negative.
func sleepFor(tick, elapsed time.Duration) time.Duration {
	return max(0, tick-elapsed)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Illuminator starts the alarm light sequence.
type Illuminator interface {
	AlarmIlluminate(ctx context.Context) bool
}

// Run passes triggers to ill until ctx is done.
//
// Parameters:
//   - ctx: Context whose cancellation stops delivery
//   - ill: Light that receives each trigger
func (s *Scheduler) Run(ctx context.Context, ill Illuminator) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.triggers:
			if !ill.AlarmIlluminate(ctx) {
				s.logger.Info("alarm ignored, light already on", "alarm", t.Alarm.String())
			}
		}
	}
}
