package light

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/infrastructure/metrics"
)

// Session modes, used as log and metric labels.
const (
	ModeManual = "manual"
	ModeAlarm  = "alarm"
)

// Controller owns the strip and the shared "light on" flag.
//
// Manual and alarm sessions are mutually exclusive: both start with a
// compare-and-swap of the flag from false to true, and a running session
// stops within one Render interval of the flag being cleared. Each session
// publishes a LightChanged event when it starts and exactly one when it
// ends.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Controller struct {
	device  Device
	bus     *eventbus.Bus
	timing  Timing
	rainbow bool
	logger  Logger

	on  atomic.Bool
	gen atomic.Uint64

	// stateMu covers session entry (flag CAS and generation bump) and
	// session exit (blank and final event), so an exiting session cannot
	// blank or announce over a session that starts meanwhile.
	stateMu sync.Mutex

	deviceMu sync.Mutex
	wg       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRainbow enables the connect greeting.
func WithRainbow(enabled bool) Option {
	return func(c *Controller) { c.rainbow = enabled }
}

// NewController creates a controller driving device and announcing state
// changes on bus.
//
// Parameters:
//   - device: Strip to render on (see OpenDevice)
//   - bus: Bus that receives LightChanged events
//   - timing: Render, ramp and manual limits
//   - opts: Optional logger and rainbow switch
//
// Returns:
//   - *Controller: Controller with the light off
func NewController(device Device, bus *eventbus.Bus, timing Timing, opts ...Option) *Controller {
	c := &Controller{
		device: device,
		bus:    bus,
		timing: timing,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsOn reports the flag.
func (c *Controller) IsOn() bool {
	return c.on.Load()
}

// TurnOn runs a manual session: the strip shows warm white at full
// brightness until TurnOff, ctx cancellation or ManualLimit. It blocks
// until the session ends and returns false without doing anything when the
// light was already on.
//
// Parameters:
//   - ctx: Context whose cancellation ends the session
//
// Returns:
//   - bool: true if a session ran, false if the light was already on
func (c *Controller) TurnOn(ctx context.Context) bool {
	gen, ok := c.begin()
	if !ok {
		return false
	}
	c.wg.Add(1)
	defer c.wg.Done()

	c.run(ctx, gen, ModeManual, c.manual)
	return true
}

// TurnOff clears the flag and returns its previous value. A running session
// notices within one Render interval, blanks the strip and publishes.
func (c *Controller) TurnOff() bool {
	return c.on.Swap(false)
}

// AlarmIlluminate starts the wake-up ramp in the background and returns
// immediately. It returns false when the light was already on.
//
// Parameters:
//   - ctx: Context whose cancellation ends the ramp early
//
// Returns:
//   - bool: true if the ramp started
func (c *Controller) AlarmIlluminate(ctx context.Context) bool {
	gen, ok := c.begin()
	if !ok {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, gen, ModeAlarm, c.ramp)
	}()
	return true
}

// Rainbow runs a short colour chase, forward then back, one pixel at a
// time. It does nothing when disabled or when the light is on, and stops
// between pixels if the light comes on.
func (c *Controller) Rainbow(ctx context.Context) {
	if !c.rainbow || c.on.Load() {
		return
	}

	n := c.device.Pixels()
	order := make([]int, 0, 2*len(RainbowColors))
	for i := range RainbowColors {
		order = append(order, i)
	}
	for i := len(RainbowColors) - 1; i >= 0; i-- {
		order = append(order, i)
	}

	for _, i := range order {
		if c.on.Load() {
			return
		}
		c.showRainbow(n, i)
		if !sleepCtx(ctx, c.timing.RainbowPixel) {
			break
		}
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if !c.on.Load() {
		c.deviceMu.Lock()
		_ = c.device.Show(Blank(n)) //nolint:errcheck // best effort blank after greeting
		c.deviceMu.Unlock()
	}
}

func (c *Controller) showRainbow(n, i int) {
	c.deviceMu.Lock()
	defer c.deviceMu.Unlock()
	if err := c.device.Show(Single(n, i, RainbowColors[i], 1.0)); err != nil {
		c.logger.Debug("rainbow frame failed", "pixel", i, "error", err)
	}
}

// Wait blocks until every background session has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close blanks the strip and closes the device. Call after the flag has
// been cleared and Wait has returned.
func (c *Controller) Close() error {
	c.deviceMu.Lock()
	defer c.deviceMu.Unlock()
	_ = c.device.Show(Blank(c.device.Pixels())) //nolint:errcheck // closing anyway
	return c.device.Close()
}

// session is the state of one illumination run.
type session struct {
	gen    uint64
	mode   string
	warned bool
}

// run wraps body with the start and exit bookkeeping shared by both
// modes.
func (c *Controller) run(ctx context.Context, gen uint64, mode string, body func(context.Context, *session)) {
	s := &session{gen: gen, mode: mode}
	metrics.LightSessions.WithLabelValues(mode).Inc()
	c.logger.Info("light session started", "mode", mode)
	c.bus.Publish(eventbus.LightChanged(true))

	start := time.Now()
	body(ctx, s)

	c.stateMu.Lock()
	if !c.current(gen) {
		c.stateMu.Unlock()
		c.logger.Debug("light session superseded", "mode", mode)
		return
	}
	if ctx.Err() != nil {
		c.on.Store(false)
	}
	c.show(s, Blank(c.device.Pixels()))
	on := c.on.Load()
	c.bus.Publish(eventbus.LightChanged(on))
	c.stateMu.Unlock()

	c.logger.Info("light session ended", "mode", mode, "duration", time.Since(start).Round(time.Second), "on", on)
}

// begin claims the flag for a new session and returns its generation.
func (c *Controller) begin() (uint64, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if !c.on.CompareAndSwap(false, true) {
		return 0, false
	}
	return c.gen.Add(1), true
}

// current reports whether gen is the newest session.
func (c *Controller) current(gen uint64) bool {
	return c.gen.Load() == gen
}

// active reports whether session gen should keep running.
func (c *Controller) active(gen uint64) bool {
	return c.on.Load() && c.current(gen)
}

// expire clears the flag on behalf of session gen.
func (c *Controller) expire(gen uint64) {
	if c.current(gen) {
		c.on.Store(false)
	}
}

func (c *Controller) manual(ctx context.Context, s *session) {
	start := time.Now()
	frame := Solid(c.device.Pixels(), WarmWhite, 1.0)

	ticker := time.NewTicker(c.timing.Render)
	defer ticker.Stop()

	for c.active(s.gen) {
		if time.Since(start) > c.timing.ManualLimit {
			c.logger.Info("manual light limit reached", "limit", c.timing.ManualLimit)
			c.expire(s.gen)
			return
		}
		c.show(s, frame)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) ramp(ctx context.Context, s *session) {
	n := c.device.Pixels()
	ticker := time.NewTicker(c.timing.Render)
	defer ticker.Stop()

	for step := 0; step < RampSteps; step++ {
		frame := Solid(n, WarmWhite, stepBrightness(step))
		start := time.Now()
		limit := c.timing.stepDuration(step)
		c.logger.Debug("alarm ramp step", "step", step, "brightness", stepBrightness(step), "duration", limit)

		for time.Since(start) <= limit {
			if !c.active(s.gen) {
				return
			}
			c.show(s, frame)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}

	c.expire(s.gen)
}

// show renders frame. Device errors are logged once per session and
// otherwise ignored.
func (c *Controller) show(s *session, frame Frame) {
	c.deviceMu.Lock()
	err := c.device.Show(frame)
	c.deviceMu.Unlock()

	if err != nil && !s.warned {
		s.warned = true
		c.logger.Warn("light device error", "mode", s.mode, "error", err)
	}
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// duration elapsed.
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
