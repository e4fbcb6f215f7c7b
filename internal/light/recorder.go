package light

import (
	"context"
	"time"

	"github.com/nerrad567/wakelight/internal/eventbus"
	"github.com/nerrad567/wakelight/internal/infrastructure/metrics"
)

// StateWriter stores light state transitions, as influxdb.Client does.
type StateWriter interface {
	WriteLightState(on bool, at time.Time)
}

// Recorder mirrors LightChanged events into the light gauge and, when a
// writer is set, into the time-series store.
type Recorder struct {
	sub    *eventbus.Subscription
	writer StateWriter
}

// NewRecorder subscribes to bus immediately so no event published after
// construction is missed. writer may be nil.
func NewRecorder(bus *eventbus.Bus, writer StateWriter) *Recorder {
	return &Recorder{sub: bus.Subscribe(), writer: writer}
}

// Run consumes events until ctx is done or the bus closes.
func (r *Recorder) Run(ctx context.Context) {
	defer r.sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.sub.C():
			if !ok {
				return
			}
			if ev.Kind != eventbus.KindLightChanged {
				continue
			}
			metrics.SetBool(metrics.LightOn, ev.On)
			if r.writer != nil {
				r.writer.WriteLightState(ev.On, ev.At)
			}
		}
	}
}
