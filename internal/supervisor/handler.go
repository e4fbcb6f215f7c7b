package supervisor

import (
	"context"

	"github.com/nerrad567/wakelight/internal/protocol"
)

// handle executes one command. Store changes are followed by a scheduler
// reset and then a status snapshot, in that order.
func (s *Supervisor) handle(ctx context.Context, sess *session, cmd protocol.Command) {
	switch c := cmd.(type) {
	case protocol.AddAlarm:
		for _, day := range c.Days {
			if _, err := s.deps.Alarms.Add(ctx, int(day), int(c.Hour), int(c.Minute)); err != nil {
				s.logger.Debug("adding alarm", "day", day, "hour", c.Hour, "minute", c.Minute, "error", err)
			}
		}
		s.resetAndReport(ctx, sess)

	case protocol.DeleteAlarm:
		if err := s.deps.Alarms.Delete(ctx, c.ID); err != nil {
			s.logger.Debug("deleting alarm", "alarm_id", c.ID, "error", err)
		}
		s.resetAndReport(ctx, sess)

	case protocol.DeleteAllAlarms:
		n, err := s.deps.Alarms.DeleteAll(ctx)
		if err != nil {
			s.logger.Warn("deleting all alarms", "error", err)
		} else {
			s.logger.Info("alarms deleted", "count", n)
		}
		s.resetAndReport(ctx, sess)

	case protocol.SetTimeZone:
		if _, err := s.deps.Zones.Update(ctx, c.Zone); err != nil {
			s.logger.Warn("updating timezone", "zone", c.Zone, "error", err)
		} else {
			s.reset(ctx)
		}
		s.report(ctx, sess)

	case protocol.SetLight:
		if c.On {
			// The session's entry event produces the led_status reply.
			if !s.deps.Light.TurnOn(ctx) {
				s.logger.Debug("light already on", "session", sess.id)
			}
			return
		}
		if !s.deps.Light.TurnOff() {
			s.send(sess, sess.sendLedStatus(false))
		}

	case protocol.GetLedStatus:
		s.send(sess, sess.sendLedStatus(s.deps.Light.IsOn()))

	case protocol.GetStatus:
		s.report(ctx, sess)

	case protocol.Restart:
		s.logger.Info("restart requested", "session", sess.id)
		sess.close()
		if s.deps.Restarter != nil {
			s.deps.Restarter.Restart()
		}
	}
}

func (s *Supervisor) reset(ctx context.Context) {
	if err := s.deps.Scheduler.Reset(ctx); err != nil {
		s.logger.Error("resetting scheduler", "error", err)
	}
}

func (s *Supervisor) report(ctx context.Context, sess *session) {
	s.send(sess, sess.sendStatus(s.deps.Status.Collect(ctx)))
}

func (s *Supervisor) resetAndReport(ctx context.Context, sess *session) {
	s.reset(ctx)
	s.report(ctx, sess)
}

// send logs a reply failure. The session has already been failed by write.
func (s *Supervisor) send(sess *session, err error) {
	if err != nil {
		s.logger.Debug("reply not sent", "session", sess.id, "error", err)
	}
}
