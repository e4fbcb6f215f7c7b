package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/wakelight/internal/protocol"
)

const writeTimeout = 10 * time.Second

// session is one established connection. Text writes are serialised by
// writeMu; control frames go through WriteControl, which gorilla allows
// concurrently with other writes.
type session struct {
	id           string
	conn         *websocket.Conn
	closeTimeout time.Duration
	fail         context.CancelCauseFunc

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newSession(id string, conn *websocket.Conn, closeTimeout time.Duration, fail context.CancelCauseFunc) *session {
	return &session{id: id, conn: conn, closeTimeout: closeTimeout, fail: fail}
}

// write sends a text frame. A failure ends the session.
func (s *session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck // write error caught below
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		err = fmt.Errorf("%w: %w", ErrSend, err)
		s.fail(err)
		return err
	}
	return nil
}

func (s *session) sendStatus(st protocol.Status) error {
	frame, err := protocol.StatusFrame(st)
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	return s.write(frame)
}

func (s *session) sendLedStatus(on bool) error {
	frame, err := protocol.LedStatusFrame(on)
	if err != nil {
		return fmt.Errorf("encoding led status: %w", err)
	}
	return s.write(frame)
}

func (s *session) pong(data string) error {
	return s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
}

// close sends a normal close frame, bounded by closeTimeout, and drops the
// connection. Only the first call does anything.
func (s *session) close() {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.closeTimeout)) //nolint:errcheck // peer may be gone
		_ = s.conn.Close()                                                                   //nolint:errcheck // closing anyway
	})
}
