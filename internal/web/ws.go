package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sweeney/zero-buttons/internal/status"
)

const (
	defaultPushInterval = 5 * time.Second
	pingInterval        = 25 * time.Second
	pongWait            = 60 * time.Second
	writeWait           = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status page is served on the local network only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS streams the JSON status on every tracker change and at least
// once per push interval.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readPump(conn, closed)

	st := &stream{
		conn:   conn,
		push:   time.NewTicker(s.push),
		ping:   time.NewTicker(pingInterval),
		closed: closed,
		done:   s.done,
		ctx:    r.Context().Done(),
	}
	defer st.push.Stop()
	defer st.ping.Stop()

	for {
		// Grab the channel before the snapshot so no change is missed.
		changed := s.tracker.Changed()
		if err := writeMessage(conn, websocket.TextMessage, status.FormatJSON(s.tracker.Snapshot())); err != nil {
			return
		}
		if !st.wait(changed) {
			return
		}
	}
}

type stream struct {
	conn   *websocket.Conn
	push   *time.Ticker
	ping   *time.Ticker
	closed <-chan struct{}
	done   <-chan struct{}
	ctx    <-chan struct{}
}

// wait blocks until the next status frame is due.
// It returns false when the stream should end.
func (st *stream) wait(changed <-chan struct{}) bool {
	for {
		select {
		case <-changed:
			return true
		case <-st.push.C:
			return true
		case <-st.ping.C:
			if err := writeMessage(st.conn, websocket.PingMessage, nil); err != nil {
				return false
			}
		case <-st.closed:
			return false
		case <-st.done:
			writeMessage(st.conn, websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"))
			return false
		case <-st.ctx:
			return false
		}
	}
}

func writeMessage(conn *websocket.Conn, kind int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, data)
}

// readPump consumes control frames until the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
