package events

import (
	"context"
	"net/http"
	"time"

	"fire-news/internal/logging"
	"fire-news/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// SnapshotFunc recomputes the payload pushed to a stream
type SnapshotFunc func(ctx context.Context) (any, error)

// Message is one frame on the queue stream. Event is nil for the snapshot
// sent right after connecting.
type Message struct {
	Event    *Event `json:"event"`
	Snapshot any    `json:"snapshot,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Streamer upgrades requests to websockets and pushes a fresh snapshot
// after every published event.
type Streamer struct {
	hub      *Hub
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
}

// NewStreamer builds a stream handler. allowedOrigins empty means same-host
// only; "*" allows any origin.
func NewStreamer(hub *Hub, snapshot SnapshotFunc, allowedOrigins []string) *Streamer {
	s := &Streamer{hub: hub, snapshot: snapshot}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil // gorilla default: same host
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Handle is the gin handler for the stream endpoint
func (s *Streamer) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logging.Logger.Debug().Err(err).Msg("queue stream upgrade failed")
		return
	}
	defer conn.Close()

	events, release := s.hub.Subscribe(8)
	defer release()

	metrics.Metrics.StreamSubscribers.Inc()
	defer metrics.Metrics.StreamSubscribers.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read loop only notices the client going away
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.push(ctx, conn, nil); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := s.push(ctx, conn, &ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Streamer) push(ctx context.Context, conn *websocket.Conn, ev *Event) error {
	msg := Message{Event: ev}
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("queue snapshot failed")
		msg.Error = "queue temporarily unavailable"
	} else {
		msg.Snapshot = snapshot
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
