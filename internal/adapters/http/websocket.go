package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsMessage is a command sent by the client.
//
//	{"action":"search","a":{"location":{"lat":1,"lng":2}},"b":{"location":{"lat":3,"lng":4}}}
//	{"action":"category","category":"park"}
//	{"action":"radius","miles":7}
//	{"action":"focus","place_id":"..."}
type wsMessage struct {
	Action   string                `json:"action"`
	A        domain.PlaceSelection `json:"a"`
	B        domain.PlaceSelection `json:"b"`
	Category string                `json:"category"`
	Miles    float64               `json:"miles"`
	PlaceID  string                `json:"place_id"`
}

// frameWriter is the part of a websocket connection the sink writes to.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsSink renders view updates as JSON text frames. Writes are serialized
// with the keep-alive pings through mu.
type wsSink struct {
	mu   sync.Mutex
	conn frameWriter
}

var _ ports.ViewSink = (*wsSink)(nil)

func (s *wsSink) Render(_ context.Context, update domain.ViewUpdate) error {
	return s.writeJSON(update)
}

func (s *wsSink) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSink) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// sessionCommands is what the connection loop drives on a session.
type sessionCommands interface {
	Search(ctx context.Context, a, b domain.PlaceSelection) error
	SetCategory(ctx context.Context, c domain.VenueCategory) error
	SetRadius(ctx context.Context, miles float64) error
	FocusVenue(ctx context.Context, placeID string) error
}

// dispatch decodes one client frame and forwards it to the session.
func dispatch(ctx context.Context, sess sessionCommands, raw []byte) error {
	var m wsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("invalid JSON")
	}

	switch m.Action {
	case "search":
		return sess.Search(ctx, m.A, m.B)
	case "category":
		return sess.SetCategory(ctx, domain.ParseCategory(m.Category))
	case "radius":
		return sess.SetRadius(ctx, m.Miles)
	case "focus":
		if m.PlaceID == "" {
			return errors.New("place_id is required")
		}
		return sess.FocusVenue(ctx, m.PlaceID)
	default:
		return fmt.Errorf("unknown action: %s", m.Action)
	}
}

// WebSocketHandler runs one search session per connection. Client frames
// are session commands; every server frame is a domain.ViewUpdate. Closing
// the connection stops the session and aborts its in-flight requests.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		logger := slog.Default().With("remote_addr", c.RemoteAddr().String())
		ctx = logging.WithLogger(ctx, logger)

		sink := &wsSink{conn: c}
		sess := usecases.NewSession(deps.Gateway, sink, deps.Recorder, deps.Clock, deps.SessionDefaults)
		logger = logger.With("session_id", sess.ID())
		logger.Info("ws session opened")

		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()

		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			sess.Run(ctx)
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := sink.ping(); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			if err := dispatch(ctx, sess, msg); err != nil {
				if errors.Is(err, usecases.ErrSessionClosed) {
					break
				}
				_ = sink.writeJSON(map[string]string{"error": err.Error()})
			}
		}

		cancel()
		<-runDone
		logger.Info("ws session closed")
	}
}
