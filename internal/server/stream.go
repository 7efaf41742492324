package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/newsguard/internal/events"
)

const (
	streamWriteWait  = 10 * time.Second
	streamBufferSize = 64
	countdownPeriod  = 1 * time.Second
)

// streamFrame is a single message pushed to a connected dashboard.
type streamFrame struct {
	Kind  string        `json:"kind"` // "event" or "countdown"
	Event *events.Event `json:"event,omitempty"`

	EventID      string `json:"eventId,omitempty"`
	SecondsUntil int    `json:"secondsUntil,omitempty"`
}

// handleStream upgrades to a WebSocket and pushes bus events plus a once-a-
// second countdown to the next upcoming event. A client attaching counts as
// the dashboard coming back into view, so a non-forced sync is requested.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	s.log.Debug().Msg("Stream client attached")

	go func() {
		if err := s.syncer.RequestSync(context.Background(), false); err != nil {
			s.log.Debug().Err(err).Msg("Sync on stream attach failed")
		}
	}()

	// Bus handlers must not block, so frames are queued; a client that
	// falls this far behind is disconnected rather than stalling the bus.
	frames := make(chan streamFrame, streamBufferSize)
	unsubscribe := s.events.Bus().Subscribe(func(ev *events.Event) {
		select {
		case frames <- streamFrame{Kind: "event", Event: ev}:
		default:
			s.log.Warn().Msg("Stream client too slow, dropping frame")
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(countdownPeriod)
	defer ticker.Stop()

	// Drain reads so pings and the close handshake are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return

		case frame := <-frames:
			if err := s.writeFrame(ctx, conn, frame); err != nil {
				s.log.Debug().Err(err).Msg("Stream client detached")
				return
			}

		case <-ticker.C:
			now := time.Now()
			next, ok := s.calendar.NextUpcoming(now)
			if !ok {
				continue
			}
			frame := streamFrame{
				Kind:         "countdown",
				EventID:      next.ID,
				SecondsUntil: int(next.Time.Sub(now).Seconds()),
			}
			if err := s.writeFrame(ctx, conn, frame); err != nil {
				s.log.Debug().Err(err).Msg("Stream client detached")
				return
			}
		}
	}
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}
