package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ashureev/wooagent/internal/identity"
	"github.com/ashureev/wooagent/internal/simulate"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// LogsWebSocket opens a live log stream for an agent. The client first receives a
// snapshot of the filtered seed lines, then one frame per new matching line. It may
// send ping, clear and filter control messages.
func (h *Handler) LogsWebSocket(w http.ResponseWriter, r *http.Request) {
	agent, err := h.backend.GetAgent(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch agent")
		return
	}
	q := r.URL.Query()
	filter, err := simulate.ParseFilter(q.Get("type"), q.Get("level"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	token := identity.TokenFromContext(r.Context())
	slog.Info("Log stream request", "user_id", userID, "agent_id", agent.ID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		Error(w, http.StatusForbidden, "origin not allowed")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	connID := uuid.NewString()
	h.conns.Register(token, connID, ws)
	defer h.conns.Unregister(token, connID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream := simulate.NewLogStream(agent.ID, h.backend.Seed(), simulate.WithClock(h.clock))
	defer stream.Close()
	lines, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	sess := &logSession{ws: ws, stream: stream, filter: filter}
	if err := sess.snapshot(ctx); err != nil {
		slog.Debug("Failed to send snapshot", "error", err)
		return
	}
	stream.Start(ctx)

	go func() {
		defer cancel()
		sess.inputLoop(ctx, userID)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Log stream ended", "user_id", userID, "agent_id", agent.ID)
			return
		case e, ok := <-lines:
			if !ok {
				return
			}
			if !sess.currentFilter().Match(e) {
				continue
			}
			if err := writeJSON(ctx, ws, simulate.Frame{Type: simulate.FrameEntry, Entry: &e}); err != nil {
				slog.Debug("Failed to send log line", "error", err)
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// logSession is the per-connection state of a log stream.
type logSession struct {
	ws     *websocket.Conn
	stream *simulate.LogStream

	mu     sync.RWMutex
	filter simulate.Filter
}

func (s *logSession) currentFilter() simulate.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *logSession) snapshot(ctx context.Context) error {
	return writeJSON(ctx, s.ws, simulate.Frame{
		Type:    simulate.FrameSnapshot,
		Entries: s.stream.Entries(s.currentFilter()),
	})
}

func (s *logSession) inputLoop(ctx context.Context, userID string) {
	for {
		_, message, err := s.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg simulate.Control
		if err := json.Unmarshal(message, &msg); err != nil {
			_ = writeJSON(ctx, s.ws, simulate.Frame{Type: simulate.FrameError, Error: "invalid message"})
			continue
		}

		switch msg.Type {
		case simulate.ControlPing:
			err = writeJSON(ctx, s.ws, simulate.Frame{Type: simulate.FramePong})
		case simulate.ControlClear:
			s.stream.Clear()
			err = writeJSON(ctx, s.ws, simulate.Frame{Type: simulate.FrameCleared})
		case simulate.ControlFilter:
			f, perr := simulate.ParseFilter(msg.LogType, msg.Level)
			if perr != nil {
				err = writeJSON(ctx, s.ws, simulate.Frame{Type: simulate.FrameError, Error: perr.Error()})
				break
			}
			s.mu.Lock()
			s.filter = f
			s.mu.Unlock()
			err = s.snapshot(ctx)
		default:
			err = writeJSON(ctx, s.ws, simulate.Frame{Type: simulate.FrameError, Error: "unknown message type"})
		}
		if err != nil {
			slog.Debug("Failed to answer control message", "error", err, "type", msg.Type)
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
