package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/wooagent/internal/simulate"
)

// Demo streams a scripted chat replay for an agent as server-sent events. Each
// event is named after the phase entered and carries a simulate.Event.
func (h *Handler) Demo(w http.ResponseWriter, r *http.Request) {
	agent, err := h.backend.GetAgent(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch agent")
		return
	}
	speed, err := simulate.ParseSpeed(r.URL.Query().Get("speed"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	script := h.backend.Script(r.URL.Query().Get("script"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", h.retryDelay.Milliseconds()); err != nil {
		slog.Warn("failed to write SSE retry header", "error", err, "agent_id", agent.ID)
		return
	}
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replay := simulate.NewReplay(script, speed)
	events := make(chan simulate.Event)
	done := make(chan error, 1)
	go func() {
		done <- replay.Run(ctx, h.clock, func(ev simulate.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	slog.Info("Demo replay started", "agent_id", agent.ID, "script", script.Name, "speed", speed)

	keepalive := h.clock.NewTicker(h.keepalive)
	defer keepalive.Stop()

	var seq int64
	for {
		select {
		case <-ctx.Done():
			slog.Info("Demo stream disconnected", "agent_id", agent.ID)
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("failed to marshal replay event", "error", err)
				return
			}
			seq++
			if err := writeSSEWithID(w, seq, string(ev.Phase), string(data)); err != nil {
				slog.Warn("failed to write SSE replay event", "error", err)
				return
			}
			flusher.Flush()
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				if writeErr := writeSSE(w, "error", err.Error()); writeErr != nil {
					slog.Warn("failed to write SSE error event", "error", writeErr)
				}
				flusher.Flush()
			}
			slog.Info("Demo replay finished", "agent_id", agent.ID, "events", seq)
			return
		case <-keepalive.Chan():
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id int64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
