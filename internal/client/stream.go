package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/wooagent/internal/simulate"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// FrameFunc receives log stream frames. Returning an error ends the stream.
type FrameFunc func(simulate.Frame) error

// StreamLogs runs an in-process log stream for the agent until ctx ends.
func (l *Local) StreamLogs(ctx context.Context, agentID string, filter simulate.Filter, fn FrameFunc) error {
	if _, err := l.user(ctx); err != nil {
		return err
	}
	a, err := l.backend.GetAgent(ctx, agentID)
	if err != nil {
		return fromBackend(err, "Failed to open log stream")
	}

	stream := simulate.NewLogStream(a.ID, l.backend.Seed(), simulate.WithClock(l.clock))
	defer stream.Close()
	lines, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	if err := fn(simulate.Frame{Type: simulate.FrameSnapshot, Entries: stream.Entries(filter)}); err != nil {
		return err
	}
	stream.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-lines:
			if !ok {
				return nil
			}
			if !filter.Match(e) {
				continue
			}
			if err := fn(simulate.Frame{Type: simulate.FrameEntry, Entry: &e}); err != nil {
				return err
			}
		}
	}
}

// wsURL maps an API path onto the websocket root that sits beside /api.
func (c *HTTP) wsURL(path string, q url.Values) string {
	root := strings.TrimSuffix(c.baseURL, "/api")
	target := root + "/ws" + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}

// StreamLogs follows the server's log websocket until ctx ends or the server closes it.
func (c *HTTP) StreamLogs(ctx context.Context, agentID string, filter simulate.Filter, fn FrameFunc) error {
	token, err := c.tokens.Token()
	if err != nil {
		return &Error{Message: "failed to read token", err: err}
	}
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.MinLevel != "" {
		q.Set("level", string(filter.MinLevel))
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	target := c.wsURL(agentPath(agentID, "/logs"), q)
	slog.Debug("Opening log stream", "url", target)
	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized && token != "" {
				c.unauthorized()
			}
			return &Error{Status: resp.StatusCode, Message: "Failed to open log stream", err: sentinelFor(resp.StatusCode, nil)}
		}
		return &Error{Message: "Failed to open log stream", err: err}
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "client done"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	for {
		var frame simulate.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				return &Error{Status: http.StatusUnauthorized, Message: "log stream closed: logged out", err: errors.Join(err, sentinelFor(http.StatusUnauthorized, nil))}
			}
			return &Error{Message: "log stream interrupted", err: err}
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

func (c *HTTP) unauthorized() {
	if err := c.tokens.Clear(); err != nil {
		slog.Warn("Failed to clear token", "error", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
