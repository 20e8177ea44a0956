package simulate

import "github.com/ashureev/wooagent/internal/domain"

// Frame types pushed over the log websocket.
const (
	FrameSnapshot = "snapshot"
	FrameEntry    = "entry"
	FrameCleared  = "cleared"
	FramePong     = "pong"
	FrameError    = "error"
)

// Control message types a log websocket client may send.
const (
	ControlPing   = "ping"
	ControlClear  = "clear"
	ControlFilter = "filter"
)

// Frame is one server message on the log websocket.
type Frame struct {
	Type    string            `json:"type"`
	Entries []domain.LogEntry `json:"entries,omitempty"`
	Entry   *domain.LogEntry  `json:"entry,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Control is one client message on the log websocket.
type Control struct {
	Type    string `json:"type"`
	LogType string `json:"logType,omitempty"`
	Level   string `json:"level,omitempty"`
}
