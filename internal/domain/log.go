package domain

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// Rank orders levels debug < info < warning < error. Unknown levels rank lowest.
func (l LogLevel) Rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether l is as severe as min or more.
func (l LogLevel) AtLeast(min LogLevel) bool {
	return l.Rank() >= min.Rank()
}

// ParseLogLevel accepts the four level names plus "warn".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// LogType is the category of an agent log line.
type LogType string

const (
	TypeInfo        LogType = "info"
	TypeDebug       LogType = "debug"
	TypeWarning     LogType = "warning"
	TypeError       LogType = "error"
	TypeAPIRequest  LogType = "api_request"
	TypeAPIResponse LogType = "api_response"
	TypeBotMessage  LogType = "bot_message"
	TypeUserMessage LogType = "user_message"
)

// LogTypes lists every category in display order.
var LogTypes = []LogType{
	TypeInfo, TypeDebug, TypeWarning, TypeError,
	TypeAPIRequest, TypeAPIResponse, TypeBotMessage, TypeUserMessage,
}

// ParseLogType validates a category name.
func ParseLogType(s string) (LogType, error) {
	for _, t := range LogTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown log type %q", s)
}

// Level derives the severity of a category. Traffic and chat categories are info.
func (t LogType) Level() LogLevel {
	switch t {
	case TypeDebug:
		return LevelDebug
	case TypeWarning:
		return LevelWarning
	case TypeError:
		return LevelError
	default:
		return LevelInfo
	}
}

// LogEntry is one line of an agent's activity log.
type LogEntry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}
