package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrAgentNotFound         = errors.New("agent not found")
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")
	ErrSourceNotFound        = errors.New("knowledge source not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthorized          = errors.New("unauthorized")
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrConversationNotFound) ||
		errors.Is(err, ErrKnowledgeBaseNotFound) ||
		errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
