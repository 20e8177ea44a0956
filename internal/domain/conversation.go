package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConversationStatus is the outcome of a customer conversation.
type ConversationStatus string

const (
	ConversationActive         ConversationStatus = "active"
	ConversationCompleted      ConversationStatus = "completed"
	ConversationCompletedOrder ConversationStatus = "completed_with_order"
)

// Label returns the Hebrew display label.
func (s ConversationStatus) Label() string {
	switch s {
	case ConversationActive:
		return "פעיל"
	case ConversationCompleted:
		return "הסתיים"
	case ConversationCompletedOrder:
		return "הסתיים עם הזמנה"
	default:
		return string(s)
	}
}

// Conversation summarizes one customer session with an agent.
type Conversation struct {
	ID           string             `json:"id"`
	AgentID      string             `json:"agentId"`
	UserID       string             `json:"userId"`
	UserName     string             `json:"userName"`
	StartTime    time.Time          `json:"startTime"`
	EndTime      *time.Time         `json:"endTime"`
	MessageCount int                `json:"messageCount"`
	Status       ConversationStatus `json:"status"`
	Summary      string             `json:"summary"`
}

// Role identifies who sent a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// UnmarshalJSON accepts "assistant" as an alias of RoleAgent.
func (r *Role) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "user":
		*r = RoleUser
	case "agent", "assistant":
		*r = RoleAgent
	default:
		return fmt.Errorf("unknown role %q", raw)
	}
	return nil
}

// Message is one chat turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationDetail is a conversation with its transcript.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// Ordered reports whether message timestamps never decrease.
func (d *ConversationDetail) Ordered() bool {
	for i := 1; i < len(d.Messages); i++ {
		if d.Messages[i].Timestamp.Before(d.Messages[i-1].Timestamp) {
			return false
		}
	}
	return true
}
