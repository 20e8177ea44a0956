package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KnowledgeBaseType is how a knowledge base is populated.
type KnowledgeBaseType string

const (
	KnowledgeFiles KnowledgeBaseType = "files"
	KnowledgeText  KnowledgeBaseType = "text"
)

// Label returns the Hebrew display label.
func (t KnowledgeBaseType) Label() string {
	if t == KnowledgeFiles {
		return "קבצים"
	}
	return "טקסט"
}

// UnmarshalJSON accepts canonical values and display labels.
func (t *KnowledgeBaseType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch strings.TrimSpace(raw) {
	case "files", "קבצים":
		*t = KnowledgeFiles
	case "text", "טקסט":
		*t = KnowledgeText
	default:
		return fmt.Errorf("unknown knowledge base type %q", raw)
	}
	return nil
}

// KnowledgeBase is a shared corpus agents can answer from.
type KnowledgeBase struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        KnowledgeBaseType `json:"type"`
	ItemCount   int               `json:"itemCount"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// KnowledgeItem is a file or text entry inside a knowledge base.
type KnowledgeItem struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Content string    `json:"content,omitempty"`
	Size    int64     `json:"size,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// KnowledgeBaseDetail is a knowledge base with its items.
type KnowledgeBaseDetail struct {
	KnowledgeBase
	Items []KnowledgeItem `json:"items"`
}

// KnowledgeBaseInput creates or updates a knowledge base.
type KnowledgeBaseInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        KnowledgeBaseType `json:"type"`
}

// Validate requires a name and a known type.
func (in KnowledgeBaseInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if in.Type != KnowledgeFiles && in.Type != KnowledgeText {
		fields["type"] = "type must be files or text"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
