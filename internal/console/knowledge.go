package console

import (
	"context"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/format"
	"github.com/google/uuid"
)

// MaxSourceFileSize is the largest file accepted as a knowledge source.
const MaxSourceFileSize = 5 * 1024 * 1024

// Default names for sources added without one.
const (
	DefaultURLSourceName  = "קישור חדש"
	DefaultTextSourceName = "מסמך טקסט חדש"
)

var sourceFileTypes = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// SourceInput describes a knowledge source to attach to an agent.
type SourceInput struct {
	Type    domain.KnowledgeSourceType
	Content string
	Name    string
}

// FileSource checks an upload and turns it into a source input. Only text,
// PDF and Word documents up to MaxSourceFileSize are accepted.
func FileSource(path string, size int64) (SourceInput, string, error) {
	name := filepath.Base(path)
	typ, ok := sourceFileTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return SourceInput{}, "", invalidSource("file", "unsupported file type, upload a TXT, PDF or DOCX file")
	}
	if size > MaxSourceFileSize {
		return SourceInput{}, "", invalidSource("file", "file is larger than 5MB")
	}
	return SourceInput{Type: domain.SourceFile, Content: path, Name: name}, typ, nil
}

// newSource validates in and fills in the generated fields.
func newSource(in SourceInput, id string, at time.Time) (domain.KnowledgeSource, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.KnowledgeSource{}, invalidSource("content", "content is required")
	}
	if !slices.Contains([]domain.KnowledgeSourceType{domain.SourceURL, domain.SourceText, domain.SourceFile}, in.Type) {
		return domain.KnowledgeSource{}, invalidSource("type", "type must be url, text or file")
	}
	if in.Type == domain.SourceURL && !format.IsValidURL(content) {
		return domain.KnowledgeSource{}, invalidSource("content", "enter a valid URL")
	}

	src := domain.KnowledgeSource{
		ID:      id,
		Type:    in.Type,
		Content: content,
		Name:    strings.TrimSpace(in.Name),
		AddedAt: at,
	}
	if src.Name == "" {
		switch in.Type {
		case domain.SourceURL:
			src.Name = DefaultURLSourceName
			if u, err := url.Parse(content); err == nil && u.Hostname() != "" {
				src.Name = u.Hostname()
			}
		case domain.SourceText:
			src.Name = DefaultTextSourceName
		}
	}
	return src, nil
}

func invalidSource(field, msg string) error {
	return &domain.ValidationError{Fields: map[string]string{field: msg}}
}

// KnowledgeSources returns the sources of an agent in the order they were added.
func (s *AgentStore) KnowledgeSources(ctx context.Context, agentID string) ([]domain.KnowledgeSource, error) {
	a, err := s.FetchAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return append([]domain.KnowledgeSource(nil), a.KnowledgeSources...), nil
}

// AddKnowledgeSource appends a source to the agent and saves the whole list.
func (s *AgentStore) AddKnowledgeSource(ctx context.Context, agentID string, in SourceInput) (domain.KnowledgeSource, error) {
	return s.addSource(ctx, agentID, in, "", 0)
}

// AddKnowledgeFile attaches an uploaded file as a source.
func (s *AgentStore) AddKnowledgeFile(ctx context.Context, agentID, path string, size int64) (domain.KnowledgeSource, error) {
	in, typ, err := FileSource(path, size)
	if err != nil {
		s.setErr(err)
		return domain.KnowledgeSource{}, err
	}
	return s.addSource(ctx, agentID, in, typ, size)
}

func (s *AgentStore) addSource(ctx context.Context, agentID string, in SourceInput, fileType string, size int64) (domain.KnowledgeSource, error) {
	src, err := newSource(in, uuid.NewString(), s.now().UTC())
	if err != nil {
		s.setErr(err)
		return domain.KnowledgeSource{}, err
	}
	src.FileType = fileType
	src.FileSize = size

	a, err := s.FetchAgentByID(ctx, agentID)
	if err != nil {
		return domain.KnowledgeSource{}, err
	}
	sources := append(append([]domain.KnowledgeSource{}, a.KnowledgeSources...), src)
	if _, err := s.EditAgent(ctx, a.ID, domain.AgentPatch{KnowledgeSources: &sources}); err != nil {
		return domain.KnowledgeSource{}, err
	}
	return src, nil
}

// RemoveKnowledgeSource drops the source with sourceID from the agent.
func (s *AgentStore) RemoveKnowledgeSource(ctx context.Context, agentID, sourceID string) error {
	a, err := s.FetchAgentByID(ctx, agentID)
	if err != nil {
		return err
	}
	sources := make([]domain.KnowledgeSource, 0, len(a.KnowledgeSources))
	for _, src := range a.KnowledgeSources {
		if src.ID != sourceID {
			sources = append(sources, src)
		}
	}
	if len(sources) == len(a.KnowledgeSources) {
		s.setErr(domain.ErrSourceNotFound)
		return domain.ErrSourceNotFound
	}
	_, err = s.EditAgent(ctx, a.ID, domain.AgentPatch{KnowledgeSources: &sources})
	return err
}
