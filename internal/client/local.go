package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/jonboulle/clockwork"
)

// LocalOptions tunes the in-process adapter.
type LocalOptions struct {
	Latency        time.Duration
	Clock          clockwork.Clock
	OnUnauthorized func()
}

// Local serves every call from an in-process backend without network I/O.
type Local struct {
	backend        *service.Backend
	tokens         TokenStore
	latency        time.Duration
	clock          clockwork.Clock
	onUnauthorized func()
}

var _ Client = (*Local)(nil)

// NewLocal creates the development adapter.
func NewLocal(backend *service.Backend, tokens TokenStore, opts LocalOptions) *Local {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Local{
		backend:        backend,
		tokens:         tokens,
		latency:        opts.Latency,
		clock:          opts.Clock,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// wait simulates network latency.
func (l *Local) wait(ctx context.Context) error {
	if l.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return &Error{Message: err.Error(), err: err}
		}
		return nil
	}
	select {
	case <-ctx.Done():
		return &Error{Message: ctx.Err().Error(), err: ctx.Err()}
	case <-l.clock.After(l.latency):
		return nil
	}
}

// user resolves the stored token. A failure clears it and fires the unauthorized hook.
func (l *Local) user(ctx context.Context) (*domain.User, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	token, err := l.tokens.Token()
	if err != nil {
		return nil, &Error{Message: "failed to read token", err: err}
	}
	user, err := l.backend.ResumeSession(ctx, token)
	if err != nil {
		if clearErr := l.tokens.Clear(); clearErr != nil {
			slog.Warn("Failed to clear token", "error", clearErr)
		}
		if token != "" && l.onUnauthorized != nil {
			l.onUnauthorized()
		}
		return nil, &Error{Status: http.StatusUnauthorized, Message: "unauthorized", err: domain.ErrUnauthorized}
	}
	return user, nil
}

func (l *Local) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := l.backend.Login(ctx, creds)
	if err != nil {
		return nil, fromBackend(err, "Login failed")
	}
	if err := l.tokens.SetToken(resp.Token); err != nil {
		return nil, &Error{Message: "failed to store token", err: err}
	}
	return resp, nil
}

func (l *Local) Logout(ctx context.Context) error {
	token, _ := l.tokens.Token()
	if err := l.backend.Logout(ctx, token); err != nil {
		return fromBackend(err, "Logout failed")
	}
	if err := l.tokens.Clear(); err != nil {
		return &Error{Message: "failed to clear token", err: err}
	}
	return nil
}

func (l *Local) CurrentUser(ctx context.Context) (*domain.User, error) {
	return l.user(ctx)
}

func (l *Local) UpdateUser(ctx context.Context, patch domain.UserPatch) (*domain.User, error) {
	u, err := l.user(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := l.backend.UpdateUser(ctx, u.ID, patch)
	return updated, fromBackend(err, "Failed to update user")
}

func (l *Local) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	u, err := l.user(ctx)
	if err != nil {
		return err
	}
	err = l.backend.ChangePassword(ctx, u.ID, change)
	if err != nil && service.StatusCode(err) == http.StatusUnauthorized {
		// A wrong current password is a form error, not a lost session.
		return &Error{Status: http.StatusBadRequest, Message: "current password is incorrect", err: err}
	}
	return fromBackend(err, "Failed to change password")
}

func (l *Local) GetAgents(ctx context.Context) ([]*domain.Agent, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	agents, err := l.backend.ListAgents(ctx)
	return agents, fromBackend(err, "Failed to fetch agents")
}

func (l *Local) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	a, err := l.backend.GetAgent(ctx, id)
	return a, fromBackend(err, "Failed to fetch agent")
}

func (l *Local) CreateAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	a, err := l.backend.CreateAgent(ctx, in)
	return a, fromBackend(err, "Failed to create agent")
}

func (l *Local) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (*domain.Agent, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	a, err := l.backend.UpdateAgent(ctx, id, patch)
	return a, fromBackend(err, "Failed to update agent")
}

func (l *Local) DeleteAgent(ctx context.Context, id string) error {
	if _, err := l.user(ctx); err != nil {
		return err
	}
	return fromBackend(l.backend.DeleteAgent(ctx, id), "Failed to delete agent")
}

func (l *Local) GetAgentShareLink(ctx context.Context, id string) (domain.ShareLink, error) {
	if _, err := l.user(ctx); err != nil {
		return domain.ShareLink{}, err
	}
	link, err := l.backend.ShareLink(ctx, id)
	return link, fromBackend(err, "Failed to fetch share link")
}

func (l *Local) GetAgentLogs(ctx context.Context, id string) ([]domain.LogEntry, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	logs, err := l.backend.AgentLogs(ctx, id)
	return logs, fromBackend(err, "Failed to fetch agent logs")
}

func (l *Local) GetAgentConversations(ctx context.Context, id string, params domain.ListParams) (domain.Page[domain.Conversation], error) {
	if _, err := l.user(ctx); err != nil {
		return domain.Page[domain.Conversation]{}, err
	}
	page, err := l.backend.AgentConversations(ctx, id, params)
	return page, fromBackend(err, "Failed to fetch conversations")
}

func (l *Local) GetConversation(ctx context.Context, id string) (*domain.ConversationDetail, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	c, err := l.backend.Conversation(ctx, id)
	return c, fromBackend(err, "Failed to fetch conversation")
}

func (l *Local) GetStats(ctx context.Context) (domain.Overview, error) {
	if _, err := l.user(ctx); err != nil {
		return domain.Overview{}, err
	}
	o, err := l.backend.Overview(ctx)
	return o, fromBackend(err, "Failed to fetch stats")
}

func (l *Local) GetAgentStats(ctx context.Context, id string) (domain.AgentStats, error) {
	if _, err := l.user(ctx); err != nil {
		return domain.AgentStats{}, err
	}
	s, err := l.backend.AgentStats(ctx, id)
	return s, fromBackend(err, "Failed to fetch agent stats")
}

func (l *Local) GetKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	kbs, err := l.backend.ListKnowledgeBases(ctx)
	return kbs, fromBackend(err, "Failed to fetch knowledge bases")
}

func (l *Local) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseDetail, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	kb, err := l.backend.KnowledgeBase(ctx, id)
	return kb, fromBackend(err, "Failed to fetch knowledge base")
}

func (l *Local) CreateKnowledgeBase(ctx context.Context, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	kb, err := l.backend.CreateKnowledgeBase(ctx, in)
	return kb, fromBackend(err, "Failed to create knowledge base")
}

func (l *Local) UpdateKnowledgeBase(ctx context.Context, id string, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	if _, err := l.user(ctx); err != nil {
		return nil, err
	}
	kb, err := l.backend.UpdateKnowledgeBase(ctx, id, in)
	return kb, fromBackend(err, "Failed to update knowledge base")
}

func (l *Local) DeleteKnowledgeBase(ctx context.Context, id string) error {
	if _, err := l.user(ctx); err != nil {
		return err
	}
	return fromBackend(l.backend.DeleteKnowledgeBase(ctx, id), "Failed to delete knowledge base")
}

func (l *Local) ClearCache(ctx context.Context) (domain.CacheClearResult, error) {
	if _, err := l.user(ctx); err != nil {
		return domain.CacheClearResult{}, err
	}
	return l.backend.ClearCache(ctx), nil
}
