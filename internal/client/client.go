// Package client is the console's API client. One adapter talks to the in-process
// mock backend, the other to a remote server over HTTP; New picks one by runtime mode.
package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/ashureev/wooagent/internal/simulate"
	"github.com/jonboulle/clockwork"
)

// Client mirrors the REST surface of the WooAgent API.
type Client interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
	UpdateUser(ctx context.Context, patch domain.UserPatch) (*domain.User, error)
	ChangePassword(ctx context.Context, change domain.PasswordChange) error

	GetAgents(ctx context.Context) ([]*domain.Agent, error)
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	CreateAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error)
	UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (*domain.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	GetAgentShareLink(ctx context.Context, id string) (domain.ShareLink, error)
	GetAgentLogs(ctx context.Context, id string) ([]domain.LogEntry, error)
	GetAgentConversations(ctx context.Context, id string, params domain.ListParams) (domain.Page[domain.Conversation], error)
	GetConversation(ctx context.Context, id string) (*domain.ConversationDetail, error)
	GetStats(ctx context.Context) (domain.Overview, error)
	GetAgentStats(ctx context.Context, id string) (domain.AgentStats, error)

	GetKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseDetail, error)
	CreateKnowledgeBase(ctx context.Context, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error)
	UpdateKnowledgeBase(ctx context.Context, id string, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, id string) error

	ClearCache(ctx context.Context) (domain.CacheClearResult, error)

	// StreamLogs delivers a snapshot of the agent's live log and then every new
	// matching line until ctx ends.
	StreamLogs(ctx context.Context, agentID string, filter simulate.Filter, fn FrameFunc) error
}

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// Config selects and configures an adapter.
type Config struct {
	// Development selects the in-process adapter.
	Development bool
	// BaseURL is the API root for the HTTP adapter, e.g. http://localhost:8000/api.
	BaseURL string
	// Backend serves the in-process adapter. Required in development.
	Backend *service.Backend
	// Tokens persists the bearer token. Defaults to memory.
	Tokens TokenStore
	// Latency is the artificial delay of every in-process call.
	Latency time.Duration
	Clock   clockwork.Clock
	// OnUnauthorized runs after a 401 cleared the token.
	OnUnauthorized func()
	HTTPClient     *http.Client
}

// New returns the adapter for the configured mode. There is no fallback from one
// mode to the other.
func New(cfg Config) (Client, error) {
	if cfg.Tokens == nil {
		cfg.Tokens = NewMemoryTokenStore()
	}
	if cfg.Development {
		if cfg.Backend == nil {
			return nil, errors.New("development mode requires a backend")
		}
		return NewLocal(cfg.Backend, cfg.Tokens, LocalOptions{
			Latency:        cfg.Latency,
			Clock:          cfg.Clock,
			OnUnauthorized: cfg.OnUnauthorized,
		}), nil
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("production mode requires an API base URL")
	}
	return NewHTTP(cfg.BaseURL, cfg.Tokens, HTTPOptions{
		Client:         cfg.HTTPClient,
		OnUnauthorized: cfg.OnUnauthorized,
	}), nil
}
