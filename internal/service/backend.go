// Package service implements the mock WooAgent backend: every API operation over the
// in-memory repository plus the synthesized read models.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Backend serves the API operations.
type Backend struct {
	repo  store.Repository
	seed  *fixtures.Set
	clock clockwork.Clock
	cache *Cache
	newID func() string

	mu     sync.RWMutex
	tokens map[string]string // token -> user id
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock sets the clock used for timestamps and cache expiry.
func WithClock(c clockwork.Clock) Option {
	return func(b *Backend) { b.clock = c }
}

// WithCache replaces the default read-model cache.
func WithCache(c *Cache) Option {
	return func(b *Backend) { b.cache = c }
}

// WithIDGenerator replaces uuid generation for new records.
func WithIDGenerator(fn func() string) Option {
	return func(b *Backend) { b.newID = fn }
}

// New creates a backend over repo. seed supplies the canned read models.
func New(repo store.Repository, seed *fixtures.Set, opts ...Option) *Backend {
	b := &Backend{
		repo:   repo,
		seed:   seed,
		clock:  clockwork.NewRealClock(),
		newID:  uuid.NewString,
		tokens: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = NewCache(DefaultCacheTTL, b.clock)
	}
	return b
}

// Cache exposes the read-model cache so callers can start its sweeper.
func (b *Backend) Cache() *Cache {
	return b.cache
}

// Ping checks the repository.
func (b *Backend) Ping(ctx context.Context) error {
	return b.repo.Ping(ctx)
}

// Login authenticates credentials and issues a bearer token. An unknown email
// registers a new user.
func (b *Backend) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(creds.Email)

	user, err := b.repo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		now := b.clock.Now().UTC()
		user = &domain.User{
			ID:        b.newID(),
			Name:      strings.SplitN(email, "@", 2)[0],
			Email:     email,
			Role:      "user",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := b.repo.UpsertUser(ctx, user); err != nil {
			return nil, fmt.Errorf("register user: %w", err)
		}
		if err := b.repo.SetPassword(ctx, user.ID, creds.Password); err != nil {
			return nil, fmt.Errorf("register user: %w", err)
		}
		slog.Info("User registered", "user_id", user.ID)
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	default:
		ok, err := b.repo.CheckPassword(ctx, user.ID, creds.Password)
		if err != nil {
			return nil, fmt.Errorf("check password: %w", err)
		}
		if !ok {
			return nil, domain.ErrInvalidCredentials
		}
	}

	token := uuid.NewString()
	b.mu.Lock()
	b.tokens[token] = user.ID
	b.mu.Unlock()

	slog.Info("User logged in", "user_id", user.ID)
	return &domain.AuthResponse{User: user, Token: token}, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (b *Backend) Logout(_ context.Context, token string) error {
	b.mu.Lock()
	userID, ok := b.tokens[token]
	delete(b.tokens, token)
	b.mu.Unlock()
	if ok {
		slog.Info("User logged out", "user_id", userID)
	}
	return nil
}

// UserForToken resolves a bearer token.
func (b *Backend) UserForToken(ctx context.Context, token string) (*domain.User, error) {
	b.mu.RLock()
	userID, ok := b.tokens[token]
	b.mu.RUnlock()
	if !ok || token == "" {
		return nil, domain.ErrUnauthorized
	}
	user, err := b.repo.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	return user, err
}

// CurrentUser returns the user record.
func (b *Backend) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return b.repo.GetUser(ctx, userID)
}

// UpdateUser applies profile changes.
func (b *Backend) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	user, err := b.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		other, err := b.repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, &domain.ValidationError{Fields: map[string]string{"email": "email already in use"}}
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		user.Email = email
	}
	user.UpdatedAt = b.clock.Now().UTC()
	if err := b.repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	slog.Info("User updated", "user_id", userID)
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (b *Backend) ChangePassword(ctx context.Context, userID string, change domain.PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	ok, err := b.repo.CheckPassword(ctx, userID, change.CurrentPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	if err := b.repo.SetPassword(ctx, userID, change.NewPassword); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	slog.Info("Password changed", "user_id", userID)
	return nil
}

// ListAgents returns every agent in creation order.
func (b *Backend) ListAgents(ctx context.Context) ([]*domain.Agent, error) {
	return b.repo.ListAgents(ctx)
}

// GetAgent returns one agent.
func (b *Backend) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	return b.repo.GetAgent(ctx, domain.NormalizeID(id))
}

// CreateAgent validates input and stores a new agent under a fresh id.
func (b *Backend) CreateAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	a := domain.NewAgent(b.newID(), in, b.clock.Now().UTC())
	if err := b.repo.CreateAgent(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	b.cache.DeletePrefix("overview")
	slog.Info("Agent created", "agent_id", a.ID, "platform", a.Platform)
	return a, nil
}

// UpdateAgent shallow-merges patch into the stored agent.
func (b *Backend) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (*domain.Agent, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	id = domain.NormalizeID(id)
	current, err := b.repo.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := patch.Apply(current, b.clock.Now().UTC())
	if err := b.repo.UpdateAgent(ctx, updated); err != nil {
		return nil, err
	}
	b.invalidateAgent(id)
	slog.Info("Agent updated", "agent_id", id, "status", updated.Status)
	return updated, nil
}

// DeleteAgent removes an agent permanently.
func (b *Backend) DeleteAgent(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)
	if err := b.repo.DeleteAgent(ctx, id); err != nil {
		return err
	}
	b.invalidateAgent(id)
	slog.Info("Agent deleted", "agent_id", id)
	return nil
}

func (b *Backend) invalidateAgent(id string) {
	b.cache.DeletePrefix("overview")
	b.cache.DeletePrefix("agent:" + id + ":")
}

// ShareLink returns the deep link for an agent.
func (b *Backend) ShareLink(ctx context.Context, id string) (domain.ShareLink, error) {
	a, err := b.GetAgent(ctx, id)
	if err != nil {
		return domain.ShareLink{}, err
	}
	return domain.BuildShareLink(a), nil
}

// AgentLogs returns the agent's activity log, newest first.
func (b *Backend) AgentLogs(ctx context.Context, id string) ([]domain.LogEntry, error) {
	a, err := b.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	return cached(b.cache, "agent:"+a.ID+":logs", func() ([]domain.LogEntry, error) {
		n := len(b.seed.AgentLogs)
		out := make([]domain.LogEntry, 0, n)
		for i := n - 1; i >= 0; i-- {
			l := b.seed.AgentLogs[i]
			out = append(out, domain.LogEntry{
				ID:        fmt.Sprintf("%s-log-%d", a.ID, i+1),
				AgentID:   a.ID,
				Timestamp: l.Timestamp,
				Type:      l.Type,
				Level:     l.Type.Level(),
				Message:   l.Message,
			})
		}
		return out, nil
	})
}

// AgentConversations returns a page of the agent's conversations.
func (b *Backend) AgentConversations(ctx context.Context, id string, params domain.ListParams) (domain.Page[domain.Conversation], error) {
	a, err := b.GetAgent(ctx, id)
	if err != nil {
		return domain.Page[domain.Conversation]{}, err
	}
	all, err := cached(b.cache, "agent:"+a.ID+":conversations", func() ([]domain.Conversation, error) {
		out := make([]domain.Conversation, 0, len(b.seed.Conversations))
		for _, c := range b.seed.Conversations {
			out = append(out, conversationFor(a.ID, c))
		}
		return out, nil
	})
	if err != nil {
		return domain.Page[domain.Conversation]{}, err
	}
	if params.Type != "" {
		filtered := make([]domain.Conversation, 0, len(all))
		for _, c := range all {
			if string(c.Status) == params.Type {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}
	return domain.Paginate(all, params), nil
}

// Conversation returns a conversation with its transcript. Ids carry the owning
// agent ("<agentID>-<n>"); a conversation disappears with its agent.
func (b *Backend) Conversation(ctx context.Context, id string) (*domain.ConversationDetail, error) {
	agentID, seedID, ok := splitConversationID(domain.NormalizeID(id))
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	a, err := b.GetAgent(ctx, agentID)
	if errors.Is(err, domain.ErrAgentNotFound) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, c := range b.seed.Conversations {
		if c.ID != seedID {
			continue
		}
		detail := &domain.ConversationDetail{
			Conversation: conversationFor(a.ID, c),
			Messages:     make([]domain.Message, 0, len(b.seed.Transcript)),
		}
		for _, m := range b.seed.Transcript {
			detail.Messages = append(detail.Messages, domain.Message{
				ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp,
			})
		}
		return detail, nil
	}
	return nil, domain.ErrConversationNotFound
}

func conversationID(agentID, seedID string) string {
	return agentID + "-" + seedID
}

// splitConversationID splits at the last dash; agent ids may contain dashes, seed ids do not.
func splitConversationID(id string) (agentID, seedID string, ok bool) {
	i := strings.LastIndex(id, "-")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

func conversationFor(agentID string, c fixtures.Conversation) domain.Conversation {
	return domain.Conversation{
		ID:           conversationID(agentID, c.ID),
		AgentID:      agentID,
		UserID:       c.UserID,
		UserName:     c.UserName,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		MessageCount: c.MessageCount,
		Status:       c.Status,
		Summary:      c.Summary,
	}
}

// Overview computes the global statistics.
func (b *Backend) Overview(ctx context.Context) (domain.Overview, error) {
	return cached(b.cache, "overview", func() (domain.Overview, error) {
		agents, err := b.repo.ListAgents(ctx)
		if err != nil {
			return domain.Overview{}, err
		}
		o := domain.Overview{
			TotalAgents:         len(agents),
			DailyConversations:  append([]domain.DailyCount{}, b.seed.Overview.DailyConversations...),
			AverageResponseTime: b.seed.Overview.AverageResponseTime,
			ConversionRate:      b.seed.Overview.ConversionRate,
		}
		for _, a := range agents {
			if a.IsActive() {
				o.ActiveAgents++
			}
			o.TotalConversations += a.ConversationsCount
		}
		return o, nil
	})
}

// AgentStats computes per-agent statistics.
func (b *Backend) AgentStats(ctx context.Context, id string) (domain.AgentStats, error) {
	a, err := b.GetAgent(ctx, id)
	if err != nil {
		return domain.AgentStats{}, err
	}
	return cached(b.cache, "agent:"+a.ID+":stats", func() (domain.AgentStats, error) {
		t := b.seed.AgentStats
		return domain.AgentStats{
			AgentID:             a.ID,
			TotalConversations:  a.ConversationsCount,
			DailyConversations:  append([]domain.DailyCount{}, t.DailyConversations...),
			AverageResponseTime: t.AverageResponseTime,
			TopQuestions:        append([]domain.QuestionCount{}, t.TopQuestions...),
			UserSatisfaction:    t.UserSatisfaction,
			ConversionRate:      t.ConversionRate,
		}, nil
	})
}

// ListKnowledgeBases returns every knowledge base.
func (b *Backend) ListKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	return b.repo.ListKnowledgeBases(ctx)
}

// KnowledgeBase returns a knowledge base with its entries.
func (b *Backend) KnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseDetail, error) {
	id = domain.NormalizeID(id)
	kb, err := b.repo.GetKnowledgeBase(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &domain.KnowledgeBaseDetail{KnowledgeBase: *kb, Items: []domain.KnowledgeItem{}}
	if b.isSeededKnowledgeBase(id) {
		for _, it := range b.seed.KnowledgeItems[kb.Type] {
			detail.Items = append(detail.Items, domain.KnowledgeItem{
				ID: it.ID, Name: it.Name, Content: it.Content, Size: it.Size, AddedAt: it.AddedAt,
			})
		}
	}
	return detail, nil
}

func (b *Backend) isSeededKnowledgeBase(id string) bool {
	for _, kb := range b.seed.KnowledgeBases {
		if kb.ID == id {
			return true
		}
	}
	return false
}

// CreateKnowledgeBase stores a new, empty knowledge base.
func (b *Backend) CreateKnowledgeBase(ctx context.Context, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := b.clock.Now().UTC()
	kb := &domain.KnowledgeBase{
		ID:          b.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Type:        in.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.repo.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("create knowledge base: %w", err)
	}
	slog.Info("Knowledge base created", "knowledge_base_id", kb.ID, "type", kb.Type)
	return kb, nil
}

// UpdateKnowledgeBase replaces name, description and type.
func (b *Backend) UpdateKnowledgeBase(ctx context.Context, id string, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	kb, err := b.repo.GetKnowledgeBase(ctx, domain.NormalizeID(id))
	if err != nil {
		return nil, err
	}
	kb.Name = strings.TrimSpace(in.Name)
	kb.Description = in.Description
	kb.Type = in.Type
	kb.UpdatedAt = b.clock.Now().UTC()
	if err := b.repo.UpdateKnowledgeBase(ctx, kb); err != nil {
		return nil, err
	}
	slog.Info("Knowledge base updated", "knowledge_base_id", kb.ID)
	return kb, nil
}

// DeleteKnowledgeBase removes a knowledge base.
func (b *Backend) DeleteKnowledgeBase(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)
	if err := b.repo.DeleteKnowledgeBase(ctx, id); err != nil {
		return err
	}
	slog.Info("Knowledge base deleted", "knowledge_base_id", id)
	return nil
}

// ClearCache drops every cached read model.
func (b *Backend) ClearCache(_ context.Context) domain.CacheClearResult {
	n := b.cache.Clear()
	slog.Info("Cache cleared", "entries", n)
	return domain.CacheClearResult{
		Success:        true,
		Message:        fmt.Sprintf("Cleared %d cache entries", n),
		ClearedEntries: n,
	}
}

// Script returns a demo chat script by name.
func (b *Backend) Script(name string) domain.Script {
	return b.seed.Script(name)
}

// Seed exposes the canned data for the simulators.
func (b *Backend) Seed() *fixtures.Set {
	return b.seed
}

// ResumeSession binds a token this process never issued to the first seeded user.
// The local client uses it so a token persisted by an earlier run keeps working
// against a freshly seeded backend.
func (b *Backend) ResumeSession(ctx context.Context, token string) (*domain.User, error) {
	if token == "" || len(b.seed.Users) == 0 {
		return nil, domain.ErrUnauthorized
	}
	if u, err := b.UserForToken(ctx, token); err == nil {
		return u, nil
	}
	user, err := b.repo.GetUser(ctx, b.seed.Users[0].ID)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	b.mu.Lock()
	b.tokens[token] = user.ID
	b.mu.Unlock()
	slog.Debug("Session resumed", "user_id", user.ID)
	return user, nil
}
