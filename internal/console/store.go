// Package console holds the client-side state the console screens render from.
package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/domain"
)

// AgentStore caches the agent list, the agent being viewed and the dashboard stats.
// Fetches and mutations make one client call each. Concurrent mutations are not
// serialized against each other; the last response to arrive wins.
type AgentStore struct {
	client client.Client
	now    func() time.Time

	mu       sync.RWMutex
	agents   []*domain.Agent
	current  *domain.Agent
	stats    domain.Stats
	loading  bool
	fetching bool
	err      string
}

// NewAgentStore returns an empty store with the initial dashboard stats.
func NewAgentStore(c client.Client) *AgentStore {
	return &AgentStore{client: c, now: time.Now, stats: domain.InitialStats()}
}

// Agents returns a copy of the cached list.
func (s *AgentStore) Agents() []*domain.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*domain.Agent(nil), s.agents...)
}

func (s *AgentStore) CurrentAgent() *domain.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *AgentStore) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *AgentStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed operation, or "".
func (s *AgentStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// UpdateStats shallow-merges patch into the stats.
func (s *AgentStore) UpdateStats(patch domain.StatsPatch) {
	s.mu.Lock()
	s.stats = s.stats.Merge(patch)
	s.mu.Unlock()
}

// FetchAgents reloads the list. A call made while a fetch is in flight returns
// the cached list without touching the client.
func (s *AgentStore) FetchAgents(ctx context.Context) ([]*domain.Agent, error) {
	s.mu.Lock()
	if s.fetching {
		list := append([]*domain.Agent(nil), s.agents...)
		s.mu.Unlock()
		return list, nil
	}
	s.fetching = true
	s.mu.Unlock()
	s.begin()

	agents, err := s.client.GetAgents(ctx)

	s.mu.Lock()
	s.fetching = false
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail(err, "Failed to fetch agents")
	}

	s.mu.Lock()
	s.agents = agents
	s.mu.Unlock()
	s.recount()
	s.end()
	return append([]*domain.Agent(nil), agents...), nil
}

// FetchAgentByID loads one agent and makes it current. Asking for the current
// agent again returns the cached record itself.
func (s *AgentStore) FetchAgentByID(ctx context.Context, id string) (*domain.Agent, error) {
	id = domain.NormalizeID(id)
	s.mu.RLock()
	if s.current != nil && s.current.ID == id {
		a := s.current
		s.mu.RUnlock()
		return a, nil
	}
	s.mu.RUnlock()

	s.begin()
	a, err := s.client.GetAgent(ctx, id)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch agent")
	}
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()
	s.end()
	return a, nil
}

// AddAgent creates an agent and appends it to the cached list.
func (s *AgentStore) AddAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error) {
	s.begin()
	a, err := s.client.CreateAgent(ctx, in)
	if err != nil {
		return nil, s.fail(err, "Failed to create agent")
	}
	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()
	s.recount()
	s.end()
	slog.Debug("Agent added", "agent_id", a.ID)
	return a, nil
}

// EditAgent applies patch and replaces the cached copies of the agent.
func (s *AgentStore) EditAgent(ctx context.Context, id string, patch domain.AgentPatch) (*domain.Agent, error) {
	id = domain.NormalizeID(id)
	s.begin()
	a, err := s.client.UpdateAgent(ctx, id, patch)
	if err != nil {
		return nil, s.fail(err, "Failed to update agent")
	}
	s.mu.Lock()
	for i := range s.agents {
		if s.agents[i].ID == a.ID {
			s.agents[i] = a
		}
	}
	if s.current != nil && s.current.ID == a.ID {
		s.current = a
	}
	s.mu.Unlock()
	s.recount()
	s.end()
	return a, nil
}

// RemoveAgent deletes the agent and drops it from the cache.
func (s *AgentStore) RemoveAgent(ctx context.Context, id string) error {
	id = domain.NormalizeID(id)
	s.begin()
	if err := s.client.DeleteAgent(ctx, id); err != nil {
		return s.fail(err, "Failed to delete agent")
	}
	s.mu.Lock()
	kept := s.agents[:0:0]
	for _, a := range s.agents {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	s.agents = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	s.recount()
	s.end()
	slog.Debug("Agent removed", "agent_id", id)
	return nil
}

// FetchAgentStats loads the per-agent analytics.
func (s *AgentStore) FetchAgentStats(ctx context.Context, id string) (domain.AgentStats, error) {
	s.begin()
	st, err := s.client.GetAgentStats(ctx, id)
	if err != nil {
		return domain.AgentStats{}, s.fail(err, "Failed to fetch agent stats")
	}
	s.end()
	return st, nil
}

func (s *AgentStore) FetchAgentLogs(ctx context.Context, id string) ([]domain.LogEntry, error) {
	s.begin()
	logs, err := s.client.GetAgentLogs(ctx, id)
	if err != nil {
		return nil, s.fail(err, "Failed to fetch agent logs")
	}
	s.end()
	return logs, nil
}

func (s *AgentStore) FetchAgentConversations(ctx context.Context, id string, params domain.ListParams) (domain.Page[domain.Conversation], error) {
	s.begin()
	page, err := s.client.GetAgentConversations(ctx, id, params)
	if err != nil {
		return domain.Page[domain.Conversation]{}, s.fail(err, "Failed to fetch conversations")
	}
	s.end()
	return page, nil
}

func (s *AgentStore) FetchAgentShareLink(ctx context.Context, id string) (domain.ShareLink, error) {
	s.begin()
	link, err := s.client.GetAgentShareLink(ctx, id)
	if err != nil {
		return domain.ShareLink{}, s.fail(err, "Failed to fetch share link")
	}
	s.end()
	return link, nil
}

// recount merges the list-derived counters into the stats.
func (s *AgentStore) recount() {
	s.mu.RLock()
	values := make([]domain.Agent, len(s.agents))
	for i, a := range s.agents {
		values[i] = *a
	}
	s.mu.RUnlock()
	s.UpdateStats(domain.CountStats(values))
}

func (s *AgentStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *AgentStore) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// setErr records a failure that happened before any client call.
func (s *AgentStore) setErr(err error) {
	s.mu.Lock()
	s.err = err.Error()
	s.mu.Unlock()
}

func (s *AgentStore) fail(err error, fallback string) error {
	msg := fallback
	var cerr *client.Error
	if errors.As(err, &cerr) && cerr.Message != "" {
		msg = cerr.Message
	}
	s.mu.Lock()
	s.loading = false
	s.err = msg
	s.mu.Unlock()
	slog.Debug("Console operation failed", "error", err)
	return err
}
