package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/ashureev/wooagent/internal/store"
)

func newTestStore(t *testing.T) *AgentStore {
	t.Helper()
	seed, err := fixtures.Load()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	repo, err := store.NewSQLite(context.Background(), store.MemoryDSN, seed)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	c := client.NewLocal(service.New(repo, seed), client.NewMemoryTokenStore(), client.LocalOptions{})
	if _, err := c.Login(context.Background(), domain.Credentials{Email: "dev@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	return NewAgentStore(c)
}

func TestFetchAgentsRecountsStats(t *testing.T) {
	s := newTestStore(t)
	if got := s.Stats(); got != domain.InitialStats() {
		t.Fatalf("expected initial stats before fetch, got %+v", got)
	}

	agents, err := s.FetchAgents(context.Background())
	if err != nil {
		t.Fatalf("FetchAgents: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	st := s.Stats()
	if st.ActiveAgents != 2 || st.InactiveAgents != 1 {
		t.Errorf("expected 2 active / 1 inactive, got %d / %d", st.ActiveAgents, st.InactiveAgents)
	}
	if st.AverageResponseTime != domain.InitialStats().AverageResponseTime {
		t.Error("counts merge must leave unrelated fields alone")
	}
	if s.Loading() || s.Err() != "" {
		t.Errorf("expected settled state, got loading=%v err=%q", s.Loading(), s.Err())
	}
}

func TestFetchAgentByIDReturnsCachedRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.FetchAgentByID(ctx, "1")
	if err != nil {
		t.Fatalf("FetchAgentByID: %v", err)
	}
	second, err := s.FetchAgentByID(ctx, " 1 ")
	if err != nil {
		t.Fatalf("FetchAgentByID: %v", err)
	}
	if first != second {
		t.Error("expected the same cached record")
	}
	if s.CurrentAgent() != first {
		t.Error("expected fetched agent to become current")
	}

	other, err := s.FetchAgentByID(ctx, "2")
	if err != nil || other == first {
		t.Fatalf("expected a different agent, got %v, %v", other, err)
	}
}

func TestAddAgentDefaultsAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.FetchAgents(ctx); err != nil {
		t.Fatalf("FetchAgents: %v", err)
	}
	before := s.Stats().ActiveAgents

	a, err := s.AddAgent(ctx, domain.AgentInput{
		Name: "Test", Platform: domain.PlatformTelegram, PlatformToken: "123:ABC",
		StoreURL: "https://x.com", ConsumerKey: "ck_1", ConsumerSecret: "cs_1", OpenAIKey: "sk-1",
	})
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	for _, existing := range []string{"1", "2", "3"} {
		if a.ID == existing {
			t.Errorf("expected a fresh id, got %s", a.ID)
		}
	}
	if a.Status != domain.StatusActive {
		t.Errorf("expected default status active, got %s", a.Status)
	}
	if got := len(s.Agents()); got != 4 {
		t.Errorf("expected 4 agents, got %d", got)
	}
	if got := s.Stats().ActiveAgents; got != before+1 {
		t.Errorf("expected %d active, got %d", before+1, got)
	}
}

func TestAddAgentValidationFailureSetsErr(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddAgent(context.Background(), domain.AgentInput{Name: "x", Platform: domain.PlatformTelegram})
	var cerr *client.Error
	if !errors.As(err, &cerr) || cerr.Fields["storeUrl"] == "" {
		t.Fatalf("expected storeUrl validation error, got %v", err)
	}
	if s.Err() == "" {
		t.Error("expected error message recorded")
	}
	if s.Loading() {
		t.Error("expected loading cleared after failure")
	}
}

func TestStatusToggleRoundTripKeepsCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.FetchAgents(ctx); err != nil {
		t.Fatalf("FetchAgents: %v", err)
	}
	before := s.Stats()

	active, inactive := domain.StatusActive, domain.StatusInactive
	a, err := s.EditAgent(ctx, "3", domain.AgentPatch{Status: &active})
	if err != nil || a.Status != domain.StatusActive {
		t.Fatalf("EditAgent: %+v, %v", a, err)
	}
	if s.Stats().ActiveAgents != before.ActiveAgents+1 {
		t.Errorf("expected active count to rise while toggled")
	}
	a, err = s.EditAgent(ctx, "3", domain.AgentPatch{Status: &inactive})
	if err != nil || a.Status != domain.StatusInactive {
		t.Fatalf("EditAgent: %+v, %v", a, err)
	}

	after := s.Stats()
	if after.ActiveAgents != before.ActiveAgents || after.InactiveAgents != before.InactiveAgents {
		t.Errorf("expected counts %d/%d, got %d/%d",
			before.ActiveAgents, before.InactiveAgents, after.ActiveAgents, after.InactiveAgents)
	}
}

func TestEditAgentRefreshesCurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cached, err := s.FetchAgentByID(ctx, "2")
	if err != nil {
		t.Fatalf("FetchAgentByID: %v", err)
	}
	name := "Renamed"
	if _, err := s.EditAgent(ctx, "2", domain.AgentPatch{Name: &name}); err != nil {
		t.Fatalf("EditAgent: %v", err)
	}
	got, _ := s.FetchAgentByID(ctx, "2")
	if got == cached || got.Name != name {
		t.Errorf("expected refreshed current agent, got %+v", got)
	}
}

func TestRemoveAgentThenFetchIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.FetchAgents(ctx); err != nil {
		t.Fatalf("FetchAgents: %v", err)
	}
	if _, err := s.FetchAgentByID(ctx, "2"); err != nil {
		t.Fatalf("FetchAgentByID: %v", err)
	}

	if err := s.RemoveAgent(ctx, "2"); err != nil {
		t.Fatalf("RemoveAgent: %v", err)
	}
	if s.CurrentAgent() != nil {
		t.Error("expected current agent cleared")
	}
	for _, a := range s.Agents() {
		if a.ID == "2" {
			t.Fatal("removed agent still cached")
		}
	}

	_, err := s.FetchAgentByID(ctx, "2")
	if !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if s.Err() != "agent not found" {
		t.Errorf("expected error message recorded, got %q", s.Err())
	}

	// A fresh agent never reuses the removed id.
	a, err := s.AddAgent(ctx, domain.AgentInput{Name: "Again", Platform: domain.PlatformTelegram, StoreURL: "https://x.com"})
	if err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if a.ID == "2" {
		t.Error("removed id came back")
	}
}

func TestAgentSubResources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if st, err := s.FetchAgentStats(ctx, "1"); err != nil || st.AgentID != "1" {
		t.Errorf("FetchAgentStats: %+v, %v", st, err)
	}
	if logs, err := s.FetchAgentLogs(ctx, "1"); err != nil || len(logs) == 0 {
		t.Errorf("FetchAgentLogs: %d, %v", len(logs), err)
	}
	if page, err := s.FetchAgentConversations(ctx, "1", domain.ListParams{Page: 1, PageSize: 5}); err != nil || page.PageSize != 5 {
		t.Errorf("FetchAgentConversations: %+v, %v", page, err)
	}
	if link, err := s.FetchAgentShareLink(ctx, "1"); err != nil || link.ShareLink == "" {
		t.Errorf("FetchAgentShareLink: %+v, %v", link, err)
	}
	if _, err := s.FetchAgentStats(ctx, "404"); err == nil || s.Err() == "" {
		t.Errorf("expected failure recorded, got %v / %q", err, s.Err())
	}
}

// blockingClient holds GetAgents open until release is closed.
type blockingClient struct {
	client.Client
	calls   chan struct{}
	release chan struct{}
}

func (c *blockingClient) GetAgents(ctx context.Context) ([]*domain.Agent, error) {
	c.calls <- struct{}{}
	select {
	case <-c.release:
		return []*domain.Agent{{ID: "1", Status: domain.StatusActive}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestFetchAgentsIsReentrancyGuarded(t *testing.T) {
	fake := &blockingClient{calls: make(chan struct{}, 2), release: make(chan struct{})}
	s := NewAgentStore(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := s.FetchAgents(ctx)
		done <- err
	}()
	<-fake.calls

	list, err := s.FetchAgents(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected cached empty list while in flight, got %d, %v", len(list), err)
	}
	if !s.Loading() {
		t.Error("expected loading while fetch is in flight")
	}
	close(fake.release)
	if err := <-done; err != nil {
		t.Fatalf("FetchAgents: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Error("second fetch must not reach the client")
	}
	if got := len(s.Agents()); got != 1 {
		t.Errorf("expected 1 agent, got %d", got)
	}
}

func TestUpdateStatsIsShallow(t *testing.T) {
	s := NewAgentStore(nil)
	stores := 9
	s.UpdateStats(domain.StatsPatch{TotalStores: &stores})
	st := s.Stats()
	if st.TotalStores != 9 {
		t.Errorf("expected 9 stores, got %d", st.TotalStores)
	}
	if st.ActiveAgents != domain.InitialStats().ActiveAgents {
		t.Error("unpatched fields must keep their values")
	}
}
