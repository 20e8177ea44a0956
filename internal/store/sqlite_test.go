package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
)

func newSeededStore(t *testing.T) *SQLiteStore {
	t.Helper()
	seed, err := fixtures.Load()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	s, err := NewSQLite(context.Background(), MemoryDSN, seed)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSeededAgentsKeepOrder(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	agents, err := s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	for i, want := range []string{"1", "2", "3"} {
		if agents[i].ID != want {
			t.Errorf("position %d: expected id %s, got %s", i, want, agents[i].ID)
		}
	}
	if agents[0].Params != domain.DefaultGenerationParams() {
		t.Errorf("expected default params, got %+v", agents[0].Params)
	}
	if agents[0].KnowledgeSources == nil {
		t.Error("expected empty knowledge slice, got nil")
	}
}

func TestAgentRoundTrip(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	in := domain.AgentInput{
		Name:     "Test",
		Platform: domain.PlatformTelegram,
		StoreURL: "https://x.com",
		KnowledgeSources: []domain.KnowledgeSource{
			{ID: "k1", Type: domain.SourceURL, Content: "https://x.com/faq", AddedAt: now},
		},
	}
	a := domain.NewAgent("new-id", in, now)
	if err := s.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}

	got, err := s.GetAgent(ctx, "new-id")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got.Name != "Test" || got.Status != domain.StatusActive || got.Model != domain.DefaultModel {
		t.Errorf("unexpected agent: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("expected createdAt %v, got %v", now, got.CreatedAt)
	}
	if len(got.KnowledgeSources) != 1 || got.KnowledgeSources[0].Content != "https://x.com/faq" {
		t.Errorf("unexpected knowledge sources: %+v", got.KnowledgeSources)
	}

	agents, _ := s.ListAgents(ctx)
	if agents[len(agents)-1].ID != "new-id" {
		t.Errorf("expected new agent last, got %s", agents[len(agents)-1].ID)
	}
}

func TestUpdateAndDeleteAgent(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	a, err := s.GetAgent(ctx, "3")
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	a.Status = domain.StatusActive
	if err := s.UpdateAgent(ctx, a); err != nil {
		t.Fatalf("UpdateAgent failed: %v", err)
	}
	got, _ := s.GetAgent(ctx, "3")
	if got.Status != domain.StatusActive {
		t.Errorf("expected status active, got %s", got.Status)
	}

	if err := s.DeleteAgent(ctx, "3"); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}
	if _, err := s.GetAgent(ctx, "3"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if err := s.DeleteAgent(ctx, "3"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound on second delete, got %v", err)
	}
	if err := s.UpdateAgent(ctx, a); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound on update, got %v", err)
	}
}

func TestUsersAndPasswords(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, "DEV@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if u.ID != "1" {
		t.Fatalf("expected seeded user 1, got %s", u.ID)
	}

	ok, err := s.CheckPassword(ctx, u.ID, "password123")
	if err != nil || !ok {
		t.Fatalf("expected seeded password to match, ok=%v err=%v", ok, err)
	}
	if ok, _ := s.CheckPassword(ctx, u.ID, "nope"); ok {
		t.Fatal("expected wrong password to fail")
	}

	if err := s.SetPassword(ctx, u.ID, "secret99"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if ok, _ := s.CheckPassword(ctx, u.ID, "secret99"); !ok {
		t.Fatal("expected new password to match")
	}

	now := time.Now().UTC()
	if err := s.UpsertUser(ctx, &domain.User{ID: "2", Name: "N", Email: "n@example.com", Role: "user", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}
	if ok, _ := s.CheckPassword(ctx, "2", "anything"); !ok {
		t.Fatal("expected user without password to accept any password")
	}
	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestKnowledgeBaseCRUD(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	list, err := s.ListKnowledgeBases(ctx)
	if err != nil {
		t.Fatalf("ListKnowledgeBases failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 knowledge bases, got %d", len(list))
	}

	now := time.Now().UTC()
	kb := &domain.KnowledgeBase{ID: "kb-new", Name: "FAQ", Type: domain.KnowledgeText, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateKnowledgeBase(ctx, kb); err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}
	kb.Name = "FAQ 2"
	if err := s.UpdateKnowledgeBase(ctx, kb); err != nil {
		t.Fatalf("UpdateKnowledgeBase failed: %v", err)
	}
	got, err := s.GetKnowledgeBase(ctx, "kb-new")
	if err != nil || got.Name != "FAQ 2" {
		t.Fatalf("unexpected knowledge base %+v err=%v", got, err)
	}
	if err := s.DeleteKnowledgeBase(ctx, "kb-new"); err != nil {
		t.Fatalf("DeleteKnowledgeBase failed: %v", err)
	}
	if _, err := s.GetKnowledgeBase(ctx, "kb-new"); !errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
		t.Fatalf("expected ErrKnowledgeBaseNotFound, got %v", err)
	}
}

func TestWriteErrorsNameTheOperation(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	dup := &domain.User{ID: "dup", Name: "dup", Email: "DEV@example.com", Role: "user"}
	err := s.UpsertUser(ctx, dup)
	if err == nil || !strings.HasPrefix(err.Error(), "upsert user: ") {
		t.Fatalf("expected wrapped constraint error, got %v", err)
	}
}
