package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/store"
	"github.com/jonboulle/clockwork"
)

func newTestBackend(t *testing.T) (*Backend, *clockwork.FakeClock) {
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

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return New(repo, seed, WithClock(clock), WithIDGenerator(ids)), clock
}

var createInput = domain.AgentInput{
	Name:           "Test",
	Platform:       domain.PlatformTelegram,
	PlatformToken:  "123:ABC",
	StoreURL:       "https://x.com",
	ConsumerKey:    "ck_1",
	ConsumerSecret: "cs_1",
	OpenAIKey:      "sk-1",
}

func TestCreateAgentAssignsFreshIDAndDefaults(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	before, _ := b.ListAgents(ctx)
	a, err := b.CreateAgent(ctx, createInput)
	if err != nil {
		t.Fatalf("CreateAgent failed: %v", err)
	}
	if a.ID != "gen-1" {
		t.Errorf("expected generated id, got %s", a.ID)
	}
	if a.Status != domain.StatusActive || a.Model != domain.DefaultModel {
		t.Errorf("expected defaults, got status=%s model=%s", a.Status, a.Model)
	}
	if !a.CreatedAt.Equal(clock.Now()) {
		t.Errorf("expected createdAt from clock, got %v", a.CreatedAt)
	}
	after, _ := b.ListAgents(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected count %d, got %d", len(before)+1, len(after))
	}
}

func TestCreateAgentValidation(t *testing.T) {
	b, _ := newTestBackend(t)
	in := createInput
	in.StoreURL = "x.com"

	_, err := b.CreateAgent(context.Background(), in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["storeUrl"]; !ok {
		t.Fatalf("expected storeUrl error, got %v", verr.Fields)
	}
}

func TestUpdateAgentMergesAndInvalidates(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	o, _ := b.Overview(ctx)
	if o.ActiveAgents != 2 {
		t.Fatalf("expected 2 active agents, got %d", o.ActiveAgents)
	}

	clock.Advance(time.Minute)
	active := domain.StatusActive
	updated, err := b.UpdateAgent(ctx, " 3 ", domain.AgentPatch{Status: &active})
	if err != nil {
		t.Fatalf("UpdateAgent failed: %v", err)
	}
	if updated.Status != domain.StatusActive || updated.Name != "סוכן מידע" {
		t.Errorf("unexpected merge result: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("expected updatedAt refreshed, got %v", updated.UpdatedAt)
	}

	o, _ = b.Overview(ctx)
	if o.ActiveAgents != 3 {
		t.Fatalf("expected overview recomputed with 3 active agents, got %d", o.ActiveAgents)
	}
}

func TestDeleteAgentIsPermanent(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	if err := b.DeleteAgent(ctx, "2"); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}
	if _, err := b.GetAgent(ctx, "2"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
	if _, err := b.AgentStats(ctx, "2"); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected stats lookup to fail, got %v", err)
	}
}

func TestLoginAndTokens(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.Login(ctx, domain.Credentials{Email: "dev@example.com", Password: "wrong-pass"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	resp, err := b.Login(ctx, domain.Credentials{Email: "dev@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" || resp.User.ID != "1" {
		t.Fatalf("unexpected auth response: %+v", resp)
	}

	u, err := b.UserForToken(ctx, resp.Token)
	if err != nil || u.Email != "dev@example.com" {
		t.Fatalf("UserForToken: user=%+v err=%v", u, err)
	}

	if err := b.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := b.UserForToken(ctx, resp.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLoginRegistersUnknownEmail(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	resp, err := b.Login(ctx, domain.Credentials{Email: "new@shop.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.User.Name != "new" || resp.User.Role != "user" {
		t.Errorf("unexpected registered user: %+v", resp.User)
	}
	if _, err := b.Login(ctx, domain.Credentials{Email: "new@shop.com", Password: "other12"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected stored password to be enforced, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	b, _ := newTestBackend(t)
	_, err := b.Login(context.Background(), domain.Credentials{Email: "bad", Password: "123"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected email and password errors, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	bad := domain.PasswordChange{CurrentPassword: "nope123", NewPassword: "newpass1", ConfirmPassword: "newpass1"}
	if err := b.ChangePassword(ctx, "1", bad); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	good := domain.PasswordChange{CurrentPassword: "password123", NewPassword: "newpass1", ConfirmPassword: "newpass1"}
	if err := b.ChangePassword(ctx, "1", good); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := b.Login(ctx, domain.Credentials{Email: "dev@example.com", Password: "newpass1"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	b, _ := newTestBackend(t)
	name := "  דנה  "
	u, err := b.UpdateUser(context.Background(), "1", domain.UserPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if u.Name != "דנה" || u.Email != "dev@example.com" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestUpdateUserRejectsTakenEmail(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.Login(ctx, domain.Credentials{Email: "other@shop.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	taken := "OTHER@shop.com"
	_, err := b.UpdateUser(ctx, "1", domain.UserPatch{Email: &taken})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["email"] != "email already in use" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", StatusCode(err))
	}

	own := "dev@example.com"
	if _, err := b.UpdateUser(ctx, "1", domain.UserPatch{Email: &own}); err != nil {
		t.Errorf("keeping own email should succeed: %v", err)
	}
}

func TestAgentLogsNewestFirst(t *testing.T) {
	b, _ := newTestBackend(t)
	logs, err := b.AgentLogs(context.Background(), "1")
	if err != nil {
		t.Fatalf("AgentLogs failed: %v", err)
	}
	if len(logs) != 10 {
		t.Fatalf("expected 10 logs, got %d", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].Timestamp.After(logs[i-1].Timestamp) {
			t.Fatalf("logs not newest first at %d", i)
		}
	}
	for _, l := range logs {
		if l.AgentID != "1" || l.Level != l.Type.Level() {
			t.Fatalf("unexpected entry: %+v", l)
		}
	}
}

func TestConversations(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	page, err := b.AgentConversations(ctx, "2", domain.ListParams{Page: 1, PageSize: 3})
	if err != nil {
		t.Fatalf("AgentConversations failed: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 3 || page.TotalPages != 2 {
		t.Fatalf("unexpected page: total=%d items=%d pages=%d", page.Total, len(page.Items), page.TotalPages)
	}
	if page.Items[0].AgentID != "2" {
		t.Errorf("expected agent id on conversations, got %s", page.Items[0].AgentID)
	}

	filtered, _ := b.AgentConversations(ctx, "2", domain.ListParams{Type: "active"})
	if filtered.Total != 1 || filtered.Items[0].EndTime != nil {
		t.Errorf("unexpected active filter result: %+v", filtered)
	}

	detail, err := b.Conversation(ctx, page.Items[0].ID)
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(detail.Messages) != 8 || !detail.Ordered() {
		t.Errorf("expected 8 ordered messages, got %d ordered=%v", len(detail.Messages), detail.Ordered())
	}
	if detail.AgentID != "2" || detail.ID != page.Items[0].ID {
		t.Errorf("expected conversation owned by agent 2, got %s (%s)", detail.AgentID, detail.ID)
	}
	for _, id := range []string{"2-99", "99", "-1", "2-"} {
		if _, err := b.Conversation(ctx, id); !errors.Is(err, domain.ErrConversationNotFound) {
			t.Fatalf("Conversation(%q): expected ErrConversationNotFound, got %v", id, err)
		}
	}
}

func TestConversationBelongsToOneAgent(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	page, err := b.AgentConversations(ctx, "2", domain.ListParams{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("AgentConversations failed: %v", err)
	}
	id := page.Items[0].ID

	if err := b.DeleteAgent(ctx, "1"); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}
	detail, err := b.Conversation(ctx, id)
	if err != nil {
		t.Fatalf("Conversation after deleting another agent: %v", err)
	}
	if detail.AgentID != "2" {
		t.Errorf("expected owner 2, got %s", detail.AgentID)
	}

	if err := b.DeleteAgent(ctx, "2"); err != nil {
		t.Fatalf("DeleteAgent failed: %v", err)
	}
	if _, err := b.Conversation(ctx, id); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound once the owner is gone, got %v", err)
	}
}

func TestStats(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	o, err := b.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if o.TotalAgents != 3 || o.TotalConversations != 2680 {
		t.Errorf("unexpected overview: %+v", o)
	}

	s, err := b.AgentStats(ctx, "1")
	if err != nil {
		t.Fatalf("AgentStats failed: %v", err)
	}
	if s.TotalConversations != 1250 || len(s.TopQuestions) != 5 {
		t.Errorf("unexpected agent stats: %+v", s)
	}
}

func TestShareLink(t *testing.T) {
	b, _ := newTestBackend(t)
	link, err := b.ShareLink(context.Background(), "2")
	if err != nil {
		t.Fatalf("ShareLink failed: %v", err)
	}
	if link.ShareLink != "https://wa.me/wooagent_2?start=share" {
		t.Errorf("unexpected link: %s", link.ShareLink)
	}
}

func TestKnowledgeBases(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	detail, err := b.KnowledgeBase(ctx, "2")
	if err != nil {
		t.Fatalf("KnowledgeBase failed: %v", err)
	}
	if detail.Type != domain.KnowledgeText || len(detail.Items) == 0 {
		t.Fatalf("expected text items, got %+v", detail)
	}

	kb, err := b.CreateKnowledgeBase(ctx, domain.KnowledgeBaseInput{Name: "Returns", Type: domain.KnowledgeFiles})
	if err != nil {
		t.Fatalf("CreateKnowledgeBase failed: %v", err)
	}
	fresh, _ := b.KnowledgeBase(ctx, kb.ID)
	if len(fresh.Items) != 0 {
		t.Errorf("expected new knowledge base empty, got %d items", len(fresh.Items))
	}

	if _, err := b.UpdateKnowledgeBase(ctx, kb.ID, domain.KnowledgeBaseInput{Name: "Returns v2", Type: domain.KnowledgeText}); err != nil {
		t.Fatalf("UpdateKnowledgeBase failed: %v", err)
	}
	if err := b.DeleteKnowledgeBase(ctx, kb.ID); err != nil {
		t.Fatalf("DeleteKnowledgeBase failed: %v", err)
	}
	if _, err := b.KnowledgeBase(ctx, kb.ID); !errors.Is(err, domain.ErrKnowledgeBaseNotFound) {
		t.Fatalf("expected ErrKnowledgeBaseNotFound, got %v", err)
	}
}

func TestClearCacheReportsEntries(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	_, _ = b.Overview(ctx)
	_, _ = b.AgentStats(ctx, "1")
	_, _ = b.AgentLogs(ctx, "1")

	res := b.ClearCache(ctx)
	if !res.Success || res.ClearedEntries != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if again := b.ClearCache(ctx); again.ClearedEntries != 0 {
		t.Fatalf("expected empty cache, got %d", again.ClearedEntries)
	}
}

func TestResumeSessionAdoptsUnknownToken(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.ResumeSession(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
	u, err := b.ResumeSession(ctx, "persisted-token")
	if err != nil || u.ID != "1" {
		t.Fatalf("expected seeded user, got %+v err=%v", u, err)
	}
	if _, err := b.UserForToken(ctx, "persisted-token"); err != nil {
		t.Fatalf("expected token registered, got %v", err)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{&domain.ValidationError{Fields: map[string]string{"name": "x"}}, 400},
		{domain.ErrAgentNotFound, 404},
		{fmt.Errorf("wrap: %w", domain.ErrConversationNotFound), 404},
		{domain.ErrUnauthorized, 401},
		{domain.ErrInvalidCredentials, 401},
		{errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
