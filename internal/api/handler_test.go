//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/wooagent/internal/applog"
	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/fixtures"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/ashureev/wooagent/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

type testEnv struct {
	handler *Handler
	router  chi.Router
	backend *service.Backend
	clock   *clockwork.FakeClock
	token   string
}

func newTestEnv(t *testing.T, dev bool) *testEnv {
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
	backend := service.New(repo, seed, service.WithClock(clock))

	ring := applog.NewRing(10)
	ring.Add(applog.Entry{Time: clock.Now(), Level: domain.LevelInfo, Message: "boot"})

	h := NewHandler(Options{Backend: backend, Ring: ring, Development: dev, Clock: clock})
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	resp, err := backend.Login(context.Background(), domain.Credentials{Email: "dev@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return &testEnv{handler: h, router: r, backend: backend, clock: clock, token: resp.Token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestFailMapsErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &domain.ValidationError{Fields: map[string]string{"name": "name is required"}}, http.StatusBadRequest, "validation failed: name is required"},
		{"not found", domain.ErrAgentNotFound, http.StatusNotFound, "agent not found"},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "Failed to fetch agents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fail(w, tt.err, "Failed to fetch agents")
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			body := decodeBody[errorBody](t, w)
			if body.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, body.Message)
			}
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, true)
	for _, path := range []string{"/api/agents", "/api/users/me", "/api/stats", "/api/knowledge-bases"} {
		w := env.do(t, http.MethodGet, path, nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
		w = env.do(t, http.MethodGet, path, nil, "not-a-token")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: expected 401, got %d", path, w.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/auth/login", domain.Credentials{Email: "dev@example.com", Password: "wrong-pass"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", w.Code)
	}
	if body := decodeBody[errorBody](t, w); body.Message != "invalid credentials" {
		t.Errorf("unexpected message %q", body.Message)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login", domain.Credentials{Email: "dev@example.com", Password: "password123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	auth := decodeBody[domain.AuthResponse](t, w)
	if auth.Token == "" || auth.User == nil || auth.User.ID != "1" {
		t.Errorf("unexpected auth response %+v", auth)
	}
}

func TestLoginLoggedOnce(t *testing.T) {
	env := newTestEnv(t, true)
	logger, ring := applog.New(applog.Options{MaxEntries: 20})
	prev := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := env.do(t, http.MethodPost, "/api/auth/login", domain.Credentials{Email: "dev@example.com", Password: "password123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	n := 0
	for _, e := range ring.Recent(0) {
		if e.Message == "User logged in" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("Expected one login line, got %d", n)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, true)
	if w := env.do(t, http.MethodPost, "/api/auth/logout", nil, env.token); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/users/me", nil, env.token); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}
}

func TestAgentLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/agents", domain.AgentInput{
		Name:           "Test",
		Platform:       domain.PlatformTelegram,
		PlatformToken:  "123:ABC",
		StoreURL:       "https://x.com",
		ConsumerKey:    "ck_1",
		ConsumerSecret: "cs_1",
		OpenAIKey:      "sk-1",
	}, env.token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody[domain.Agent](t, w)
	if created.ID == "" || created.Status != domain.StatusActive {
		t.Fatalf("unexpected agent %+v", created)
	}

	w = env.do(t, http.MethodGet, "/api/agents", nil, env.token)
	if agents := decodeBody[[]domain.Agent](t, w); len(agents) != 4 {
		t.Errorf("Expected 4 agents, got %d", len(agents))
	}

	w = env.do(t, http.MethodPut, "/api/agents/"+created.ID, map[string]string{"status": "inactive"}, env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if updated := decodeBody[domain.Agent](t, w); updated.Status != domain.StatusInactive || updated.Name != "Test" {
		t.Errorf("unexpected update result %+v", updated)
	}

	if w := env.do(t, http.MethodDelete, "/api/agents/"+created.ID, nil, env.token); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/agents/"+created.ID, nil, env.token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	if body := decodeBody[errorBody](t, w); body.Message != "agent not found" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestCreateAgentValidation(t *testing.T) {
	env := newTestEnv(t, true)
	w := env.do(t, http.MethodPost, "/api/agents", domain.AgentInput{Name: "x", Platform: domain.PlatformTelegram}, env.token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
	body := decodeBody[errorBody](t, w)
	if body.Fields["storeUrl"] == "" {
		t.Errorf("expected storeUrl field error, got %+v", body.Fields)
	}
}

func TestAgentSubResources(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/agents/1/share-link", http.StatusOK},
		{"/api/agents/1/logs", http.StatusOK},
		{"/api/agents/1/conversations?page=1&pageSize=2", http.StatusOK},
		{"/api/agents/1/conversations?page=abc", http.StatusBadRequest},
		{"/api/agents/1/stats", http.StatusOK},
		{"/api/agents/99/stats", http.StatusNotFound},
		{"/api/conversations/1-1", http.StatusOK},
		{"/api/conversations/1-999", http.StatusNotFound},
		{"/api/conversations/1", http.StatusNotFound},
		{"/api/stats", http.StatusOK},
		{"/api/knowledge-bases", http.StatusOK},
		{"/api/knowledge-bases/404", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil, env.token)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}

	w := env.do(t, http.MethodGet, "/api/agents/1/conversations?pageSize=2", nil, env.token)
	page := decodeBody[domain.Page[domain.Conversation]](t, w)
	if len(page.Items) > 2 || page.PageSize != 2 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestKnowledgeBaseRoutes(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/knowledge-bases", domain.KnowledgeBaseInput{Name: "FAQ", Type: domain.KnowledgeText}, env.token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	kb := decodeBody[domain.KnowledgeBase](t, w)

	w = env.do(t, http.MethodPut, "/api/knowledge-bases/"+kb.ID, domain.KnowledgeBaseInput{Name: "FAQ 2", Type: domain.KnowledgeText}, env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/knowledge-bases/"+kb.ID, nil, env.token); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/knowledge-bases/"+kb.ID, nil, env.token); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestAccountRoutes(t *testing.T) {
	env := newTestEnv(t, true)

	name := "Renamed"
	w := env.do(t, http.MethodPut, "/api/users/me", domain.UserPatch{Name: &name}, env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if u := decodeBody[domain.User](t, w); u.Name != name {
		t.Errorf("Expected name %q, got %q", name, u.Name)
	}

	other := env.do(t, http.MethodPost, "/api/auth/login", domain.Credentials{Email: "taken@shop.com", Password: "secret1"}, "")
	if other.Code != http.StatusOK {
		t.Fatalf("Expected 200 registering second user, got %d", other.Code)
	}
	taken := "taken@shop.com"
	w = env.do(t, http.MethodPut, "/api/users/me", domain.UserPatch{Email: &taken}, env.token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for an email in use, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/users/change-password", domain.PasswordChange{
		CurrentPassword: "not-it",
		NewPassword:     "secret99",
		ConfirmPassword: "secret99",
	}, env.token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for wrong current password, got %d", w.Code)
	}
	if body := decodeBody[errorBody](t, w); body.Message != "current password is incorrect" {
		t.Errorf("unexpected message %q", body.Message)
	}

	w = env.do(t, http.MethodPost, "/api/users/change-password", domain.PasswordChange{
		CurrentPassword: "password123",
		NewPassword:     "secret99",
		ConfirmPassword: "secret99",
	}, env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClearCache(t *testing.T) {
	env := newTestEnv(t, true)
	env.do(t, http.MethodGet, "/api/stats", nil, env.token)

	w := env.do(t, http.MethodPost, "/api/maintenance/clear-cache", nil, env.token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	res := decodeBody[domain.CacheClearResult](t, w)
	if !res.Success || res.ClearedEntries < 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDebugLogsDevOnly(t *testing.T) {
	dev := newTestEnv(t, true)
	w := dev.do(t, http.MethodGet, "/api/debug/logs?limit=5", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if entries := decodeBody[[]applog.Entry](t, w); len(entries) != 1 || entries[0].Message != "boot" {
		t.Errorf("unexpected entries %+v", entries)
	}

	prod := newTestEnv(t, false)
	if w := prod.do(t, http.MethodGet, "/api/debug/logs", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 outside development, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decodeBody[map[string]any](t, w)
	if body["status"] != "healthy" {
		t.Errorf("unexpected health %+v", body)
	}
}
