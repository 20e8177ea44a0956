package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashureev/wooagent/internal/domain"
)

// HTTPOptions tunes the remote adapter.
type HTTPOptions struct {
	Client         *http.Client
	OnUnauthorized func()
}

// HTTP calls a remote WooAgent API.
type HTTP struct {
	baseURL        string
	tokens         TokenStore
	http           *http.Client
	onUnauthorized func()
}

var _ Client = (*HTTP)(nil)

// NewHTTP creates the production adapter rooted at baseURL.
func NewHTTP(baseURL string, tokens TokenStore, opts HTTPOptions) *HTTP {
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTP{
		baseURL:        strings.TrimRight(baseURL, "/"),
		tokens:         tokens,
		http:           hc,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// call describes one request.
type call struct {
	method   string
	path     string
	query    url.Values
	body     any
	out      any
	fallback string
	notFound error
}

func (c *HTTP) do(ctx context.Context, r call) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return &Error{Message: r.fallback, err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return &Error{Message: r.fallback, err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return &Error{Message: "failed to read token", err: err}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	slog.Debug("API Request", "method", r.method, "path", r.path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: r.fallback, err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("Failed to close response body", "error", closeErr)
		}
	}()
	slog.Debug("API Response", "method", r.method, "path", r.path, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.unauthorized()
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp, r.fallback, r.notFound)
	}
	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return &Error{Status: resp.StatusCode, Message: r.fallback, err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeError reads a {message} or {error} body, else uses fallback.
func decodeError(resp *http.Response, fallback string, notFound error) error {
	var payload struct {
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Fields  map[string]string `json:"fields"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = fallback
	}
	return &Error{
		Status:  resp.StatusCode,
		Message: msg,
		Fields:  payload.Fields,
		err:     sentinelFor(resp.StatusCode, notFound),
	}
}

func agentPath(id string, suffix string) string {
	return "/agents/" + url.PathEscape(domain.NormalizeID(id)) + suffix
}

func (c *HTTP) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	var resp domain.AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: creds, out: &resp, fallback: "Login failed"})
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return nil, &Error{Message: "failed to store token", err: err}
	}
	return &resp, nil
}

// Logout clears the local token even when the server call fails.
func (c *HTTP) Logout(ctx context.Context) error {
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/logout", fallback: "Logout failed"})
	if clearErr := c.tokens.Clear(); clearErr != nil {
		return &Error{Message: "failed to clear token", err: clearErr}
	}
	return err
}

func (c *HTTP) CurrentUser(ctx context.Context) (*domain.User, error) {
	var u domain.User
	err := c.do(ctx, call{method: http.MethodGet, path: "/users/me", out: &u, fallback: "Failed to fetch user", notFound: domain.ErrUserNotFound})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTP) UpdateUser(ctx context.Context, patch domain.UserPatch) (*domain.User, error) {
	var u domain.User
	err := c.do(ctx, call{method: http.MethodPut, path: "/users/me", body: patch, out: &u, fallback: "Failed to update user", notFound: domain.ErrUserNotFound})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTP) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/users/change-password", body: change, fallback: "Failed to change password"})
}

func (c *HTTP) GetAgents(ctx context.Context) ([]*domain.Agent, error) {
	var agents []*domain.Agent
	err := c.do(ctx, call{method: http.MethodGet, path: "/agents", out: &agents, fallback: "Failed to fetch agents"})
	return agents, err
}

func (c *HTTP) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	var a domain.Agent
	err := c.do(ctx, call{method: http.MethodGet, path: agentPath(id, ""), out: &a, fallback: "Failed to fetch agent", notFound: domain.ErrAgentNotFound})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTP) CreateAgent(ctx context.Context, in domain.AgentInput) (*domain.Agent, error) {
	var a domain.Agent
	err := c.do(ctx, call{method: http.MethodPost, path: "/agents", body: in, out: &a, fallback: "Failed to create agent"})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTP) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) (*domain.Agent, error) {
	var a domain.Agent
	err := c.do(ctx, call{method: http.MethodPut, path: agentPath(id, ""), body: patch, out: &a, fallback: "Failed to update agent", notFound: domain.ErrAgentNotFound})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTP) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: agentPath(id, ""), fallback: "Failed to delete agent", notFound: domain.ErrAgentNotFound})
}

func (c *HTTP) GetAgentShareLink(ctx context.Context, id string) (domain.ShareLink, error) {
	var link domain.ShareLink
	err := c.do(ctx, call{method: http.MethodGet, path: agentPath(id, "/share-link"), out: &link, fallback: "Failed to fetch share link", notFound: domain.ErrAgentNotFound})
	return link, err
}

func (c *HTTP) GetAgentLogs(ctx context.Context, id string) ([]domain.LogEntry, error) {
	var logs []domain.LogEntry
	err := c.do(ctx, call{method: http.MethodGet, path: agentPath(id, "/logs"), out: &logs, fallback: "Failed to fetch agent logs", notFound: domain.ErrAgentNotFound})
	return logs, err
}

func (c *HTTP) GetAgentConversations(ctx context.Context, id string, params domain.ListParams) (domain.Page[domain.Conversation], error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(params.PageSize))
	}
	if params.Type != "" {
		q.Set("type", params.Type)
	}
	var page domain.Page[domain.Conversation]
	err := c.do(ctx, call{method: http.MethodGet, path: agentPath(id, "/conversations"), query: q, out: &page, fallback: "Failed to fetch conversations", notFound: domain.ErrAgentNotFound})
	return page, err
}

func (c *HTTP) GetConversation(ctx context.Context, id string) (*domain.ConversationDetail, error) {
	var d domain.ConversationDetail
	err := c.do(ctx, call{method: http.MethodGet, path: "/conversations/" + url.PathEscape(domain.NormalizeID(id)), out: &d, fallback: "Failed to fetch conversation", notFound: domain.ErrConversationNotFound})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTP) GetStats(ctx context.Context) (domain.Overview, error) {
	var o domain.Overview
	err := c.do(ctx, call{method: http.MethodGet, path: "/stats", out: &o, fallback: "Failed to fetch stats"})
	return o, err
}

func (c *HTTP) GetAgentStats(ctx context.Context, id string) (domain.AgentStats, error) {
	var s domain.AgentStats
	err := c.do(ctx, call{method: http.MethodGet, path: agentPath(id, "/stats"), out: &s, fallback: "Failed to fetch agent stats", notFound: domain.ErrAgentNotFound})
	return s, err
}

func kbPath(id string) string {
	return "/knowledge-bases/" + url.PathEscape(domain.NormalizeID(id))
}

func (c *HTTP) GetKnowledgeBases(ctx context.Context) ([]*domain.KnowledgeBase, error) {
	var kbs []*domain.KnowledgeBase
	err := c.do(ctx, call{method: http.MethodGet, path: "/knowledge-bases", out: &kbs, fallback: "Failed to fetch knowledge bases"})
	return kbs, err
}

func (c *HTTP) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseDetail, error) {
	var kb domain.KnowledgeBaseDetail
	err := c.do(ctx, call{method: http.MethodGet, path: kbPath(id), out: &kb, fallback: "Failed to fetch knowledge base", notFound: domain.ErrKnowledgeBaseNotFound})
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func (c *HTTP) CreateKnowledgeBase(ctx context.Context, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := c.do(ctx, call{method: http.MethodPost, path: "/knowledge-bases", body: in, out: &kb, fallback: "Failed to create knowledge base"})
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func (c *HTTP) UpdateKnowledgeBase(ctx context.Context, id string, in domain.KnowledgeBaseInput) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := c.do(ctx, call{method: http.MethodPut, path: kbPath(id), body: in, out: &kb, fallback: "Failed to update knowledge base", notFound: domain.ErrKnowledgeBaseNotFound})
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func (c *HTTP) DeleteKnowledgeBase(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: kbPath(id), fallback: "Failed to delete knowledge base", notFound: domain.ErrKnowledgeBaseNotFound})
}

func (c *HTTP) ClearCache(ctx context.Context) (domain.CacheClearResult, error) {
	var res domain.CacheClearResult
	err := c.do(ctx, call{method: http.MethodPost, path: "/maintenance/clear-cache", out: &res, fallback: "Failed to clear cache"})
	return res, err
}
