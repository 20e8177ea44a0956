package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/go-chi/chi/v5"
)

func agentID(r *http.Request) string {
	return domain.NormalizeID(chi.URLParam(r, "id"))
}

// ListAgents returns every agent in creation order.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.backend.ListAgents(r.Context())
	if err != nil {
		fail(w, err, "Failed to fetch agents")
		return
	}
	JSON(w, http.StatusOK, agents)
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.backend.GetAgent(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch agent")
		return
	}
	JSON(w, http.StatusOK, a)
}

// CreateAgent validates the payload, fills defaults and stores a new agent.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var in domain.AgentInput
	if err := decode(w, r, &in); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.backend.CreateAgent(r.Context(), in)
	if err != nil {
		fail(w, err, "Failed to create agent")
		return
	}
	slog.Info("Agent created", "agent_id", a.ID, "platform", a.Platform)
	JSON(w, http.StatusCreated, a)
}

// UpdateAgent merges the given fields into the agent.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var patch domain.AgentPatch
	if err := decode(w, r, &patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.backend.UpdateAgent(r.Context(), agentID(r), patch)
	if err != nil {
		fail(w, err, "Failed to update agent")
		return
	}
	slog.Info("Agent updated", "agent_id", a.ID, "status", a.Status)
	JSON(w, http.StatusOK, a)
}

// DeleteAgent removes the agent permanently.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := agentID(r)
	if err := h.backend.DeleteAgent(r.Context(), id); err != nil {
		fail(w, err, "Failed to delete agent")
		return
	}
	slog.Info("Agent deleted", "agent_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ShareLink returns the platform link customers use to reach the agent.
func (h *Handler) ShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.backend.ShareLink(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch share link")
		return
	}
	JSON(w, http.StatusOK, link)
}

// AgentLogs returns the canned activity log, newest first.
func (h *Handler) AgentLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.backend.AgentLogs(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch agent logs")
		return
	}
	JSON(w, http.StatusOK, logs)
}

// AgentConversations returns one page of the agent's conversations.
func (h *Handler) AgentConversations(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.backend.AgentConversations(r.Context(), agentID(r), params)
	if err != nil {
		fail(w, err, "Failed to fetch conversations")
		return
	}
	JSON(w, http.StatusOK, page)
}

func listParams(r *http.Request) (domain.ListParams, error) {
	q := r.URL.Query()
	var p domain.ListParams
	for _, f := range []struct {
		key string
		dst *int
	}{{"page", &p.Page}, {"pageSize", &p.PageSize}} {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &paramError{name: f.key}
		}
		*f.dst = n
	}
	p.Type = q.Get("type")
	return p, nil
}

type paramError struct{ name string }

func (e *paramError) Error() string {
	return e.name + " must be a positive integer"
}

// GetConversation returns a conversation with its transcript.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	d, err := h.backend.Conversation(r.Context(), domain.NormalizeID(chi.URLParam(r, "id")))
	if err != nil {
		fail(w, err, "Failed to fetch conversation")
		return
	}
	JSON(w, http.StatusOK, d)
}

// Overview returns the dashboard totals and daily series.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.backend.Overview(r.Context())
	if err != nil {
		fail(w, err, "Failed to fetch stats")
		return
	}
	JSON(w, http.StatusOK, o)
}

// AgentStats returns the per-agent statistics.
func (h *Handler) AgentStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.backend.AgentStats(r.Context(), agentID(r))
	if err != nil {
		fail(w, err, "Failed to fetch agent stats")
		return
	}
	JSON(w, http.StatusOK, s)
}
