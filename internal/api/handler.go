// Package api provides HTTP handlers for the WooAgent API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/wooagent/internal/applog"
	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/identity"
	"github.com/ashureev/wooagent/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

const (
	maxBodySize = 1 << 20

	// DefaultKeepaliveInterval spaces SSE pings on idle streams.
	DefaultKeepaliveInterval = 10 * time.Second
	// DefaultRetryDelay is the reconnect hint sent to SSE clients.
	DefaultRetryDelay = 3 * time.Second
	// DefaultHealthTimeout bounds the repository ping of /health.
	DefaultHealthTimeout = 5 * time.Second
)

// Options configures a Handler.
type Options struct {
	Backend *service.Backend
	// Ring backs /api/debug/logs. Nil disables the route.
	Ring *applog.Ring
	// Development enables debug routes and accepts any websocket origin.
	Development bool
	// AllowedOrigin is the frontend origin accepted for websockets in production.
	AllowedOrigin string
	Clock         clockwork.Clock

	KeepaliveInterval time.Duration
	RetryDelay        time.Duration
}

// Handler serves the REST surface and the two simulator streams.
type Handler struct {
	backend       *service.Backend
	ring          *applog.Ring
	conns         *ConnManager
	clock         clockwork.Clock
	isDev         bool
	allowedOrigin string
	keepalive     time.Duration
	retryDelay    time.Duration
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		backend:       opts.Backend,
		ring:          opts.Ring,
		conns:         NewConnManager(),
		clock:         opts.Clock,
		isDev:         opts.Development,
		allowedOrigin: opts.AllowedOrigin,
		keepalive:     opts.KeepaliveInterval,
		retryDelay:    opts.RetryDelay,
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.keepalive <= 0 {
		h.keepalive = DefaultKeepaliveInterval
	}
	if h.retryDelay <= 0 {
		h.retryDelay = DefaultRetryDelay
	}
	return h
}

// Conns exposes the websocket registry.
func (h *Handler) Conns() *ConnManager {
	return h.conns
}

// RegisterRoutes registers every route. Everything except health, login and the
// debug log view requires a bearer token.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	auth := identity.Middleware(h.backend)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		if h.isDev && h.ring != nil {
			r.Get("/debug/logs", h.DebugLogs)
			r.Delete("/debug/logs", h.ClearDebugLogs)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/auth/logout", h.Logout)
			r.Get("/users/me", h.GetMe)
			r.Put("/users/me", h.UpdateMe)
			r.Post("/users/change-password", h.ChangePassword)

			r.Get("/agents", h.ListAgents)
			r.Post("/agents", h.CreateAgent)
			r.Route("/agents/{id}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Put("/", h.UpdateAgent)
				r.Delete("/", h.DeleteAgent)
				r.Get("/share-link", h.ShareLink)
				r.Get("/logs", h.AgentLogs)
				r.Get("/conversations", h.AgentConversations)
				r.Get("/stats", h.AgentStats)
				r.Get("/demo", h.Demo)
			})
			r.Get("/conversations/{id}", h.GetConversation)
			r.Get("/stats", h.Overview)

			r.Get("/knowledge-bases", h.ListKnowledgeBases)
			r.Post("/knowledge-bases", h.CreateKnowledgeBase)
			r.Get("/knowledge-bases/{id}", h.GetKnowledgeBase)
			r.Put("/knowledge-bases/{id}", h.UpdateKnowledgeBase)
			r.Delete("/knowledge-bases/{id}", h.DeleteKnowledgeBase)

			r.Post("/maintenance/clear-cache", h.ClearCache)
		})
	})

	r.With(identity.WebSocketMiddleware(h.backend)).Get("/ws/agents/{id}/logs", h.LogsWebSocket)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Message: message})
}

// fail maps err onto a status. Internal errors are logged and answered with fallback.
func fail(w http.ResponseWriter, err error, fallback string) {
	status := service.StatusCode(err)
	body := errorBody{Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
		body.Message = fallback
	}
	JSON(w, status, body)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
