package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	kbs, err := h.backend.ListKnowledgeBases(r.Context())
	if err != nil {
		fail(w, err, "Failed to fetch knowledge bases")
		return
	}
	JSON(w, http.StatusOK, kbs)
}

// GetKnowledgeBase returns the knowledge base with its entries.
func (h *Handler) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kb, err := h.backend.KnowledgeBase(r.Context(), domain.NormalizeID(chi.URLParam(r, "id")))
	if err != nil {
		fail(w, err, "Failed to fetch knowledge base")
		return
	}
	JSON(w, http.StatusOK, kb)
}

func (h *Handler) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var in domain.KnowledgeBaseInput
	if err := decode(w, r, &in); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kb, err := h.backend.CreateKnowledgeBase(r.Context(), in)
	if err != nil {
		fail(w, err, "Failed to create knowledge base")
		return
	}
	slog.Info("Knowledge base created", "kb_id", kb.ID, "type", kb.Type)
	JSON(w, http.StatusCreated, kb)
}

func (h *Handler) UpdateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var in domain.KnowledgeBaseInput
	if err := decode(w, r, &in); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kb, err := h.backend.UpdateKnowledgeBase(r.Context(), domain.NormalizeID(chi.URLParam(r, "id")), in)
	if err != nil {
		fail(w, err, "Failed to update knowledge base")
		return
	}
	JSON(w, http.StatusOK, kb)
}

func (h *Handler) DeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	id := domain.NormalizeID(chi.URLParam(r, "id"))
	if err := h.backend.DeleteKnowledgeBase(r.Context(), id); err != nil {
		fail(w, err, "Failed to delete knowledge base")
		return
	}
	slog.Info("Knowledge base deleted", "kb_id", id)
	w.WriteHeader(http.StatusNoContent)
}
