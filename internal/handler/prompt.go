package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/service"
)

// PromptHandler manages CRUD operations for prompts.
type PromptHandler struct {
	prompts *service.PromptService
	logger  *slog.Logger
}

// NewPromptHandler creates a new PromptHandler.
func NewPromptHandler(prompts *service.PromptService, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

// HandleList returns the prompts the viewer may see, most recent first.
// Anonymous viewers see only public prompts.
//
// HTTP: GET /api/prompts?limit=20&offset=0 (OptionalAuth)
func (h *PromptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	limit, offset := paging(r)

	prompts, err := h.prompts.List(r.Context(), viewerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

// HandleListByCategory returns one category's prompts, filtered to what the
// viewer may see.
//
// HTTP: GET /api/categories/{id}/prompts (RequireAuth)
func (h *PromptHandler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	categoryID := r.PathValue("id")
	limit, offset := paging(r)

	prompts, err := h.prompts.ListByCategory(r.Context(), categoryID, viewerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

// HandleGet returns a single prompt.
//
// HTTP: GET /api/prompts/{id} (OptionalAuth)
// A prompt the viewer may not see yields 404, not 403 — revealing that a
// hidden prompt exists would already leak information.
func (h *PromptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	prompt, err := h.prompts.GetByID(r.Context(), id, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleCreate saves a new prompt.
//
// HTTP: POST /api/prompts (RequireAuth)
// REQUEST BODY: {"title":"...","content":"...","categoryId":"...","isPublic":false}
// A missing categoryId files the prompt under the viewer's Uncategorized
// category, provisioning it if needed.
func (h *PromptHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	var input service.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	prompt, err := h.prompts.Create(r.Context(), input, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prompt)
}

// HandleUpdate replaces a prompt's content and category.
//
// HTTP: PUT /api/prompts/{id} (RequireAuth)
func (h *PromptHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var input service.PromptInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid prompt JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	prompt, err := h.prompts.Update(r.Context(), id, input, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HandleDelete removes a prompt.
//
// HTTP: DELETE /api/prompts/{id} (RequireAuth)
func (h *PromptHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.prompts.Delete(r.Context(), id, viewerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// paging reads limit/offset query params, leaving them zero when absent.
// The service layer clamps them to sane bounds.
func paging(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
