package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/service"
)

// CategoryHandler exposes the category engine over HTTP.
//
// Every route derives the viewer from the request's JWT (set in context by
// the auth middleware) and passes it down explicitly — the service layer
// never reads ambient identity.
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// HandleList returns the viewer's categories grouped by scope class.
//
// HTTP: GET /api/categories (OptionalAuth)
//
// RESPONSE:
//
//	{"personal":[...], "team":[...], "public":[...]}
//
// each category annotated with promptCount for THIS viewer. Unauthenticated
// callers get empty groups rather than 401 — the frontend renders the same
// sidebar either way.
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, service.CategoryGroups{
			Personal: []model.Category{},
			Team:     []model.Category{},
			Public:   []model.Category{},
		})
		return
	}

	groups, err := h.categories.VisibleCategories(r.Context(), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleListMine returns the flat, creator-agnostic category list.
//
// HTTP: GET /api/categories/my (RequireAuth)
func (h *CategoryHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	cats, err := h.categories.MyCategories(r.Context(), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// HandleListForTeam returns one team's categories.
//
// HTTP: GET /api/categories/team/{teamID} (RequireAuth)
// 400 on a blank id, 403 when the viewer is not a member.
func (h *CategoryHandler) HandleListForTeam(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	teamID := r.PathValue("teamID")

	cats, err := h.categories.CategoriesForTeam(r.Context(), teamID, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// createCategoryRequest is the POST /api/categories body.
// scope.key carries the team ID for team scope; it is ignored for personal
// scope (the server always uses the authenticated user) and must be absent
// for public scope.
type createCategoryRequest struct {
	Name        string `json:"name"`
	ScopeType   string `json:"scopeType"`
	ScopeKey    string `json:"scopeKey"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// HandleCreate creates a category.
//
// HTTP: POST /api/categories (RequireAuth)
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid category JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	cat, err := h.categories.Create(r.Context(),
		req.Name, req.ScopeType, req.ScopeKey, req.Color, req.Description, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// HandleUpdate patches a category's name/description/color.
//
// HTTP: PUT /api/categories/{id} (RequireAuth)
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var patch model.CategoryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Warn("invalid category patch JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	cat, err := h.categories.Update(r.Context(), id, patch, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// HandleDelete soft-deletes a category.
//
// HTTP: DELETE /api/categories/{id} (RequireAuth)
// 403 protected_resource for the reserved Uncategorized category.
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.categories.Delete(r.Context(), id, viewerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCanUse reports whether the viewer may file prompts into a category.
//
// HTTP: GET /api/categories/{id}/can-use (RequireAuth)
// RESPONSE: {"canUse": true}
func (h *CategoryHandler) HandleCanUse(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	ok, err := h.categories.CanUse(r.Context(), viewerID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canUse": ok})
}
