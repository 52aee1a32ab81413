package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/promptdeck/promptdeck/internal/auth"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/service"
)

// TeamHandler manages teams and their membership rosters.
type TeamHandler struct {
	teams  *service.TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
}

// HandleCreate creates a team. The caller becomes its Owner.
//
// HTTP: POST /api/teams (RequireAuth)
func (h *TeamHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	team, err := h.teams.Create(r.Context(), req.Name, actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleListMine returns the teams the caller belongs to.
//
// HTTP: GET /api/teams (RequireAuth)
func (h *TeamHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())

	teams, err := h.teams.ListMine(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleAddMember adds a user to a team or changes their role.
//
// HTTP: POST /api/teams/{teamID}/members (RequireAuth, caller must be Admin+)
func (h *TeamHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())
	teamID := r.PathValue("teamID")

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if err := h.teams.AddMember(r.Context(), teamID, req.UserID, req.Role, actorID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember removes a user from a team.
//
// HTTP: DELETE /api/teams/{teamID}/members/{userID} (RequireAuth, caller must be Admin+)
func (h *TeamHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())
	teamID := r.PathValue("teamID")
	userID := r.PathValue("userID")

	if err := h.teams.RemoveMember(r.Context(), teamID, userID, actorID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
