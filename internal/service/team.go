package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/repository"
)

const MaxTeamNameLength = 100

// TeamService manages teams and membership rows — the backing store of the
// membership oracle the category engine consults.
type TeamService struct {
	teams  repository.TeamRepository
	logger *slog.Logger
}

// NewTeamService creates a new TeamService.
func NewTeamService(teams repository.TeamRepository, logger *slog.Logger) *TeamService {
	return &TeamService{teams: teams, logger: logger}
}

// Create makes a new team with the acting user as Owner.
func (s *TeamService) Create(ctx context.Context, name, actingUserID string) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "team name is required")
	}
	if len(name) > MaxTeamNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("team name must be %d characters or less", MaxTeamNameLength))
	}

	team := &model.Team{
		Name:      name,
		CreatedBy: actingUserID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		s.logger.Error("failed to create team",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating team: %w", err)
	}

	s.logger.Info("team created",
		slog.String("id", team.ID),
		slog.String("createdBy", actingUserID),
	)
	return team, nil
}

// ListMine returns the teams the acting user belongs to.
func (s *TeamService) ListMine(ctx context.Context, actingUserID string) ([]model.Team, error) {
	teams, err := s.teams.ListForUser(ctx, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

// AddMember adds (or re-roles) a member. Requires the acting user to hold at
// least the Admin role, and refuses to touch the Owner's row — ownership
// transfer is not a membership edit.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, role model.Role, actingUserID string) error {
	if !role.Valid() {
		return apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}
	if role == model.RoleOwner {
		return apperror.ValidationFailed("role", "the owner role cannot be assigned")
	}

	if err := s.requireRole(ctx, actingUserID, teamID, model.RoleAdmin); err != nil {
		return err
	}

	existing, member, err := s.teams.RoleOf(ctx, userID, teamID)
	if err != nil {
		return fmt.Errorf("checking current role: %w", err)
	}
	if member && existing == model.RoleOwner {
		return apperror.Forbidden("the team owner's role cannot be changed")
	}

	if err := s.teams.AddMember(ctx, &model.Membership{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}); err != nil {
		return err
	}

	s.logger.Info("team member added",
		slog.String("teamId", teamID),
		slog.String("userId", userID),
		slog.String("role", string(role)),
	)
	return nil
}

// RemoveMember removes a member. Requires Admin; the Owner cannot be removed.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID, actingUserID string) error {
	if err := s.requireRole(ctx, actingUserID, teamID, model.RoleAdmin); err != nil {
		return err
	}

	role, member, err := s.teams.RoleOf(ctx, userID, teamID)
	if err != nil {
		return fmt.Errorf("checking current role: %w", err)
	}
	if !member {
		return apperror.NotFound("membership", userID)
	}
	if role == model.RoleOwner {
		return apperror.Forbidden("the team owner cannot be removed")
	}

	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return err
	}

	s.logger.Info("team member removed",
		slog.String("teamId", teamID),
		slog.String("userId", userID),
	)
	return nil
}

func (s *TeamService) requireRole(ctx context.Context, userID, teamID string, min model.Role) error {
	role, member, err := s.teams.RoleOf(ctx, userID, teamID)
	if err != nil {
		return fmt.Errorf("checking team role: %w", err)
	}
	if !member || !role.AtLeast(min) {
		return apperror.Forbidden(fmt.Sprintf("you need at least the %s role", min))
	}
	return nil
}
