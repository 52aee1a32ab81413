// Package service contains the business logic layer of the application.
//
// The category service below is the heart of the system: it owns every
// decision about which scoped container a prompt belongs to, who may touch a
// container, and how many prompts inside it a given viewer can see. The HTTP
// handlers above it only translate; the repositories below it only store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/repository"
)

const (
	MaxCategoryNameLength = 100

	// DefaultUncategorizedName is the display name of the reserved fallback
	// category every user owns. It is a configurable default, not a
	// hard-coded literal: deployments pass their own (possibly localized)
	// name to NewCategoryService, and the reserved row is identified by its
	// IsReserved flag, never by this string.
	DefaultUncategorizedName = "Uncategorized"

	// Fixed display metadata for provisioned Uncategorized categories.
	uncategorizedColor       = "#9ca3af"
	uncategorizedDescription = "Prompts that have not been filed anywhere else"
)

// CategoryGroups is the grouped listing shape returned to the main
// categories endpoint: one bucket per scope class, each category annotated
// with its viewer-specific prompt count.
type CategoryGroups struct {
	Personal []model.Category `json:"personal"`
	Team     []model.Category `json:"team"`
	Public   []model.Category `json:"public"`
}

// CategoryService resolves category scope, permissions, and per-viewer
// visibility. It consumes the membership oracle for every team decision and
// never caches its answers — all operations are request-scoped and stateless,
// so any number of server instances can run in parallel.
type CategoryService struct {
	categories   repository.CategoryRepository
	prompts      repository.PromptRepository
	oracle       repository.MembershipOracle
	logger       *slog.Logger
	reservedName string
}

// NewCategoryService creates a CategoryService.
// reservedName is the display name for provisioned Uncategorized categories;
// pass "" to use DefaultUncategorizedName.
func NewCategoryService(
	categories repository.CategoryRepository,
	prompts repository.PromptRepository,
	oracle repository.MembershipOracle,
	logger *slog.Logger,
	reservedName string,
) *CategoryService {
	if reservedName == "" {
		reservedName = DefaultUncategorizedName
	}
	return &CategoryService{
		categories:   categories,
		prompts:      prompts,
		oracle:       oracle,
		logger:       logger,
		reservedName: reservedName,
	}
}

// ReservedName returns the configured display name of the Uncategorized
// category.
func (s *CategoryService) ReservedName() string { return s.reservedName }

// Create validates scope and permissions, enforces scoped name uniqueness,
// and inserts a new category.
//
// Scope rules (see model.ParseScope):
//   - personal: the scope key is the acting user, full stop
//   - team: the acting user must hold at least the Editor role in that team
//   - public: anyone may create; only the creator may later manage it
//
// UNIQUENESS AMONG ACTIVE ROWS:
// The (name, scope) uniqueness check runs here as an explicit pre-insert
// query rather than as a database constraint, because soft-deleted rows must
// not block name reuse. The narrow window where two concurrent creates with
// the same name both pass the check is accepted — the loser produces a
// duplicate pair of ordinary categories, a recoverable state, not corruption.
func (s *CategoryService) Create(ctx context.Context, name, scopeType, scopeKey, color, description, actingUserID string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name is required")
	}
	if len(name) > MaxCategoryNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}

	scope, err := model.ParseScope(scopeType, scopeKey, actingUserID)
	if err != nil {
		return nil, apperror.ValidationFailed("scope", err.Error())
	}

	if scope.Type() == model.ScopeTeam {
		role, member, err := s.oracle.RoleOf(ctx, actingUserID, scope.Key())
		if err != nil {
			return nil, fmt.Errorf("checking team role: %w", err)
		}
		if !member || !role.CanManageCategories() {
			return nil, apperror.Forbidden("you need at least the editor role to create team categories")
		}
	}

	// The reserved name is owned by the provisioner in personal scope —
	// allowing an ordinary category to claim it would leave the user with
	// two identically named personal categories once ensure() runs.
	if scope.Type() == model.ScopePersonal && name == s.reservedName {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("%q is reserved for the default category", s.reservedName))
	}

	if err := s.checkNameAvailable(ctx, name, scope, ""); err != nil {
		return nil, err
	}

	cat := &model.Category{
		Name:        name,
		Scope:       scope,
		CreatedBy:   actingUserID,
		Color:       strings.TrimSpace(color),
		Description: strings.TrimSpace(description),
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		s.logger.Error("failed to create category",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.Info("category created",
		slog.String("id", cat.ID),
		slog.String("scope", string(cat.Scope.Type())),
	)
	return cat, nil
}

// Update applies a patch of the mutable fields (name, description, color).
// Scope and creator are immutable after creation.
func (s *CategoryService) Update(ctx context.Context, id string, patch model.CategoryPatch, actingUserID string) (*model.Category, error) {
	cat, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.canManage(ctx, actingUserID, cat)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you do not have permission to modify this category")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "category name cannot be empty")
		}
		if len(name) > MaxCategoryNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
		}
		if name != cat.Name {
			if cat.IsReserved {
				return nil, apperror.ValidationFailed("name", "the default category cannot be renamed")
			}
			// Re-run the uniqueness check, excluding this category's own row.
			if err := s.checkNameAvailable(ctx, name, cat.Scope, cat.ID); err != nil {
				return nil, err
			}
			cat.Name = name
		}
	}
	if patch.Description != nil {
		cat.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Color != nil {
		cat.Color = strings.TrimSpace(*patch.Color)
	}

	if err := s.categories.Update(ctx, cat); err != nil {
		s.logger.Error("failed to update category",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating category: %w", err)
	}

	s.logger.Info("category updated", slog.String("id", cat.ID))
	return cat, nil
}

// Delete soft-deletes a category.
//
// ORDER OF CHECKS:
// The reserved-category check runs BEFORE the permission check. The owner of
// an Uncategorized category trivially passes canManage, and they are exactly
// the caller who must receive the specific "protected" error rather than a
// misleading permission failure.
func (s *CategoryService) Delete(ctx context.Context, id, actingUserID string) error {
	cat, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	if cat.IsReserved {
		return apperror.Protected("the default category cannot be deleted")
	}

	ok, err := s.canManage(ctx, actingUserID, cat)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("you do not have permission to delete this category")
	}

	if err := s.categories.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("category deleted", slog.String("id", id))
	return nil
}

// CanUse reports whether the user may file prompts into (or browse) the
// category. Missing and deactivated categories are unusable, not errors.
//
//	personal → the user is the owner
//	team     → the user is a member, any role
//	public   → always usable
func (s *CategoryService) CanUse(ctx context.Context, userID, categoryID string) (bool, error) {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !cat.IsActive {
		return false, nil
	}

	switch cat.Scope.Type() {
	case model.ScopePersonal:
		return cat.Scope.Key() == userID, nil
	case model.ScopeTeam:
		_, member, err := s.oracle.RoleOf(ctx, userID, cat.Scope.Key())
		if err != nil {
			return false, fmt.Errorf("checking team membership: %w", err)
		}
		return member, nil
	default: // public
		return true, nil
	}
}

// canManage reports whether the user may update or delete the category.
// Distinct from CanUse: a team Viewer can use a team category but not manage
// it, and a random user can use a public category but not manage it.
func (s *CategoryService) canManage(ctx context.Context, userID string, cat *model.Category) (bool, error) {
	switch cat.Scope.Type() {
	case model.ScopeTeam:
		if cat.CreatedBy == userID {
			return true, nil
		}
		role, member, err := s.oracle.RoleOf(ctx, userID, cat.Scope.Key())
		if err != nil {
			return false, fmt.Errorf("checking team role: %w", err)
		}
		return member && role.CanManageCategories(), nil
	default: // personal, public: only the creator
		return cat.CreatedBy == userID, nil
	}
}

// EnsureUncategorized is the idempotent get-or-create for the user's reserved
// fallback category. Safe under concurrent first access: the conflict is
// resolved by the repository's insert-on-conflict, not by locking here, since
// the process may be one of several instances.
func (s *CategoryService) EnsureUncategorized(ctx context.Context, userID string) (*model.Category, error) {
	cat := &model.Category{
		Name:        s.reservedName,
		Scope:       model.PersonalScope(userID),
		CreatedBy:   userID,
		Color:       uncategorizedColor,
		Description: uncategorizedDescription,
		IsReserved:  true,
	}
	ensured, err := s.categories.EnsureReserved(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("ensuring uncategorized category: %w", err)
	}
	return ensured, nil
}

// GetUncategorized returns the user's active reserved category, or NotFound
// if it has never been provisioned. It never returns a deactivated row —
// FindActiveByName only sees active rows.
func (s *CategoryService) GetUncategorized(ctx context.Context, userID string) (*model.Category, error) {
	return s.categories.FindActiveByName(ctx, s.reservedName, model.PersonalScope(userID))
}

// VisibleCategories computes the full set of categories the viewer may see,
// grouped by scope class, each annotated with the number of prompts inside
// it that are visible to THIS viewer.
//
// Steps:
//  1. ensure the fallback category exists, so the result is never empty
//  2. ask the membership oracle for the viewer's teams
//  3. one query for all visible active categories (personal + teams + public)
//  4. batched per-scope-class count queries (see attachCounts)
func (s *CategoryService) VisibleCategories(ctx context.Context, viewerID string) (*CategoryGroups, error) {
	cats, err := s.listVisible(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	groups := &CategoryGroups{
		Personal: []model.Category{},
		Team:     []model.Category{},
		Public:   []model.Category{},
	}
	for _, cat := range cats {
		switch cat.Scope.Type() {
		case model.ScopePersonal:
			groups.Personal = append(groups.Personal, cat)
		case model.ScopeTeam:
			groups.Team = append(groups.Team, cat)
		default:
			groups.Public = append(groups.Public, cat)
		}
	}
	return groups, nil
}

// MyCategories is the flat variant of VisibleCategories: every category the
// viewer may see, including team categories created by other members, in the
// same deterministic order (reserved first, then personal/team/public, then
// name).
func (s *CategoryService) MyCategories(ctx context.Context, viewerID string) ([]model.Category, error) {
	return s.listVisible(ctx, viewerID)
}

// CategoriesForTeam lists one team's active categories with viewer-specific
// counts. Requires membership (any role); outsiders get a permission error,
// not an empty list, so the endpoint can distinguish the two.
func (s *CategoryService) CategoriesForTeam(ctx context.Context, teamID, viewerID string) ([]model.Category, error) {
	if teamID == "" {
		return nil, apperror.ValidationFailed("teamId", "team ID is required")
	}

	_, member, err := s.oracle.RoleOf(ctx, viewerID, teamID)
	if err != nil {
		return nil, fmt.Errorf("checking team membership: %w", err)
	}
	if !member {
		return nil, apperror.Forbidden("you are not a member of this team")
	}

	scope, err := model.TeamScope(teamID)
	if err != nil {
		return nil, apperror.ValidationFailed("teamId", err.Error())
	}
	cats, err := s.categories.ListActiveByScope(ctx, scope)
	if err != nil {
		s.logger.Error("failed to list team categories",
			slog.String("teamId", teamID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing team categories: %w", err)
	}

	s.attachCounts(ctx, viewerID, cats)
	return cats, nil
}

// listVisible is the shared core of VisibleCategories and MyCategories.
func (s *CategoryService) listVisible(ctx context.Context, viewerID string) ([]model.Category, error) {
	if viewerID == "" {
		return nil, apperror.ValidationFailed("viewer", "viewer identity is required")
	}

	if _, err := s.EnsureUncategorized(ctx, viewerID); err != nil {
		return nil, err
	}

	memberships, err := s.oracle.ActiveMemberships(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	teamIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		teamIDs = append(teamIDs, m.TeamID)
	}

	cats, err := s.categories.ListActiveForViewer(ctx, viewerID, teamIDs, true)
	if err != nil {
		s.logger.Error("failed to list categories",
			slog.String("viewerId", viewerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	s.attachCounts(ctx, viewerID, cats)
	return cats, nil
}

// attachCounts fills in PromptCount for every category, batching by scope
// class: one count query for the viewer's personal categories, one for team
// categories, one for public — O(scope classes), never O(categories).
//
// DEGRADE, DON'T FAIL:
// If any count query errors, EVERY category comes back with PromptCount = 0
// and the listing still succeeds. A wrong count is recoverable on the next
// refresh; failing the whole listing would blank the user's sidebar. Zeroing
// across the board, rather than keeping the classes that counted before the
// failure, means the result never mixes real and placeholder numbers. Logged
// loudly so it cannot hide a persistent storage problem.
func (s *CategoryService) attachCounts(ctx context.Context, viewerID string, cats []model.Category) {
	byClass := map[model.ScopeType][]string{}
	for _, cat := range cats {
		t := cat.Scope.Type()
		byClass[t] = append(byClass[t], cat.ID)
	}

	counts := make(map[string]int)
	for class, ids := range byClass {
		classCounts, err := s.prompts.CountVisibleByCategory(ctx, ids, viewerID)
		if err != nil {
			s.logger.Error("prompt count query failed, degrading all counts to zero",
				slog.String("scopeClass", string(class)),
				slog.String("viewerId", viewerID),
				slog.String("error", err.Error()),
			)
			counts = nil
			break
		}
		for id, n := range classCounts {
			counts[id] = n
		}
	}

	for i := range cats {
		cats[i].PromptCount = counts[cats[i].ID]
	}
}

// getActive fetches a category and treats deactivated rows as missing —
// a soft-deleted category is gone for every purpose except history.
func (s *CategoryService) getActive(ctx context.Context, id string) (*model.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "category ID is required")
	}
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cat.IsActive {
		return nil, apperror.NotFound("category", id)
	}
	return cat, nil
}

// checkNameAvailable enforces the one-active-category-per-(name, scope)
// invariant. excludeID skips the row being renamed.
func (s *CategoryService) checkNameAvailable(ctx context.Context, name string, scope model.Scope, excludeID string) error {
	existing, err := s.categories.FindActiveByName(ctx, name, scope)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil // name is free
		}
		return fmt.Errorf("checking name uniqueness: %w", err)
	}
	if existing.ID == excludeID {
		return nil
	}
	return apperror.DuplicateName("category", name)
}
