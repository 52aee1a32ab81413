// Package repository defines the storage interfaces consumed by the service
// layer. The sqlite subpackage provides the real implementation; tests supply
// in-memory mocks.
package repository

import (
	"context"

	"github.com/promptdeck/promptdeck/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// CategoryRepository stores categories.
//
// Reads come in two flavours: GetByID returns the row whether or not it is
// active (the service decides how to treat deactivated rows), while the
// FindActive*/ListActive* methods never return deactivated rows — soft-deleted
// categories are invisible to every listing and every uniqueness check.
type CategoryRepository interface {
	Create(ctx context.Context, cat *model.Category) error
	GetByID(ctx context.Context, id string) (*model.Category, error)

	// FindActiveByName looks up the single active category with this name in
	// this scope. Returns apperror.NotFound when none exists. This is the
	// uniqueness probe the service runs before insert and rename.
	FindActiveByName(ctx context.Context, name string, scope model.Scope) (*model.Category, error)

	// ListActiveForViewer returns every active category the viewer may see:
	// their own personal categories, categories of the given teams, and —
	// when includePublic is set — all public categories.
	ListActiveForViewer(ctx context.Context, viewerID string, teamIDs []string, includePublic bool) ([]model.Category, error)

	// ListActiveByScope returns the active categories of one exact scope
	// (used for the per-team listing).
	ListActiveByScope(ctx context.Context, scope model.Scope) ([]model.Category, error)

	Update(ctx context.Context, cat *model.Category) error

	// Deactivate soft-deletes: sets is_active to false. The row stays.
	Deactivate(ctx context.Context, id string) error

	// EnsureReserved atomically gets or creates the viewer's reserved
	// category: insert, and on uniqueness conflict re-select the surviving
	// row. Two concurrent first-time callers must both receive the same row.
	// The conflict is resolved at the database level (partial unique index),
	// not with in-process locking, because the server may run multi-instance.
	EnsureReserved(ctx context.Context, cat *model.Category) (*model.Category, error)
}

// PromptRepository stores prompts. Every listing and counting method takes
// the viewer's ID and applies the visibility predicate
// (is_public OR owner_id = viewer) inside the query, so a caller cannot
// accidentally enumerate rows the viewer must not see.
type PromptRepository interface {
	Create(ctx context.Context, prompt *model.Prompt) error
	GetByID(ctx context.Context, id string) (*model.Prompt, error)
	Update(ctx context.Context, prompt *model.Prompt) error
	Delete(ctx context.Context, id string) error

	ListVisible(ctx context.Context, viewerID string, opts ListOptions) ([]model.Prompt, error)
	ListByCategory(ctx context.Context, categoryID, viewerID string, opts ListOptions) ([]model.Prompt, error)

	// CountVisibleByCategory returns categoryID → number of prompts visible
	// to the viewer, for all given categories in ONE query. Categories with
	// zero visible prompts are absent from the map. The aggregator calls this
	// once per scope class, keeping query count independent of how many
	// categories a user has.
	CountVisibleByCategory(ctx context.Context, categoryIDs []string, viewerID string) (map[string]int, error)
}

// MembershipOracle answers team-membership questions. The category engine
// consumes only this narrow view of the team store.
type MembershipOracle interface {
	// ActiveMemberships returns every team the user currently belongs to,
	// with their role in each.
	ActiveMemberships(ctx context.Context, userID string) ([]model.Membership, error)

	// RoleOf returns the user's role in the team. ok is false when the user
	// is not a member at all.
	RoleOf(ctx context.Context, userID, teamID string) (role model.Role, ok bool, err error)
}

// TeamRepository stores teams and membership rows.
type TeamRepository interface {
	MembershipOracle

	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	ListForUser(ctx context.Context, userID string) ([]model.Team, error)
	AddMember(ctx context.Context, m *model.Membership) error
	RemoveMember(ctx context.Context, teamID, userID string) error
}

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
