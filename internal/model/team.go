package model

import "time"

// Role is a user's role within a team. Roles are ordered:
//
//	Viewer < Editor < Admin < Owner
//
// Stored as strings (readable in the database and in JSON) with the ordering
// defined by rank() rather than by the string values themselves.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// rank maps each role to its position in the ordering. Unknown roles rank
// below Viewer so a corrupted value never grants permissions.
func (r Role) rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	case RoleOwner:
		return 4
	default:
		return 0
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool { return r.rank() > 0 }

// AtLeast reports whether r grants at least the permissions of min.
func (r Role) AtLeast(min Role) bool { return r.rank() >= min.rank() }

// CanManageCategories reports whether the role may create, update, or delete
// team-scoped categories. Editor and above qualify; Viewer is read-only.
func (r Role) CanManageCategories() bool { return r.AtLeast(RoleEditor) }

// Team is a named group of users who share team-scoped categories.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Membership is one user's active membership row in one team.
type Membership struct {
	TeamID   string    `json:"teamId"`
	UserID   string    `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
