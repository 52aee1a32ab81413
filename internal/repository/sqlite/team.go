package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/repository"
	"github.com/rs/xid"
)

// TeamRepo implements repository.TeamRepository — the team store and, through
// ActiveMemberships/RoleOf, the membership oracle the category engine
// consults for every team permission decision.
type TeamRepo struct {
	conn *sql.DB
}

// NewTeamRepo creates the team repository backed by db.
func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{conn: db.conn}
}

// compile-time check that *TeamRepo implements the interface
var _ repository.TeamRepository = (*TeamRepo)(nil)

// Create inserts the team and its first membership row (the creator as Owner)
// in one transaction — a team without an owner is not a valid state, even
// transiently.
func (r *TeamRepo) Create(ctx context.Context, team *model.Team) error {
	team.ID = xid.New().String()
	now := time.Now()
	team.CreatedAt = now
	team.UpdatedAt = now

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning team transaction: %w", err)
	}
	defer tx.Rollback() // no-op after a successful Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO teams (id, name, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		team.ID, team.Name, team.CreatedBy, team.CreatedAt, team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating team: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)`,
		team.ID, team.CreatedBy, string(model.RoleOwner), now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing team transaction: %w", err)
	}
	return nil
}

func (r *TeamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.conn.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at
		 FROM teams WHERE id = ?`, id,
	).Scan(&team.ID, &team.Name, &team.CreatedBy, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("team", id)
		}
		return nil, fmt.Errorf("sqlite: getting team %s: %w", id, err)
	}
	return &team, nil
}

// ListForUser returns every team the user is a member of.
func (r *TeamRepo) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT t.id, t.name, t.created_by, t.created_at, t.updated_at
		 FROM teams t
		 JOIN team_members m ON m.team_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing teams for user %s: %w", userID, err)
	}
	defer rows.Close()

	teams := []model.Team{}
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating teams: %w", err)
	}
	return teams, nil
}

// AddMember inserts or updates a membership row. Re-adding an existing member
// updates their role instead of erroring — the team_members primary key is
// (team_id, user_id), so the upsert targets that.
func (r *TeamRepo) AddMember(ctx context.Context, m *model.Membership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(team_id, user_id) DO UPDATE SET role = excluded.role`,
		m.TeamID, m.UserID, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding member %s to team %s: %w", m.UserID, m.TeamID, err)
	}
	return nil
}

func (r *TeamRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing member %s from team %s: %w", userID, teamID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("membership", userID)
	}
	return nil
}

// ActiveMemberships returns every membership row for the user.
func (r *TeamRepo) ActiveMemberships(ctx context.Context, userID string) ([]model.Membership, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT team_id, user_id, role, joined_at
		 FROM team_members WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships for user %s: %w", userID, err)
	}
	defer rows.Close()

	memberships := []model.Membership{}
	for rows.Next() {
		var (
			m    model.Membership
			role string
		)
		if err := rows.Scan(&m.TeamID, &m.UserID, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership row: %w", err)
		}
		m.Role = model.Role(role)
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memberships: %w", err)
	}
	return memberships, nil
}

// RoleOf returns the user's role in the team; ok is false for non-members.
func (r *TeamRepo) RoleOf(ctx context.Context, userID, teamID string) (model.Role, bool, error) {
	var role string
	err := r.conn.QueryRowContext(ctx,
		`SELECT role FROM team_members WHERE user_id = ? AND team_id = ?`,
		userID, teamID,
	).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: looking up role of %s in team %s: %w", userID, teamID, err)
	}
	return model.Role(role), true, nil
}
