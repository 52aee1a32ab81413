package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/repository"
	"github.com/rs/xid"
)

// CategoryRepo implements repository.CategoryRepository on the shared
// connection pool. Each entity gets its own repo type so interface method
// names stay clean (Create, GetByID) without colliding across entities.
type CategoryRepo struct {
	conn *sql.DB
}

// NewCategoryRepo creates the category repository backed by db.
func NewCategoryRepo(db *DB) *CategoryRepo {
	return &CategoryRepo{conn: db.conn}
}

// compile-time check that *CategoryRepo implements the interface
var _ repository.CategoryRepository = (*CategoryRepo)(nil)

// categoryColumns is the SELECT list shared by every category query.
// Keeping it in one place means scanCategory can't drift out of sync
// with the column order.
const categoryColumns = `id, name, scope_type, scope_key, created_by,
	color, description, is_active, is_reserved, created_at, updated_at`

// categoryOrder sorts listings deterministically: the reserved Uncategorized
// row first, then personal before team before public, then by name
// (case-sensitive, SQLite's default BINARY collation).
const categoryOrder = `ORDER BY is_reserved DESC,
	CASE scope_type WHEN 'personal' THEN 0 WHEN 'team' THEN 1 ELSE 2 END,
	name`

// scanCategory reads one row into a model.Category, rebuilding the Scope
// variant from its two stored columns. A row that fails scope validation is
// corrupted data and surfaces as an error rather than a half-valid value.
func scanCategory(scan func(dest ...any) error) (*model.Category, error) {
	var (
		cat       model.Category
		scopeType string
		scopeKey  string
	)
	if err := scan(
		&cat.ID, &cat.Name, &scopeType, &scopeKey, &cat.CreatedBy,
		&cat.Color, &cat.Description, &cat.IsActive, &cat.IsReserved,
		&cat.CreatedAt, &cat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	scope, err := model.ScopeFromStorage(model.ScopeType(scopeType), scopeKey)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.ID, err)
	}
	cat.Scope = scope
	return &cat, nil
}

// Create inserts a new category. The scoped name-uniqueness check has already
// run in the service layer; this is a plain insert.
func (r *CategoryRepo) Create(ctx context.Context, cat *model.Category) error {
	cat.ID = xid.New().String()
	now := time.Now()
	cat.CreatedAt = now
	cat.UpdatedAt = now
	cat.IsActive = true

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO categories
		   (id, name, scope_type, scope_key, created_by, color, description,
		    is_active, is_reserved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		cat.ID,
		cat.Name,
		string(cat.Scope.Type()),
		cat.Scope.Key(),
		cat.CreatedBy,
		cat.Color,
		cat.Description,
		cat.IsReserved,
		cat.CreatedAt,
		cat.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating category: %w", err)
	}
	return nil
}

// GetByID returns the category whether or not it is still active — the
// service layer decides how deactivated rows are treated.
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)

	cat, err := scanCategory(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return cat, nil
}

// FindActiveByName is the uniqueness probe: the single active category with
// this name in this scope, or NotFound.
func (r *CategoryRepo) FindActiveByName(ctx context.Context, name string, scope model.Scope) (*model.Category, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE name = ? AND scope_type = ? AND scope_key = ? AND is_active = 1`,
		name, string(scope.Type()), scope.Key(),
	)

	cat, err := scanCategory(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", name)
		}
		return nil, fmt.Errorf("sqlite: finding category %q: %w", name, err)
	}
	return cat, nil
}

// ListActiveForViewer returns every active category visible to the viewer in
// one query: their personal categories, the given teams' categories, and all
// public ones when includePublic is set.
func (r *CategoryRepo) ListActiveForViewer(ctx context.Context, viewerID string, teamIDs []string, includePublic bool) ([]model.Category, error) {
	var (
		clauses []string
		args    []any
	)
	clauses = append(clauses, `(scope_type = 'personal' AND scope_key = ?)`)
	args = append(args, viewerID)

	if len(teamIDs) > 0 {
		placeholders := strings.Repeat("?,", len(teamIDs))
		placeholders = placeholders[:len(placeholders)-1]
		clauses = append(clauses,
			fmt.Sprintf(`(scope_type = 'team' AND scope_key IN (%s))`, placeholders))
		for _, id := range teamIDs {
			args = append(args, id)
		}
	}
	if includePublic {
		clauses = append(clauses, `scope_type = 'public'`)
	}

	query := `SELECT ` + categoryColumns + `
		 FROM categories
		 WHERE is_active = 1 AND (` + strings.Join(clauses, " OR ") + `)
		 ` + categoryOrder

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories for viewer %s: %w", viewerID, err)
	}
	defer rows.Close()

	return collectCategories(rows)
}

// ListActiveByScope returns the active categories of exactly one scope,
// sorted by name with the reserved row (if any) first.
func (r *CategoryRepo) ListActiveByScope(ctx context.Context, scope model.Scope) ([]model.Category, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE is_active = 1 AND scope_type = ? AND scope_key = ?
		 `+categoryOrder,
		string(scope.Type()), scope.Key(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories for scope %s/%s: %w",
			scope.Type(), scope.Key(), err)
	}
	defer rows.Close()

	return collectCategories(rows)
}

func collectCategories(rows *sql.Rows) ([]model.Category, error) {
	categories := []model.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// Update writes the mutable fields. Scope, creator, and the reserved flag are
// immutable after creation and deliberately absent from the SET list.
func (r *CategoryRepo) Update(ctx context.Context, cat *model.Category) error {
	cat.UpdatedAt = time.Now()

	result, err := r.conn.ExecContext(ctx,
		`UPDATE categories
		 SET name = ?, color = ?, description = ?, updated_at = ?
		 WHERE id = ? AND is_active = 1`,
		cat.Name,
		cat.Color,
		cat.Description,
		cat.UpdatedAt,
		cat.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating category %s: %w", cat.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("category", cat.ID)
	}
	return nil
}

// Deactivate soft-deletes a category. The row is kept (prompts may still
// reference it, and the name becomes reusable because every uniqueness check
// scopes over active rows only).
func (r *CategoryRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE categories SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deactivating category %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("category", id)
	}
	return nil
}

// EnsureReserved atomically gets or creates the reserved category for the
// scope carried by cat.
//
// RACE SAFETY WITHOUT LOCKS:
// Two requests can hit this for the same user's very first access at the same
// time — possibly on different server instances, so an in-process mutex would
// not help. Instead:
//
//  1. INSERT ... ON CONFLICT DO NOTHING — the partial unique index
//     idx_categories_reserved guarantees at most one active reserved row per
//     scope, so exactly one concurrent insert wins and the others are no-ops.
//  2. SELECT the surviving row — whichever request created it, everyone reads
//     back the same record.
//
// Sequential calls take the same path and always return the same row.
func (r *CategoryRepo) EnsureReserved(ctx context.Context, cat *model.Category) (*model.Category, error) {
	id := xid.New().String()
	now := time.Now()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO categories
		   (id, name, scope_type, scope_key, created_by, color, description,
		    is_active, is_reserved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, 1, ?, ?)
		 ON CONFLICT DO NOTHING`,
		id,
		cat.Name,
		string(cat.Scope.Type()),
		cat.Scope.Key(),
		cat.CreatedBy,
		cat.Color,
		cat.Description,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ensuring reserved category: %w", err)
	}

	row := r.conn.QueryRowContext(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE scope_type = ? AND scope_key = ? AND is_reserved = 1 AND is_active = 1`,
		string(cat.Scope.Type()), cat.Scope.Key(),
	)
	existing, err := scanCategory(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("sqlite: re-selecting reserved category: %w", err)
	}
	return existing, nil
}
