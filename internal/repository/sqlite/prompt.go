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

// PromptRepo implements repository.PromptRepository.
type PromptRepo struct {
	conn *sql.DB
}

// NewPromptRepo creates the prompt repository backed by db.
func NewPromptRepo(db *DB) *PromptRepo {
	return &PromptRepo{conn: db.conn}
}

// compile-time check that *PromptRepo implements the interface
var _ repository.PromptRepository = (*PromptRepo)(nil)

// visibleClause is the SQL form of the visibility predicate
// (model.Prompt.VisibleTo): a prompt is visible when it is public or owned by
// the viewer. Every listing and counting query in this file uses this exact
// clause — applying the rule in one place is what keeps counts and listings
// consistent with each other.
const visibleClause = `(is_public = 1 OR owner_id = ?)`

const promptColumns = `id, owner_id, category_id, category_label, title,
	content, is_public, created_at, updated_at`

func scanPrompt(scan func(dest ...any) error) (*model.Prompt, error) {
	var (
		p          model.Prompt
		categoryID sql.NullString
	)
	if err := scan(
		&p.ID, &p.OwnerID, &categoryID, &p.CategoryLabel, &p.Title,
		&p.Content, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	return &p, nil
}

// Create inserts a new prompt, generating its ID and timestamps.
func (r *PromptRepo) Create(ctx context.Context, prompt *model.Prompt) error {
	prompt.ID = xid.New().String()
	now := time.Now()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	var categoryID sql.NullString
	if prompt.CategoryID != nil {
		categoryID = sql.NullString{String: *prompt.CategoryID, Valid: true}
	}

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO prompts
		   (id, owner_id, category_id, category_label, title, content,
		    is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prompt.ID,
		prompt.OwnerID,
		categoryID,
		prompt.CategoryLabel,
		prompt.Title,
		prompt.Content,
		prompt.IsPublic,
		prompt.CreatedAt,
		prompt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating prompt: %w", err)
	}
	return nil
}

func (r *PromptRepo) GetByID(ctx context.Context, id string) (*model.Prompt, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)

	prompt, err := scanPrompt(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("prompt", id)
		}
		return nil, fmt.Errorf("sqlite: getting prompt %s: %w", id, err)
	}
	return prompt, nil
}

func (r *PromptRepo) Update(ctx context.Context, prompt *model.Prompt) error {
	prompt.UpdatedAt = time.Now()

	var categoryID sql.NullString
	if prompt.CategoryID != nil {
		categoryID = sql.NullString{String: *prompt.CategoryID, Valid: true}
	}

	result, err := r.conn.ExecContext(ctx,
		`UPDATE prompts
		 SET category_id = ?, category_label = ?, title = ?, content = ?,
		     is_public = ?, updated_at = ?
		 WHERE id = ?`,
		categoryID,
		prompt.CategoryLabel,
		prompt.Title,
		prompt.Content,
		prompt.IsPublic,
		prompt.UpdatedAt,
		prompt.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating prompt %s: %w", prompt.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("prompt", prompt.ID)
	}
	return nil
}

func (r *PromptRepo) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx,
		`DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting prompt %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("prompt", id)
	}
	return nil
}

// ListVisible returns prompts visible to the viewer, newest first.
// An empty viewerID is an anonymous viewer and matches only public prompts
// (owner_id never equals the empty string).
func (r *PromptRepo) ListVisible(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.Prompt, error) {
	limit, offset := clampListOptions(opts)

	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+promptColumns+`
		 FROM prompts
		 WHERE `+visibleClause+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		viewerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing prompts: %w", err)
	}
	defer rows.Close()

	return collectPrompts(rows, limit)
}

// ListByCategory returns the prompts in one category that the viewer may see.
func (r *PromptRepo) ListByCategory(ctx context.Context, categoryID, viewerID string, opts repository.ListOptions) ([]model.Prompt, error) {
	limit, offset := clampListOptions(opts)

	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+promptColumns+`
		 FROM prompts
		 WHERE category_id = ? AND `+visibleClause+`
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		categoryID, viewerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing prompts for category %s: %w", categoryID, err)
	}
	defer rows.Close()

	return collectPrompts(rows, limit)
}

// CountVisibleByCategory counts visible prompts per category in a single
// GROUP BY query. The aggregator calls this once per scope class instead of
// once per category, so listing a user with fifty categories still costs a
// constant number of queries.
func (r *PromptRepo) CountVisibleByCategory(ctx context.Context, categoryIDs []string, viewerID string) (map[string]int, error) {
	counts := make(map[string]int, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.Repeat("?,", len(categoryIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(categoryIDs)+1)
	for _, id := range categoryIDs {
		args = append(args, id)
	}
	args = append(args, viewerID)

	rows, err := r.conn.QueryContext(ctx,
		`SELECT category_id, COUNT(*)
		 FROM prompts
		 WHERE category_id IN (`+placeholders+`) AND `+visibleClause+`
		 GROUP BY category_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting prompts by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			categoryID string
			count      int
		)
		if err := rows.Scan(&categoryID, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning count row: %w", err)
		}
		counts[categoryID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating count rows: %w", err)
	}
	return counts, nil
}

func clampListOptions(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func collectPrompts(rows *sql.Rows, capacity int) ([]model.Prompt, error) {
	prompts := make([]model.Prompt, 0, capacity)
	for rows.Next() {
		p, err := scanPrompt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning prompt row: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating prompts: %w", err)
	}
	return prompts, nil
}
