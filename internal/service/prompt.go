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

const (
	MaxPromptTitleLength   = 200
	MaxPromptContentLength = 100000 // ~100KB of prompt text
)

// PromptInput carries the writable fields of a prompt.
type PromptInput struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CategoryID *string `json:"categoryId"` // nil → file under Uncategorized
	IsPublic   bool    `json:"isPublic"`
}

// PromptService handles business logic for prompts.
//
// It leans on the CategoryService for every category decision: whether the
// acting user may file a prompt into a category (CanUse) and which category
// is the fallback when none was chosen (EnsureUncategorized). Ownership of
// the prompt itself is simpler — only the creator may modify or delete it.
type PromptService struct {
	prompts    repository.PromptRepository
	categories *CategoryService
	logger     *slog.Logger
}

// NewPromptService creates a new PromptService.
func NewPromptService(prompts repository.PromptRepository, categories *CategoryService, logger *slog.Logger) *PromptService {
	return &PromptService{
		prompts:    prompts,
		categories: categories,
		logger:     logger,
	}
}

// Create validates and saves a new prompt for the acting user.
// Without an explicit category, the prompt lands in the user's Uncategorized
// category (provisioning it on first use).
func (s *PromptService) Create(ctx context.Context, input PromptInput, actingUserID string) (*model.Prompt, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "prompt title is required")
	}
	if len(title) > MaxPromptTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("prompt title must be %d characters or less", MaxPromptTitleLength))
	}
	if len(input.Content) > MaxPromptContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("prompt content must be %d characters or less", MaxPromptContentLength))
	}

	categoryID, err := s.resolveCategory(ctx, input.CategoryID, actingUserID)
	if err != nil {
		return nil, err
	}

	prompt := &model.Prompt{
		OwnerID:    actingUserID,
		CategoryID: categoryID,
		Title:      title,
		Content:    input.Content,
		IsPublic:   input.IsPublic,
	}
	if err := s.prompts.Create(ctx, prompt); err != nil {
		s.logger.Error("failed to create prompt",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating prompt: %w", err)
	}

	s.logger.Info("prompt created",
		slog.String("id", prompt.ID),
		slog.String("ownerId", prompt.OwnerID),
	)
	return prompt, nil
}

// GetByID returns the prompt if the viewer may see it. A prompt that exists
// but is invisible to the viewer reports NotFound, not Forbidden — the
// endpoint must not confirm the existence of other users' private prompts.
func (s *PromptService) GetByID(ctx context.Context, id, viewerID string) (*model.Prompt, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "prompt ID is required")
	}

	prompt, err := s.prompts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !prompt.VisibleTo(viewerID) {
		return nil, apperror.NotFound("prompt", id)
	}
	return prompt, nil
}

// List returns the prompts visible to the viewer, newest first.
func (s *PromptService) List(ctx context.Context, viewerID string, limit, offset int) ([]model.Prompt, error) {
	prompts, err := s.prompts.ListVisible(ctx, viewerID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list prompts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	return prompts, nil
}

// ListByCategory returns the visible prompts of one category. The viewer
// must be able to use the category at all (owner, team member, or public);
// inside it, the visibility predicate still filters per prompt.
func (s *PromptService) ListByCategory(ctx context.Context, categoryID, viewerID string, limit, offset int) ([]model.Prompt, error) {
	ok, err := s.categories.CanUse(ctx, viewerID, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you do not have access to this category")
	}

	prompts, err := s.prompts.ListByCategory(ctx, categoryID, viewerID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list prompts by category",
			slog.String("categoryId", categoryID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing prompts by category: %w", err)
	}
	return prompts, nil
}

// Update modifies a prompt. Only the owner may update, regardless of the
// prompt's public flag or the category it sits in. A prompt the acting user
// cannot even see reads as missing, same as GetByID, so a write attempt never
// confirms that a hidden prompt exists.
func (s *PromptService) Update(ctx context.Context, id string, input PromptInput, actingUserID string) (*model.Prompt, error) {
	prompt, err := s.prompts.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !prompt.VisibleTo(actingUserID) {
		return nil, apperror.NotFound("prompt", prompt.ID)
	}
	if prompt.OwnerID != actingUserID {
		return nil, apperror.Forbidden("only the owner can modify a prompt")
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		if len(title) > MaxPromptTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("prompt title must be %d characters or less", MaxPromptTitleLength))
		}
		prompt.Title = title
	}
	if len(input.Content) > MaxPromptContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("prompt content must be %d characters or less", MaxPromptContentLength))
	}
	prompt.Content = input.Content
	prompt.IsPublic = input.IsPublic

	if input.CategoryID != nil {
		categoryID, err := s.resolveCategory(ctx, input.CategoryID, actingUserID)
		if err != nil {
			return nil, err
		}
		prompt.CategoryID = categoryID
		prompt.CategoryLabel = "" // moving into a real category clears the legacy label
	}

	if err := s.prompts.Update(ctx, prompt); err != nil {
		s.logger.Error("failed to update prompt",
			slog.String("id", prompt.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating prompt: %w", err)
	}

	s.logger.Info("prompt updated", slog.String("id", prompt.ID))
	return prompt, nil
}

// Delete removes a prompt. Owner only; invisible prompts read as missing,
// same as GetByID and Update.
func (s *PromptService) Delete(ctx context.Context, id, actingUserID string) error {
	prompt, err := s.prompts.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !prompt.VisibleTo(actingUserID) {
		return apperror.NotFound("prompt", prompt.ID)
	}
	if prompt.OwnerID != actingUserID {
		return apperror.Forbidden("only the owner can delete a prompt")
	}

	if err := s.prompts.Delete(ctx, prompt.ID); err != nil {
		return err
	}

	s.logger.Info("prompt deleted", slog.String("id", prompt.ID))
	return nil
}

// resolveCategory turns the caller's (possibly absent) category choice into
// a concrete category ID the acting user may file prompts into.
func (s *PromptService) resolveCategory(ctx context.Context, requested *string, actingUserID string) (*string, error) {
	if requested == nil || *requested == "" {
		fallback, err := s.categories.EnsureUncategorized(ctx, actingUserID)
		if err != nil {
			return nil, err
		}
		return &fallback.ID, nil
	}

	ok, err := s.categories.CanUse(ctx, actingUserID, *requested)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("you do not have access to this category")
	}
	return requested, nil
}
