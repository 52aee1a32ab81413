package model

import "time"

// Prompt is a saved piece of prompt text owned by a single user.
//
// CategoryID is nullable: prompts imported from older exports may carry only
// a free-text CategoryLabel instead of a real category reference. New prompts
// always get a CategoryID (the owner's Uncategorized category if none was
// chosen), but the engine must tolerate both shapes.
type Prompt struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	CategoryID    *string   `json:"categoryId"`    // nil for legacy label-only rows
	CategoryLabel string    `json:"categoryLabel"` // legacy free-text label, usually ""
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	IsPublic      bool      `json:"isPublic"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// VisibleTo reports whether the prompt may be shown to the given viewer.
//
// This single rule governs every listing and every count in the system:
//
//	visible := prompt.IsPublic OR prompt.OwnerID == viewerID
//
// It is deliberately independent of the category the prompt sits in — a
// private prompt inside a team category is still invisible to other team
// members. Every place that enumerates prompts (list endpoints, per-category
// counts) must apply this exact predicate; the SQL equivalent used by the
// repositories is `is_public = 1 OR owner_id = ?`.
//
// An empty viewerID is an anonymous viewer: only public prompts are visible.
func (p *Prompt) VisibleTo(viewerID string) bool {
	return p.IsPublic || (viewerID != "" && p.OwnerID == viewerID)
}
