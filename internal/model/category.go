package model

import "time"

// Category is a named, scoped container that prompts may belong to.
//
// SOFT DELETE:
// Categories are never removed from the database — deleting one sets
// IsActive to false. Name uniqueness is therefore enforced only among
// ACTIVE rows with the same scope, so a deleted category's name can be
// reused (see the category service, which runs the uniqueness check).
//
// CreatedBy vs the scope key:
// For a personal category these are the same user. For a team category
// they can differ — any member with the Editor role may create a category
// in the team's space, and the team (not the creator) owns it.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Scope       Scope     `json:"scope"`
	CreatedBy   string    `json:"createdBy"`
	Color       string    `json:"color"`       // display metadata, no invariants
	Description string    `json:"description"` // display metadata, no invariants
	IsActive    bool      `json:"isActive"`

	// IsReserved marks the user's Uncategorized category. The reserved row is
	// identified by this flag rather than by its display name, because the
	// name is a configurable constant — a deployment that changes (or
	// localizes) it must not orphan previously provisioned rows. Reserved
	// categories can never be deleted or renamed.
	IsReserved bool      `json:"isReserved"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// PromptCount is a virtual field populated by the aggregator: the number
	// of prompts in this category VISIBLE TO THE REQUESTING VIEWER. It is
	// never read from or written to storage.
	PromptCount int `json:"promptCount"`
}

// CategoryPatch carries the updatable fields of a category.
// Scope and creator are immutable after creation, so they are absent here.
// Nil means "leave unchanged"; a pointer to the empty string clears the field
// (valid for description, rejected for name by the service).
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}
