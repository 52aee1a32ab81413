package model

import "time"

// User is a registered account.
//
// Two sign-in paths produce users:
//   - email + password: Email and PasswordHash are set, GitHubID is 0
//   - GitHub OAuth: GitHubID is set, PasswordHash is empty
//
// A GitHub login whose email matches an existing local account links to that
// account rather than creating a duplicate.
//
// PasswordHash is tagged `json:"-"` so it can never leak into an API
// response, no matter which handler serializes the user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"githubId,omitempty"` // 0 for local accounts
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
