// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"fmt"
)

// ScopeType identifies the ownership domain of a category.
type ScopeType string

const (
	ScopePersonal ScopeType = "personal"
	ScopeTeam     ScopeType = "team"
	ScopePublic   ScopeType = "public"
)

// Scope is the ownership domain of a category: exactly one of
// Personal(userID), Team(teamID), or Public.
//
// WHY A CLOSED VARIANT INSTEAD OF type + nullable key FIELDS?
// With two raw fields ("team" + key=""), an invalid combination is a value you
// have to remember to validate everywhere. With unexported fields and
// validating constructors, an invalid Scope simply cannot be built — a Team
// scope always carries a team ID, a Public scope never carries a key, and a
// Personal scope's key is always the owning user. Every function that receives
// a Scope can trust it without re-checking.
//
// The zero value is deliberately invalid (empty type); repositories and
// services must go through the constructors below.
type Scope struct {
	typ ScopeType
	key string // user ID for personal, team ID for team, empty for public
}

// PersonalScope returns the scope owned by a single user.
// The key is always the acting user's ID — personal categories cannot be
// created on behalf of another user, so there is no constructor that accepts
// a separate key.
func PersonalScope(userID string) Scope {
	return Scope{typ: ScopePersonal, key: userID}
}

// TeamScope returns the scope owned by a team.
// A team scope without a team ID is meaningless, so this errors rather than
// producing a half-built value.
func TeamScope(teamID string) (Scope, error) {
	if teamID == "" {
		return Scope{}, fmt.Errorf("model: team scope requires a team id")
	}
	return Scope{typ: ScopeTeam, key: teamID}, nil
}

// PublicScope returns the globally shared scope. It has no owning key.
func PublicScope() Scope {
	return Scope{typ: ScopePublic}
}

// ParseScope builds a Scope from raw request input.
//
// Rules:
//   - "personal": the key is forced to actingUserID. A caller-supplied key
//     that names a DIFFERENT user is rejected, not silently overridden —
//     it almost certainly indicates a client bug (or an attempt to create
//     a category in someone else's personal space).
//   - "team": rawKey must be present.
//   - "public": rawKey must be absent.
func ParseScope(rawType, rawKey, actingUserID string) (Scope, error) {
	switch ScopeType(rawType) {
	case ScopePersonal:
		if rawKey != "" && rawKey != actingUserID {
			return Scope{}, fmt.Errorf("model: personal scope key must be the acting user")
		}
		return PersonalScope(actingUserID), nil
	case ScopeTeam:
		if rawKey == "" {
			return Scope{}, fmt.Errorf("model: team scope requires a team id")
		}
		return TeamScope(rawKey)
	case ScopePublic:
		if rawKey != "" {
			return Scope{}, fmt.Errorf("model: public scope takes no key")
		}
		return PublicScope(), nil
	default:
		return Scope{}, fmt.Errorf("model: unknown scope type %q", rawType)
	}
}

// ScopeFromStorage rebuilds a Scope from its two stored columns.
// Used by the repository layer when scanning rows; applies the same
// validation as the constructors so a corrupted row surfaces immediately
// instead of flowing through permission checks as a malformed value.
func ScopeFromStorage(typ ScopeType, key string) (Scope, error) {
	switch typ {
	case ScopePersonal:
		if key == "" {
			return Scope{}, fmt.Errorf("model: stored personal scope has no owner")
		}
		return PersonalScope(key), nil
	case ScopeTeam:
		return TeamScope(key)
	case ScopePublic:
		if key != "" {
			return Scope{}, fmt.Errorf("model: stored public scope has a key")
		}
		return PublicScope(), nil
	default:
		return Scope{}, fmt.Errorf("model: unknown stored scope type %q", typ)
	}
}

// Type returns the scope variant.
func (s Scope) Type() ScopeType { return s.typ }

// Key returns the owning user ID (personal) or team ID (team).
// Public scopes return "".
func (s Scope) Key() string { return s.key }

// IsZero reports whether the scope was never constructed. A zero scope is
// invalid and must not be persisted.
func (s Scope) IsZero() bool { return s.typ == "" }

// Rank returns the deterministic sort position of the scope type:
// personal categories sort before team categories, which sort before
// public ones. Ties are broken by name at the call site.
func (s Scope) Rank() int {
	switch s.typ {
	case ScopePersonal:
		return 0
	case ScopeTeam:
		return 1
	default:
		return 2
	}
}

// scopeJSON is the wire shape of a Scope. The key is omitted for public.
type scopeJSON struct {
	Type ScopeType `json:"type"`
	Key  string    `json:"key,omitempty"`
}

// MarshalJSON serializes the scope as {"type":"team","key":"..."}.
// A custom marshaller is needed because the fields are unexported.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(scopeJSON{Type: s.typ, Key: s.key})
}

// UnmarshalJSON rebuilds a scope from its wire shape, re-validating it.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var raw scopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ScopeFromStorage(raw.Type, raw.Key)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
