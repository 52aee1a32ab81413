package model

import (
	"encoding/json"
	"testing"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name     string
		rawType  string
		rawKey   string
		acting   string
		wantType ScopeType
		wantKey  string
		wantErr  bool
	}{
		{
			name:     "personal key forced to acting user",
			rawType:  "personal",
			acting:   "user-a",
			wantType: ScopePersonal,
			wantKey:  "user-a",
		},
		{
			name:     "personal key naming the acting user is accepted",
			rawType:  "personal",
			rawKey:   "user-a",
			acting:   "user-a",
			wantType: ScopePersonal,
			wantKey:  "user-a",
		},
		{
			name:    "personal key naming another user is rejected",
			rawType: "personal",
			rawKey:  "user-b",
			acting:  "user-a",
			wantErr: true,
		},
		{
			name:     "team scope carries the team id",
			rawType:  "team",
			rawKey:   "team-1",
			acting:   "user-a",
			wantType: ScopeTeam,
			wantKey:  "team-1",
		},
		{
			name:    "team scope without a key is rejected",
			rawType: "team",
			acting:  "user-a",
			wantErr: true,
		},
		{
			name:     "public scope takes no key",
			rawType:  "public",
			acting:   "user-a",
			wantType: ScopePublic,
		},
		{
			name:    "public scope with a key is rejected",
			rawType: "public",
			rawKey:  "anything",
			acting:  "user-a",
			wantErr: true,
		},
		{
			name:    "unknown scope type is rejected",
			rawType: "galaxy",
			acting:  "user-a",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := ParseScope(tt.rawType, tt.rawKey, tt.acting)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseScope(%q, %q) should fail", tt.rawType, tt.rawKey)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScope() error = %v", err)
			}
			if scope.Type() != tt.wantType || scope.Key() != tt.wantKey {
				t.Errorf("scope = %v/%q, want %v/%q", scope.Type(), scope.Key(), tt.wantType, tt.wantKey)
			}
		})
	}
}

func TestScopeFromStorage(t *testing.T) {
	// Valid rows rebuild exactly.
	scope, err := ScopeFromStorage(ScopeTeam, "team-1")
	if err != nil {
		t.Fatalf("ScopeFromStorage() error = %v", err)
	}
	if scope.Type() != ScopeTeam || scope.Key() != "team-1" {
		t.Errorf("scope = %v/%q", scope.Type(), scope.Key())
	}

	// Corrupted rows surface as errors instead of half-valid scopes.
	corrupted := []struct {
		typ ScopeType
		key string
	}{
		{ScopePersonal, ""},
		{ScopeTeam, ""},
		{ScopePublic, "stray-key"},
		{ScopeType("galaxy"), ""},
	}
	for _, c := range corrupted {
		if _, err := ScopeFromStorage(c.typ, c.key); err == nil {
			t.Errorf("ScopeFromStorage(%q, %q) should fail", c.typ, c.key)
		}
	}
}

func TestScopeRank(t *testing.T) {
	personal := PersonalScope("user-a")
	team, _ := TeamScope("team-1")
	public := PublicScope()

	if !(personal.Rank() < team.Rank() && team.Rank() < public.Rank()) {
		t.Errorf("ordering broken: personal=%d team=%d public=%d",
			personal.Rank(), team.Rank(), public.Rank())
	}
}

func TestScopeZeroValue(t *testing.T) {
	var s Scope
	if !s.IsZero() {
		t.Error("uninitialized scope should report IsZero")
	}
	if PersonalScope("u").IsZero() {
		t.Error("constructed scope should not report IsZero")
	}
}

func TestScopeJSONRoundtrip(t *testing.T) {
	team, _ := TeamScope("team-1")

	data, err := json.Marshal(team)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Scope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded != team {
		t.Errorf("roundtrip = %+v, want %+v", decoded, team)
	}

	// The public wire form omits the key entirely.
	data, _ = json.Marshal(PublicScope())
	if string(data) != `{"type":"public"}` {
		t.Errorf("public JSON = %s, want {\"type\":\"public\"}", data)
	}

	// A tampered wire value fails validation rather than producing a
	// half-valid scope.
	if err := json.Unmarshal([]byte(`{"type":"team"}`), &decoded); err == nil {
		t.Error("team scope without a key should fail to unmarshal")
	}
}
