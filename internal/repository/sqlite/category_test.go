package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Benefits:
// - Fast: no disk I/O
// - Isolated: each test gets its own database
// - Clean: automatically destroyed when the connection closes
//
// newTestDB is a "test helper" — a function used only in tests to reduce boilerplate.
// The `t.Helper()` call tells Go's test framework to report errors at the CALLER's
// line number, not inside this function. This makes test failure output much clearer.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	// t.Cleanup registers a function to run when the test finishes.
	// This is like defer, but scoped to the test — even works in subtests.
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser satisfies the foreign key on created_by/owner_id. Category and
// prompt tests reference users by fixed IDs, so we insert the row directly
// rather than going through UserRepo (which generates its own IDs).
func seedUser(t *testing.T, db *DB, id string) {
	t.Helper()
	if _, err := db.conn.Exec(`INSERT INTO users (id) VALUES (?)`, id); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func createTestCategory(t *testing.T, repo *CategoryRepo, name string, scope model.Scope, createdBy string) *model.Category {
	t.Helper()
	cat := &model.Category{Name: name, Scope: scope, CreatedBy: createdBy}
	if err := repo.Create(context.Background(), cat); err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return cat
}

func mustTeamScope(t *testing.T, teamID string) model.Scope {
	t.Helper()
	scope, err := model.TeamScope(teamID)
	if err != nil {
		t.Fatalf("TeamScope(%q) error = %v", teamID, err)
	}
	return scope
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestCategoryCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	cat := &model.Category{
		Name:        "Work",
		Scope:       model.PersonalScope("user-a"),
		CreatedBy:   "user-a",
		Color:       "#ff0000",
		Description: "work prompts",
	}
	if err := repo.Create(context.Background(), cat); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if cat.ID == "" {
		t.Error("Create() did not set cat.ID")
	}
	if !cat.IsActive {
		t.Error("Create() should mark the category active")
	}

	found, err := repo.GetByID(context.Background(), cat.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Name != "Work" || found.Color != "#ff0000" {
		t.Errorf("roundtrip mismatch: got %+v", found)
	}
	// The Scope variant is rebuilt from its two stored columns.
	if found.Scope.Type() != model.ScopePersonal || found.Scope.Key() != "user-a" {
		t.Errorf("Scope = %v/%q, want personal/user-a", found.Scope.Type(), found.Scope.Key())
	}
}

func TestCategoryGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewCategoryRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FIND-BY-NAME TESTS
// =========================================================================

func TestFindActiveByName(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	repo := NewCategoryRepo(db)

	created := createTestCategory(t, repo, "Work", model.PersonalScope("user-a"), "user-a")

	found, err := repo.FindActiveByName(context.Background(), "Work", model.PersonalScope("user-a"))
	if err != nil {
		t.Fatalf("FindActiveByName() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}

	// The same name in a DIFFERENT scope is a different namespace.
	_, err = repo.FindActiveByName(context.Background(), "Work", model.PersonalScope("user-b"))
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("other scope: error = %v, want ErrNotFound", err)
	}
}

func TestFindActiveByName_IgnoresDeactivated(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	created := createTestCategory(t, repo, "Work", model.PersonalScope("user-a"), "user-a")
	if err := repo.Deactivate(context.Background(), created.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	// The soft-deleted row no longer blocks the name.
	_, err := repo.FindActiveByName(context.Background(), "Work", model.PersonalScope("user-a"))
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LISTING TESTS
// =========================================================================

func TestListActiveForViewer(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	repo := NewCategoryRepo(db)

	createTestCategory(t, repo, "Mine", model.PersonalScope("user-a"), "user-a")
	createTestCategory(t, repo, "Theirs", model.PersonalScope("user-b"), "user-b")
	createTestCategory(t, repo, "Sprints", mustTeamScope(t, "team-1"), "user-a")
	createTestCategory(t, repo, "Other Team", mustTeamScope(t, "team-2"), "user-b")
	createTestCategory(t, repo, "Shared", model.PublicScope(), "user-b")

	cats, err := repo.ListActiveForViewer(context.Background(), "user-a", []string{"team-1"}, true)
	if err != nil {
		t.Fatalf("ListActiveForViewer() error = %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("got %d categories, want 3 (Mine, Sprints, Shared)", len(cats))
	}
	for _, cat := range cats {
		if cat.Name == "Theirs" || cat.Name == "Other Team" {
			t.Errorf("category %q must not be visible to user-a", cat.Name)
		}
	}

	// Without the public flag only personal + team rows come back.
	cats, err = repo.ListActiveForViewer(context.Background(), "user-a", []string{"team-1"}, false)
	if err != nil {
		t.Fatalf("ListActiveForViewer(no public) error = %v", err)
	}
	if len(cats) != 2 {
		t.Errorf("got %d categories, want 2", len(cats))
	}
}

func TestListActiveForViewer_Order(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	// Insert out of order on purpose.
	createTestCategory(t, repo, "Zebra", model.PublicScope(), "user-a")
	createTestCategory(t, repo, "Beta", model.PersonalScope("user-a"), "user-a")
	createTestCategory(t, repo, "Alpha", model.PersonalScope("user-a"), "user-a")

	reserved, err := repo.EnsureReserved(context.Background(), &model.Category{
		Name:       "Uncategorized",
		Scope:      model.PersonalScope("user-a"),
		CreatedBy:  "user-a",
		IsReserved: true,
	})
	if err != nil {
		t.Fatalf("EnsureReserved() error = %v", err)
	}

	cats, err := repo.ListActiveForViewer(context.Background(), "user-a", nil, true)
	if err != nil {
		t.Fatalf("ListActiveForViewer() error = %v", err)
	}

	// Reserved row first, then personal by name, then public.
	wantOrder := []string{reserved.Name, "Alpha", "Beta", "Zebra"}
	if len(cats) != len(wantOrder) {
		t.Fatalf("got %d categories, want %d", len(cats), len(wantOrder))
	}
	for i, want := range wantOrder {
		if cats[i].Name != want {
			t.Errorf("position %d = %q, want %q", i, cats[i].Name, want)
		}
	}
}

func TestListActiveByScope(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	createTestCategory(t, repo, "Sprints", mustTeamScope(t, "team-1"), "user-a")
	createTestCategory(t, repo, "Retro", mustTeamScope(t, "team-1"), "user-a")
	createTestCategory(t, repo, "Elsewhere", mustTeamScope(t, "team-2"), "user-a")

	cats, err := repo.ListActiveByScope(context.Background(), mustTeamScope(t, "team-1"))
	if err != nil {
		t.Fatalf("ListActiveByScope() error = %v", err)
	}
	if len(cats) != 2 {
		t.Errorf("got %d categories, want 2", len(cats))
	}
}

// =========================================================================
// UPDATE / DEACTIVATE TESTS
// =========================================================================

func TestCategoryUpdate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	cat := createTestCategory(t, repo, "Work", model.PersonalScope("user-a"), "user-a")
	cat.Name = "Projects"
	cat.Color = "#00ff00"

	if err := repo.Update(context.Background(), cat); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, _ := repo.GetByID(context.Background(), cat.ID)
	if found.Name != "Projects" || found.Color != "#00ff00" {
		t.Errorf("after update: got %+v", found)
	}
}

func TestCategoryUpdate_DeactivatedIsNotFound(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	cat := createTestCategory(t, repo, "Work", model.PersonalScope("user-a"), "user-a")
	repo.Deactivate(context.Background(), cat.ID)

	cat.Name = "Zombie"
	err := repo.Update(context.Background(), cat)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCategoryDeactivate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	cat := createTestCategory(t, repo, "Work", model.PersonalScope("user-a"), "user-a")

	if err := repo.Deactivate(context.Background(), cat.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	// The row survives — only its active flag flips.
	found, err := repo.GetByID(context.Background(), cat.ID)
	if err != nil {
		t.Fatalf("GetByID() after deactivate error = %v", err)
	}
	if found.IsActive {
		t.Error("category should be inactive after Deactivate")
	}

	// A second deactivate targets no active row.
	err = repo.Deactivate(context.Background(), cat.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Deactivate: error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// RESERVED PROVISIONING TESTS
// =========================================================================

func TestEnsureReserved_Idempotent(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	reserved := &model.Category{
		Name:       "Uncategorized",
		Scope:      model.PersonalScope("user-a"),
		CreatedBy:  "user-a",
		IsReserved: true,
	}

	first, err := repo.EnsureReserved(context.Background(), reserved)
	if err != nil {
		t.Fatalf("first EnsureReserved() error = %v", err)
	}
	second, err := repo.EnsureReserved(context.Background(), reserved)
	if err != nil {
		t.Fatalf("second EnsureReserved() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("two ensures returned different rows: %q vs %q", first.ID, second.ID)
	}

	var count int
	db.conn.QueryRow(`SELECT COUNT(*) FROM categories WHERE is_reserved = 1`).Scan(&count)
	if count != 1 {
		t.Errorf("reserved rows = %d, want 1", count)
	}
}

func TestEnsureReserved_Concurrent(t *testing.T) {
	// A file-backed database here: every pooled connection to ":memory:"
	// would get its OWN empty database, which is exactly the multi-connection
	// situation this test needs to exercise against shared storage.
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cat, err := repo.EnsureReserved(context.Background(), &model.Category{
				Name:       "Uncategorized",
				Scope:      model.PersonalScope("user-a"),
				CreatedBy:  "user-a",
				IsReserved: true,
			})
			if err != nil {
				t.Errorf("worker %d: EnsureReserved() error = %v", i, err)
				return
			}
			ids[i] = cat.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Errorf("worker %d got row %q, worker 0 got %q — provisioning raced", i, ids[i], ids[0])
		}
	}

	var count int
	db.conn.QueryRow(`SELECT COUNT(*) FROM categories WHERE is_reserved = 1 AND is_active = 1`).Scan(&count)
	if count != 1 {
		t.Errorf("active reserved rows = %d, want 1", count)
	}
}

func TestEnsureReserved_ReprovisionAfterDeactivate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewCategoryRepo(db)

	reserved := &model.Category{
		Name:       "Uncategorized",
		Scope:      model.PersonalScope("user-a"),
		CreatedBy:  "user-a",
		IsReserved: true,
	}

	first, _ := repo.EnsureReserved(context.Background(), reserved)

	// The partial unique index covers ACTIVE reserved rows only, so after a
	// deactivation (e.g. an admin repair) the provisioner can mint a fresh
	// row instead of being wedged forever.
	if err := repo.Deactivate(context.Background(), first.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	second, err := repo.EnsureReserved(context.Background(), reserved)
	if err != nil {
		t.Fatalf("re-ensure error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a fresh reserved row after the old one was deactivated")
	}
	if !second.IsActive || !second.IsReserved {
		t.Errorf("fresh row flags = active %v reserved %v, want both true", second.IsActive, second.IsReserved)
	}
}
