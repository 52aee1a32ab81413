package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/promptdeck/promptdeck/internal/apperror"
	"github.com/promptdeck/promptdeck/internal/model"
	"github.com/promptdeck/promptdeck/internal/repository"
)

func createTestPrompt(t *testing.T, repo *PromptRepo, ownerID, title string, categoryID *string, isPublic bool) *model.Prompt {
	t.Helper()
	prompt := &model.Prompt{
		OwnerID:    ownerID,
		CategoryID: categoryID,
		Title:      title,
		Content:    "content of " + title,
		IsPublic:   isPublic,
	}
	if err := repo.Create(context.Background(), prompt); err != nil {
		t.Fatalf("failed to create test prompt: %v", err)
	}
	return prompt
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestPromptCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewPromptRepo(db)

	created := createTestPrompt(t, repo, "user-a", "greeting", nil, false)
	if created.ID == "" {
		t.Error("Create() did not set prompt.ID")
	}

	found, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "greeting" || found.OwnerID != "user-a" {
		t.Errorf("roundtrip mismatch: got %+v", found)
	}
	// A prompt without a category keeps a NULL category_id, not "".
	if found.CategoryID != nil {
		t.Errorf("CategoryID = %v, want nil", found.CategoryID)
	}
}

func TestPromptCreate_WithCategory(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	catRepo := NewCategoryRepo(db)
	repo := NewPromptRepo(db)

	cat := createTestCategory(t, catRepo, "Work", model.PersonalScope("user-a"), "user-a")
	created := createTestPrompt(t, repo, "user-a", "standup", &cat.ID, false)

	found, _ := repo.GetByID(context.Background(), created.ID)
	if found.CategoryID == nil || *found.CategoryID != cat.ID {
		t.Errorf("CategoryID = %v, want %q", found.CategoryID, cat.ID)
	}
}

func TestPromptGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewPromptRepo(db)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VISIBILITY TESTS
// =========================================================================

func TestListVisible(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	repo := NewPromptRepo(db)

	createTestPrompt(t, repo, "user-a", "a-private", nil, false)
	createTestPrompt(t, repo, "user-a", "a-public", nil, true)
	createTestPrompt(t, repo, "user-b", "b-private", nil, false)

	prompts, err := repo.ListVisible(context.Background(), "user-a", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListVisible() error = %v", err)
	}
	if len(prompts) != 2 {
		t.Errorf("user-a sees %d prompts, want 2", len(prompts))
	}
	for _, p := range prompts {
		if p.Title == "b-private" {
			t.Error("another user's private prompt leaked")
		}
	}
}

func TestListVisible_AnonymousSeesOnlyPublic(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewPromptRepo(db)

	createTestPrompt(t, repo, "user-a", "private", nil, false)
	createTestPrompt(t, repo, "user-a", "public", nil, true)

	// An empty viewer ID never matches owner_id, so the predicate reduces
	// to is_public.
	prompts, err := repo.ListVisible(context.Background(), "", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListVisible() error = %v", err)
	}
	if len(prompts) != 1 || prompts[0].Title != "public" {
		t.Errorf("anonymous listing = %+v, want only the public prompt", prompts)
	}
}

func TestListByCategory(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	catRepo := NewCategoryRepo(db)
	repo := NewPromptRepo(db)

	cat := createTestCategory(t, catRepo, "Shared", model.PublicScope(), "user-a")
	other := createTestCategory(t, catRepo, "Other", model.PublicScope(), "user-a")

	createTestPrompt(t, repo, "user-a", "in-cat-public", &cat.ID, true)
	createTestPrompt(t, repo, "user-b", "in-cat-private", &cat.ID, false)
	createTestPrompt(t, repo, "user-a", "elsewhere", &other.ID, true)

	prompts, err := repo.ListByCategory(context.Background(), cat.ID, "user-a", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	// user-b's private prompt in the same category stays hidden.
	if len(prompts) != 1 || prompts[0].Title != "in-cat-public" {
		t.Errorf("listing = %+v, want only in-cat-public", prompts)
	}
}

// =========================================================================
// BATCHED COUNT TESTS
// =========================================================================

func TestCountVisibleByCategory(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	catRepo := NewCategoryRepo(db)
	repo := NewPromptRepo(db)

	work := createTestCategory(t, catRepo, "Work", model.PublicScope(), "user-a")
	empty := createTestCategory(t, catRepo, "Empty", model.PublicScope(), "user-a")

	createTestPrompt(t, repo, "user-a", "p1", &work.ID, true)
	createTestPrompt(t, repo, "user-a", "p2", &work.ID, false)
	createTestPrompt(t, repo, "user-b", "p3", &work.ID, false)

	counts, err := repo.CountVisibleByCategory(context.Background(),
		[]string{work.ID, empty.ID}, "user-a")
	if err != nil {
		t.Fatalf("CountVisibleByCategory() error = %v", err)
	}

	// user-a sees their own two prompts; user-b's private one is invisible.
	if counts[work.ID] != 2 {
		t.Errorf("count[work] = %d, want 2", counts[work.ID])
	}
	// Zero-count categories are simply absent from the map.
	if _, ok := counts[empty.ID]; ok {
		t.Errorf("count map contains the empty category: %v", counts)
	}

	// A different viewer, different answer from the same data.
	counts, err = repo.CountVisibleByCategory(context.Background(),
		[]string{work.ID, empty.ID}, "user-c")
	if err != nil {
		t.Fatalf("CountVisibleByCategory() error = %v", err)
	}
	if counts[work.ID] != 1 {
		t.Errorf("stranger's count[work] = %d, want 1", counts[work.ID])
	}
}

func TestCountVisibleByCategory_NonASCIIName(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	seedUser(t, db, "user-b")
	catRepo := NewCategoryRepo(db)
	repo := NewPromptRepo(db)

	// A deployment configured with the Chinese fallback name. The name is
	// data, never a key: provisioning, lookup, and counting must all work
	// the same as with ASCII names.
	reserved, err := catRepo.EnsureReserved(context.Background(), &model.Category{
		Name:       "未分类",
		Scope:      model.PersonalScope("user-a"),
		CreatedBy:  "user-a",
		IsReserved: true,
	})
	if err != nil {
		t.Fatalf("EnsureReserved() error = %v", err)
	}

	found, err := catRepo.FindActiveByName(context.Background(), "未分类", model.PersonalScope("user-a"))
	if err != nil {
		t.Fatalf("FindActiveByName() error = %v", err)
	}
	if found.ID != reserved.ID {
		t.Errorf("lookup by name returned %q, want %q", found.ID, reserved.ID)
	}

	createTestPrompt(t, repo, "user-a", "p1", &reserved.ID, true)
	createTestPrompt(t, repo, "user-a", "p2", &reserved.ID, false)
	createTestPrompt(t, repo, "user-b", "p3", &reserved.ID, false)

	counts, err := repo.CountVisibleByCategory(context.Background(), []string{reserved.ID}, "user-a")
	if err != nil {
		t.Fatalf("CountVisibleByCategory() error = %v", err)
	}
	if counts[reserved.ID] != 2 {
		t.Errorf("owner count = %d, want 2 (own public + own private)", counts[reserved.ID])
	}

	counts, err = repo.CountVisibleByCategory(context.Background(), []string{reserved.ID}, "user-b")
	if err != nil {
		t.Fatalf("CountVisibleByCategory() error = %v", err)
	}
	if counts[reserved.ID] != 2 {
		t.Errorf("user-b count = %d, want 2 (public + their private)", counts[reserved.ID])
	}
}

func TestCountVisibleByCategory_NoIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewPromptRepo(db)

	counts, err := repo.CountVisibleByCategory(context.Background(), nil, "user-a")
	if err != nil {
		t.Fatalf("CountVisibleByCategory() error = %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("counts = %v, want empty map", counts)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestPromptUpdate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewPromptRepo(db)

	created := createTestPrompt(t, repo, "user-a", "v1", nil, false)
	created.Title = "v2"
	created.IsPublic = true

	if err := repo.Update(context.Background(), created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, _ := repo.GetByID(context.Background(), created.ID)
	if found.Title != "v2" || !found.IsPublic {
		t.Errorf("after update: got %+v", found)
	}
}

func TestPromptUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewPromptRepo(db)

	err := repo.Update(context.Background(), &model.Prompt{ID: "nonexistent", Title: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPromptDelete(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-a")
	repo := NewPromptRepo(db)

	created := createTestPrompt(t, repo, "user-a", "doomed", nil, false)

	if err := repo.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}

	// Deleting again reports the absence.
	if err := repo.Delete(context.Background(), created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}
}
