package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reelchef/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRecipeRepo struct {
	recipes  map[uuid.UUID]*domain.Recipe
	listed   []*domain.Recipe
	bySource *domain.Recipe
	err      error

	lastOwnerID int64
	lastQuery   string
	lastCursor  *time.Time
	lastLimit   int
	deleted     []uuid.UUID
	created     []*domain.Recipe
}

func newFakeRecipeRepo() *fakeRecipeRepo {
	return &fakeRecipeRepo{recipes: make(map[uuid.UUID]*domain.Recipe)}
}

func (f *fakeRecipeRepo) Create(ctx context.Context, recipe *domain.Recipe) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, recipe)
	return nil
}

func (f *fakeRecipeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return recipe, nil
}

func (f *fakeRecipeRepo) GetByOwner(ctx context.Context, ownerID int64, cursor *time.Time, limit int) ([]*domain.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastOwnerID = ownerID
	f.lastCursor = cursor
	f.lastLimit = limit
	if limit < len(f.listed) {
		return f.listed[:limit], nil
	}
	return f.listed, nil
}

func (f *fakeRecipeRepo) Search(ctx context.Context, query string, cursor *time.Time, limit int) ([]*domain.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastQuery = query
	f.lastCursor = cursor
	f.lastLimit = limit
	if limit < len(f.listed) {
		return f.listed[:limit], nil
	}
	return f.listed, nil
}

func (f *fakeRecipeRepo) GetBySourceURL(ctx context.Context, ownerID int64, sourceURL string) (*domain.Recipe, error) {
	if f.bySource != nil && f.bySource.OwnerID == ownerID && f.bySource.SourceURL == sourceURL {
		return f.bySource, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRecipeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.recipes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.recipes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func sampleRecipe(ownerID int64, createdAt time.Time) *domain.Recipe {
	return &domain.Recipe{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   "Lemon Pasta",
		Ingredients: []domain.Ingredient{
			{OrderIndex: 1, Name: "Pasta"},
		},
		Instructions: []domain.InstructionStep{
			{StepNumber: 1, Description: "Boil the pasta."},
		},
		ThumbnailPath: "thumbnails/abc.jpg",
		SourceURL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		SourceType:    domain.PlatformYouTube,
		CreatedAt:     createdAt,
	}
}

func getRecipeRequest(id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/"+id, nil)
	r.SetPathValue("id", id)
	return r
}

func TestGetRecipeByID(t *testing.T) {
	repo := newFakeRecipeRepo()
	recipe := sampleRecipe(42, time.Now())
	repo.recipes[recipe.ID] = recipe
	handler := NewRecipesHandler(testLogger(), repo)

	w := httptest.NewRecorder()
	handler.GetRecipeByID(w, getRecipeRequest(recipe.ID.String()))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got domain.Recipe
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Title != "Lemon Pasta" {
		t.Errorf("title = %q, want %q", got.Title, "Lemon Pasta")
	}
	if len(got.Ingredients) != 1 || len(got.Instructions) != 1 {
		t.Errorf("detail view must include child rows, got %d ingredients, %d instructions",
			len(got.Ingredients), len(got.Instructions))
	}
}

func TestGetRecipeByIDInvalidID(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	w := httptest.NewRecorder()
	handler.GetRecipeByID(w, getRecipeRequest("not-a-uuid"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetRecipeByIDNotFound(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	w := httptest.NewRecorder()
	handler.GetRecipeByID(w, getRecipeRequest(uuid.NewString()))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetRecipesRequiresOwnerID(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	for name, target := range map[string]string{
		"missing":     "/api/v1/recipes",
		"non-numeric": "/api/v1/recipes?owner_id=abc",
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetRecipes(w, httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetRecipesPagination(t *testing.T) {
	repo := newFakeRecipeRepo()
	now := time.Now()
	// Three rows available, page size two: the third row signals another page
	for i := 0; i < 3; i++ {
		repo.listed = append(repo.listed, sampleRecipe(42, now.Add(-time.Duration(i)*time.Hour)))
	}
	handler := NewRecipesHandler(testLogger(), repo)

	w := httptest.NewRecorder()
	handler.GetRecipes(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes?owner_id=42&limit=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if repo.lastOwnerID != 42 {
		t.Errorf("owner_id = %d, want 42", repo.lastOwnerID)
	}
	if repo.lastLimit != 3 {
		t.Errorf("repository limit = %d, want requested+1 = 3", repo.lastLimit)
	}

	var response RecipesResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Recipes) != 2 {
		t.Errorf("page size = %d, want 2", len(response.Recipes))
	}
	if !response.HasMore {
		t.Error("expected has_more = true")
	}
	if response.Cursor == nil {
		t.Fatal("expected a cursor for the next page")
	}
	want := repo.listed[1].CreatedAt.Format(time.RFC3339Nano)
	if *response.Cursor != want {
		t.Errorf("cursor = %q, want %q", *response.Cursor, want)
	}
}

func TestGetRecipesLastPage(t *testing.T) {
	repo := newFakeRecipeRepo()
	repo.listed = []*domain.Recipe{sampleRecipe(42, time.Now())}
	handler := NewRecipesHandler(testLogger(), repo)

	w := httptest.NewRecorder()
	handler.GetRecipes(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes?owner_id=42&limit=5", nil))

	var response RecipesResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.HasMore {
		t.Error("expected has_more = false on the last page")
	}
	if response.Cursor != nil {
		t.Errorf("expected no cursor on the last page, got %q", *response.Cursor)
	}
}

func TestGetRecipesInvalidCursor(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	w := httptest.NewRecorder()
	handler.GetRecipes(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes?owner_id=42&cursor=yesterday", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSearchRecipes(t *testing.T) {
	repo := newFakeRecipeRepo()
	repo.listed = []*domain.Recipe{sampleRecipe(42, time.Now())}
	handler := NewRecipesHandler(testLogger(), repo)

	w := httptest.NewRecorder()
	handler.SearchRecipes(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes/search?q=pasta", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if repo.lastQuery != "pasta" {
		t.Errorf("query = %q, want %q", repo.lastQuery, "pasta")
	}
}

func TestSearchRecipesValidation(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	longQuery := strings.Repeat("a", maxSearchQueryLength+1)
	for name, target := range map[string]string{
		"missing query": "/api/v1/recipes/search",
		"blank query":   "/api/v1/recipes/search?q=%20%20",
		"too long":      "/api/v1/recipes/search?q=" + longQuery,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.SearchRecipes(w, httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestDeleteRecipe(t *testing.T) {
	repo := newFakeRecipeRepo()
	recipe := sampleRecipe(42, time.Now())
	repo.recipes[recipe.ID] = recipe
	handler := NewRecipesHandler(testLogger(), repo)

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/recipes/"+recipe.ID.String(), nil)
	r.SetPathValue("id", recipe.ID.String())
	w := httptest.NewRecorder()
	handler.DeleteRecipe(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != recipe.ID {
		t.Errorf("expected %s deleted, got %v", recipe.ID, repo.deleted)
	}
}

func TestDeleteRecipeNotFound(t *testing.T) {
	handler := NewRecipesHandler(testLogger(), newFakeRecipeRepo())

	id := uuid.NewString()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/recipes/"+id, nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()
	handler.DeleteRecipe(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultPaginationLimit},
		{"10", 10},
		{"100", 100},
		{"101", DefaultPaginationLimit},
		{"0", DefaultPaginationLimit},
		{"-5", DefaultPaginationLimit},
		{"abc", DefaultPaginationLimit},
	}

	for _, tt := range tests {
		target := "/api/v1/recipes"
		if tt.raw != "" {
			target += "?limit=" + tt.raw
		}
		r := httptest.NewRequest(http.MethodGet, target, nil)
		if got := parseLimit(r); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
