package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reelchef/internal/domain"
)

// RecipeRepository implements the domain.RecipeRepository interface using PostgreSQL
type RecipeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecipeRepository creates a new PostgreSQL recipe repository
func NewRecipeRepository(db *sql.DB, logger *slog.Logger) *RecipeRepository {
	return &RecipeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a recipe and its ingredient, instruction and tag rows in a
// single transaction
func (r *RecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recipes (
			id, owner_id, title, description,
			prep_time_minutes, cook_time_minutes, serving_size, difficulty,
			thumbnail_path, source_url, source_type, is_synthetic,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.ExecContext(ctx, query,
		recipe.ID,
		recipe.OwnerID,
		recipe.Title,
		recipe.Description,
		recipe.PrepTimeMinutes,
		recipe.CookTimeMinutes,
		recipe.ServingSize,
		recipe.Difficulty,
		recipe.ThumbnailPath,
		recipe.SourceURL,
		recipe.SourceType,
		recipe.IsSynthetic,
		recipe.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert recipe",
			"error", err,
			"recipe_id", recipe.ID,
		)
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	for _, ingredient := range recipe.Ingredients {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, order_index, name, quantity, unit, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			recipe.ID,
			ingredient.OrderIndex,
			ingredient.Name,
			ingredient.Quantity,
			ingredient.Unit,
			ingredient.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient %d: %w", ingredient.OrderIndex, err)
		}
	}

	for _, step := range recipe.Instructions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_instructions (recipe_id, step_number, description)
			VALUES ($1, $2, $3)`,
			recipe.ID,
			step.StepNumber,
			step.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert instruction %d: %w", step.StepNumber, err)
		}
	}

	for _, tag := range recipe.Tags {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recipe_tags (recipe_id, tag)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			recipe.ID,
			tag,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe transaction: %w", err)
	}

	r.logger.Info("Recipe created",
		"recipe_id", recipe.ID,
		"owner_id", recipe.OwnerID,
		"ingredients", len(recipe.Ingredients),
		"instructions", len(recipe.Instructions),
		"synthetic", recipe.IsSynthetic,
	)
	return nil
}

const recipeColumns = `
	id, owner_id, title, description,
	prep_time_minutes, cook_time_minutes, serving_size, difficulty,
	thumbnail_path, source_url, source_type, is_synthetic,
	created_at, updated_at`

// GetByID retrieves a recipe by its UUID, including child rows
func (r *RecipeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)

	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Recipe not found", "recipe_id", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query recipe",
			"error", err,
			"recipe_id", id,
		)
		return nil, fmt.Errorf("failed to query recipe: %w", err)
	}

	if err := r.loadChildren(ctx, recipe); err != nil {
		return nil, err
	}

	return recipe, nil
}

// GetByOwner retrieves recipes for an owner, newest first. The cursor is the
// created_at of the last recipe on the previous page; nil starts from the top.
func (r *RecipeRepository) GetByOwner(ctx context.Context, ownerID int64, cursor *time.Time, limit int) ([]*domain.Recipe, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE owner_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, ownerID, cursor, limit)
	if err != nil {
		r.logger.Error("Failed to query recipes by owner",
			"error", err,
			"owner_id", ownerID,
		)
		return nil, fmt.Errorf("failed to query recipes by owner: %w", err)
	}
	defer rows.Close()

	return r.collectRecipes(ctx, rows)
}

// Search performs full-text search over titles and descriptions, newest first
func (r *RecipeRepository) Search(ctx context.Context, query string, cursor *time.Time, limit int) ([]*domain.Recipe, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	sqlQuery := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE search_vector @@ plainto_tsquery('english', $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, sqlQuery, query, cursor, limit)
	if err != nil {
		r.logger.Error("Failed to search recipes",
			"error", err,
			"query", query,
		)
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	defer rows.Close()

	return r.collectRecipes(ctx, rows)
}

// GetBySourceURL finds a recipe previously extracted from the same URL for an
// owner. Used for duplicate detection before enqueueing a new extraction.
func (r *RecipeRepository) GetBySourceURL(ctx context.Context, ownerID int64, sourceURL string) (*domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE owner_id = $1 AND source_url = $2
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, ownerID, sourceURL)

	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to query recipe by source URL",
			"error", err,
			"owner_id", ownerID,
			"source_url", sourceURL,
		)
		return nil, fmt.Errorf("failed to query recipe by source URL: %w", err)
	}

	if err := r.loadChildren(ctx, recipe); err != nil {
		return nil, err
	}

	return recipe, nil
}

// Delete removes a recipe; child rows go with it via ON DELETE CASCADE
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = $1", id)
	if err != nil {
		r.logger.Error("Failed to delete recipe",
			"error", err,
			"recipe_id", id,
		)
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.logger.Info("Recipe deleted", "recipe_id", id)
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipe(row rowScanner) (*domain.Recipe, error) {
	recipe := &domain.Recipe{}
	var prepTime, cookTime, servingSize sql.NullInt32
	var difficulty sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&recipe.ID,
		&recipe.OwnerID,
		&recipe.Title,
		&recipe.Description,
		&prepTime,
		&cookTime,
		&servingSize,
		&difficulty,
		&recipe.ThumbnailPath,
		&recipe.SourceURL,
		&recipe.SourceType,
		&recipe.IsSynthetic,
		&recipe.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if prepTime.Valid {
		v := int(prepTime.Int32)
		recipe.PrepTimeMinutes = &v
	}
	if cookTime.Valid {
		v := int(cookTime.Int32)
		recipe.CookTimeMinutes = &v
	}
	if servingSize.Valid {
		v := int(servingSize.Int32)
		recipe.ServingSize = &v
	}
	if difficulty.Valid {
		recipe.Difficulty = &difficulty.String
	}
	if updatedAt.Valid {
		recipe.UpdatedAt = &updatedAt.Time
	}

	return recipe, nil
}

func (r *RecipeRepository) collectRecipes(ctx context.Context, rows *sql.Rows) ([]*domain.Recipe, error) {
	var recipes []*domain.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipe rows: %w", err)
	}

	for _, recipe := range recipes {
		if err := r.loadChildren(ctx, recipe); err != nil {
			return nil, err
		}
	}

	return recipes, nil
}

// loadChildren populates ingredients, instructions and tags for a recipe
func (r *RecipeRepository) loadChildren(ctx context.Context, recipe *domain.Recipe) error {
	ingredientRows, err := r.db.QueryContext(ctx, `
		SELECT order_index, name, quantity, unit, notes
		FROM recipe_ingredients
		WHERE recipe_id = $1
		ORDER BY order_index`,
		recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer ingredientRows.Close()

	for ingredientRows.Next() {
		var ingredient domain.Ingredient
		var quantity, unit, notes sql.NullString
		if err := ingredientRows.Scan(&ingredient.OrderIndex, &ingredient.Name, &quantity, &unit, &notes); err != nil {
			return fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if quantity.Valid {
			ingredient.Quantity = &quantity.String
		}
		if unit.Valid {
			ingredient.Unit = &unit.String
		}
		if notes.Valid {
			ingredient.Notes = &notes.String
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
	}
	if err := ingredientRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	instructionRows, err := r.db.QueryContext(ctx, `
		SELECT step_number, description
		FROM recipe_instructions
		WHERE recipe_id = $1
		ORDER BY step_number`,
		recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query instructions: %w", err)
	}
	defer instructionRows.Close()

	for instructionRows.Next() {
		var step domain.InstructionStep
		if err := instructionRows.Scan(&step.StepNumber, &step.Description); err != nil {
			return fmt.Errorf("failed to scan instruction: %w", err)
		}
		recipe.Instructions = append(recipe.Instructions, step)
	}
	if err := instructionRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate instructions: %w", err)
	}

	tagRows, err := r.db.QueryContext(ctx, `
		SELECT tag FROM recipe_tags WHERE recipe_id = $1 ORDER BY tag`,
		recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		recipe.Tags = append(recipe.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate tags: %w", err)
	}

	return nil
}
