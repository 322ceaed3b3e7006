package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recipe is the canonical recipe shape produced by the extraction pipeline.
// Invariants: Ingredients and Instructions are non-empty, ThumbnailPath is
// always a resolvable local path, step numbers and ingredient order indices
// form dense 1..N sequences.
type Recipe struct {
	ID      uuid.UUID `json:"id" db:"id"`
	OwnerID int64     `json:"owner_id" db:"owner_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	// Optional numeric fields stay absent (nil) rather than zero when the
	// source did not provide them
	PrepTimeMinutes *int    `json:"prep_time_minutes" db:"prep_time_minutes"`
	CookTimeMinutes *int    `json:"cook_time_minutes" db:"cook_time_minutes"`
	ServingSize     *int    `json:"serving_size" db:"serving_size"`
	Difficulty      *string `json:"difficulty" db:"difficulty"`

	Ingredients  []Ingredient      `json:"ingredients"`
	Instructions []InstructionStep `json:"instructions"`
	Tags         []string          `json:"tags"`

	// Provenance
	ThumbnailPath string `json:"thumbnail_path" db:"thumbnail_path"`
	SourceURL     string `json:"source_url" db:"source_url"`
	SourceType    string `json:"source_type" db:"source_type"`
	IsSynthetic   bool   `json:"is_synthetic" db:"is_synthetic"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Ingredient is a single recipe ingredient with source ordering preserved
type Ingredient struct {
	OrderIndex int     `json:"order_index" db:"order_index"`
	Name       string  `json:"name" db:"name"`
	Quantity   *string `json:"quantity" db:"quantity"`
	Unit       *string `json:"unit" db:"unit"`
	Notes      *string `json:"notes" db:"notes"`
}

// InstructionStep is a single numbered cooking instruction
type InstructionStep struct {
	StepNumber  int    `json:"step_number" db:"step_number"`
	Description string `json:"description" db:"description"`
}

// Difficulty levels accepted on a recipe; anything else is dropped
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// IsValidDifficulty checks whether a difficulty value is one of the accepted levels
func IsValidDifficulty(difficulty string) bool {
	switch difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
