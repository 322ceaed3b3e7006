package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RecipeRepository defines the interface for recipe persistence. The
// extraction pipeline never depends on this directly; only the worker and the
// HTTP layer do.
type RecipeRepository interface {
	// Create transactionally inserts a recipe with its ingredient,
	// instruction and tag rows
	Create(ctx context.Context, recipe *Recipe) error

	// GetByID retrieves a recipe by its UUID, including child rows
	GetByID(ctx context.Context, id uuid.UUID) (*Recipe, error)

	// GetByOwner retrieves recipes for an owner, newest first, using
	// cursor-based pagination
	GetByOwner(ctx context.Context, ownerID int64, cursor *time.Time, limit int) ([]*Recipe, error)

	// Search performs full-text search over titles and descriptions
	Search(ctx context.Context, query string, cursor *time.Time, limit int) ([]*Recipe, error)

	// GetBySourceURL finds a recipe previously extracted from the same URL
	// for an owner (duplicate detection)
	GetBySourceURL(ctx context.Context, ownerID int64, sourceURL string) (*Recipe, error)

	// Delete removes a recipe and its child rows
	Delete(ctx context.Context, id uuid.UUID) error
}

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue and returns its ID
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)

	// Dequeue retrieves the next job from the queue
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt *string                `json:"updated_at"`
}

// Job types
const (
	JobTypeExtractRecipe = "extract_recipe"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
