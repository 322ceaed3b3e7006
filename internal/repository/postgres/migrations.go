package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"reelchef/internal/domain"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS recipes (
				id UUID PRIMARY KEY,
				owner_id BIGINT NOT NULL,
				title VARCHAR(500) NOT NULL,
				description TEXT NOT NULL DEFAULT '',

				prep_time_minutes INTEGER,
				cook_time_minutes INTEGER,
				serving_size INTEGER,
				difficulty VARCHAR(20),

				thumbnail_path TEXT NOT NULL,
				source_url TEXT NOT NULL,
				source_type VARCHAR(50) NOT NULL,
				is_synthetic BOOLEAN NOT NULL DEFAULT FALSE,

				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE,

				-- Search vector for full-text search
				search_vector tsvector,

				CHECK (difficulty IN ('easy', 'medium', 'hard')),
				CHECK (prep_time_minutes > 0),
				CHECK (cook_time_minutes > 0),
				CHECK (serving_size > 0)
			);

			CREATE TABLE IF NOT EXISTS recipe_ingredients (
				id BIGSERIAL PRIMARY KEY,
				recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				order_index INTEGER NOT NULL,
				name TEXT NOT NULL,
				quantity VARCHAR(100),
				unit VARCHAR(100),
				notes TEXT,

				UNIQUE(recipe_id, order_index),
				CHECK (order_index > 0)
			);

			CREATE TABLE IF NOT EXISTS recipe_instructions (
				id BIGSERIAL PRIMARY KEY,
				recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				step_number INTEGER NOT NULL,
				description TEXT NOT NULL,

				UNIQUE(recipe_id, step_number),
				CHECK (step_number > 0)
			);

			CREATE TABLE IF NOT EXISTS recipe_tags (
				recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				tag VARCHAR(100) NOT NULL,

				PRIMARY KEY (recipe_id, tag)
			);

			CREATE INDEX IF NOT EXISTS idx_recipes_owner_created
			ON recipes(owner_id, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_recipes_source_url
			ON recipes(owner_id, source_url);

			CREATE INDEX IF NOT EXISTS idx_recipes_source_type
			ON recipes(source_type);

			CREATE INDEX IF NOT EXISTS idx_recipes_search
			ON recipes USING GIN(search_vector);

			CREATE INDEX IF NOT EXISTS idx_recipe_tags_tag
			ON recipe_tags(tag);

			-- Keep the search vector current on write
			CREATE OR REPLACE FUNCTION update_recipes_search_vector()
			RETURNS trigger AS $$
			BEGIN
				NEW.search_vector := to_tsvector('english',
					coalesce(NEW.title,'') || ' ' || coalesce(NEW.description,''));
				RETURN NEW;
			END;
			$$ LANGUAGE plpgsql;

			CREATE TRIGGER recipes_search_vector_update
				BEFORE INSERT OR UPDATE ON recipes
				FOR EACH ROW EXECUTE FUNCTION update_recipes_search_vector();
		`,
	},
	{
		Version: 2,
		Name:    "source_type_constraint",
		SQL: `
			ALTER TABLE recipes DROP CONSTRAINT IF EXISTS recipes_source_type_check;

			ALTER TABLE recipes ADD CONSTRAINT recipes_source_type_check ` + domain.GetSourceTypeConstraintSQL() + `;
		`,
	},
}

// RunMigrations executes all pending database migrations
func RunMigrations(db *sql.DB, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	logger.Info("Current migration version", "version", currentVersion)

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logger.Info("Applying migration",
			"version", migration.Version,
			"name", migration.Name,
		)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		applied++
		logger.Info("Migration applied successfully", "version", migration.Version)
	}

	if applied == 0 {
		logger.Info("No migrations to apply - database is up to date")
	} else {
		logger.Info("Database migrations completed", "applied", applied)
	}

	return nil
}

// GetMigrationStatus returns the current migration status
func GetMigrationStatus(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration status: %w", err)
	}
	return version, nil
}

// ResetDatabase drops all tables (for testing)
func ResetDatabase(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.Warn("Resetting database - all data will be lost")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Drop tables in reverse dependency order
	dropSQL := []string{
		"DROP TABLE IF EXISTS recipe_tags CASCADE",
		"DROP TABLE IF EXISTS recipe_instructions CASCADE",
		"DROP TABLE IF EXISTS recipe_ingredients CASCADE",
		"DROP TABLE IF EXISTS recipes CASCADE",
		"DROP TABLE IF EXISTS migrations CASCADE",
		"DROP FUNCTION IF EXISTS update_recipes_search_vector() CASCADE",
	}

	for _, stmt := range dropSQL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute drop statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	logger.Info("Database reset complete")
	return nil
}
