package database

import (
	"gorm.io/gorm"
)

// constraintStatements are applied after AutoMigrate. The first one is
// load-bearing for correctness, not just performance: the partial unique
// index on active selections is the arbiter of the ON CONFLICT upsert the
// seat repository issues for every fresh hold, and Postgres rejects that
// upsert outright if no matching unique index exists.
var constraintStatements = []string{
	// At most one active (temporary) selection per seat and function
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_selections_active_seat
		ON selections (function_id, seat_code)
		WHERE status = 'temporary';`,

	// Selection lookups by function and by user
	`CREATE INDEX IF NOT EXISTS idx_selections_function_status
		ON selections (function_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_selections_user
		ON selections (user_id);`,

	// Transaction history queries (newest first per user)
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created
		ON transactions (user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_function
		ON transactions (function_id);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_state
		ON transactions (state);`,

	// Function lookups by film, start time and state
	`CREATE INDEX IF NOT EXISTS idx_functions_film_start
		ON functions (film_id, starts_at);`,
	`CREATE INDEX IF NOT EXISTS idx_functions_state
		ON functions (state);`,
}

// MigrateConstraints adds the indexes AutoMigrate cannot express. Runs as
// part of InitDB, right after the schema migration.
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
