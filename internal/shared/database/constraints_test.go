package database

import (
	"fmt"
	"strings"
	"testing"

	"cinetix/internal/seats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findStatement(t *testing.T, indexName string) string {
	t.Helper()
	for _, stmt := range constraintStatements {
		if strings.Contains(stmt, indexName) {
			return stmt
		}
	}
	t.Fatalf("no constraint statement creates %s", indexName)
	return ""
}

// The seat repository's hold upsert uses (function_id, seat_code) with the
// temporary-status predicate as its ON CONFLICT arbiter; Postgres rejects
// that INSERT unless a unique index with exactly that shape exists.
func TestActiveSelectionIndexMatchesHoldUpsertArbiter(t *testing.T) {
	stmt := findStatement(t, "idx_selections_active_seat")

	assert.Contains(t, stmt, "CREATE UNIQUE INDEX")
	assert.Contains(t, stmt, "ON selections (function_id, seat_code)")
	assert.Contains(t, stmt, fmt.Sprintf("WHERE status = '%s'", seats.SelectionTemporary))
}

func TestConstraintStatementsCoverRequiredIndexes(t *testing.T) {
	required := []string{
		"idx_selections_active_seat",
		"idx_selections_function_status",
		"idx_selections_user",
		"idx_transactions_user_created",
		"idx_transactions_function",
		"idx_transactions_state",
		"idx_functions_film_start",
		"idx_functions_state",
	}
	for _, name := range required {
		findStatement(t, name)
	}

	// Idempotent by construction: InitDB reruns these on every boot.
	for _, stmt := range constraintStatements {
		require.Contains(t, stmt, "IF NOT EXISTS")
	}
}
