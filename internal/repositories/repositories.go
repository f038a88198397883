// package repositories provides the persistence layer over SQLite.
//
// Connections, the cached playlist catalog, and conversion jobs survive
// process restarts; repositories here own all SQL for those tables.
package repositories

import (
	"database/sql"
	"fmt"
)

// nextSequence increments and returns the next sequence number for the given
// table inside the caller's transaction.
//
// Sequence numbers give cached catalog entries a stable sync order that keeps
// climbing across refreshes. They are internal only and never exposed through
// the API.
func nextSequence(tx *sql.Tx, table string) (int, error) {
	sequenceTable := table + "_sequence"

	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}
