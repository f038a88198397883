package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// ConnectionRepository persists per (user, provider) authorization state.
//
// Tokens are stored in the connections table; at-rest encryption is delegated
// to filesystem/database level protection.
type ConnectionRepository struct {
	db *sql.DB
}

// NewConnectionRepository creates a new ConnectionRepository with the given database connection
func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert inserts or replaces the connection for its (user, provider) key.
func (r *ConnectionRepository) Upsert(conn *models.Connection) error {
	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	query := `
		INSERT INTO connections (id, user_id, provider, access_token, refresh_token, expires_at, scopes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scopes = excluded.scopes,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(),
		conn.UserID,
		string(conn.Provider),
		conn.AccessToken,
		conn.RefreshToken,
		conn.ExpiresAt,
		strings.Join(conn.Scopes, " "),
		string(conn.Status),
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// Get retrieves the connection for a (user, provider) key.
func (r *ConnectionRepository) Get(userID string, provider models.ProviderID) (*models.Connection, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, expires_at, scopes, status, created_at, updated_at
		FROM connections
		WHERE user_id = ? AND provider = ?
	`

	var (
		conn   models.Connection
		prov   string
		scopes string
		status string
	)

	err := r.db.QueryRow(query, userID, string(provider)).Scan(
		&conn.UserID,
		&prov,
		&conn.AccessToken,
		&conn.RefreshToken,
		&conn.ExpiresAt,
		&scopes,
		&status,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrNotConnected, userID, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	conn.Provider = models.ProviderID(prov)
	conn.Status = models.ConnectionStatus(status)
	if scopes != "" {
		conn.Scopes = strings.Split(scopes, " ")
	}

	return &conn, nil
}

// UpdateTokens persists refreshed tokens for a (user, provider) key.
func (r *ConnectionRepository) UpdateTokens(userID string, provider models.ProviderID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE connections
		SET access_token = ?, refresh_token = ?, expires_at = ?, status = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`

	result, err := r.db.Exec(query, accessToken, refreshToken, expiresAt, string(models.ConnectionActive), time.Now(), userID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", shared.ErrNotConnected, userID, provider)
	}

	return nil
}

// UpdateStatus marks the connection's status (e.g. expired after a failed refresh).
func (r *ConnectionRepository) UpdateStatus(userID string, provider models.ProviderID, status models.ConnectionStatus) error {
	query := `
		UPDATE connections
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND provider = ?
	`

	_, err := r.db.Exec(query, string(status), time.Now(), userID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}

	return nil
}

// Delete removes the connection for a (user, provider) key.
func (r *ConnectionRepository) Delete(userID string, provider models.ProviderID) error {
	_, err := r.db.Exec("DELETE FROM connections WHERE user_id = ? AND provider = ?", userID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	return nil
}

// ListByUser retrieves all of a user's connections.
func (r *ConnectionRepository) ListByUser(userID string) ([]*models.Connection, error) {
	query := `
		SELECT user_id, provider, access_token, refresh_token, expires_at, scopes, status, created_at, updated_at
		FROM connections
		WHERE user_id = ?
		ORDER BY provider ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		var (
			conn   models.Connection
			prov   string
			scopes string
			status string
		)
		if err := rows.Scan(&conn.UserID, &prov, &conn.AccessToken, &conn.RefreshToken, &conn.ExpiresAt, &scopes, &status, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conn.Provider = models.ProviderID(prov)
		conn.Status = models.ConnectionStatus(status)
		if scopes != "" {
			conn.Scopes = strings.Split(scopes, " ")
		}
		conns = append(conns, &conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return conns, nil
}
