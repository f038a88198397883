package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// PlaylistRepository persists the cached playlist catalog per (user, provider).
//
// The catalog cache replaces a (user, provider) listing atomically on refresh
// and records the sync time so staleness can be computed after restarts.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// ReplaceAll atomically replaces the cached listing for a (user, provider) key
// and records the sync time.
func (r *PlaylistRepository) ReplaceAll(userID string, provider models.ProviderID, playlists []models.Playlist, syncedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM playlists WHERE user_id = ? AND provider = ?", userID, string(provider)); err != nil {
		return fmt.Errorf("failed to clear cached playlists: %w", err)
	}

	insert := `
		INSERT INTO playlists (id, sequence, provider, provider_id, user_id, name, description, visibility, track_count, owner_user_id, artwork_url, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, pl := range playlists {
		sequence, err := nextSequence(tx, "playlists")
		if err != nil {
			return err
		}
		_, err = tx.Exec(insert,
			shared.GenerateID(),
			sequence,
			string(provider),
			pl.ID,
			userID,
			pl.Name,
			pl.Description,
			string(pl.Visibility),
			pl.TrackCount,
			pl.OwnerUserID,
			pl.ArtworkURL,
			syncedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cached playlist: %w", err)
		}
	}

	sync := `
		INSERT INTO catalog_sync (user_id, provider, synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET synced_at = excluded.synced_at
	`
	if _, err := tx.Exec(sync, userID, string(provider), syncedAt); err != nil {
		return fmt.Errorf("failed to record catalog sync: %w", err)
	}

	return tx.Commit()
}

// List retrieves the cached listing for a (user, provider) key in sync order.
func (r *PlaylistRepository) List(userID string, provider models.ProviderID) ([]models.Playlist, error) {
	query := `
		SELECT provider_id, name, description, visibility, track_count, owner_user_id, artwork_url
		FROM playlists
		WHERE user_id = ? AND provider = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, userID, string(provider))
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var (
			pl         models.Playlist
			visibility string
		)
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.Description, &visibility, &pl.TrackCount, &pl.OwnerUserID, &pl.ArtworkURL); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		pl.Provider = provider
		pl.Visibility = models.Visibility(visibility)
		playlists = append(playlists, pl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// LastSyncedAt returns when the (user, provider) catalog was last refreshed.
// The second return value is false when the catalog has never been synced.
func (r *PlaylistRepository) LastSyncedAt(userID string, provider models.ProviderID) (time.Time, bool, error) {
	var syncedAt time.Time
	err := r.db.QueryRow(
		"SELECT synced_at FROM catalog_sync WHERE user_id = ? AND provider = ?",
		userID, string(provider),
	).Scan(&syncedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query catalog sync: %w", err)
	}
	return syncedAt, true, nil
}
