package main

import (
	"context"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists a provider's playlists from the catalog cache.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	provider, err := models.ParseProviderID(cmd.String("provider"))
	if err != nil {
		return err
	}
	userID := cmd.String("user")
	forceRefresh := cmd.Bool("refresh")

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	listing, err := engine.catalog.ListPlaylists(ctx, userID, provider, forceRefresh)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(listing, true)
	}

	if listing.Stale {
		r.writePlain("⚠ provider unreachable, showing cached playlists from %s\n\n", listing.SyncedAt.Format("2006-01-02 15:04"))
	}

	for i, playlist := range listing.Playlists {
		r.writePlain("%3d. %s", i+1, playlist.Name)
		if playlist.TrackCount > 0 {
			r.writePlain(" (%d tracks)", playlist.TrackCount)
		}
		r.writePlain("  [%s]\n", playlist.ID)
	}
	r.writePlainln("%d playlists on %s", len(listing.Playlists), provider)

	return nil
}
