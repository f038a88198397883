package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tunebridge/tunebridge/internal/connections"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
	itesting "github.com/tunebridge/tunebridge/internal/testing"
)

func setupCache(t *testing.T, ttl time.Duration, provs ...providers.Provider) (*Cache, *repositories.PlaylistRepository) {
	t.Helper()
	db := itesting.SetupTestDB(t)

	registry := providers.NewRegistry(provs...)
	connRepo := repositories.NewConnectionRepository(db)
	manager := connections.NewManager(connRepo, registry, nil)

	// Every test user has a usable connection unless stated otherwise
	if err := connRepo.Upsert(&models.Connection{
		UserID:      "user1",
		Provider:    models.ProviderSpotify,
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		Status:      models.ConnectionActive,
	}); err != nil {
		t.Fatalf("failed to seed connection: %v", err)
	}

	playlistRepo := repositories.NewPlaylistRepository(db)
	return NewCache(playlistRepo, manager, registry, ttl, nil), playlistRepo
}

func samplePlaylists(n int) []models.Playlist {
	playlists := make([]models.Playlist, n)
	for i := range playlists {
		playlists[i] = models.Playlist{
			ID:         string(rune('a' + i)),
			Provider:   models.ProviderSpotify,
			Name:       "Playlist " + string(rune('A'+i)),
			Visibility: models.VisibilityPrivate,
			TrackCount: i + 1,
		}
	}
	return playlists
}

func TestListPlaylistsFetchesOnEmptyCache(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return samplePlaylists(3), nil
	}
	cache, _ := setupCache(t, time.Minute, spotify)

	listing, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if err != nil {
		t.Fatalf("ListPlaylists() error: %v", err)
	}
	if len(listing.Playlists) != 3 {
		t.Fatalf("got %d playlists, want 3", len(listing.Playlists))
	}
	if listing.Stale {
		t.Error("fresh listing marked stale")
	}
	if spotify.Calls("ListPlaylists") != 1 {
		t.Errorf("provider called %d times, want 1", spotify.Calls("ListPlaylists"))
	}
}

func TestListPlaylistsServesFreshCache(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return samplePlaylists(2), nil
	}
	cache, _ := setupCache(t, time.Minute, spotify)

	if _, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	listing, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}

	if spotify.Calls("ListPlaylists") != 1 {
		t.Errorf("provider called %d times, want 1 (second call should hit the cache)", spotify.Calls("ListPlaylists"))
	}
	if len(listing.Playlists) != 2 {
		t.Errorf("got %d playlists from cache, want 2", len(listing.Playlists))
	}
}

func TestListPlaylistsForceRefreshBypassesCache(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return samplePlaylists(2), nil
	}
	cache, _ := setupCache(t, time.Minute, spotify)

	if _, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if _, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, true); err != nil {
		t.Fatalf("forced call error: %v", err)
	}

	if spotify.Calls("ListPlaylists") != 2 {
		t.Errorf("provider called %d times, want 2", spotify.Calls("ListPlaylists"))
	}
}

func TestListPlaylistsRefreshesExpiredEntry(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return samplePlaylists(1), nil
	}
	cache, repo := setupCache(t, time.Minute, spotify)

	// Entry synced beyond the staleness threshold
	if err := repo.ReplaceAll("user1", models.ProviderSpotify, samplePlaylists(4), time.Now().Add(-2*time.Minute)); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	listing, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if err != nil {
		t.Fatalf("ListPlaylists() error: %v", err)
	}
	if spotify.Calls("ListPlaylists") != 1 {
		t.Errorf("provider called %d times, want 1", spotify.Calls("ListPlaylists"))
	}
	if len(listing.Playlists) != 1 {
		t.Errorf("got %d playlists, want the refreshed single entry", len(listing.Playlists))
	}
}

func TestListPlaylistsStaleFallback(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return nil, shared.ErrProviderUnavailable
	}
	cache, repo := setupCache(t, time.Minute, spotify)

	syncedAt := time.Now().Add(-10 * time.Minute)
	if err := repo.ReplaceAll("user1", models.ProviderSpotify, samplePlaylists(3), syncedAt); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	listing, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !listing.Stale {
		t.Error("listing not marked stale")
	}
	if len(listing.Playlists) != 3 {
		t.Errorf("got %d playlists, want the 3 cached ones", len(listing.Playlists))
	}
}

func TestListPlaylistsErrorWithEmptyCache(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return nil, shared.ErrProviderUnavailable
	}
	cache, _ := setupCache(t, time.Minute, spotify)

	_, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if !errors.Is(err, shared.ErrProviderUnavailable) {
		t.Errorf("got %v, want ErrProviderUnavailable (no cache to fall back on)", err)
	}
}

// A synced-but-empty listing is a valid cache entry, distinct from never
// having synced.
func TestListPlaylistsEmptyListingIsCached(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	spotify.ListPlaylistsFn = func(ctx context.Context, accessToken string) ([]models.Playlist, error) {
		return nil, nil
	}
	cache, _ := setupCache(t, time.Minute, spotify)

	if _, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	listing, err := cache.ListPlaylists(context.Background(), "user1", models.ProviderSpotify, false)
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}

	if spotify.Calls("ListPlaylists") != 1 {
		t.Errorf("provider called %d times, want 1 (empty listing should be cached)", spotify.Calls("ListPlaylists"))
	}
	if len(listing.Playlists) != 0 {
		t.Errorf("got %d playlists, want 0", len(listing.Playlists))
	}
}

func TestListPlaylistsRequiresUser(t *testing.T) {
	spotify := itesting.NewMockProvider(models.ProviderSpotify)
	cache, _ := setupCache(t, time.Minute, spotify)

	_, err := cache.ListPlaylists(context.Background(), "", models.ProviderSpotify, false)
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}
