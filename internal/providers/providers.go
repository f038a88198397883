// package providers defines the capability interface for external music
// platforms and one adapter per platform.
//
// Core components (catalog, matching, jobs) depend only on [Provider], never
// on a concrete adapter, so a third platform can be added without touching
// them.
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// TokenSet is the result of an authorization or refresh exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// Provider is the capability interface implemented once per music platform.
//
// Every method performs blocking network I/O and honors context cancellation.
// Access tokens are passed per call; adapters hold no per-user state.
type Provider interface {
	// ID returns the stable provider identifier.
	ID() models.ProviderID

	// Authorize exchanges an authorization code for a token set.
	Authorize(ctx context.Context, code string) (*TokenSet, error)

	// Refresh exchanges a refresh token for a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)

	// AuthURL returns the user-facing authorization URL for the given CSRF state.
	AuthURL(state string) string

	// ListPlaylists retrieves all playlists owned by or followed by the user.
	ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error)

	// ListTracks retrieves the full ordered track list of a playlist.
	ListTracks(ctx context.Context, accessToken, playlistID string) ([]models.Track, error)

	// SearchTracks searches the platform catalog, returning at most limit tracks.
	SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error)

	// CreatePlaylist creates an empty playlist and returns its reference.
	CreatePlaylist(ctx context.Context, accessToken, name, description string, visibility models.Visibility) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist in the given order.
	AddTracks(ctx context.Context, accessToken, playlistID string, trackIDs []string) error
}

// Registry maps provider IDs to adapters.
type Registry struct {
	providers map[models.ProviderID]Provider
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(provs ...Provider) *Registry {
	r := &Registry{providers: make(map[models.ProviderID]Provider, len(provs))}
	for _, p := range provs {
		r.providers[p.ID()] = p
	}
	return r
}

// Get returns the adapter for the given provider ID.
func (r *Registry) Get(id models.ProviderID) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for provider %q", shared.ErrInvalidInput, id)
	}
	return p, nil
}

// IDs returns the registered provider identifiers.
func (r *Registry) IDs() []models.ProviderID {
	ids := make([]models.ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}

// statusError maps an HTTP status code from a provider API to the shared
// error taxonomy.
func statusError(provider models.ProviderID, status int) error {
	switch {
	case status == 401:
		return fmt.Errorf("%w: %s returned 401", shared.ErrTokenExpired, provider)
	case status == 403:
		return fmt.Errorf("%w: %s returned 403", shared.ErrPermissionDenied, provider)
	case status == 404:
		return fmt.Errorf("%w: %s returned 404", shared.ErrPlaylistNotFound, provider)
	case status == 429:
		return fmt.Errorf("%w: %s returned 429", shared.ErrRateLimited, provider)
	case status >= 500:
		return fmt.Errorf("%w: %s returned %d", shared.ErrProviderUnavailable, provider, status)
	default:
		return fmt.Errorf("%s API error: status %d", provider, status)
	}
}
