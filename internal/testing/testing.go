// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// MockProvider is a configurable test double for [providers.Provider].
//
// Behavior is injected through function fields; unset fields return benign
// defaults. Call counts are tracked for assertion.
type MockProvider struct {
	IDValue models.ProviderID

	AuthorizeFn      func(ctx context.Context, code string) (*providers.TokenSet, error)
	RefreshFn        func(ctx context.Context, refreshToken string) (*providers.TokenSet, error)
	ListPlaylistsFn  func(ctx context.Context, accessToken string) ([]models.Playlist, error)
	ListTracksFn     func(ctx context.Context, accessToken, playlistID string) ([]models.Track, error)
	SearchTracksFn   func(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error)
	CreatePlaylistFn func(ctx context.Context, accessToken, name, description string, visibility models.Visibility) (*models.Playlist, error)
	AddTracksFn      func(ctx context.Context, accessToken, playlistID string, trackIDs []string) error

	mu     sync.Mutex
	calls  map[string]int
	Tracks map[string][]string // playlistID -> added track IDs
}

// NewMockProvider creates a mock provider with the given ID.
func NewMockProvider(id models.ProviderID) *MockProvider {
	return &MockProvider{
		IDValue: id,
		calls:   make(map[string]int),
		Tracks:  make(map[string][]string),
	}
}

func (m *MockProvider) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

// Calls returns how many times the named method was invoked.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockProvider) ID() models.ProviderID { return m.IDValue }

func (m *MockProvider) AuthURL(state string) string {
	return fmt.Sprintf("https://auth.example/%s?state=%s", m.IDValue, state)
}

func (m *MockProvider) Authorize(ctx context.Context, code string) (*providers.TokenSet, error) {
	m.record("Authorize")
	if m.AuthorizeFn != nil {
		return m.AuthorizeFn(ctx, code)
	}
	return &providers.TokenSet{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (m *MockProvider) Refresh(ctx context.Context, refreshToken string) (*providers.TokenSet, error) {
	m.record("Refresh")
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	return &providers.TokenSet{
		AccessToken:  "refreshed-access",
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (m *MockProvider) ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	m.record("ListPlaylists")
	if m.ListPlaylistsFn != nil {
		return m.ListPlaylistsFn(ctx, accessToken)
	}
	return nil, nil
}

func (m *MockProvider) ListTracks(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
	m.record("ListTracks")
	if m.ListTracksFn != nil {
		return m.ListTracksFn(ctx, accessToken, playlistID)
	}
	return nil, nil
}

func (m *MockProvider) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
	m.record("SearchTracks")
	if m.SearchTracksFn != nil {
		return m.SearchTracksFn(ctx, accessToken, query, limit)
	}
	return nil, nil
}

func (m *MockProvider) CreatePlaylist(ctx context.Context, accessToken, name, description string, visibility models.Visibility) (*models.Playlist, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, accessToken, name, description, visibility)
	}
	return &models.Playlist{
		ID:         "created-" + name,
		Provider:   m.IDValue,
		Name:       name,
		Visibility: visibility,
	}, nil
}

func (m *MockProvider) AddTracks(ctx context.Context, accessToken, playlistID string, trackIDs []string) error {
	m.record("AddTracks")
	if m.AddTracksFn != nil {
		return m.AddTracksFn(ctx, accessToken, playlistID, trackIDs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tracks[playlistID] = append(m.Tracks[playlistID], trackIDs...)
	return nil
}

// SetupTestDB creates an in-memory SQLite database with migrations applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// SampleTrack builds a track with plausible metadata for tests.
func SampleTrack(title, artist string, durationMS int) models.Track {
	return models.Track{
		Title:      title,
		Artists:    []string{artist},
		Album:      title + " - Single",
		DurationMS: durationMS,
	}
}
