// Spotify implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageLimit     = 50
	spotifyAddBatchLimit = 100
)

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtist    `json:"artists"`
	Album       spotifyAlbum       `json:"album"`
	DurationMS  int                `json:"duration_ms"`
	ExternalIDs spotifyExternalIDs `json:"external_ids"`
	URI         string             `json:"uri"`
}

type spotifyPlaylist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       spotifyOwner `json:"owner"`
	Public      bool         `json:"public"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
	Images []spotifyImage `json:"images"`
}

type spotifyPaginatedPlaylists struct {
	Items []spotifyPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

type spotifyPlaylistItem struct {
	Track spotifyTrack `json:"track"`
}

type spotifyPaginatedItems struct {
	Items []spotifyPlaylistItem `json:"items"`
	Next  *string               `json:"next"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyProvider implements [Provider] for the Spotify Web API.
// Uses [oauth2] for the authorization code flow.
type SpotifyProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyProvider creates a Spotify adapter from OAuth client settings.
func NewSpotifyProvider(conf shared.OAuthClientConfig) (*SpotifyProvider, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := conf.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/auth/spotify/callback"
	}

	config := &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyProvider{
		config:     config,
		httpClient: http.DefaultClient,
	}, nil
}

func (s *SpotifyProvider) ID() models.ProviderID { return models.ProviderSpotify }

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyProvider) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authorize exchanges an authorization code for a token set.
func (s *SpotifyProvider) Authorize(ctx context.Context, code string) (*TokenSet, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify code exchange: %v", shared.ErrAuthFailed, err)
	}
	return tokenSetFromOAuth(token, s.config.Scopes), nil
}

// Refresh exchanges a refresh token for a fresh access token.
//
// Spotify does not rotate refresh tokens, so the returned set carries the
// one it was given.
func (s *SpotifyProvider) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: spotify token refresh: %v", shared.ErrAuthFailed, err)
	}
	set := tokenSetFromOAuth(token, s.config.Scopes)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyProvider) doRequest(ctx context.Context, accessToken, method, endpoint string, body, result any) error {
	apiURL := spotifyBaseURL + endpoint

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: spotify request: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(models.ProviderSpotify, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ListPlaylists retrieves all playlists for the authenticated user, following pagination.
func (s *SpotifyProvider) ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", spotifyPageLimit, offset)

		var page spotifyPaginatedPlaylists
		if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			all = append(all, sp.toModel())
		}

		if page.Next == nil {
			break
		}
		offset += spotifyPageLimit
	}

	return all, nil
}

// ListTracks retrieves the full ordered track list of a playlist, following pagination.
func (s *SpotifyProvider) ListTracks(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	var all []models.Track
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, spotifyPageLimit, offset)

		var page spotifyPaginatedItems
		if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			// Local files and removed tracks come back with an empty ID
			if item.Track.ID == "" {
				continue
			}
			all = append(all, item.Track.toModel())
		}

		if page.Next == nil {
			break
		}
		offset += spotifyPageLimit
	}

	return all, nil
}

// SearchTracks searches the Spotify catalog for tracks matching the query.
func (s *SpotifyProvider) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > spotifyPageLimit {
		limit = 10
	}

	endpoint := fmt.Sprintf("/search?type=track&q=%s&limit=%d", url.QueryEscape(query), limit)

	var response spotifySearchResponse
	if err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, st := range response.Tracks.Items {
		tracks = append(tracks, st.toModel())
	}

	return tracks, nil
}

// CreatePlaylist creates an empty playlist for the authenticated user.
func (s *SpotifyProvider) CreatePlaylist(ctx context.Context, accessToken, name, description string, visibility models.Visibility) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	var user spotifyUser
	if err := s.doRequest(ctx, accessToken, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		// Spotify only distinguishes public/private; unlisted maps to private
		"public": visibility == models.VisibilityPublic,
	}

	var created spotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.ID))
	if err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	playlist := created.toModel()
	return &playlist, nil
}

// AddTracks appends tracks to a playlist in order, batching per the API limit.
func (s *SpotifyProvider) AddTracks(ctx context.Context, accessToken, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	for start := 0; start < len(trackIDs); start += spotifyAddBatchLimit {
		end := start + spotifyAddBatchLimit
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		if err := s.doRequest(ctx, accessToken, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
			return err
		}
	}

	return nil
}

func (t spotifyTrack) toModel() models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return models.Track{
		Title:           t.Name,
		Artists:         artists,
		Album:           t.Album.Name,
		DurationMS:      t.DurationMS,
		ISRC:            t.ExternalIDs.ISRC,
		ProviderTrackID: t.ID,
	}
}

func (p spotifyPlaylist) toModel() models.Playlist {
	visibility := models.VisibilityPrivate
	if p.Public {
		visibility = models.VisibilityPublic
	}

	artwork := ""
	if len(p.Images) > 0 {
		artwork = p.Images[0].URL
	}

	return models.Playlist{
		ID:          p.ID,
		Provider:    models.ProviderSpotify,
		Name:        p.Name,
		Description: p.Description,
		Visibility:  visibility,
		TrackCount:  p.Tracks.Total,
		OwnerUserID: p.Owner.ID,
		ArtworkURL:  artwork,
	}
}

func tokenSetFromOAuth(token *oauth2.Token, scopes []string) *TokenSet {
	expires := token.Expiry
	if expires.IsZero() {
		expires = time.Now().Add(time.Hour)
	}
	return &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expires,
		Scopes:       scopes,
	}
}
