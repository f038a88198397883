// YouTube Music implementation of [Provider]
//
// Built on the YouTube Data API v3: playlists, playlistItems, search, and
// videos endpoints. https://developers.google.com/youtube/v3/docs
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
	"golang.org/x/oauth2"
)

const (
	youtubeAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	youtubeTokenURL = "https://oauth2.googleapis.com/token"
	youtubeBaseURL  = "https://www.googleapis.com/youtube/v3"

	youtubePageLimit       = 50
	youtubeMusicCategoryID = "10"
)

type youtubeThumbnail struct {
	URL string `json:"url"`
}

type youtubeSnippet struct {
	Title                 string                      `json:"title"`
	Description           string                      `json:"description"`
	ChannelID             string                      `json:"channelId"`
	ChannelTitle          string                      `json:"channelTitle"`
	VideoOwnerChannelName string                      `json:"videoOwnerChannelTitle"`
	Thumbnails            map[string]youtubeThumbnail `json:"thumbnails"`
	ResourceID            struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type youtubeStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
}

type youtubePlaylist struct {
	ID             string         `json:"id"`
	Snippet        youtubeSnippet `json:"snippet"`
	Status         youtubeStatus  `json:"status"`
	ContentDetails struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

type youtubePlaylistItem struct {
	Snippet youtubeSnippet `json:"snippet"`
}

type youtubeSearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet youtubeSnippet `json:"snippet"`
}

type youtubeVideo struct {
	ID             string         `json:"id"`
	Snippet        youtubeSnippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"` // ISO 8601, e.g. PT3M42S
	} `json:"contentDetails"`
}

type youtubePage[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// YouTubeProvider implements [Provider] for YouTube Music via the Data API.
type YouTubeProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewYouTubeProvider creates a YouTube adapter from OAuth client settings.
func NewYouTubeProvider(conf shared.OAuthClientConfig) (*YouTubeProvider, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: youtube client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := conf.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/auth/youtube/callback"
	}

	config := &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.readonly",
			"https://www.googleapis.com/auth/youtube.force-ssl",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  youtubeAuthURL,
			TokenURL: youtubeTokenURL,
		},
	}

	return &YouTubeProvider{
		config:     config,
		httpClient: http.DefaultClient,
	}, nil
}

func (y *YouTubeProvider) ID() models.ProviderID { return models.ProviderYouTube }

// AuthURL returns the OAuth2 authorization URL for user login.
//
// Offline access is requested so Google issues a refresh token.
func (y *YouTubeProvider) AuthURL(state string) string {
	return y.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authorize exchanges an authorization code for a token set.
func (y *YouTubeProvider) Authorize(ctx context.Context, code string) (*TokenSet, error) {
	token, err := y.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube code exchange: %v", shared.ErrAuthFailed, err)
	}
	return tokenSetFromOAuth(token, y.config.Scopes), nil
}

// Refresh exchanges a refresh token for a fresh access token.
func (y *YouTubeProvider) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	src := y.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube token refresh: %v", shared.ErrAuthFailed, err)
	}
	set := tokenSetFromOAuth(token, y.config.Scopes)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

// doRequest performs an authenticated HTTP request to the YouTube Data API.
func (y *YouTubeProvider) doRequest(ctx context.Context, accessToken, method, endpoint string, body, result any) error {
	apiURL := youtubeBaseURL + endpoint

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

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: youtube request: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(models.ProviderYouTube, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ListPlaylists retrieves all of the user's playlists, following pagination.
func (y *YouTubeProvider) ListPlaylists(ctx context.Context, accessToken string) ([]models.Playlist, error) {
	var all []models.Playlist
	pageToken := ""

	for {
		endpoint := fmt.Sprintf("/playlists?part=snippet,status,contentDetails&mine=true&maxResults=%d", youtubePageLimit)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page youtubePage[youtubePlaylist]
		if err := y.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, yp := range page.Items {
			all = append(all, yp.toModel())
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return all, nil
}

// ListTracks retrieves the playlist's items in order and enriches them with
// video durations via the videos endpoint.
func (y *YouTubeProvider) ListTracks(ctx context.Context, accessToken, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	var videoIDs []string
	byID := make(map[string]models.Track)
	pageToken := ""

	for {
		endpoint := fmt.Sprintf("/playlistItems?part=snippet&playlistId=%s&maxResults=%d", url.QueryEscape(playlistID), youtubePageLimit)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page youtubePage[youtubePlaylistItem]
		if err := y.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			videoID := item.Snippet.ResourceID.VideoID
			if videoID == "" {
				continue
			}
			videoIDs = append(videoIDs, videoID)
			byID[videoID] = models.Track{
				Title:           item.Snippet.Title,
				Artists:         []string{artistFromChannel(item.Snippet.VideoOwnerChannelName)},
				ProviderTrackID: videoID,
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := y.fillDurations(ctx, accessToken, videoIDs, byID); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(videoIDs))
	for _, id := range videoIDs {
		tracks = append(tracks, byID[id])
	}
	return tracks, nil
}

// SearchTracks searches YouTube's music category for videos matching the query
// and enriches results with durations.
func (y *YouTubeProvider) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > youtubePageLimit {
		limit = 10
	}

	endpoint := fmt.Sprintf("/search?part=snippet&type=video&videoCategoryId=%s&q=%s&maxResults=%d",
		youtubeMusicCategoryID, url.QueryEscape(query), limit)

	var page youtubePage[youtubeSearchItem]
	if err := y.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	var videoIDs []string
	byID := make(map[string]models.Track)
	for _, item := range page.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videoIDs = append(videoIDs, item.ID.VideoID)
		byID[item.ID.VideoID] = models.Track{
			Title:           item.Snippet.Title,
			Artists:         []string{artistFromChannel(item.Snippet.ChannelTitle)},
			ProviderTrackID: item.ID.VideoID,
		}
	}

	if err := y.fillDurations(ctx, accessToken, videoIDs, byID); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(videoIDs))
	for _, id := range videoIDs {
		tracks = append(tracks, byID[id])
	}
	return tracks, nil
}

// CreatePlaylist creates an empty playlist with the translated privacy status.
func (y *YouTubeProvider) CreatePlaylist(ctx context.Context, accessToken, name, description string, visibility models.Visibility) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	body := map[string]any{
		"snippet": map[string]any{
			"title":       name,
			"description": description,
		},
		"status": map[string]any{
			"privacyStatus": string(visibility),
		},
	}

	var created youtubePlaylist
	if err := y.doRequest(ctx, accessToken, http.MethodPost, "/playlists?part=snippet,status,contentDetails", body, &created); err != nil {
		return nil, err
	}

	playlist := created.toModel()
	return &playlist, nil
}

// AddTracks inserts videos into the playlist one at a time.
//
// The playlistItems endpoint has no batch insert; sequential inserts also
// preserve the requested order.
func (y *YouTubeProvider) AddTracks(ctx context.Context, accessToken, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	for _, videoID := range trackIDs {
		body := map[string]any{
			"snippet": map[string]any{
				"playlistId": playlistID,
				"resourceId": map[string]any{
					"kind":    "youtube#video",
					"videoId": videoID,
				},
			},
		}

		if err := y.doRequest(ctx, accessToken, http.MethodPost, "/playlistItems?part=snippet", body, nil); err != nil {
			return fmt.Errorf("failed to add video %s: %w", videoID, err)
		}
	}

	return nil
}

// fillDurations fetches contentDetails for the given videos and fills in
// DurationMS on the mapped tracks.
func (y *YouTubeProvider) fillDurations(ctx context.Context, accessToken string, videoIDs []string, byID map[string]models.Track) error {
	for start := 0; start < len(videoIDs); start += youtubePageLimit {
		end := start + youtubePageLimit
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		endpoint := fmt.Sprintf("/videos?part=contentDetails&id=%s", url.QueryEscape(strings.Join(videoIDs[start:end], ",")))

		var page youtubePage[youtubeVideo]
		if err := y.doRequest(ctx, accessToken, http.MethodGet, endpoint, nil, &page); err != nil {
			return err
		}

		for _, video := range page.Items {
			track, ok := byID[video.ID]
			if !ok {
				continue
			}
			track.DurationMS = parseISODuration(video.ContentDetails.Duration)
			byID[video.ID] = track
		}
	}

	return nil
}

func (p youtubePlaylist) toModel() models.Playlist {
	visibility := models.VisibilityPrivate
	switch p.Status.PrivacyStatus {
	case "public":
		visibility = models.VisibilityPublic
	case "unlisted":
		visibility = models.VisibilityUnlisted
	}

	artwork := ""
	if thumb, ok := p.Snippet.Thumbnails["high"]; ok {
		artwork = thumb.URL
	} else if thumb, ok := p.Snippet.Thumbnails["default"]; ok {
		artwork = thumb.URL
	}

	return models.Playlist{
		ID:          p.ID,
		Provider:    models.ProviderYouTube,
		Name:        p.Snippet.Title,
		Description: p.Snippet.Description,
		Visibility:  visibility,
		TrackCount:  p.ContentDetails.ItemCount,
		OwnerUserID: p.Snippet.ChannelID,
		ArtworkURL:  artwork,
	}
}

// artistFromChannel strips the " - Topic" suffix YouTube appends to
// auto-generated artist channels.
func artistFromChannel(channel string) string {
	return strings.TrimSpace(strings.TrimSuffix(channel, "- Topic"))
}

// parseISODuration converts an ISO 8601 duration like "PT3M42S" to milliseconds.
// Returns 0 for unparseable values.
func parseISODuration(iso string) int {
	if !strings.HasPrefix(iso, "PT") {
		return 0
	}

	total := 0
	num := ""
	for _, r := range iso[2:] {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'H' || r == 'M' || r == 'S':
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			switch r {
			case 'H':
				total += n * 3600
			case 'M':
				total += n * 60
			case 'S':
				total += n
			}
			num = ""
		default:
			return 0
		}
	}

	return total * 1000
}
