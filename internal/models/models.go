// package models defines the data model for the playlist conversion service
package models

import (
	"fmt"
	"time"
)

// ProviderID identifies an external music platform.
type ProviderID string

const (
	ProviderSpotify ProviderID = "spotify"
	ProviderYouTube ProviderID = "youtube"
)

// ParseProviderID validates a provider name from user input or storage.
func ParseProviderID(s string) (ProviderID, error) {
	switch ProviderID(s) {
	case ProviderSpotify, ProviderYouTube:
		return ProviderID(s), nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

func (p ProviderID) String() string { return string(p) }

// Visibility is the canonical playlist visibility, translated per provider.
//
// Spotify models visibility as a public bool; YouTube uses a privacyStatus
// string with an extra unlisted tier. Adapters translate to and from this enum
// so core logic never sees a provider-specific convention.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
)

// Playlist represents a playlist on a specific provider.
//
// Identity is (Provider, ID); IDs are never comparable across providers.
// ArtworkURL is presentational metadata and plays no part in matching.
type Playlist struct {
	ID          string     `json:"id"`
	Provider    ProviderID `json:"provider"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	TrackCount  int        `json:"track_count"`
	OwnerUserID string     `json:"owner_user_id"`
	ArtworkURL  string     `json:"artwork_url,omitempty"`
}

// Track is a value type compared by content, not identity, when matching
// across providers.
type Track struct {
	Title           string   `json:"title"`
	Artists         []string `json:"artists"`
	Album           string   `json:"album"`
	DurationMS      int      `json:"duration_ms"`
	ISRC            string   `json:"isrc,omitempty"`
	ProviderTrackID string   `json:"provider_track_id,omitempty"`
}

// PrimaryArtist returns the first listed artist, or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Equal reports whether two tracks carry the same content.
func (t Track) Equal(other Track) bool {
	if t.Title != other.Title || t.Album != other.Album ||
		t.DurationMS != other.DurationMS || t.ISRC != other.ISRC {
		return false
	}
	if len(t.Artists) != len(other.Artists) {
		return false
	}
	for i := range t.Artists {
		if t.Artists[i] != other.Artists[i] {
			return false
		}
	}
	return true
}

// ConnectionStatus describes per (user, provider) authorization state.
type ConnectionStatus string

const (
	ConnectionActive       ConnectionStatus = "active"
	ConnectionExpired      ConnectionStatus = "expired"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Connection binds a user to a provider through OAuth tokens.
//
// One connection exists per (UserID, Provider). It is usable only while
// now < ExpiresAt or a refresh succeeds.
type Connection struct {
	UserID       string           `json:"user_id"`
	Provider     ProviderID       `json:"provider"`
	AccessToken  string           `json:"-"`
	RefreshToken string           `json:"-"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Scopes       []string         `json:"scopes"`
	Status       ConnectionStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Usable reports whether the access token is still valid at the given time.
func (c *Connection) Usable(now time.Time) bool {
	return c.Status == ConnectionActive && now.Before(c.ExpiresAt)
}

// MatchMethod records how a candidate was selected.
type MatchMethod string

const (
	MatchMethodISRC   MatchMethod = "isrc"
	MatchMethodScored MatchMethod = "scored"
)

// MatchCandidate is a provider search result proposed as the equivalent of a
// source track. Produced transiently by the matcher; persisted only inside a
// conversion report.
type MatchCandidate struct {
	SourceTrack    Track       `json:"source_track"`
	CandidateTrack Track       `json:"candidate_track"`
	Confidence     float64     `json:"confidence"`
	Method         MatchMethod `json:"method"`
}

// TrackOutcome classifies the result of matching one source track.
type TrackOutcome string

const (
	OutcomeMatched       TrackOutcome = "matched"
	OutcomeNoMatch       TrackOutcome = "no_match"
	OutcomeProviderError TrackOutcome = "provider_error"
)

// TrackResult is one ordered entry of a conversion report.
type TrackResult struct {
	Index       int             `json:"index"`
	SourceTrack Track           `json:"source_track"`
	Outcome     TrackOutcome    `json:"outcome"`
	Candidate   *MatchCandidate `json:"candidate,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Added       bool            `json:"added"`
}

// ConversionReport holds per-track outcomes in source order plus the created
// destination playlist reference on success.
type ConversionReport struct {
	Tracks      []TrackResult `json:"tracks"`
	Destination *Playlist     `json:"destination,omitempty"`
}

// MatchedCount returns the number of tracks with a Matched outcome.
func (r *ConversionReport) MatchedCount() int {
	n := 0
	for _, tr := range r.Tracks {
		if tr.Outcome == OutcomeMatched {
			n++
		}
	}
	return n
}

// JobStatus enumerates conversion job states. Completed, Failed, and
// PartiallyCompleted are terminal.
type JobStatus string

const (
	JobPending            JobStatus = "pending"
	JobFetching           JobStatus = "fetching"
	JobMatching           JobStatus = "matching"
	JobCreating           JobStatus = "creating"
	JobCompleted          JobStatus = "completed"
	JobFailed             JobStatus = "failed"
	JobPartiallyCompleted JobStatus = "partially_completed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobPartiallyCompleted:
		return true
	default:
		return false
	}
}

// ConversionJob is one request to replicate a playlist's tracks from one
// provider to another. Mutated only by the orchestrator.
type ConversionJob struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	SourceProvider   ProviderID        `json:"source_provider"`
	SourcePlaylistID string            `json:"source_playlist_id"`
	TargetProvider   ProviderID        `json:"target_provider"`
	Status           JobStatus         `json:"status"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Report           *ConversionReport `json:"report,omitempty"`
}

// TripleKey identifies the (user, source playlist, target provider) triple
// used by the orchestrator's uniqueness guard.
func (j *ConversionJob) TripleKey() string {
	return j.UserID + "|" + string(j.SourceProvider) + "|" + j.SourcePlaylistID + "|" + string(j.TargetProvider)
}

// Validate checks required job fields.
func (j *ConversionJob) Validate() error {
	if j.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if j.SourcePlaylistID == "" {
		return fmt.Errorf("source playlist id is required")
	}
	if j.SourceProvider == j.TargetProvider {
		return fmt.Errorf("source and target provider must differ")
	}
	return nil
}
