package models

import (
	"testing"
	"time"
)

func TestParseProviderID(t *testing.T) {
	tests := []struct {
		input   string
		want    ProviderID
		wantErr bool
	}{
		{"spotify", ProviderSpotify, false},
		{"youtube", ProviderYouTube, false},
		{"tidal", "", true},
		{"Spotify", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProviderID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProviderID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProviderID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestTrackEqual(t *testing.T) {
	base := Track{Title: "Karma Police", Artists: []string{"Radiohead"}, Album: "OK Computer", DurationMS: 261000, ISRC: "GBAYE9700122"}

	tests := []struct {
		name  string
		other Track
		want  bool
	}{
		{"identical", Track{Title: "Karma Police", Artists: []string{"Radiohead"}, Album: "OK Computer", DurationMS: 261000, ISRC: "GBAYE9700122"}, true},
		{"different provider id still equal", func() Track {
			tr := base
			tr.ProviderTrackID = "yt-1"
			return tr
		}(), true},
		{"different title", func() Track {
			tr := base
			tr.Title = "No Surprises"
			return tr
		}(), false},
		{"extra artist", func() Track {
			tr := base
			tr.Artists = []string{"Radiohead", "Guest"}
			return tr
		}(), false},
		{"different duration", func() Track {
			tr := base
			tr.DurationMS = 260000
			return tr
		}(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrimaryArtist(t *testing.T) {
	if got := (Track{Artists: []string{"A", "B"}}).PrimaryArtist(); got != "A" {
		t.Errorf("PrimaryArtist() = %q, want A", got)
	}
	if got := (Track{}).PrimaryArtist(); got != "" {
		t.Errorf("PrimaryArtist() = %q, want empty", got)
	}
}

func TestConnectionUsable(t *testing.T) {
	now := time.Now()
	conn := Connection{Status: ConnectionActive, ExpiresAt: now.Add(time.Hour)}

	if !conn.Usable(now) {
		t.Error("active unexpired connection should be usable")
	}
	if conn.Usable(now.Add(2 * time.Hour)) {
		t.Error("expired token should not be usable")
	}

	conn.Status = ConnectionExpired
	if conn.Usable(now) {
		t.Error("expired status should not be usable regardless of time")
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobPartiallyCompleted}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []JobStatus{JobPending, JobFetching, JobMatching, JobCreating}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestJobValidate(t *testing.T) {
	valid := ConversionJob{
		UserID:           "user1",
		SourceProvider:   ProviderSpotify,
		SourcePlaylistID: "pl1",
		TargetProvider:   ProviderYouTube,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid job rejected: %v", err)
	}

	missingUser := valid
	missingUser.UserID = ""
	if err := missingUser.Validate(); err == nil {
		t.Error("expected error for missing user id")
	}

	missingPlaylist := valid
	missingPlaylist.SourcePlaylistID = ""
	if err := missingPlaylist.Validate(); err == nil {
		t.Error("expected error for missing playlist id")
	}

	sameProvider := valid
	sameProvider.TargetProvider = ProviderSpotify
	if err := sameProvider.Validate(); err == nil {
		t.Error("expected error when source and target match")
	}
}

func TestTripleKey(t *testing.T) {
	a := ConversionJob{UserID: "u", SourceProvider: ProviderSpotify, SourcePlaylistID: "pl", TargetProvider: ProviderYouTube}
	b := a
	if a.TripleKey() != b.TripleKey() {
		t.Error("identical triples should share a key")
	}

	c := a
	c.TargetProvider = ProviderSpotify
	if a.TripleKey() == c.TripleKey() {
		t.Error("different targets should produce different keys")
	}
}

func TestMatchedCount(t *testing.T) {
	report := ConversionReport{Tracks: []TrackResult{
		{Outcome: OutcomeMatched},
		{Outcome: OutcomeNoMatch},
		{Outcome: OutcomeMatched},
		{Outcome: OutcomeProviderError},
	}}

	if got := report.MatchedCount(); got != 2 {
		t.Errorf("MatchedCount() = %d, want 2", got)
	}
}
