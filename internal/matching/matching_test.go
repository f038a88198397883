package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
	itesting "github.com/tunebridge/tunebridge/internal/testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Bohemian Rhapsody", "bohemian rhapsody"},
		{"strips remaster qualifier", "Bohemian Rhapsody (Remastered 2011)", "bohemian rhapsody"},
		{"strips bracketed qualifier", "Karma Police [Live]", "karma police"},
		{"strips nested qualifiers", "Song (feat. X [Remix])", "song"},
		{"removes punctuation", "Don't Stop Me Now!", "dont stop me now"},
		{"collapses whitespace", "  Two   Words  ", "two words"},
		{"ampersand keeps words apart", "Rock & Roll", "rock roll"},
		{"unicode survives", "Beyoncé", "beyoncé"},
		{"empty stays empty", "", ""},
		{"all qualifier becomes empty", "(Intro)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{"Bohemian Rhapsody (Remastered 2011)", "Don't Stop Me Now!", "Rock & Roll"}
	for _, input := range inputs {
		once := NormalizeTitle(input)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestNormalizeArtist(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Daft Punk", "daft punk"},
		{"AC/DC", "acdc"},
		{"Simon & Garfunkel", "simon garfunkel"},
	}

	for _, tt := range tests {
		if got := NormalizeArtist(tt.input); got != tt.want {
			t.Errorf("NormalizeArtist(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		track models.Track
		want  string
	}{
		{
			name:  "title and artist",
			track: models.Track{Title: "Karma Police (Live)", Artists: []string{"Radiohead"}},
			want:  "karma police radiohead",
		},
		{
			name:  "title only",
			track: models.Track{Title: "Untitled"},
			want:  "untitled",
		},
		{
			name:  "artist only",
			track: models.Track{Title: "(Intro)", Artists: []string{"Some Band"}},
			want:  "some band",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.track); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	base := models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 261000}

	tests := []struct {
		name      string
		candidate models.Track
		want      float64
	}{
		{
			name:      "identical track scores 1",
			candidate: models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 261000},
			want:      1.0,
		},
		{
			name:      "qualifier variant still scores 1",
			candidate: models.Track{Title: "Karma Police (Remastered)", Artists: []string{"radiohead"}, DurationMS: 261000},
			want:      1.0,
		},
		{
			name:      "duration off by 15s loses half the duration weight",
			candidate: models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 276000},
			want:      0.9,
		},
		{
			name:      "duration off by a minute zeroes the duration component",
			candidate: models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 321000},
			want:      0.8,
		},
		{
			name:      "unrelated artist zeroes the artist component",
			candidate: models.Track{Title: "Karma Police", Artists: []string{"Tribute Band"}, DurationMS: 261000},
			want:      0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(base, tt.candidate)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtistOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical single artist", []string{"Radiohead"}, []string{"radiohead"}, 1.0},
		{"both empty", nil, nil, 1.0},
		{"one empty", []string{"Radiohead"}, nil, 0.0},
		{"half overlap", []string{"A", "B"}, []string{"B", "C"}, 1.0 / 3.0},
		{"disjoint", []string{"A"}, []string{"B"}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artistOverlap(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("artistOverlap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDurationCloseness(t *testing.T) {
	tests := []struct {
		name     string
		aMS, bMS int
		want     float64
	}{
		{"equal", 200000, 200000, 1.0},
		{"15s apart", 200000, 215000, 0.5},
		{"30s apart", 200000, 230000, 0.0},
		{"beyond tolerance clamps at zero", 200000, 300000, 0.0},
		{"symmetric", 215000, 200000, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := durationCloseness(tt.aMS, tt.bMS)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("durationCloseness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcherMatch(t *testing.T) {
	source := models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 261000}

	tests := []struct {
		name           string
		source         models.Track
		results        []models.Track
		searchErr      error
		wantNil        bool
		wantErr        bool
		wantMethod     models.MatchMethod
		wantConfidence float64
	}{
		{
			name:    "empty results is a NoMatch, not an error",
			source:  source,
			results: nil,
			wantNil: true,
		},
		{
			name:   "exact candidate accepted",
			source: source,
			results: []models.Track{
				{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 261000, ProviderTrackID: "yt1"},
			},
			wantMethod:     models.MatchMethodScored,
			wantConfidence: 1.0,
		},
		{
			name:   "isrc match short-circuits despite dissimilar metadata",
			source: models.Track{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 261000, ISRC: "GBAYE9700122"},
			results: []models.Track{
				{Title: "completely different upload", Artists: []string{"someone"}, DurationMS: 100, ISRC: "GBAYE9700122", ProviderTrackID: "yt2"},
			},
			wantMethod:     models.MatchMethodISRC,
			wantConfidence: 1.0,
		},
		{
			name:   "all candidates below threshold is a NoMatch",
			source: source,
			results: []models.Track{
				{Title: "totally unrelated", Artists: []string{"nobody"}, DurationMS: 1000},
			},
			wantNil: true,
		},
		{
			name:   "best of several candidates wins",
			source: source,
			results: []models.Track{
				{Title: "Karma Police cover", Artists: []string{"Tribute Band"}, DurationMS: 261000, ProviderTrackID: "cover"},
				{Title: "Karma Police", Artists: []string{"Radiohead"}, DurationMS: 262000, ProviderTrackID: "official"},
			},
			wantMethod: models.MatchMethodScored,
		},
		{
			name:      "provider failure propagates",
			source:    source,
			searchErr: shared.ErrProviderUnavailable,
			wantErr:   true,
		},
		{
			name:    "no searchable metadata is invalid input",
			source:  models.Track{Title: "(Intro)"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := itesting.NewMockProvider(models.ProviderYouTube)
			provider.SearchTracksFn = func(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
				if tt.searchErr != nil {
					return nil, tt.searchErr
				}
				return tt.results, nil
			}

			matcher := NewMatcher(DefaultThreshold, DefaultSearchLimit)
			candidate, err := matcher.Match(context.Background(), tt.source, provider, "token")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantNil {
				if candidate != nil {
					t.Fatalf("expected no match, got %+v", candidate)
				}
				return
			}
			if candidate == nil {
				t.Fatal("expected a match, got nil")
			}

			if tt.wantMethod != "" && candidate.Method != tt.wantMethod {
				t.Errorf("Method = %v, want %v", candidate.Method, tt.wantMethod)
			}
			if tt.wantConfidence != 0 && math.Abs(candidate.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", candidate.Confidence, tt.wantConfidence)
			}
			if tt.name == "best of several candidates wins" && candidate.CandidateTrack.ProviderTrackID != "official" {
				t.Errorf("picked %q, want the official upload", candidate.CandidateTrack.ProviderTrackID)
			}
		})
	}
}

// A candidate landing exactly on the threshold is accepted; strictly below is
// rejected. Identical title plus a 15-second duration delta and no artist
// overlap lands exactly on 0.6.
func TestMatcherThresholdBoundary(t *testing.T) {
	matcher := NewMatcher(0.6, DefaultSearchLimit)
	source := models.Track{Title: "Song", Artists: []string{"A"}, DurationMS: 200000}

	tests := []struct {
		name      string
		candidate models.Track
		wantScore float64
		wantMatch bool
	}{
		{
			// title 1.0*0.5 + artists 0*0.3 + duration 0.5*0.2 = 0.6
			name:      "exactly at threshold accepted",
			candidate: models.Track{Title: "Song", Artists: []string{"B"}, DurationMS: 215000},
			wantScore: 0.6,
			wantMatch: true,
		},
		{
			// title 1.0*0.5 + artists 0*0.3 + duration 0.45*0.2 = 0.59
			name:      "just below threshold rejected",
			candidate: models.Track{Title: "Song", Artists: []string{"B"}, DurationMS: 216500},
			wantScore: 0.59,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(source, tt.candidate); math.Abs(got-tt.wantScore) > 1e-9 {
				t.Fatalf("Score() = %v, want %v", got, tt.wantScore)
			}

			provider := itesting.NewMockProvider(models.ProviderYouTube)
			provider.SearchTracksFn = func(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
				return []models.Track{tt.candidate}, nil
			}

			candidate, err := matcher.Match(context.Background(), source, provider, "token")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (candidate != nil) != tt.wantMatch {
				t.Errorf("match = %v, want %v", candidate != nil, tt.wantMatch)
			}
		})
	}
}

func TestMatcherSearchLimitPassedThrough(t *testing.T) {
	matcher := NewMatcher(DefaultThreshold, 25)

	provider := itesting.NewMockProvider(models.ProviderSpotify)
	var gotLimit int
	provider.SearchTracksFn = func(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
		gotLimit = limit
		return nil, nil
	}

	if _, err := matcher.Match(context.Background(), itesting.SampleTrack("Song", "Artist", 200000), provider, "token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 25 {
		t.Errorf("search limit = %d, want 25", gotLimit)
	}
}

func TestMatcherErrorWrapping(t *testing.T) {
	provider := itesting.NewMockProvider(models.ProviderYouTube)
	provider.SearchTracksFn = func(ctx context.Context, accessToken, query string, limit int) ([]models.Track, error) {
		return nil, fmt.Errorf("%w: search failed", shared.ErrRateLimited)
	}

	matcher := NewMatcher(DefaultThreshold, DefaultSearchLimit)
	_, err := matcher.Match(context.Background(), itesting.SampleTrack("Song", "Artist", 200000), provider, "token")
	if !errors.Is(err, shared.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
