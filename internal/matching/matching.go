// package matching resolves a source track to its best-match equivalent on a
// target provider.
//
// The matcher searches the target catalog with a normalized query, scores
// each candidate with a weighted combination of title similarity, artist
// overlap, and duration closeness, and rejects anything under the acceptance
// threshold. A miss is preferable to a wrong track.
package matching

import (
	"context"
	"fmt"

	"github.com/agnivade/levenshtein"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Scoring weights and policy values. The weights sum to 1 so the combined
// score stays in [0, 1].
const (
	titleWeight    = 0.5
	artistWeight   = 0.3
	durationWeight = 0.2

	// durationToleranceSeconds is the delta at which the duration component
	// bottoms out at zero.
	durationToleranceSeconds = 30.0

	DefaultThreshold   = 0.6
	DefaultSearchLimit = 10
)

// Matcher scores target-provider search results against source tracks.
type Matcher struct {
	threshold   float64
	searchLimit int
}

// NewMatcher creates a matcher with the given acceptance threshold and search
// result bound. Non-positive arguments fall back to the defaults.
func NewMatcher(threshold float64, searchLimit int) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Matcher{threshold: threshold, searchLimit: searchLimit}
}

// Match finds the best equivalent of source in the target provider's catalog.
//
// Returns (nil, nil) when no candidate reaches the acceptance threshold or
// the search comes back empty; an error only for provider failures. A
// candidate sharing the source's ISRC short-circuits scoring at confidence 1.
func (m *Matcher) Match(ctx context.Context, source models.Track, target providers.Provider, accessToken string) (*models.MatchCandidate, error) {
	query := BuildQuery(source)
	if query == "" {
		return nil, fmt.Errorf("%w: track has no searchable metadata", shared.ErrInvalidInput)
	}

	results, err := target.SearchTracks(ctx, accessToken, query, m.searchLimit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	var best *models.MatchCandidate
	for _, candidate := range results {
		if source.ISRC != "" && candidate.ISRC == source.ISRC {
			return &models.MatchCandidate{
				SourceTrack:    source,
				CandidateTrack: candidate,
				Confidence:     1.0,
				Method:         models.MatchMethodISRC,
			}, nil
		}

		score := Score(source, candidate)
		if best == nil || score > best.Confidence {
			best = &models.MatchCandidate{
				SourceTrack:    source,
				CandidateTrack: candidate,
				Confidence:     score,
				Method:         models.MatchMethodScored,
			}
		}
	}

	// Exactly at the threshold is accepted; strictly below is a NoMatch
	if best.Confidence < m.threshold {
		return nil, nil
	}
	return best, nil
}

// BuildQuery constructs the search query from the normalized title and
// primary artist.
func BuildQuery(t models.Track) string {
	title := NormalizeTitle(t.Title)
	artist := NormalizeArtist(t.PrimaryArtist())
	switch {
	case title == "":
		return artist
	case artist == "":
		return title
	default:
		return title + " " + artist
	}
}

// Score computes the weighted match score between a source track and a
// candidate: title similarity 0.5, artist overlap 0.3, duration closeness 0.2.
func Score(source, candidate models.Track) float64 {
	title := titleSimilarity(source.Title, candidate.Title)
	artists := artistOverlap(source.Artists, candidate.Artists)
	duration := durationCloseness(source.DurationMS, candidate.DurationMS)
	return titleWeight*title + artistWeight*artists + durationWeight*duration
}

// titleSimilarity is one minus the normalized Levenshtein distance between
// the normalized titles.
func titleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" && nb == "" {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(na, nb)
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1 - float64(dist)/float64(longest)
}

// artistOverlap is the Jaccard index over normalized artist name sets.
func artistOverlap(a, b []string) float64 {
	setA := artistSet(a)
	setB := artistSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for name := range setA {
		if _, ok := setB[name]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func artistSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if n := NormalizeArtist(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// durationCloseness is 1 − min(|Δseconds|/30, 1). An unknown duration on
// either side pushes the delta past the tolerance and scores zero.
func durationCloseness(aMS, bMS int) float64 {
	deltaSeconds := float64(aMS-bMS) / 1000.0
	if deltaSeconds < 0 {
		deltaSeconds = -deltaSeconds
	}
	ratio := deltaSeconds / durationToleranceSeconds
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}
