package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/shared"
	"golang.org/x/time/rate"
)

// retryBackoff is the base delay between match attempts; attempt n waits
// n * retryBackoff.
const retryBackoff = 500 * time.Millisecond

type matchTask struct {
	index int
	track models.Track
}

// matchTracks resolves every source track against the target provider using a
// bounded worker pool fed through a rate limiter.
//
// Results are collected by source index, so report order matches source order
// regardless of completion order. One track's failure never aborts the job:
// transient provider errors are retried a bounded number of times and then
// recorded as a ProviderError outcome for that track alone.
func (o *Orchestrator) matchTracks(ctx context.Context, job *models.ConversionJob, tracks []models.Track, target providers.Provider, accessToken string, progress chan<- ProgressUpdate) []models.TrackResult {
	results := make([]models.TrackResult, len(tracks))
	if len(tracks) == 0 {
		return results
	}

	limiter := rate.NewLimiter(rate.Limit(o.policy.SearchRateLimit), 1)
	taskCh := make(chan matchTask)

	var wg sync.WaitGroup
	for i := 0; i < o.policy.MatchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if err := limiter.Wait(ctx); err != nil {
					results[task.index] = cancelledResult(task)
					continue
				}
				results[task.index] = o.matchOne(ctx, task, target, accessToken)
			}
		}()
	}

	done := 0
	for i, track := range tracks {
		select {
		case <-ctx.Done():
			// Mark everything not yet handed to a worker
			for j := i; j < len(tracks); j++ {
				results[j] = cancelledResult(matchTask{index: j, track: tracks[j]})
			}
			close(taskCh)
			wg.Wait()
			return results
		case taskCh <- matchTask{index: i, track: track}:
			done++
			o.sendProgress(progress, matchUpdate(job.ID, done, len(tracks), track))
		}
	}
	close(taskCh)
	wg.Wait()

	return results
}

// matchOne matches a single track, retrying transient provider errors with
// linear backoff up to the configured bound.
func (o *Orchestrator) matchOne(ctx context.Context, task matchTask, target providers.Provider, accessToken string) models.TrackResult {
	result := models.TrackResult{
		Index:       task.index,
		SourceTrack: task.track,
	}

	attempts := o.policy.MatchRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		candidate, err := o.matcher.Match(ctx, task.track, target, accessToken)
		if err == nil {
			if candidate == nil {
				result.Outcome = models.OutcomeNoMatch
				return result
			}
			result.Outcome = models.OutcomeMatched
			result.Candidate = candidate
			return result
		}

		lastErr = err
		if !shared.IsTransientProviderError(err) || attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			result.Outcome = models.OutcomeProviderError
			result.Reason = shared.ErrCancelled.Error()
			return result
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	result.Outcome = models.OutcomeProviderError
	result.Reason = fmt.Sprintf("%v", lastErr)
	return result
}

func cancelledResult(task matchTask) models.TrackResult {
	return models.TrackResult{
		Index:       task.index,
		SourceTrack: task.track,
		Outcome:     models.OutcomeProviderError,
		Reason:      shared.ErrCancelled.Error(),
	}
}
