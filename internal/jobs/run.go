package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// run executes the job state machine:
// Pending → Fetching → Matching → Creating → terminal.
func (o *Orchestrator) run(ctx context.Context, job *models.ConversionJob, progress chan<- ProgressUpdate) {
	logger := shared.WithLogger(o.logger, "job", job.ID)

	srcAdapter, err := o.registry.Get(job.SourceProvider)
	if err != nil {
		o.fail(job, progress, err)
		return
	}
	tgtAdapter, err := o.registry.Get(job.TargetProvider)
	if err != nil {
		o.fail(job, progress, err)
		return
	}

	// Fetching
	if o.cancelled(ctx, job, progress) {
		return
	}
	o.transition(job, models.JobFetching)
	o.sendProgress(progress, fetchUpdate(job.ID, job.SourceProvider))

	srcConn, err := o.manager.EnsureValid(ctx, job.UserID, job.SourceProvider)
	if err != nil {
		o.fail(job, progress, err)
		return
	}
	tgtConn, err := o.manager.EnsureValid(ctx, job.UserID, job.TargetProvider)
	if err != nil {
		o.fail(job, progress, err)
		return
	}

	srcPlaylist, err := o.sourcePlaylist(ctx, job)
	if err != nil {
		o.fail(job, progress, err)
		return
	}

	tracks, err := srcAdapter.ListTracks(ctx, srcConn.AccessToken, job.SourcePlaylistID)
	if err != nil {
		o.fail(job, progress, err)
		return
	}
	o.sendProgress(progress, fetchedUpdate(job.ID, srcPlaylist.Name, len(tracks)))

	// Matching. An empty playlist skips straight to Creating.
	if o.cancelled(ctx, job, progress) {
		return
	}
	o.transition(job, models.JobMatching)

	results := o.matchTracks(ctx, job, tracks, tgtAdapter, tgtConn.AccessToken, progress)
	job.Report = &models.ConversionReport{Tracks: results}

	// Cancellation before Creating never produces a destination playlist
	if o.cancelled(ctx, job, progress) {
		return
	}

	// Creating
	o.transition(job, models.JobCreating)
	o.sendProgress(progress, createUpdate(job.ID, job.TargetProvider))

	description := srcPlaylist.Description
	provenance := fmt.Sprintf("Converted from %s: %s", job.SourceProvider, srcPlaylist.Name)
	if description == "" {
		description = provenance
	} else {
		description = description + " · " + provenance
	}

	dest, err := tgtAdapter.CreatePlaylist(ctx, tgtConn.AccessToken, srcPlaylist.Name, description, models.VisibilityPrivate)
	if err != nil {
		o.fail(job, progress, err)
		return
	}
	job.Report.Destination = dest

	var matchedIdx []int
	var matchedIDs []string
	for i, res := range results {
		if res.Outcome == models.OutcomeMatched {
			matchedIdx = append(matchedIdx, i)
			matchedIDs = append(matchedIDs, res.Candidate.CandidateTrack.ProviderTrackID)
		}
	}

	addFailed := false
	if len(matchedIDs) > 0 {
		o.sendProgress(progress, addUpdate(job.ID, len(matchedIDs)))
		if err := tgtAdapter.AddTracks(ctx, tgtConn.AccessToken, dest.ID, matchedIDs); err != nil {
			// The playlist exists; already-added tracks remain a best-effort
			// partial artifact
			logger.Warn("track add failed", "err", err)
			addFailed = true
			for _, i := range matchedIdx {
				job.Report.Tracks[i].Reason = fmt.Sprintf("add failed: %v", err)
			}
		} else {
			for _, i := range matchedIdx {
				job.Report.Tracks[i].Added = true
			}
		}
	}

	status := deriveStatus(results, addFailed)
	o.finish(job, progress, status, "")
	logger.Info("conversion finished",
		"status", status, "tracks", len(tracks), "matched", len(matchedIDs))
}

// deriveStatus computes the terminal status from per-track outcomes.
//
// Completed iff every source track matched and every add succeeded (trivially
// true for an empty playlist); PartiallyCompleted when any track missed or an
// add failed but the playlist exists.
func deriveStatus(results []models.TrackResult, addFailed bool) models.JobStatus {
	if addFailed {
		return models.JobPartiallyCompleted
	}
	for _, res := range results {
		if res.Outcome != models.OutcomeMatched {
			return models.JobPartiallyCompleted
		}
	}
	return models.JobCompleted
}

// sourcePlaylist resolves the source playlist's metadata from the catalog
// cache, forcing a refresh when the cached listing doesn't contain it.
func (o *Orchestrator) sourcePlaylist(ctx context.Context, job *models.ConversionJob) (*models.Playlist, error) {
	listing, err := o.catalog.ListPlaylists(ctx, job.UserID, job.SourceProvider, false)
	if err != nil {
		return nil, err
	}

	if pl := findPlaylist(listing.Playlists, job.SourcePlaylistID); pl != nil {
		return pl, nil
	}

	listing, err = o.catalog.ListPlaylists(ctx, job.UserID, job.SourceProvider, true)
	if err != nil {
		return nil, err
	}
	if pl := findPlaylist(listing.Playlists, job.SourcePlaylistID); pl != nil {
		return pl, nil
	}

	return nil, fmt.Errorf("%w: %s on %s", shared.ErrPlaylistNotFound, job.SourcePlaylistID, job.SourceProvider)
}

func findPlaylist(playlists []models.Playlist, id string) *models.Playlist {
	for i := range playlists {
		if playlists[i].ID == id {
			return &playlists[i]
		}
	}
	return nil
}

// cancelled checks the job's cancellation signal; when set, the job
// transitions to Failed with reason "cancelled".
func (o *Orchestrator) cancelled(ctx context.Context, job *models.ConversionJob, progress chan<- ProgressUpdate) bool {
	if ctx.Err() == nil {
		return false
	}
	o.finish(job, progress, models.JobFailed, shared.ErrCancelled.Error())
	return true
}

// fail moves the job to Failed with the error as reason.
func (o *Orchestrator) fail(job *models.ConversionJob, progress chan<- ProgressUpdate, err error) {
	if errors.Is(err, context.Canceled) {
		o.finish(job, progress, models.JobFailed, shared.ErrCancelled.Error())
		return
	}
	o.finish(job, progress, models.JobFailed, err.Error())
}

// transition persists an intermediate status change.
func (o *Orchestrator) transition(job *models.ConversionJob, status models.JobStatus) {
	job.Status = status
	if err := o.repo.Update(job); err != nil {
		o.logger.Error("failed to persist job status", "job", job.ID, "status", status, "err", err)
	}
}

// finish persists a terminal status with completion time and reason.
func (o *Orchestrator) finish(job *models.ConversionJob, progress chan<- ProgressUpdate, status models.JobStatus, reason string) {
	now := time.Now()
	job.Status = status
	job.FailureReason = reason
	job.CompletedAt = &now
	if err := o.repo.Update(job); err != nil {
		o.logger.Error("failed to persist terminal job state", "job", job.ID, "err", err)
	}

	var dest *models.Playlist
	if job.Report != nil {
		dest = job.Report.Destination
	}
	o.sendProgress(progress, doneUpdate(job.ID, status, dest))
}
