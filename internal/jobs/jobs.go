// package jobs drives conversion jobs end to end.
//
// The orchestrator validates readiness, fetches source tracks, matches them
// against the target catalog with a bounded worker pool, creates the
// destination playlist, and assembles a per-track report in source order.
// Each job runs as an independent goroutine; an in-memory registry with
// atomic check-and-insert semantics guarantees at most one non-terminal job
// per (user, source playlist, target provider) triple.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/catalog"
	"github.com/tunebridge/tunebridge/internal/connections"
	"github.com/tunebridge/tunebridge/internal/matching"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Orchestrator owns the conversion job lifecycle.
type Orchestrator struct {
	repo     *repositories.JobRepository
	manager  *connections.Manager
	catalog  *catalog.Cache
	registry *providers.Registry
	matcher  *matching.Matcher
	policy   shared.ConversionConfig
	logger   *log.Logger

	mu      sync.Mutex
	active  map[string]string // triple key -> job ID
	cancels map[string]context.CancelFunc
	done    sync.WaitGroup
}

// NewOrchestrator creates a conversion orchestrator.
func NewOrchestrator(
	repo *repositories.JobRepository,
	manager *connections.Manager,
	cat *catalog.Cache,
	registry *providers.Registry,
	matcher *matching.Matcher,
	policy shared.ConversionConfig,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Orchestrator{
		repo:     repo,
		manager:  manager,
		catalog:  cat,
		registry: registry,
		matcher:  matcher,
		policy:   policy,
		logger:   shared.WithLogger(logger, "component", "jobs"),
		active:   make(map[string]string),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// RequestConversion validates the request, enforces the per-triple uniqueness
// guard, persists a pending job, and starts it in the background.
//
// The caller receives either the accepted job handle or an immediate error:
// [shared.ErrConversionInFlight] for a duplicate triple,
// [shared.ErrReauthRequired]/[shared.ErrNotConnected] when either side's
// connection is unusable. A rejected request never creates a job.
func (o *Orchestrator) RequestConversion(ctx context.Context, userID string, sourceProvider models.ProviderID, sourcePlaylistID string, targetProvider models.ProviderID, progress chan<- ProgressUpdate) (*models.ConversionJob, error) {
	job := &models.ConversionJob{
		UserID:           userID,
		SourceProvider:   sourceProvider,
		SourcePlaylistID: sourcePlaylistID,
		TargetProvider:   targetProvider,
		Status:           models.JobPending,
		CreatedAt:        time.Now(),
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	// Both connections must be valid before a job exists
	if _, err := o.manager.EnsureValid(ctx, userID, sourceProvider); err != nil {
		return nil, err
	}
	if _, err := o.manager.EnsureValid(ctx, userID, targetProvider); err != nil {
		return nil, err
	}

	key := job.TripleKey()

	o.mu.Lock()
	if jobID, exists := o.active[key]; exists {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: job %s", shared.ErrConversionInFlight, jobID)
	}
	job.ID = shared.GenerateID()
	o.active[key] = job.ID
	o.mu.Unlock()

	if err := o.repo.Create(job); err != nil {
		o.release(key, job.ID)
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	// The running goroutine owns job and keeps mutating it; callers get a
	// snapshot of the accepted state and poll GetJob for progress.
	accepted := *job

	o.done.Add(1)
	go func() {
		defer o.done.Done()
		defer cancel()
		o.run(jobCtx, job, progress)
		o.release(key, job.ID)
	}()

	o.logger.Info("conversion accepted",
		"job", job.ID, "user", userID,
		"source", sourceProvider, "playlist", sourcePlaylistID, "target", targetProvider)

	return &accepted, nil
}

// GetJob retrieves a job with its report.
func (o *Orchestrator) GetJob(jobID string) (*models.ConversionJob, error) {
	return o.repo.Get(jobID)
}

// ListJobs retrieves a user's recent jobs, newest first.
func (o *Orchestrator) ListJobs(userID string, limit int) ([]*models.ConversionJob, error) {
	return o.repo.ListByUser(userID, limit)
}

// Cancel signals a running job to stop. The job transitions to Failed with
// reason "cancelled" at its next cancellation check.
func (o *Orchestrator) Cancel(jobID string) error {
	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no running job %s", shared.ErrJobNotFound, jobID)
	}

	cancel()
	o.logger.Info("cancellation requested", "job", jobID)
	return nil
}

// Wait blocks until all running jobs have finished. Used on shutdown and in tests.
func (o *Orchestrator) Wait() {
	o.done.Wait()
}

// release removes the job from the uniqueness registry and cancel table.
func (o *Orchestrator) release(key, jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[key] == jobID {
		delete(o.active, key)
	}
	delete(o.cancels, jobID)
}

// sendProgress sends a progress update without blocking.
func (o *Orchestrator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
