package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunebridge/tunebridge/internal/formatter"
	"github.com/tunebridge/tunebridge/internal/jobs"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/urfave/cli/v3"
)

// ConvertRun starts a conversion, streams progress to the terminal, and
// renders the final report.
func (r *Runner) ConvertRun(ctx context.Context, cmd *cli.Command) error {
	sourceProvider, err := models.ParseProviderID(cmd.String("from"))
	if err != nil {
		return err
	}
	targetProvider, err := models.ParseProviderID(cmd.String("to"))
	if err != nil {
		return err
	}
	playlistID := cmd.String("playlist")
	userID := cmd.String("user")
	csvPath := cmd.String("csv")

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	r.writePlain("Converting %s/%s → %s...\n\n", sourceProvider, playlistID, targetProvider)

	progressCh := make(chan jobs.ProgressUpdate, 50)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressCh {
			switch update.Phase {
			case jobs.PhaseFetch:
				r.writePlain("📥 %s\n", update.Message)
			case jobs.PhaseMatch:
				if update.Step == 1 {
					r.writePlain("\n🔍 matching tracks\n")
				}
				r.writePlain("   %s\n", update.Message)
			case jobs.PhaseCreate:
				r.writePlain("\n📝 %s\n", update.Message)
			case jobs.PhaseAdd:
				r.writePlain("➕ %s\n", update.Message)
			}
		}
	}()

	job, err := engine.orchestrator.RequestConversion(ctx, userID, sourceProvider, playlistID, targetProvider, progressCh)
	if err != nil {
		close(progressCh)
		<-progressDone
		return err
	}

	// Ctrl-C cancels the job; the report still renders with what finished.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	finished := make(chan struct{})
	go func() {
		select {
		case <-interrupt:
			r.writePlain("\ncancelling...\n")
			engine.orchestrator.Cancel(job.ID)
		case <-finished:
		}
	}()

	engine.orchestrator.Wait()
	close(finished)
	signal.Stop(interrupt)
	close(progressCh)
	<-progressDone

	final, err := engine.orchestrator.GetJob(job.ID)
	if err != nil {
		return err
	}

	r.writePlain("\n%s\n", formatter.RenderReport(final))

	if csvPath != "" && final.Report != nil {
		if err := formatter.WriteReportCSV(final.Report, csvPath); err != nil {
			return err
		}
		r.writePlain("report written to %s\n", csvPath)
	}

	if final.Status == models.JobFailed {
		return fmt.Errorf("conversion failed: %s", final.FailureReason)
	}
	return nil
}

// ConvertStatus shows a stored conversion job and its report.
func (r *Runner) ConvertStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	job, err := engine.orchestrator.GetJob(cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}

	r.writePlain("%s\n", formatter.RenderReport(job))
	return nil
}

// ConvertList lists a user's recent conversion jobs.
func (r *Runner) ConvertList(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	limit := int(cmd.Int("limit"))

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	list, err := engine.orchestrator.ListJobs(userID, limit)
	if err != nil {
		return err
	}

	for _, job := range list {
		r.writePlain("%s  %s/%s → %s  %s  %s\n",
			job.CreatedAt.Format("2006-01-02 15:04"),
			job.SourceProvider, job.SourcePlaylistID, job.TargetProvider,
			job.Status, job.ID)
	}
	if len(list) == 0 {
		r.writePlain("no conversions yet\n")
	}
	return nil
}
