package jobs

import (
	"fmt"

	"github.com/tunebridge/tunebridge/internal/models"
)

// ProgressUpdate represents a progress event during a running conversion.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	JobID   string // Job the update belongs to
	Phase   Phase  // Conversion phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates conversion phases for progress reporting.
type Phase int

const (
	PhaseFetch Phase = iota
	PhaseMatch
	PhaseCreate
	PhaseAdd
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseFetch:
		return "fetch"
	case PhaseMatch:
		return "match"
	case PhaseCreate:
		return "create"
	case PhaseAdd:
		return "add"
	case PhaseDone:
		return "done"
	default:
		return ""
	}
}

func fetchUpdate(jobID string, provider models.ProviderID) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseFetch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist from %s...", provider),
	}
}

func fetchedUpdate(jobID, name string, total int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseFetch,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", name, total),
	}
}

func matchUpdate(jobID string, step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseMatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.PrimaryArtist(), tr.Title),
	}
}

func createUpdate(jobID string, provider models.ProviderID) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseCreate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist on %s...", provider),
	}
}

func addUpdate(jobID string, count int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseAdd,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d matched tracks...", count),
	}
}

func doneUpdate(jobID string, status models.JobStatus, pl *models.Playlist) ProgressUpdate {
	msg := fmt.Sprintf("Conversion %s", status)
	if pl != nil {
		msg = fmt.Sprintf("Conversion %s: %s (ID: %s)", status, pl.Name, pl.ID)
	}
	return ProgressUpdate{
		JobID:   jobID,
		Phase:   PhaseDone,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    pl,
	}
}
