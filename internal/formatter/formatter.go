// package formatter renders conversion reports for the terminal and exports
// them to CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tunebridge/tunebridge/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// FormatDuration renders a millisecond duration as M:SS.
func FormatDuration(ms int) string {
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// RenderReport renders a job's conversion report as a styled terminal summary.
func RenderReport(job *models.ConversionJob) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Conversion %s", job.ID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s/%s → %s  ·  status: %s\n",
		job.SourceProvider, job.SourcePlaylistID, job.TargetProvider, renderStatus(job.Status)))

	if job.FailureReason != "" {
		b.WriteString(failedStyle.Render("reason: " + job.FailureReason))
		b.WriteString("\n")
	}

	if job.Report == nil {
		return b.String()
	}

	if dest := job.Report.Destination; dest != nil {
		b.WriteString(fmt.Sprintf("destination: %s (%s)\n", dest.Name, dest.ID))
	}

	for _, tr := range job.Report.Tracks {
		line := fmt.Sprintf("%3d. %s - %s", tr.Index+1, tr.SourceTrack.PrimaryArtist(), tr.SourceTrack.Title)
		switch tr.Outcome {
		case models.OutcomeMatched:
			detail := fmt.Sprintf(" → %s (%.2f)", tr.Candidate.CandidateTrack.Title, tr.Candidate.Confidence)
			b.WriteString(matchedStyle.Render("✓") + line + dimStyle.Render(detail))
		case models.OutcomeNoMatch:
			b.WriteString(missedStyle.Render("∅") + line + dimStyle.Render(" no match"))
		case models.OutcomeProviderError:
			b.WriteString(failedStyle.Render("✗") + line + dimStyle.Render(" "+tr.Reason))
		}
		b.WriteString("\n")
	}

	matched := job.Report.MatchedCount()
	total := len(job.Report.Tracks)
	if total > 0 {
		b.WriteString(fmt.Sprintf("matched %d/%d (%.1f%%)\n", matched, total, float64(matched)/float64(total)*100))
	}

	return b.String()
}

func renderStatus(status models.JobStatus) string {
	switch status {
	case models.JobCompleted:
		return matchedStyle.Render(string(status))
	case models.JobPartiallyCompleted:
		return missedStyle.Render(string(status))
	case models.JobFailed:
		return failedStyle.Render(string(status))
	default:
		return string(status)
	}
}

// ReportToCSV converts a conversion report to CSV with one row per source track.
func ReportToCSV(report *models.ConversionReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Album", "Duration", "ISRC", "Outcome", "MatchedTitle", "Confidence", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, tr := range report.Tracks {
		matchedTitle := ""
		confidence := ""
		if tr.Candidate != nil {
			matchedTitle = tr.Candidate.CandidateTrack.Title
			confidence = strconv.FormatFloat(tr.Candidate.Confidence, 'f', 3, 64)
		}

		record := []string{
			strconv.Itoa(tr.Index + 1),
			tr.SourceTrack.Title,
			strings.Join(tr.SourceTrack.Artists, "; "),
			tr.SourceTrack.Album,
			FormatDuration(tr.SourceTrack.DurationMS),
			tr.SourceTrack.ISRC,
			string(tr.Outcome),
			matchedTitle,
			confidence,
			tr.Reason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteReportCSV writes a report's CSV rendering to the given path.
func WriteReportCSV(report *models.ConversionReport, path string) error {
	data, err := ReportToCSV(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}
