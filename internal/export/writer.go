package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// WriteStatusCSV writes reviewer or author rows as CSV with a header line.
func WriteStatusCSV(w io.Writer, rows []domain.StatusCounts) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"username", "total_prs", "approved_prs", "pending_prs", "blocked_prs", "percentage"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Login,
			strconv.Itoa(r.TotalPRs),
			strconv.Itoa(r.ApprovedPRs),
			strconv.Itoa(r.PendingPRs),
			strconv.Itoa(r.BlockedPRs),
			strconv.FormatFloat(r.Percentage, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEventsCSV writes activity events as CSV with a header line.
func WriteEventsCSV(w io.Writer, events []domain.ActivityEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "type", "actor", "repository", "number", "title"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range events {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Type),
			e.Actor.Login,
			e.Repository,
			strconv.Itoa(e.PullRequest.Number),
			e.PullRequest.Title,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	return nil
}
