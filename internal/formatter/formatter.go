// package formatter renders operation outcomes to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/cadenza-music/cadenza/internal/shared"
	"github.com/cadenza-music/cadenza/internal/tracker"
)

// displayRoot renders the collection root as "." for readability.
func displayRoot(root string) string {
	if root == "" {
		return "."
	}
	return root
}

// ScanToText converts a ScanOutcome to plain text format
func ScanToText(outcome *tracker.ScanOutcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Scan: %s (%s)\n", displayRoot(outcome.Root), outcome.Completion))
	buf.WriteString(fmt.Sprintf("Directories: %d\n\n", outcome.Directories.Total()))
	writeCountLines(&buf, outcome.Directories)

	return buf.Bytes()
}

// ScanToMarkdown converts a ScanOutcome to Markdown format
func ScanToMarkdown(outcome *tracker.ScanOutcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Scan of %s\n\n", displayRoot(outcome.Root)))
	buf.WriteString(fmt.Sprintf("**Completion**: %s\n", outcome.Completion))
	buf.WriteString(fmt.Sprintf("**Directories**: %d\n\n", outcome.Directories.Total()))

	buf.WriteString("| Status | Count |\n|---|---|\n")
	for _, row := range countRows(outcome.Directories) {
		buf.WriteString(fmt.Sprintf("| %s | %d |\n", row.label, row.count))
	}

	return buf.Bytes()
}

// ScanToCSV converts a ScanOutcome to CSV format with columns: Status, Count
func ScanToCSV(outcome *tracker.ScanOutcome) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Status", "Count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range countRows(outcome.Directories) {
		if err := writer.Write([]string{row.label, strconv.Itoa(row.count)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportToText converts an ImportOutcome to plain text format
func ImportToText(outcome *tracker.ImportOutcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Import: %s (%s)\n\n", displayRoot(outcome.Root), outcome.Completion))

	buf.WriteString("Directories:\n")
	buf.WriteString(fmt.Sprintf("  confirmed: %d\n", outcome.Directories.Confirmed))
	buf.WriteString(fmt.Sprintf("  skipped:   %d\n", outcome.Directories.Skipped))
	buf.WriteString(fmt.Sprintf("  untracked: %d\n\n", outcome.Directories.Untracked))

	buf.WriteString("Tracks:\n")
	for _, row := range trackRows(outcome.Tracks) {
		if row.count == 0 {
			continue
		}
		buf.WriteString(fmt.Sprintf("  %s: %d\n", row.label, row.count))
	}

	if len(outcome.Issues) > 0 {
		buf.WriteString("\nIssues:\n")
		for _, issue := range outcome.Issues {
			for _, msg := range issue.Messages {
				buf.WriteString(fmt.Sprintf("  %s: %s\n", issue.Path, msg))
			}
		}
	}

	return buf.Bytes()
}

// ImportToMarkdown converts an ImportOutcome to Markdown format
func ImportToMarkdown(outcome *tracker.ImportOutcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Import of %s\n\n", displayRoot(outcome.Root)))
	buf.WriteString(fmt.Sprintf("**Completion**: %s\n", outcome.Completion))
	buf.WriteString(fmt.Sprintf("**Confirmed directories**: %d\n", outcome.Directories.Confirmed))
	buf.WriteString(fmt.Sprintf("**Skipped directories**: %d\n", outcome.Directories.Skipped))
	buf.WriteString(fmt.Sprintf("**Untracked directories**: %d\n\n", outcome.Directories.Untracked))

	buf.WriteString("| Result | Count |\n|---|---|\n")
	for _, row := range trackRows(outcome.Tracks) {
		buf.WriteString(fmt.Sprintf("| %s | %d |\n", row.label, row.count))
	}

	if len(outcome.Issues) > 0 {
		buf.WriteString("\n## Issues\n\n")
		for _, issue := range outcome.Issues {
			for _, msg := range issue.Messages {
				buf.WriteString(fmt.Sprintf("- `%s`: %s\n", issue.Path, msg))
			}
		}
	}

	return buf.Bytes()
}

// ImportToCSV converts an ImportOutcome's track counts to CSV format
func ImportToCSV(outcome *tracker.ImportOutcome) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Result", "Count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range trackRows(outcome.Tracks) {
		if err := writer.Write([]string{row.label, strconv.Itoa(row.count)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// StatusToText converts a directory status summary to plain text format
func StatusToText(root string, counts tracker.DirectoryCounts) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Status: %s\n", displayRoot(root)))
	buf.WriteString(fmt.Sprintf("Tracked directories: %d\n\n", counts.Total()))
	writeCountLines(&buf, counts)

	return buf.Bytes()
}

// ToJSON generates an indented JSON representation of any outcome
func ToJSON(outcome any) ([]byte, error) {
	return shared.MarshalJSON(outcome, true)
}

type countRow struct {
	label string
	count int
}

func countRows(counts tracker.DirectoryCounts) []countRow {
	return []countRow{
		{tracker.StatusCurrent.String(), counts.Current},
		{tracker.StatusOutdated.String(), counts.Outdated},
		{tracker.StatusAdded.String(), counts.Added},
		{tracker.StatusModified.String(), counts.Modified},
		{tracker.StatusOrphaned.String(), counts.Orphaned},
	}
}

func trackRows(counts tracker.TrackCounts) []countRow {
	return []countRow{
		{"created", counts.Created},
		{"updated", counts.Updated},
		{"unchanged", counts.Unchanged},
		{"skipped", counts.Skipped},
		{"failed", counts.Failed},
		{"not imported", counts.NotImported},
		{"not created", counts.NotCreated},
		{"not updated", counts.NotUpdated},
	}
}

func writeCountLines(buf *bytes.Buffer, counts tracker.DirectoryCounts) {
	for _, row := range countRows(counts) {
		buf.WriteString(fmt.Sprintf("  %s: %d\n", row.label, row.count))
	}
}
