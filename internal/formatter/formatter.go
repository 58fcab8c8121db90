// package formatter renders reconciliation results, accounts and the activity log as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/removarr/internal/models"
)

// Format selects an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts text, md/markdown, csv and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected text, markdown, csv or json)", s)
	}
}

// ToJSON encodes v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ResultToText renders a reconciliation result as a summary line followed by one line per detail.
func ResultToText(r models.ReconciliationResult) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Removed: %d  Scanned accounts: %d\n", r.Removed, r.ScannedAccounts))
	for _, d := range r.Details {
		buf.WriteString("  " + d + "\n")
	}
	return buf.Bytes()
}

func relTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

// AccountsToText renders accounts as an aligned table with relative check times.
func AccountsToText(accounts []models.AccountView, now time.Time) []byte {
	var buf bytes.Buffer
	if len(accounts) == 0 {
		buf.WriteString("No linked accounts.\n")
		return buf.Bytes()
	}

	width := len("LABEL")
	for _, a := range accounts {
		width = max(width, len(a.Label))
	}

	row := fmt.Sprintf("%%-%ds  %%-7s  %%-6s  %%-16s  %%-16s  %%s\n", width)
	buf.WriteString(fmt.Sprintf(row, "LABEL", "STATUS", "METHOD", "LAST CHECK", "LAST OK", "ID"))
	for _, a := range accounts {
		buf.WriteString(fmt.Sprintf(row, a.Label, a.Status, a.AuthMethod, relTime(a.LastCheckAt, now), relTime(a.LastOKAt, now), a.ID))
		if a.LastError != "" {
			buf.WriteString(fmt.Sprintf("  └ %s\n", a.LastError))
		}
	}
	return buf.Bytes()
}

func yearString(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}

func titleWithYear(e models.ActivityEntry) string {
	if e.Year == 0 {
		return e.Title
	}
	return fmt.Sprintf("%s (%d)", e.Title, e.Year)
}

// ActivityToText renders activity entries, most recent first, with relative timestamps.
func ActivityToText(entries []models.ActivityEntry, now time.Time) []byte {
	var buf bytes.Buffer
	if len(entries) == 0 {
		buf.WriteString("No activity recorded.\n")
		return buf.Bytes()
	}

	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("%s  [%s] %s  removed %d/%d\n",
			humanize.RelTime(e.Timestamp, now, "ago", "from now"), e.Source, titleWithYear(e), e.Removed, e.ScannedAccounts))
		for _, d := range e.Details {
			buf.WriteString("    " + d + "\n")
		}
	}
	return buf.Bytes()
}

// ActivityToMarkdown renders activity entries as a Markdown document with one section per event.
func ActivityToMarkdown(entries []models.ActivityEntry) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Removarr Activity\n\n")
	buf.WriteString(fmt.Sprintf("**Events**: %d\n\n", len(entries)))

	for _, e := range entries {
		buf.WriteString(fmt.Sprintf("## %s\n\n", titleWithYear(e)))
		buf.WriteString(fmt.Sprintf("- **When**: %s\n", e.Timestamp.UTC().Format(time.RFC3339)))
		buf.WriteString(fmt.Sprintf("- **Source**: %s\n", e.Source))
		if e.TMDBID != "" {
			buf.WriteString(fmt.Sprintf("- **TMDB**: %s\n", e.TMDBID))
		}
		if e.TVDBID != "" {
			buf.WriteString(fmt.Sprintf("- **TVDB**: %s\n", e.TVDBID))
		}
		buf.WriteString(fmt.Sprintf("- **Removed**: %d of %d\n\n", e.Removed, e.ScannedAccounts))
		for _, d := range e.Details {
			buf.WriteString(fmt.Sprintf("1. %s\n", d))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ActivityToCSV converts activity entries to CSV with details joined by " | ".
func ActivityToCSV(entries []models.ActivityEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Timestamp", "Source", "Title", "Year", "TMDB", "TVDB", "Removed", "Scanned", "Details"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Source),
			e.Title,
			yearString(e.Year),
			e.TMDBID,
			e.TVDBID,
			strconv.Itoa(e.Removed),
			strconv.Itoa(e.ScannedAccounts),
			strings.Join(e.Details, " | "),
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

// RenderActivity encodes entries in the requested format.
func RenderActivity(entries []models.ActivityEntry, format Format, now time.Time) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return ActivityToMarkdown(entries), nil
	case FormatCSV:
		return ActivityToCSV(entries)
	case FormatJSON:
		return ToJSON(entries, true)
	default:
		return ActivityToText(entries, now), nil
	}
}

// WriteActivityExport writes entries to path in the requested format.
//
// Defaults to activity.{ext} in the working directory.
func WriteActivityExport(entries []models.ActivityEntry, format Format, path string) (string, error) {
	if path == "" {
		path = "activity." + format.Ext()
	}

	data, err := RenderActivity(entries, format, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to render activity: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write activity file: %w", err)
	}
	return path, nil
}

// Ext is the conventional file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}
