package logs

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/narvanalabs/mission-console/internal/models"
)

// exportTimeLayout names export files to the second.
const exportTimeLayout = "2006-01-02-15-04-05"

// FormatLine renders one entry as "timestamp [LEVEL] [CATEGORY] message".
func FormatLine(entry models.LogEntry) string {
	return fmt.Sprintf("%s [%s] [%s] %s",
		entry.TimestampText(),
		strings.ToUpper(string(entry.Level)),
		strings.ToUpper(string(entry.Category)),
		entry.Message,
	)
}

// Export serializes entries one per line, newline-joined with no trailing
// newline.
func Export(entries []models.LogEntry) string {
	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(FormatLine(entry))
	}
	return sb.String()
}

// WriteExport streams the same text Export produces to w.
func WriteExport(w io.Writer, entries []models.LogEntry) error {
	bw := bufio.NewWriter(w)
	for i, entry := range entries {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
		}
		if _, err := bw.WriteString(FormatLine(entry)); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}

// WriteExportGzip writes the export gzip-compressed.
func WriteExportGzip(w io.Writer, entries []models.LogEntry) error {
	zw := gzip.NewWriter(w)
	if err := WriteExport(zw, entries); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return nil
}

// ExportFilename returns "<product>-logs-YYYY-MM-DD-HH-mm-ss.txt" for t.
func ExportFilename(product string, t time.Time) string {
	if product == "" {
		product = "mission-console"
	}
	return fmt.Sprintf("%s-logs-%s.txt", product, t.Format(exportTimeLayout))
}
