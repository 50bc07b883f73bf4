package fs

import (
	"encoding/json"
	"errors"

	"github.com/fwojciec/calregs"
)

// ReportWriter writes a coverage report as Markdown and as JSON.
type ReportWriter struct {
	MarkdownPath string
	JSONPath     string
}

// NewReportWriter creates a ReportWriter for the standard report paths.
func NewReportWriter(paths Paths) *ReportWriter {
	return &ReportWriter{MarkdownPath: paths.ReportMarkdown, JSONPath: paths.ReportJSON}
}

// WriteReport atomically writes both report files. Both writes are
// attempted even if the first fails.
func (w *ReportWriter) WriteReport(r *calregs.CoverageReport) error {
	mdErr := WriteFileAtomic(w.MarkdownPath, []byte(calregs.FormatCoverageReport(r)))

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Join(mdErr, err)
	}
	jsonErr := WriteFileAtomic(w.JSONPath, append(data, '\n'))

	return errors.Join(mdErr, jsonErr)
}
