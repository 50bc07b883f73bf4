package fs_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportWriter_WriteReport(t *testing.T) {
	t.Parallel()

	t.Run("writes markdown and json", func(t *testing.T) {
		t.Parallel()

		paths := fs.DefaultPaths(t.TempDir())
		report := calregs.Reconcile(calregs.CoverageInput{
			Discovered:  []string{"https://x/1", "https://x/2"},
			Extracted:   []string{"https://x/1"},
			GeneratedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})

		require.NoError(t, fs.NewReportWriter(paths).WriteReport(report))

		md, err := os.ReadFile(paths.ReportMarkdown)
		require.NoError(t, err)
		assert.Contains(t, string(md), "# CCR Extraction Coverage Report")

		data, err := os.ReadFile(paths.ReportJSON)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.InDelta(t, 50.0, got["coverage_percent"], 0.001)
		assert.InDelta(t, 2, got["total_discovered"], 0)
	})

	t.Run("reports unwritable destinations", func(t *testing.T) {
		t.Parallel()

		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))
		w := &fs.ReportWriter{
			MarkdownPath: filepath.Join(blocker, "report.md"),
			JSONPath:     filepath.Join(blocker, "report.json"),
		}

		err := w.WriteReport(calregs.Reconcile(calregs.CoverageInput{}))

		assert.Error(t, err)
	})
}

func TestDefaultPaths(t *testing.T) {
	t.Parallel()

	p := fs.DefaultPaths("data")

	assert.Equal(t, filepath.Join("data", "discovered_urls.jsonl"), p.Discovered)
	assert.Equal(t, filepath.Join("data", "checkpoints", "url_discovery_checkpoint.json"), p.Checkpoint)
	assert.Equal(t, filepath.Join("data", "sections"), p.Export)
}
