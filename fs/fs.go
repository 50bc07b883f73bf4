// Package fs stores the crawl ledgers, the discovery checkpoint, the
// coverage report and section exports as files under a data directory.
package fs

import (
	"os"
	"path/filepath"
)

// File names under the data directory.
const (
	DiscoveredFile     = "discovered_urls.jsonl"
	SectionsFile       = "extracted_sections.jsonl"
	FailuresFile       = "failed_urls.jsonl"
	ReportMarkdownFile = "coverage_report.md"
	ReportJSONFile     = "coverage_report.json"
	CheckpointFile     = "checkpoints/url_discovery_checkpoint.json"
	IndexFile          = "sections.db"
	MetricsFile        = "metrics.prom"
	ExportDir          = "sections"
)

// Paths locates every artifact of a data directory.
type Paths struct {
	DataDir        string
	Discovered     string
	Sections       string
	Failures       string
	ReportMarkdown string
	ReportJSON     string
	Checkpoint     string
	Index          string
	Metrics        string
	Export         string
}

// DefaultPaths returns the standard layout under dataDir.
func DefaultPaths(dataDir string) Paths {
	join := func(name string) string { return filepath.Join(dataDir, filepath.FromSlash(name)) }
	return Paths{
		DataDir:        dataDir,
		Discovered:     join(DiscoveredFile),
		Sections:       join(SectionsFile),
		Failures:       join(FailuresFile),
		ReportMarkdown: join(ReportMarkdownFile),
		ReportJSON:     join(ReportJSONFile),
		Checkpoint:     join(CheckpointFile),
		Index:          join(IndexFile),
		Metrics:        join(MetricsFile),
		Export:         join(ExportDir),
	}
}

// WriteFileAtomic replaces path with data. The content is written to a
// temporary file in the same directory, synced, then renamed over path, so
// readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
