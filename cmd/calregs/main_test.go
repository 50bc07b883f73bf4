package main_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/calregs"
	main "github.com/fwojciec/calregs/cmd/calregs"
	"github.com/fwojciec/calregs/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootPath = "/calregs/Browse/Home/California/CaliforniaCodeofRegulations"

func sectionHTML(title, number, heading string) string {
	return fmt.Sprintf(`<html><body>
<div class="co_breadcrumb"><ul><li>Home</li><li>Title %s. Public Health</li><li>Division 1. Health</li></ul></div>
<div class="co_contentBlock">
<h1 class="co_title">§ %s. %s</h1>
<p>(a) This section applies statewide.</p>
</div>
</body></html>`, title, number, heading)
}

// newSite serves a small browse hierarchy: the root links to one section
// and to a child browse node, which links to a second section and to a
// section that always fails.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(rootPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("guid") == "N1" {
			fmt.Fprint(w, `<html><body>
<a href="/calregs/Document/I2?viewType=FullText">§ 1235</a>
<a href="/calregs/Document/I3?viewType=FullText">§ 1236</a>
</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="/calregs/Document/I1?viewType=FullText">§ 1234</a>
<a href="`+rootPath+`?guid=N1">Division 1</a>
<a href="https://elsewhere.example.com/page">Elsewhere</a>
</body></html>`)
	})
	mux.HandleFunc("/calregs/Document/I1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sectionHTML("17", "1234", "Definitions."))
	})
	mux.HandleFunc("/calregs/Document/I2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sectionHTML("17", "1235", "Permits."))
	})
	mux.HandleFunc("/calregs/Document/I3", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// runCLI runs the program against srv with fast crawler settings.
func runCLI(t *testing.T, srv *httptest.Server, dataDir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	m := main.NewMain()
	m.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	full := []string{args[0],
		"--data-dir", dataDir,
		"--root", srv.URL + rootPath,
		"--delay", "0s",
		"--backoff-base", "0s",
		"--max-attempts", "2",
		"--timeout", "5s",
	}
	full = append(full, args[1:]...)

	err = m.Run(context.Background(), full, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestMain_Pipeline(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	dir := t.TempDir()

	stdout, _, err := runCLI(t, srv, dir, "discover")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Discovered 3 sections (3 new)")
	assert.Contains(t, stdout, "Visited 2 pages")
	assert.Len(t, readLines(t, filepath.Join(dir, "discovered_urls.jsonl")), 3)
	assert.FileExists(t, filepath.Join(dir, "checkpoints", "url_discovery_checkpoint.json"))

	stdout, stderr, err := runCLI(t, srv, dir, "extract")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved 2 sections")
	assert.Contains(t, stdout, "1 failed")
	assert.Contains(t, stderr, "/calregs/Document/I3")
	assert.Len(t, readLines(t, filepath.Join(dir, "extracted_sections.jsonl")), 2)
	failures := readLines(t, filepath.Join(dir, "failed_urls.jsonl"))
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `"error_type":"HTTPStatus"`)

	stdout, _, err = runCLI(t, srv, dir, "extract")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 1 URLs to extract")
	assert.Contains(t, stdout, "2 already extracted")

	stdout, _, err = runCLI(t, srv, dir, "retry")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Recovered 0 of 1, 1 still failing")
	failures = readLines(t, filepath.Join(dir, "failed_urls.jsonl"))
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `"retry_count":1`)

	stdout, _, err = runCLI(t, srv, dir, "report")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Coverage: 66.67% (2 of 3 sections, 1 failed, 1 missing)")
	md, err := os.ReadFile(filepath.Join(dir, "coverage_report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "**Coverage: 66.67%")
	assert.FileExists(t, filepath.Join(dir, "coverage_report.json"))

	stdout, _, err = runCLI(t, srv, dir, "index")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Indexed 2 sections")
	assert.FileExists(t, filepath.Join(dir, "sections.db"))

	stdout, _, err = runCLI(t, srv, dir, "export")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported 2 sections")
	exported, err := os.ReadFile(filepath.Join(dir, "sections", "title-17", "1234.md"))
	require.NoError(t, err)
	assert.Contains(t, string(exported), `citation: "17 CCR § 1234"`)

	metrics, err := os.ReadFile(filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "calregs_coverage_percent")
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("runs every stage", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		dir := t.TempDir()

		stdout, _, err := runCLI(t, srv, dir, "run")

		require.NoError(t, err)
		assert.Contains(t, stdout, "Discovered 3 sections")
		assert.Contains(t, stdout, "Saved 2 sections")
		assert.Contains(t, stdout, "Retrying failed URLs")
		assert.Contains(t, stdout, "Coverage: 66.67%")
		assert.FileExists(t, filepath.Join(dir, "coverage_report.md"))
	})

	t.Run("stops discovery at max pages", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		dir := t.TempDir()

		stdout, _, err := runCLI(t, srv, dir, "run", "--max-pages", "1", "--skip-retry")

		require.NoError(t, err)
		assert.Contains(t, stdout, "Discovered 1 sections")
		assert.Contains(t, stdout, "Coverage: 100.00% (1 of 1 sections")
		assert.NotContains(t, stdout, "Retrying failed URLs")
	})

	t.Run("reports from memory when storage is unusable", func(t *testing.T) {
		t.Parallel()

		srv := newSite(t)
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, nil, 0644))
		dir := filepath.Join(file, "data")

		stdout, stderr, err := runCLI(t, srv, dir, "run")

		require.NoError(t, err)
		assert.Contains(t, stdout, "Discovered 3 sections")
		assert.Contains(t, stdout, "Saved 0 sections")
		assert.Contains(t, stdout, "Recovered 0 of 1, 1 still failing")
		assert.Contains(t, stdout, "Coverage: 66.67% (2 of 3 sections, 1 failed, 1 missing)")
		assert.Contains(t, stdout, "# CCR Extraction Coverage Report")
		assert.Contains(t, stderr, "could not read discovered ledger")
		assert.Contains(t, stderr, "could not write report")
	})
}

func TestMain_InjectedFetcher(t *testing.T) {
	t.Parallel()

	var fetched []string
	fetcher := &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (string, error) {
			fetched = append(fetched, url)
			return `<html><body><p>No links</p></body></html>`, nil
		},
		CloseFn: func() error { return nil },
	}

	var stdout, stderr bytes.Buffer
	m := main.NewMain()
	m.Fetcher = fetcher

	err := m.Run(context.Background(), []string{"discover", "--data-dir", t.TempDir(), "--delay", "0s"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, []string{calregs.DefaultRootURL}, fetched)
	assert.Contains(t, stdout.String(), "Discovered 0 sections")
}

func TestMain_Errors(t *testing.T) {
	t.Parallel()

	t.Run("no command", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), nil, &stdout, &stderr)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command specified")
		assert.Contains(t, stdout.String(), "Usage: calregs")
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"--help"}, &stdout, &stderr)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "discover")
		assert.Contains(t, stdout.String(), "export")
	})

	t.Run("invalid root", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"report", "--data-dir", t.TempDir(), "--root", "not a url"}, &stdout, &stderr)

		require.Error(t, err)
		assert.Equal(t, calregs.EINVALID, calregs.ErrorCode(err))
	})

	t.Run("unknown config key", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		config := filepath.Join(dir, "calregs.yaml")
		require.NoError(t, os.WriteFile(config, []byte("dealy: 2s\n"), 0644))

		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"report", "--config", config, "--data-dir", dir}, &stdout, &stderr)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "dealy")
	})
}

func TestMain_ReportEmptyDataDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	err := main.NewMain().Run(context.Background(), []string{"report", "--data-dir", dir}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Coverage: 0.00% (0 of 0 sections")
	assert.FileExists(t, filepath.Join(dir, "coverage_report.json"))
}

func TestMain_ReportFallsBackToStdout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A directory where the Markdown report belongs makes the write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "coverage_report.md"), 0755))

	var stdout, stderr bytes.Buffer
	err := main.NewMain().Run(context.Background(), []string{"report", "--data-dir", dir}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "# CCR Extraction Coverage Report")
	assert.Contains(t, stderr.String(), "could not write report")
}

func TestMain_ConfigFile(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "calregs.yaml")
	require.NoError(t, os.WriteFile(config, []byte("discover:\n  max_pages: 1\n"), 0644))

	stdout, _, err := runCLI(t, srv, dir, "discover", "--config", config)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Visited 1 pages")
}

func TestMain_Index(t *testing.T) {
	t.Parallel()

	t.Run("upserts the latest record of each section", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ledger := `{"source_url":"https://govt.westlaw.com/calregs/Document/I1","section_number":"1","section_heading":"§ 1. Old","citation":"CCR § 1","breadcrumb_path":"","content_markdown":"old","retrieved_at":"2026-01-01T00:00:00Z"}
{"source_url":"https://govt.westlaw.com/calregs/Document/I1","section_number":"1","section_heading":"§ 1. New","citation":"CCR § 1","breadcrumb_path":"","content_markdown":"new","retrieved_at":"2026-01-02T00:00:00Z"}
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "extracted_sections.jsonl"), []byte(ledger), 0644))

		var upserted []*calregs.Section
		m := main.NewMain()
		m.Index = &mock.SectionIndex{
			UpsertSectionsFn: func(ctx context.Context, sections []*calregs.Section) (int, error) {
				upserted = sections
				return len(sections), nil
			},
			CountSectionsFn: func(ctx context.Context) (int, error) { return 1, nil },
		}

		var stdout, stderr bytes.Buffer
		err := m.Run(context.Background(), []string{"index", "--data-dir", dir}, &stdout, &stderr)

		require.NoError(t, err)
		require.Len(t, upserted, 1)
		assert.Equal(t, "§ 1. New", upserted[0].SectionHeading)
		assert.Contains(t, stdout.String(), "Indexed 1 sections (2 ledger records)")
	})

	t.Run("reports upsert failure", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.Index = &mock.SectionIndex{
			UpsertSectionsFn: func(ctx context.Context, sections []*calregs.Section) (int, error) {
				return 0, calregs.Errorf(calregs.EINTERNAL, "disk full")
			},
		}

		var stdout, stderr bytes.Buffer
		err := m.Run(context.Background(), []string{"index", "--data-dir", t.TempDir()}, &stdout, &stderr)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "error: disk full")
	})
}
