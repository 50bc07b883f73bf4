package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/calregs"
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Exporter writes one Markdown file per section under a directory,
// grouped by title. The export is built in a sibling temporary directory
// and swapped in only when complete.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter writing to dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

func (e *Exporter) tempDir() string {
	return e.dir + ".tmp"
}

// Export writes the latest record of every section and replaces the
// previous export. It returns the number of files written.
func (e *Exporter) Export(ctx context.Context, sections []*calregs.Section) (n int, err error) {
	if err := os.RemoveAll(e.tempDir()); err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(e.tempDir())
		}
	}()

	used := make(map[string]int)
	for _, s := range calregs.LatestSections(sections) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		rel := uniqueName(used, SectionPath(s))
		full := filepath.Join(e.tempDir(), filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return 0, err
		}
		if err := os.WriteFile(full, []byte(FormatSection(s)), 0644); err != nil {
			return 0, err
		}
		n++
	}

	if err := os.MkdirAll(e.tempDir(), 0755); err != nil {
		return 0, err
	}
	if err := os.RemoveAll(e.dir); err != nil {
		return 0, err
	}
	if err := os.Rename(e.tempDir(), e.dir); err != nil {
		return 0, err
	}
	return n, nil
}

// SectionPath returns the slash-separated export path of a section, e.g.
// "title-17/1234.md". Sections without a number are named after the last
// segment of their URL.
func SectionPath(s *calregs.Section) string {
	dir := "untitled"
	if s.TitleNumber != nil {
		dir = "title-" + strconv.Itoa(*s.TitleNumber)
	}

	name := s.SectionNumber
	if name == "" || name == calregs.UnknownSection {
		name = "unknown-" + lastSegment(s.SourceURL)
	}
	name = strings.Trim(unsafeNameRe.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "section"
	}
	return dir + "/" + name + ".md"
}

func lastSegment(raw string) string {
	u, err := url.Parse(calregs.SectionKey(raw))
	if err != nil {
		return ""
	}
	return path.Base(strings.TrimSuffix(u.Path, "/"))
}

func uniqueName(used map[string]int, rel string) string {
	used[rel]++
	if used[rel] == 1 {
		return rel
	}
	return strings.TrimSuffix(rel, ".md") + "-" + strconv.Itoa(used[rel]) + ".md"
}

// FormatSection renders a section with YAML frontmatter.
func FormatSection(s *calregs.Section) string {
	var b strings.Builder
	b.WriteString("---\n")
	field := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\n", k, strconv.Quote(v))
	}
	field("citation", s.Citation)
	field("section", s.SectionNumber)
	field("heading", s.SectionHeading)
	if s.TitleNumber != nil {
		fmt.Fprintf(&b, "title_number: %d\n", *s.TitleNumber)
	}
	for _, h := range []struct {
		key string
		v   *string
	}{
		{"title", s.TitleName},
		{"division", s.Division},
		{"chapter", s.Chapter},
		{"subchapter", s.Subchapter},
		{"article", s.Article},
	} {
		if h.v != nil {
			field(h.key, *h.v)
		}
	}
	field("source", s.SourceURL)
	if !s.RetrievedAt.IsZero() {
		fmt.Fprintf(&b, "retrieved: %s\n", s.RetrievedAt.UTC().Format("2006-01-02T15:04:05Z"))
	}
	b.WriteString("---\n\n")
	b.WriteString(s.ContentMarkdown)
	if !strings.HasSuffix(s.ContentMarkdown, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
