package calregs

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// UnknownSection is the section number recorded when no fallback matched.
const UnknownSection = "unknown"

// UnknownCitation is the citation recorded for sections without a number.
const UnknownCitation = "CCR (unknown section)"

// Hierarchy is the position of a section in the code, inferred from the
// breadcrumb trail. Absent levels are nil.
type Hierarchy struct {
	TitleNumber *int    `json:"title_number"`
	TitleName   *string `json:"title_name"`
	Division    *string `json:"division"`
	Chapter     *string `json:"chapter"`
	Subchapter  *string `json:"subchapter"`
	Article     *string `json:"article"`
}

// Section is one extracted regulation section, a line in the extracted
// sections ledger. SourceURL is the idempotency key.
type Section struct {
	Hierarchy

	SectionNumber   string    `json:"section_number"`
	SectionHeading  string    `json:"section_heading"`
	Citation        string    `json:"citation"`
	BreadcrumbPath  string    `json:"breadcrumb_path"`
	SourceURL       string    `json:"source_url"`
	ContentMarkdown string    `json:"content_markdown"`
	ContentHash     string    `json:"content_hash,omitempty"`
	RetrievedAt     time.Time `json:"retrieved_at"`
}

// Validate returns an error if the section contains invalid fields.
func (s *Section) Validate() error {
	if s.SourceURL == "" {
		return Errorf(EINVALID, "section source URL required")
	}
	if s.SectionNumber == "" {
		return Errorf(EINVALID, "section number required")
	}
	return nil
}

// Key returns the reconciliation key of the section.
func (s *Section) Key() string {
	return SectionKey(s.SourceURL)
}

// SectionParser turns a fetched section page into a Section. RetrievedAt and
// ContentHash are left for the caller.
type SectionParser interface {
	Parse(html, sourceURL string) (*Section, error)
}

// LinkExtractor returns the absolute outbound links of a page in document
// order, without duplicates.
type LinkExtractor interface {
	ExtractLinks(html, baseURL string) ([]string, error)
}

var (
	sectionMarkerRe = regexp.MustCompile(`§+\s*(\d+(?:\.\d+)*)`)
	sectionWordRe   = regexp.MustCompile(`(?i)\bsec(?:tion|\.)\s*(\d+(?:\.\d+)*)`)
	bareNumberRe    = regexp.MustCompile(`\b(\d{3,}(?:\.\d+)*)\b`)
	urlNumberRe     = regexp.MustCompile(`[/\-](\d{4,}(?:\.\d+)*)(?:[/?]|$)`)
	titleNumberRe   = regexp.MustCompile(`(?i)\btitle\s+(\d+)`)
)

// ParseSectionNumber derives a section number from the heading, then the
// source URL path, then the breadcrumb trail. An explicit "§" marker always
// wins over a bare number in the same text. UnknownSection is returned when
// nothing matches.
func ParseSectionNumber(heading, sourceURL, breadcrumb string) string {
	if n, ok := matchSectionNumber(heading); ok {
		return n
	}

	if u, err := url.Parse(sourceURL); err == nil {
		if m := urlNumberRe.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
	}

	if n, ok := matchSectionNumber(breadcrumb); ok {
		return n
	}

	return UnknownSection
}

// matchSectionNumber tries the section patterns in precedence order.
func matchSectionNumber(text string) (string, bool) {
	for _, re := range []*regexp.Regexp{sectionMarkerRe, sectionWordRe, bareNumberRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ParseTitleNumber returns the number following "Title" in text, or nil.
func ParseTitleNumber(text string) *int {
	m := titleNumberRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// ParseHierarchy infers hierarchy levels from a breadcrumb trail whose parts
// are separated by ">" or line breaks. Each part is assigned by its leading
// keyword; the first part for a level wins.
func ParseHierarchy(breadcrumb string) Hierarchy {
	h := Hierarchy{TitleNumber: ParseTitleNumber(breadcrumb)}

	parts := strings.FieldsFunc(breadcrumb, func(r rune) bool {
		return r == '>' || r == '\n'
	})
	for _, part := range parts {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		var dst **string
		switch {
		case strings.HasPrefix(lower, "title "):
			dst = &h.TitleName
		case strings.HasPrefix(lower, "division "):
			dst = &h.Division
		case strings.HasPrefix(lower, "subchapter "):
			dst = &h.Subchapter
		case strings.HasPrefix(lower, "chapter "):
			dst = &h.Chapter
		case strings.HasPrefix(lower, "article "):
			dst = &h.Article
		default:
			continue
		}
		if *dst == nil {
			v := part
			*dst = &v
		}
	}

	return h
}

// Citation formats the official citation of a section.
func Citation(titleNumber *int, sectionNumber string) string {
	switch {
	case sectionNumber == "" || sectionNumber == UnknownSection:
		return UnknownCitation
	case titleNumber != nil:
		return strconv.Itoa(*titleNumber) + " CCR § " + sectionNumber
	default:
		return "CCR § " + sectionNumber
	}
}

// LatestSections collapses sections sharing a key to the last one seen and
// returns them ordered by key.
func LatestSections(sections []*Section) []*Section {
	latest := make(map[string]*Section, len(sections))
	for _, s := range sections {
		latest[s.Key()] = s
	}

	out := make([]*Section, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}
