package calregs

import (
	"net/url"
	"strings"
)

// DefaultRootURL is the landing page of the CCR browse hierarchy.
const DefaultRootURL = "https://govt.westlaw.com/calregs/Browse/Home/California/CaliforniaCodeofRegulations"

// CanonicalURL returns the deduplication key for raw: scheme, host, path and
// query. The fragment is always dropped and scheme and host are lower-cased.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Errorf(EINVALID, "URL %q is not absolute", raw)
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String(), nil
}

// SectionKey returns the key a section is reconciled under. Any fragment,
// including sub-record suffixes such as "#chunk3", is removed.
func SectionKey(sourceURL string) string {
	key, _, _ := strings.Cut(sourceURL, "#")
	return key
}

// LinkKind is the classification of a canonical URL.
type LinkKind int

const (
	// LinkOutOfScope links are discarded.
	LinkOutOfScope LinkKind = iota
	// LinkNavigation links are hierarchy pages visited by the crawler.
	LinkNavigation
	// LinkContent links are section pages handed to the extractor.
	LinkContent
)

func (k LinkKind) String() string {
	switch k {
	case LinkNavigation:
		return "navigation"
	case LinkContent:
		return "content"
	default:
		return "out-of-scope"
	}
}

// URLClassifier decides whether a URL is a section page, a hierarchy page,
// or outside the corpus. All pattern matching is case-insensitive.
type URLClassifier struct {
	// Host is the only host considered in scope.
	Host string
	// ScopePath is the path prefix every in-scope URL shares.
	ScopePath string
	// ContentSegment marks a section page, e.g. "/calregs/document/".
	ContentSegment string
	// FullTextParam is the explicit full-text view flag.
	FullTextParam string
	// BrowseSegment marks a hierarchy page.
	BrowseSegment string
	// BrowseParam marks a hierarchy node addressed by query parameter.
	BrowseParam string
}

// DefaultURLClassifier returns the classifier for the Westlaw CCR site.
func DefaultURLClassifier() *URLClassifier {
	return &URLClassifier{
		Host:           "govt.westlaw.com",
		ScopePath:      "/calregs",
		ContentSegment: "/calregs/document/",
		FullTextParam:  "viewtype=fulltext",
		BrowseSegment:  "/calregs/browse/",
		BrowseParam:    "guid=",
	}
}

// Classify returns the kind of u. In-scope URLs that match neither pattern
// are treated as navigation so that nothing reachable is dropped.
func (c *URLClassifier) Classify(u string) LinkKind {
	parsed, err := url.Parse(u)
	if err != nil {
		return LinkOutOfScope
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return LinkOutOfScope
	}
	if c.Host != "" && !strings.EqualFold(parsed.Hostname(), c.Host) {
		return LinkOutOfScope
	}
	path := strings.ToLower(parsed.Path)
	if c.ScopePath != "" && !strings.HasPrefix(path, strings.ToLower(c.ScopePath)) {
		return LinkOutOfScope
	}

	lower := strings.ToLower(u)
	browse := (c.BrowseSegment != "" && strings.Contains(lower, strings.ToLower(c.BrowseSegment))) ||
		(c.BrowseParam != "" && strings.Contains(strings.ToLower(parsed.RawQuery), strings.ToLower(c.BrowseParam)))

	switch {
	case c.ContentSegment != "" && strings.Contains(lower, strings.ToLower(c.ContentSegment)):
		return LinkContent
	case c.IsFullText(u) && !browse:
		return LinkContent
	case !browse && (strings.Contains(path, "/document") || strings.Contains(path, "/section")):
		return LinkContent
	default:
		return LinkNavigation
	}
}

// IsFullText reports whether u carries the explicit full-text view flag.
func (c *URLClassifier) IsFullText(u string) bool {
	return c.FullTextParam != "" && strings.Contains(strings.ToLower(u), strings.ToLower(c.FullTextParam))
}
