// Package goquery implements HTML parsing for calregs on top of
// PuerkitoBio/goquery: outbound link extraction for discovery and section
// parsing for extraction.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/calregs"
)

var _ calregs.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor extracts outbound links from a page.
type LinkExtractor struct {
	// Selector chooses the anchors to follow. Defaults to every anchor.
	Selector string
}

// NewLinkExtractor creates a LinkExtractor that follows every anchor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{Selector: "a[href]"}
}

// ExtractLinks returns the absolute URLs linked from html, resolved against
// the document base or baseURL, without fragments and in document order.
// Non-HTTP links and links back to the page itself are skipped.
func (e *LinkExtractor) ExtractLinks(html, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(href); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	selector := e.Selector
	if selector == "" {
		selector = "a[href]"
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return
		}
		if isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})

	return links, nil
}

// resolveURL resolves href against base and strips the fragment. It returns
// an empty string for unparseable or self-referential links.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	result := resolved.String()
	self := *base
	self.Fragment = ""
	self.RawFragment = ""
	if result == self.String() {
		return ""
	}
	return result
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
