package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/calregs"
	"golang.org/x/net/html"
)

// UnknownHeading is the heading recorded when a page has none.
const UnknownHeading = "Unknown"

var _ calregs.SectionParser = (*SectionParser)(nil)

var (
	breadcrumbClassRe = regexp.MustCompile(`(?i)breadcrumb`)
	navClassRe        = regexp.MustCompile(`(?i)navigation`)
	headingClassRe    = regexp.MustCompile(`(?i)section|heading|title`)
	contentClassRe    = regexp.MustCompile(`(?i)content|body|section-content`)
	spaceRe           = regexp.MustCompile(`\s+`)
)

// noiseSelector matches elements dropped from the content region.
const noiseSelector = "script, style, nav, header, footer, noscript"

// SectionParser parses a CCR section page.
type SectionParser struct {
	Converter calregs.Converter
}

// NewSectionParser creates a SectionParser rendering content with conv.
func NewSectionParser(conv calregs.Converter) *SectionParser {
	return &SectionParser{Converter: conv}
}

// Parse extracts the breadcrumb trail, hierarchy, heading, section number
// and content of a section page. Missing markup falls back to coarser
// sources; only a page without any content is an error.
func (p *SectionParser) Parse(page, sourceURL string) (*calregs.Section, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "failed to parse HTML: %v", err)
	}

	breadcrumb := breadcrumbTrail(doc)
	hierarchy := calregs.ParseHierarchy(breadcrumb)
	heading := sectionHeading(doc)

	content, err := p.content(doc)
	if err != nil {
		return nil, err
	}

	number := calregs.ParseSectionNumber(heading, sourceURL, breadcrumb)

	return &calregs.Section{
		Hierarchy:       hierarchy,
		SectionNumber:   number,
		SectionHeading:  heading,
		Citation:        calregs.Citation(hierarchy.TitleNumber, number),
		BreadcrumbPath:  breadcrumb,
		SourceURL:       sourceURL,
		ContentMarkdown: content,
	}, nil
}

// breadcrumbTrail returns the text parts of the first breadcrumb element
// joined with " > ". Generic navigation blocks are used when no breadcrumb
// is marked up.
func breadcrumbTrail(doc *goquery.Document) string {
	for _, re := range []*regexp.Regexp{breadcrumbClassRe, navClassRe} {
		sel := doc.Find("nav, div, ol, ul").FilterFunction(hasClass(re)).First()
		if sel.Length() == 0 {
			continue
		}
		if parts := textParts(sel); len(parts) > 0 {
			return strings.Join(parts, " > ")
		}
	}
	return ""
}

// sectionHeading returns the text of the first h1 or h2 whose class names a
// section heading, else the first h1 or h2.
func sectionHeading(doc *goquery.Document) string {
	headings := doc.Find("h1, h2")
	for _, sel := range []*goquery.Selection{headings.FilterFunction(hasClass(headingClassRe)), headings} {
		if text := cleanText(sel.First().Text()); text != "" {
			return text
		}
	}
	return UnknownHeading
}

// content renders the first non-empty region of the fallback chain: a
// content container, then main or article, then the whole body.
func (p *SectionParser) content(doc *goquery.Document) (string, error) {
	regions := []*goquery.Selection{
		doc.Find("div").FilterFunction(hasClass(contentClassRe)).First(),
		doc.Find("main, article").First(),
		doc.Find("body").First(),
	}

	for _, region := range regions {
		if region.Length() == 0 {
			continue
		}
		region.Find(noiseSelector).Remove()
		if cleanText(region.Text()) == "" {
			continue
		}

		if p.Converter == nil {
			return strings.TrimSpace(region.Text()), nil
		}
		fragment, err := region.Html()
		if err != nil {
			return "", calregs.Errorf(calregs.EINVALID, "failed to render content: %v", err)
		}
		markdown, err := p.Converter.Convert(fragment)
		if err != nil {
			return "", err
		}
		if markdown = strings.TrimSpace(markdown); markdown != "" {
			return markdown, nil
		}
	}

	return "", calregs.Errorf(calregs.EINVALID, "no content found")
}

func hasClass(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, sel *goquery.Selection) bool {
		class, ok := sel.Attr("class")
		return ok && re.MatchString(class)
	}
}

// textParts returns the non-empty text nodes under sel, whitespace
// collapsed, in document order.
func textParts(sel *goquery.Selection) []string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := cleanText(n.Data); text != "" && text != ">" && text != "›" {
				parts = append(parts, text)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return parts
}

func cleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
