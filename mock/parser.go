package mock

import "github.com/fwojciec/calregs"

var _ calregs.SectionParser = (*SectionParser)(nil)

// SectionParser is a mock implementation of calregs.SectionParser.
type SectionParser struct {
	ParseFn func(html, sourceURL string) (*calregs.Section, error)
}

func (p *SectionParser) Parse(html, sourceURL string) (*calregs.Section, error) {
	return p.ParseFn(html, sourceURL)
}

var _ calregs.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of calregs.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(html, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(html, baseURL)
}
