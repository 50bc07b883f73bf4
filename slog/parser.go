package slog

import (
	"log/slog"

	"github.com/fwojciec/calregs"
)

var _ calregs.SectionParser = (*LoggingSectionParser)(nil)

// LoggingSectionParser wraps a SectionParser and flags pages whose section
// number or hierarchy could not be recovered.
type LoggingSectionParser struct {
	next   calregs.SectionParser
	logger *slog.Logger
}

// NewLoggingSectionParser creates a new LoggingSectionParser.
func NewLoggingSectionParser(next calregs.SectionParser, logger *slog.Logger) *LoggingSectionParser {
	return &LoggingSectionParser{next: next, logger: logger}
}

// Parse delegates to the wrapped parser.
func (p *LoggingSectionParser) Parse(html, sourceURL string) (*calregs.Section, error) {
	s, err := p.next.Parse(html, sourceURL)
	if err != nil {
		p.logger.Warn("parse", "url", sourceURL, "err", err)
		return nil, err
	}

	switch {
	case s.SectionNumber == calregs.UnknownSection:
		p.logger.Warn("parse: section number not found", "url", sourceURL, "heading", s.SectionHeading)
	case s.TitleNumber == nil:
		p.logger.Debug("parse: title number not found", "url", sourceURL, "citation", s.Citation)
	default:
		p.logger.Debug("parse", "url", sourceURL, "citation", s.Citation)
	}
	return s, nil
}
