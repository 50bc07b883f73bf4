package calregs

import (
	"context"
	"time"
)

// DiscoveredURL is one line of the discovered URL ledger.
type DiscoveredURL struct {
	URL string `json:"url"`
}

// FailedURL records a URL whose extraction failed after every attempt.
type FailedURL struct {
	URL          string    `json:"url"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	RetryCount   int       `json:"retry_count"`
	FailedAt     time.Time `json:"failed_at"`
}

// Checkpoint is a snapshot of discovery progress. Frontier and Visited are
// only populated when traversal resume is enabled.
type Checkpoint struct {
	DiscoveredURLs []string  `json:"discovered_urls"`
	Frontier       []string  `json:"frontier,omitempty"`
	Visited        []string  `json:"visited,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// DiscoveredLedger stores the set of discovered section URLs.
type DiscoveredLedger interface {
	// LoadDiscovered returns every URL in the ledger. A missing ledger is
	// an empty one.
	LoadDiscovered(ctx context.Context) ([]string, error)

	// WriteDiscovered replaces the ledger with urls, sorted.
	WriteDiscovered(ctx context.Context, urls []string) error
}

// SectionLedger is the append-only log of extracted sections.
type SectionLedger interface {
	// AppendSection appends one section as a single line.
	AppendSection(ctx context.Context, s *Section) error

	// LoadSections returns every section in append order, duplicates
	// included.
	LoadSections(ctx context.Context) ([]*Section, error)

	// ExtractedKeys returns the set of section keys present in the ledger.
	ExtractedKeys(ctx context.Context) (map[string]struct{}, error)
}

// FailureLedger is the log of URLs that could not be extracted.
type FailureLedger interface {
	// AppendFailure appends one failure as a single line.
	AppendFailure(ctx context.Context, f *FailedURL) error

	// LoadFailures returns every failure in append order.
	LoadFailures(ctx context.Context) ([]*FailedURL, error)

	// RewriteFailures replaces the ledger with failures.
	RewriteFailures(ctx context.Context, failures []*FailedURL) error
}

// CheckpointStore persists the discovery checkpoint.
type CheckpointStore interface {
	// LoadCheckpoint returns the saved checkpoint, or ENOTFOUND.
	LoadCheckpoint(ctx context.Context) (*Checkpoint, error)

	// SaveCheckpoint overwrites the saved checkpoint.
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
}

// SectionIndex is a keyed view of the section ledger where the latest
// record for a source URL replaces earlier ones.
type SectionIndex interface {
	// UpsertSection inserts s or replaces the row with the same key.
	UpsertSection(ctx context.Context, s *Section) error

	// UpsertSections upserts every section in one transaction and returns
	// how many were written.
	UpsertSections(ctx context.Context, sections []*Section) (int, error)

	// FindSectionByURL returns the section stored under the key of url.
	FindSectionByURL(ctx context.Context, url string) (*Section, error)

	// FindSections returns sections matching filter.
	FindSections(ctx context.Context, filter SectionFilter) ([]*Section, error)

	// CountSections returns the number of indexed sections.
	CountSections(ctx context.Context) (int, error)
}

// SectionFilter represents a filter for FindSections.
type SectionFilter struct {
	TitleNumber *int
	Citation    *string

	Offset int
	Limit  int
}

// LatestFailures collapses failures sharing a URL key to the last entry,
// keeping first-seen order.
func LatestFailures(failures []*FailedURL) []*FailedURL {
	index := make(map[string]int, len(failures))
	var out []*FailedURL
	for _, f := range failures {
		key := SectionKey(f.URL)
		if i, ok := index[key]; ok {
			out[i] = f
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}
