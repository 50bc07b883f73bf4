package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/fwojciec/calregs"
)

var (
	_ calregs.DiscoveredLedger = (*DiscoveredLedger)(nil)
	_ calregs.SectionLedger    = (*SectionLedger)(nil)
	_ calregs.FailureLedger    = (*FailureLedger)(nil)
	_ calregs.CheckpointStore  = (*CheckpointStore)(nil)
)

// DiscoveredLedger stores discovered section URLs as {"url": ...} lines.
type DiscoveredLedger struct {
	file jsonlFile
}

// NewDiscoveredLedger creates a DiscoveredLedger backed by path.
func NewDiscoveredLedger(path string) *DiscoveredLedger {
	return &DiscoveredLedger{file: jsonlFile{path: path}}
}

// LoadDiscovered returns the stored URLs in file order without duplicates.
func (l *DiscoveredLedger) LoadDiscovered(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, _, err := loadJSONL[calregs.DiscoveredURL](l.file.path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	urls := make([]string, 0, len(records))
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
	}
	return urls, nil
}

// WriteDiscovered replaces the ledger with urls.
func (l *DiscoveredLedger) WriteDiscovered(ctx context.Context, urls []string) error {
	return l.file.rewrite(len(urls), func(i int) any {
		return calregs.DiscoveredURL{URL: urls[i]}
	})
}

// SectionLedger is the append-only extracted sections file.
type SectionLedger struct {
	file jsonlFile
}

// NewSectionLedger creates a SectionLedger backed by path.
func NewSectionLedger(path string) *SectionLedger {
	return &SectionLedger{file: jsonlFile{path: path}}
}

// AppendSection validates s and appends it as one line.
func (l *SectionLedger) AppendSection(ctx context.Context, s *calregs.Section) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return l.file.append(s)
}

// LoadSections returns every readable section in append order.
func (l *SectionLedger) LoadSections(ctx context.Context) ([]*calregs.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sections, _, err := loadJSONL[calregs.Section](l.file.path)
	return sections, err
}

// ExtractedKeys returns the set of section keys present in the ledger.
func (l *SectionLedger) ExtractedKeys(ctx context.Context) (map[string]struct{}, error) {
	sections, err := l.LoadSections(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		if s.SourceURL != "" {
			keys[s.Key()] = struct{}{}
		}
	}
	return keys, nil
}

// FailureLedger is the failed URL file.
type FailureLedger struct {
	file jsonlFile
}

// NewFailureLedger creates a FailureLedger backed by path.
func NewFailureLedger(path string) *FailureLedger {
	return &FailureLedger{file: jsonlFile{path: path}}
}

// AppendFailure appends f as one line.
func (l *FailureLedger) AppendFailure(ctx context.Context, f *calregs.FailedURL) error {
	if f.URL == "" {
		return calregs.Errorf(calregs.EINVALID, "failed URL required")
	}
	return l.file.append(f)
}

// LoadFailures returns every readable failure in append order.
func (l *FailureLedger) LoadFailures(ctx context.Context) ([]*calregs.FailedURL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	failures, _, err := loadJSONL[calregs.FailedURL](l.file.path)
	return failures, err
}

// RewriteFailures atomically replaces the ledger with failures.
func (l *FailureLedger) RewriteFailures(ctx context.Context, failures []*calregs.FailedURL) error {
	return l.file.rewrite(len(failures), func(i int) any {
		return failures[i]
	})
}

// CheckpointStore keeps the discovery checkpoint as one JSON document.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a CheckpointStore backed by path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// LoadCheckpoint returns the saved checkpoint. It returns ENOTFOUND when no
// checkpoint was saved and EINVALID when the file cannot be decoded.
func (s *CheckpointStore) LoadCheckpoint(ctx context.Context) (*calregs.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, calregs.Errorf(calregs.ENOTFOUND, "no checkpoint at %s", s.path)
	} else if err != nil {
		return nil, err
	}

	var cp calregs.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "corrupt checkpoint %s: %v", s.path, err)
	}
	return &cp, nil
}

// SaveCheckpoint atomically overwrites the checkpoint. A zero LastUpdated
// is stamped with the current time.
func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, cp *calregs.Checkpoint) error {
	out := *cp
	if out.LastUpdated.IsZero() {
		out.LastUpdated = time.Now().UTC()
	}
	if out.DiscoveredURLs == nil {
		out.DiscoveredURLs = []string{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, append(data, '\n'))
}
