package crawl_test

import (
	"context"
	"sync"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/mock"
)

// memLedgers backs the ledger mocks with in-memory slices.
type memLedgers struct {
	mu         sync.Mutex
	discovered []string
	sections   []*calregs.Section
	failures   []*calregs.FailedURL
	checkpoint *calregs.Checkpoint
	saves      int
}

func (m *memLedgers) discoveredLedger() *mock.DiscoveredLedger {
	return &mock.DiscoveredLedger{
		LoadDiscoveredFn: func(ctx context.Context) ([]string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return append([]string(nil), m.discovered...), nil
		},
		WriteDiscoveredFn: func(ctx context.Context, urls []string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.discovered = append([]string(nil), urls...)
			return nil
		},
	}
}

func (m *memLedgers) checkpointStore() *mock.CheckpointStore {
	return &mock.CheckpointStore{
		LoadCheckpointFn: func(ctx context.Context) (*calregs.Checkpoint, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.checkpoint == nil {
				return nil, calregs.Errorf(calregs.ENOTFOUND, "no checkpoint")
			}
			return m.checkpoint, nil
		},
		SaveCheckpointFn: func(ctx context.Context, cp *calregs.Checkpoint) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.checkpoint = cp
			m.saves++
			return nil
		},
	}
}

func (m *memLedgers) sectionLedger() *mock.SectionLedger {
	return &mock.SectionLedger{
		AppendSectionFn: func(ctx context.Context, s *calregs.Section) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.sections = append(m.sections, s)
			return nil
		},
		LoadSectionsFn: func(ctx context.Context) ([]*calregs.Section, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return append([]*calregs.Section(nil), m.sections...), nil
		},
		ExtractedKeysFn: func(ctx context.Context) (map[string]struct{}, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			keys := make(map[string]struct{}, len(m.sections))
			for _, s := range m.sections {
				keys[s.Key()] = struct{}{}
			}
			return keys, nil
		},
	}
}

func (m *memLedgers) failureLedger() *mock.FailureLedger {
	return &mock.FailureLedger{
		AppendFailureFn: func(ctx context.Context, f *calregs.FailedURL) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.failures = append(m.failures, f)
			return nil
		},
		LoadFailuresFn: func(ctx context.Context) ([]*calregs.FailedURL, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			return append([]*calregs.FailedURL(nil), m.failures...), nil
		},
		RewriteFailuresFn: func(ctx context.Context, failures []*calregs.FailedURL) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.failures = append([]*calregs.FailedURL(nil), failures...)
			return nil
		},
	}
}

func (m *memLedgers) failureURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.failures))
	for i, f := range m.failures {
		out[i] = f.URL
	}
	return out
}

func (m *memLedgers) sectionURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sections))
	for i, s := range m.sections {
		out[i] = s.SourceURL
	}
	return out
}

// siteFetcher serves pages from a map keyed by URL.
func siteFetcher(pages map[string]string) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string) (string, error) {
			html, ok := pages[url]
			if !ok {
				return "", &calregs.StatusError{StatusCode: 404, URL: url}
			}
			return html, nil
		},
		CloseFn: func() error { return nil },
	}
}

// sectionParser returns a section numbered after the page body.
func sectionParser() *mock.SectionParser {
	return &mock.SectionParser{
		ParseFn: func(html, sourceURL string) (*calregs.Section, error) {
			return &calregs.Section{
				SectionNumber:   html,
				Citation:        calregs.Citation(nil, html),
				SourceURL:       sourceURL,
				ContentMarkdown: "body of " + html,
			}, nil
		},
	}
}
