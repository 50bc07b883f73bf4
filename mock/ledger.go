package mock

import (
	"context"

	"github.com/fwojciec/calregs"
)

var _ calregs.DiscoveredLedger = (*DiscoveredLedger)(nil)

// DiscoveredLedger is a mock implementation of calregs.DiscoveredLedger.
type DiscoveredLedger struct {
	LoadDiscoveredFn  func(ctx context.Context) ([]string, error)
	WriteDiscoveredFn func(ctx context.Context, urls []string) error
}

func (l *DiscoveredLedger) LoadDiscovered(ctx context.Context) ([]string, error) {
	return l.LoadDiscoveredFn(ctx)
}

func (l *DiscoveredLedger) WriteDiscovered(ctx context.Context, urls []string) error {
	return l.WriteDiscoveredFn(ctx, urls)
}

var _ calregs.SectionLedger = (*SectionLedger)(nil)

// SectionLedger is a mock implementation of calregs.SectionLedger.
type SectionLedger struct {
	AppendSectionFn func(ctx context.Context, s *calregs.Section) error
	LoadSectionsFn  func(ctx context.Context) ([]*calregs.Section, error)
	ExtractedKeysFn func(ctx context.Context) (map[string]struct{}, error)
}

func (l *SectionLedger) AppendSection(ctx context.Context, s *calregs.Section) error {
	return l.AppendSectionFn(ctx, s)
}

func (l *SectionLedger) LoadSections(ctx context.Context) ([]*calregs.Section, error) {
	return l.LoadSectionsFn(ctx)
}

func (l *SectionLedger) ExtractedKeys(ctx context.Context) (map[string]struct{}, error) {
	return l.ExtractedKeysFn(ctx)
}

var _ calregs.FailureLedger = (*FailureLedger)(nil)

// FailureLedger is a mock implementation of calregs.FailureLedger.
type FailureLedger struct {
	AppendFailureFn   func(ctx context.Context, f *calregs.FailedURL) error
	LoadFailuresFn    func(ctx context.Context) ([]*calregs.FailedURL, error)
	RewriteFailuresFn func(ctx context.Context, failures []*calregs.FailedURL) error
}

func (l *FailureLedger) AppendFailure(ctx context.Context, f *calregs.FailedURL) error {
	return l.AppendFailureFn(ctx, f)
}

func (l *FailureLedger) LoadFailures(ctx context.Context) ([]*calregs.FailedURL, error) {
	return l.LoadFailuresFn(ctx)
}

func (l *FailureLedger) RewriteFailures(ctx context.Context, failures []*calregs.FailedURL) error {
	return l.RewriteFailuresFn(ctx, failures)
}

var _ calregs.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is a mock implementation of calregs.CheckpointStore.
type CheckpointStore struct {
	LoadCheckpointFn func(ctx context.Context) (*calregs.Checkpoint, error)
	SaveCheckpointFn func(ctx context.Context, cp *calregs.Checkpoint) error
}

func (s *CheckpointStore) LoadCheckpoint(ctx context.Context) (*calregs.Checkpoint, error) {
	return s.LoadCheckpointFn(ctx)
}

func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, cp *calregs.Checkpoint) error {
	return s.SaveCheckpointFn(ctx, cp)
}

var _ calregs.SectionIndex = (*SectionIndex)(nil)

// SectionIndex is a mock implementation of calregs.SectionIndex.
type SectionIndex struct {
	UpsertSectionFn    func(ctx context.Context, s *calregs.Section) error
	UpsertSectionsFn   func(ctx context.Context, sections []*calregs.Section) (int, error)
	FindSectionByURLFn func(ctx context.Context, url string) (*calregs.Section, error)
	FindSectionsFn     func(ctx context.Context, filter calregs.SectionFilter) ([]*calregs.Section, error)
	CountSectionsFn    func(ctx context.Context) (int, error)
}

func (i *SectionIndex) UpsertSection(ctx context.Context, s *calregs.Section) error {
	return i.UpsertSectionFn(ctx, s)
}

func (i *SectionIndex) FindSectionByURL(ctx context.Context, url string) (*calregs.Section, error) {
	return i.FindSectionByURLFn(ctx, url)
}

func (i *SectionIndex) FindSections(ctx context.Context, filter calregs.SectionFilter) ([]*calregs.Section, error) {
	return i.FindSectionsFn(ctx, filter)
}

func (i *SectionIndex) UpsertSections(ctx context.Context, sections []*calregs.Section) (int, error) {
	return i.UpsertSectionsFn(ctx, sections)
}

func (i *SectionIndex) CountSections(ctx context.Context) (int, error) {
	return i.CountSectionsFn(ctx)
}
