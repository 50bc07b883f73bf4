package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/calregs"
)

var _ calregs.FailureLedger = (*LoggingFailureLedger)(nil)

// LoggingFailureLedger logs every failure appended to the wrapped ledger.
type LoggingFailureLedger struct {
	next   calregs.FailureLedger
	logger *slog.Logger
}

// NewLoggingFailureLedger creates a new LoggingFailureLedger.
func NewLoggingFailureLedger(next calregs.FailureLedger, logger *slog.Logger) *LoggingFailureLedger {
	return &LoggingFailureLedger{next: next, logger: logger}
}

// AppendFailure logs the failure and delegates to the wrapped ledger.
func (l *LoggingFailureLedger) AppendFailure(ctx context.Context, f *calregs.FailedURL) error {
	err := l.next.AppendFailure(ctx, f)
	l.logger.Warn("failed url",
		"url", f.URL,
		"error_type", f.ErrorType,
		"retry_count", f.RetryCount,
		"message", f.ErrorMessage,
		"err", err,
	)
	return err
}

// LoadFailures delegates to the wrapped ledger.
func (l *LoggingFailureLedger) LoadFailures(ctx context.Context) ([]*calregs.FailedURL, error) {
	return l.next.LoadFailures(ctx)
}

// RewriteFailures logs the size of the rewritten ledger and delegates.
func (l *LoggingFailureLedger) RewriteFailures(ctx context.Context, failures []*calregs.FailedURL) error {
	err := l.next.RewriteFailures(ctx, failures)
	l.logger.Info("failure ledger rewritten", "remaining", len(failures), "err", err)
	return err
}

var _ calregs.CheckpointStore = (*LoggingCheckpointStore)(nil)

// LoggingCheckpointStore logs checkpoint loads and saves.
type LoggingCheckpointStore struct {
	next   calregs.CheckpointStore
	logger *slog.Logger
}

// NewLoggingCheckpointStore creates a new LoggingCheckpointStore.
func NewLoggingCheckpointStore(next calregs.CheckpointStore, logger *slog.Logger) *LoggingCheckpointStore {
	return &LoggingCheckpointStore{next: next, logger: logger}
}

// LoadCheckpoint delegates to the wrapped store. A missing checkpoint is
// not logged as an error.
func (s *LoggingCheckpointStore) LoadCheckpoint(ctx context.Context) (*calregs.Checkpoint, error) {
	cp, err := s.next.LoadCheckpoint(ctx)
	switch {
	case calregs.ErrorCode(err) == calregs.ENOTFOUND:
		s.logger.Debug("no checkpoint")
	case err != nil:
		s.logger.Warn("load checkpoint", "err", err)
	default:
		s.logger.Info("checkpoint loaded",
			"discovered", len(cp.DiscoveredURLs),
			"frontier", len(cp.Frontier),
			"last_updated", cp.LastUpdated,
		)
	}
	return cp, err
}

// SaveCheckpoint delegates to the wrapped store.
func (s *LoggingCheckpointStore) SaveCheckpoint(ctx context.Context, cp *calregs.Checkpoint) error {
	err := s.next.SaveCheckpoint(ctx, cp)
	s.logger.Debug("checkpoint saved", "discovered", len(cp.DiscoveredURLs), "err", err)
	return err
}
