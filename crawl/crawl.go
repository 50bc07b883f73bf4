// Package crawl drives discovery, extraction and the retry pass over the
// ledgers. It coordinates fetching, parsing and persistence; concrete
// fetchers, parsers and stores are injected.
package crawl

import (
	"context"
	"net/url"
	"time"
)

// ProgressEvent reports progress during discovery, extraction or a retry pass.
type ProgressEvent struct {
	Type       ProgressType
	Completed  int
	Total      int
	Discovered int
	URL        string
	Attempt    int
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressRetrying
	ProgressSkipped
	ProgressCheckpoint
	ProgressPersistFailed
	ProgressFinished
)

func (t ProgressType) String() string {
	switch t {
	case ProgressStarted:
		return "started"
	case ProgressCompleted:
		return "completed"
	case ProgressFailed:
		return "failed"
	case ProgressRetrying:
		return "retrying"
	case ProgressSkipped:
		return "skipped"
	case ProgressCheckpoint:
		return "checkpoint"
	case ProgressPersistFailed:
		return "persist-failed"
	case ProgressFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ProgressFunc is a callback for reporting progress.
type ProgressFunc func(event ProgressEvent)

func (f ProgressFunc) emit(event ProgressEvent) {
	if f != nil {
		f(event)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
