package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/calregs"
)

// RetryPass replays the failure ledger: every failed URL gets exactly one
// more attempt, successes move to the section ledger and the failure ledger
// is rewritten with what still fails.
type RetryPass struct {
	Fetcher  calregs.Fetcher
	Parser   calregs.SectionParser
	Sections calregs.SectionLedger
	Failures calregs.FailureLedger

	Delay   time.Duration
	Timeout time.Duration

	// Fallback is replayed when the failure ledger cannot be read.
	Fallback []*calregs.FailedURL

	Now func() time.Time
}

// RetryResult holds the outcome of a retry pass.
type RetryResult struct {
	Attempted   int
	Recovered   int
	StillFailed int
	// Resolved counts entries dropped because their URL was already
	// extracted.
	Resolved      int
	PersistFailed int

	// Extracted holds the URLs parsed in this pass, including those whose
	// record could not be written. Remaining is the failure set after the
	// pass, whether or not the ledger rewrite succeeded.
	Extracted []string
	Remaining []*calregs.FailedURL
}

// Run replays the failure ledger once. On cancellation, entries that were
// not attempted are kept unchanged. Ledger errors are reported as progress
// events and never abort the pass.
func (p *RetryPass) Run(ctx context.Context, progress ProgressFunc) (*RetryResult, error) {
	failures, err := p.Failures.LoadFailures(ctx)
	if err != nil {
		progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("load failures: %w", err)})
		failures = p.Fallback
	}
	done, err := p.Sections.ExtractedKeys(ctx)
	if err != nil {
		progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("load extracted keys: %w", err)})
		done = map[string]struct{}{}
	}

	entries := calregs.LatestFailures(failures)
	result := &RetryResult{}
	progress.emit(ProgressEvent{Type: ProgressStarted, Total: len(entries)})

	var remaining []*calregs.FailedURL
	for i, f := range entries {
		if _, ok := done[calregs.SectionKey(f.URL)]; ok {
			result.Resolved++
			continue
		}
		if err := sleep(ctx, p.Delay); err != nil {
			remaining = append(remaining, entries[i:]...)
			break
		}

		result.Attempted++
		section, err := fetchSection(ctx, p.Fetcher, p.Parser, f.URL, p.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				remaining = append(remaining, entries[i:]...)
				break
			}
			remaining = append(remaining, &calregs.FailedURL{
				URL:          f.URL,
				ErrorType:    calregs.ErrorType(err),
				ErrorMessage: err.Error(),
				RetryCount:   f.RetryCount + 1,
				FailedAt:     p.now(),
			})
			progress.emit(ProgressEvent{Type: ProgressFailed, URL: f.URL, Completed: i + 1, Total: len(entries), Error: err})
			continue
		}

		section.RetrievedAt = p.now()
		section.ContentHash = ContentHash(section.ContentMarkdown)
		result.Extracted = append(result.Extracted, f.URL)
		if err := p.Sections.AppendSection(context.WithoutCancel(ctx), section); err != nil {
			result.PersistFailed++
			remaining = append(remaining, f)
			progress.emit(ProgressEvent{Type: ProgressPersistFailed, URL: f.URL, Error: fmt.Errorf("append section: %w", err)})
			continue
		}
		result.Recovered++
		progress.emit(ProgressEvent{Type: ProgressCompleted, URL: f.URL, Completed: i + 1, Total: len(entries)})
	}

	for _, f := range remaining {
		if _, ok := done[calregs.SectionKey(f.URL)]; ok {
			continue
		}
		result.StillFailed++
	}

	result.Remaining = remaining
	if err := p.Failures.RewriteFailures(context.WithoutCancel(ctx), remaining); err != nil {
		result.PersistFailed++
		progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("rewrite failures: %w", err)})
	}

	progress.emit(ProgressEvent{Type: ProgressFinished, Completed: result.Recovered, Total: len(entries)})

	return result, ctx.Err()
}

func (p *RetryPass) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
