package crawl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fwojciec/calregs"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of extraction workers when none is set.
const DefaultConcurrency = 3

// Extractor fetches and parses every discovered section that is not yet in
// the section ledger, using a bounded pool of workers.
type Extractor struct {
	Fetcher  calregs.Fetcher
	Parser   calregs.SectionParser
	Sections calregs.SectionLedger
	Failures calregs.FailureLedger

	Retry       RetryPolicy
	Concurrency int
	// Delay is applied by each worker before every URL.
	Delay time.Duration
	// Timeout bounds each fetch attempt.
	Timeout time.Duration

	Now func() time.Time
}

// ExtractResult holds the outcome of an extraction run.
type ExtractResult struct {
	Total         int
	Skipped       int
	Saved         int
	Failed        int
	PersistFailed int
	Bytes         int

	// Extracted holds the keys parsed in this run, including those whose
	// record could not be written. Failures holds the failures recorded.
	Extracted []string
	Failures  []*calregs.FailedURL
}

// Run extracts the URLs of discovered that have no section yet. Each
// finished URL is appended to the section or failure ledger before the next
// one is reported. On cancellation the partial result is returned together
// with the context error; interrupted URLs are left for the next run.
func (e *Extractor) Run(ctx context.Context, discovered []string, progress ProgressFunc) (*ExtractResult, error) {
	done, err := e.Sections.ExtractedKeys(ctx)
	if err != nil {
		progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("load extracted keys: %w", err)})
		done = map[string]struct{}{}
	}

	keys := sectionKeys(discovered)
	pending := PendingURLs(keys, done)
	result := &ExtractResult{
		Total:   len(pending),
		Skipped: len(keys) - len(pending),
	}

	var mu sync.Mutex
	completed := 0
	report := func(event ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch event.Type {
		case ProgressCompleted:
			result.Saved++
		case ProgressFailed:
			result.Failed++
		case ProgressPersistFailed:
			result.PersistFailed++
		}
		if event.Type == ProgressCompleted || event.Type == ProgressFailed {
			completed++
		}
		event.Completed = completed
		event.Total = result.Total
		progress.emit(event)
	}

	progress.emit(ProgressEvent{Type: ProgressStarted, Total: result.Total})

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, u := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := e.extractOne(ctx, u, report)
			mu.Lock()
			defer mu.Unlock()
			result.Bytes += out.bytes
			if out.parsed {
				result.Extracted = append(result.Extracted, u)
			}
			if out.failure != nil {
				result.Failures = append(result.Failures, out.failure)
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Extracted)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].URL < result.Failures[j].URL
	})

	progress.emit(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: result.Total})

	return result, ctx.Err()
}

// extractOutcome is what a single URL produced.
type extractOutcome struct {
	bytes   int
	parsed  bool
	failure *calregs.FailedURL
}

// extractOne processes a single URL.
func (e *Extractor) extractOne(ctx context.Context, u string, report ProgressFunc) extractOutcome {
	if err := sleep(ctx, e.Delay); err != nil {
		return extractOutcome{}
	}

	var section *calregs.Section
	attempts, err := e.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		section, err = fetchSection(ctx, e.Fetcher, e.Parser, u, e.Timeout)
		return err
	}, func(attempt int, wait time.Duration, err error) {
		report(ProgressEvent{Type: ProgressRetrying, URL: u, Attempt: attempt, Error: err})
	})

	if err != nil {
		if ctx.Err() != nil {
			return extractOutcome{}
		}
		failure := &calregs.FailedURL{
			URL:          u,
			ErrorType:    calregs.ErrorType(err),
			ErrorMessage: err.Error(),
			FailedAt:     e.now(),
		}
		if perr := e.Failures.AppendFailure(context.WithoutCancel(ctx), failure); perr != nil {
			report(ProgressEvent{Type: ProgressPersistFailed, URL: u, Error: fmt.Errorf("append failure: %w", perr)})
		}
		report(ProgressEvent{Type: ProgressFailed, URL: u, Attempt: attempts, Error: err})
		return extractOutcome{failure: failure}
	}

	section.RetrievedAt = e.now()
	section.ContentHash = ContentHash(section.ContentMarkdown)
	if perr := e.Sections.AppendSection(context.WithoutCancel(ctx), section); perr != nil {
		report(ProgressEvent{Type: ProgressPersistFailed, URL: u, Error: fmt.Errorf("append section: %w", perr)})
		return extractOutcome{parsed: true}
	}
	report(ProgressEvent{Type: ProgressCompleted, URL: u, Attempt: attempts})
	return extractOutcome{bytes: len(section.ContentMarkdown), parsed: true}
}

func (e *Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// PendingURLs returns the canonical keys of discovered that are not in done,
// deduplicated and sorted.
func PendingURLs(discovered []string, done map[string]struct{}) []string {
	var out []string
	for _, key := range sectionKeys(discovered) {
		if _, ok := done[key]; ok {
			continue
		}
		out = append(out, key)
	}
	return out
}

// fetchSection fetches u with a bounded timeout and parses it.
func fetchSection(ctx context.Context, fetcher calregs.Fetcher, parser calregs.SectionParser, u string, timeout time.Duration) (*calregs.Section, error) {
	fctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	html, err := fetcher.Fetch(fctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	section, err := parser.Parse(html, u)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	section.SourceURL = u
	return section, nil
}

// sectionKeys returns the distinct section keys of urls, sorted.
func sectionKeys(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = calregs.SectionKey(u)
	}
	sort.Strings(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
