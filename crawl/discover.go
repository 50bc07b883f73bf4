package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/calregs"
)

// Discoverer walks the browse hierarchy one page at a time and collects
// section URLs into the discovered ledger.
type Discoverer struct {
	Fetcher     calregs.Fetcher
	Links       calregs.LinkExtractor
	Classifier  *calregs.URLClassifier
	Ledger      calregs.DiscoveredLedger
	Checkpoints calregs.CheckpointStore
	RateLimiter calregs.DomainLimiter

	// Retry applies to each page fetch. The zero value makes one attempt.
	Retry RetryPolicy
	// Timeout bounds each fetch attempt.
	Timeout time.Duration
	// CheckpointEvery is the number of visited pages between checkpoints.
	CheckpointEvery int
	// MaxPages and MaxDiscovered stop the walk early when positive.
	MaxPages      int
	MaxDiscovered int
	// Resume saves the frontier and visited set in checkpoints and
	// continues from them on the next run.
	Resume bool

	Logger LogFunc
	Now    func() time.Time
}

// DiscoverResult holds the outcome of a discovery run.
type DiscoverResult struct {
	Visited         int
	Failed          int
	Dropped         int
	Discovered      int
	NewlyDiscovered int
	Pending         int
	Checkpoints     int
	// URLs holds every discovered section key, sorted. It is complete even
	// when the ledger could not be written.
	URLs []string
}

// Discover walks from root until the frontier is empty, a cap is reached or
// ctx is done. A final checkpoint is written in every case. On cancellation
// the partial result is returned together with the context error.
func (d *Discoverer) Discover(ctx context.Context, root string, progress ProgressFunc) (*DiscoverResult, error) {
	rootURL, err := calregs.CanonicalURL(root)
	if err != nil {
		return nil, err
	}
	classifier := d.Classifier
	if classifier == nil {
		classifier = calregs.DefaultURLClassifier()
	}

	state := NewState(4096)
	resumed := d.restore(ctx, state, progress)
	if !resumed {
		state.Enqueue(rootURL)
	}
	result := &DiscoverResult{}
	known := state.DiscoveredCount()

	progress.emit(ProgressEvent{
		Type:       ProgressStarted,
		URL:        rootURL,
		Total:      state.Pending(),
		Discovered: known,
	})

	for {
		if ctx.Err() != nil {
			break
		}
		if d.MaxPages > 0 && state.VisitedCount() >= d.MaxPages {
			break
		}
		if d.MaxDiscovered > 0 && state.DiscoveredCount() >= d.MaxDiscovered {
			break
		}

		u, ok := state.Next()
		if !ok {
			break
		}
		if !state.MarkVisited(u) {
			continue
		}

		html, err := d.fetch(ctx, u)
		if err == nil {
			var links []string
			links, err = d.Links.ExtractLinks(html, u)
			if err == nil {
				result.Dropped += d.follow(state, classifier, links, progress)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				state.Requeue(u)
				break
			}
			result.Failed++
			progress.emit(ProgressEvent{
				Type:       ProgressFailed,
				URL:        u,
				Completed:  state.VisitedCount(),
				Total:      state.VisitedCount() + state.Pending(),
				Discovered: state.DiscoveredCount(),
				Error:      err,
			})
		} else {
			progress.emit(ProgressEvent{
				Type:       ProgressCompleted,
				URL:        u,
				Completed:  state.VisitedCount(),
				Total:      state.VisitedCount() + state.Pending(),
				Discovered: state.DiscoveredCount(),
			})
		}

		if d.CheckpointEvery > 0 && state.VisitedCount()%d.CheckpointEvery == 0 {
			d.checkpoint(ctx, state, progress)
			result.Checkpoints++
		}
	}

	d.checkpoint(ctx, state, progress)
	result.Checkpoints++

	result.Visited = state.VisitedCount()
	result.Discovered = state.DiscoveredCount()
	result.URLs = state.DiscoveredURLs()
	result.NewlyDiscovered = result.Discovered - known
	result.Pending = state.Pending()

	progress.emit(ProgressEvent{
		Type:       ProgressFinished,
		Completed:  result.Visited,
		Total:      result.Visited + result.Pending,
		Discovered: result.Discovered,
	})

	return result, ctx.Err()
}

// follow classifies the links of a visited page and returns how many were
// dropped as out of scope.
func (d *Discoverer) follow(state *State, classifier *calregs.URLClassifier, links []string, progress ProgressFunc) int {
	var dropped int
	for _, link := range links {
		key, err := calregs.CanonicalURL(link)
		if err != nil {
			dropped++
			progress.emit(ProgressEvent{Type: ProgressSkipped, URL: link, Error: err})
			continue
		}
		switch classifier.Classify(key) {
		case calregs.LinkContent:
			state.Discover(key)
		case calregs.LinkNavigation:
			state.Enqueue(key)
		default:
			dropped++
			progress.emit(ProgressEvent{Type: ProgressSkipped, URL: key})
		}
	}
	return dropped
}

func (d *Discoverer) fetch(ctx context.Context, u string) (string, error) {
	if d.RateLimiter != nil {
		if err := d.RateLimiter.Wait(ctx, hostOf(u)); err != nil {
			return "", err
		}
	}
	return FetchWithRetry(ctx, u, d.fetchOnce, d.Retry, d.Logger)
}

func (d *Discoverer) fetchOnce(ctx context.Context, u string) (string, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return d.Fetcher.Fetch(ctx, u)
}

// restore seeds state from the ledger and the last checkpoint. It reports
// whether traversal resumes from a saved frontier.
func (d *Discoverer) restore(ctx context.Context, state *State, progress ProgressFunc) bool {
	if d.Ledger != nil {
		urls, err := d.Ledger.LoadDiscovered(ctx)
		if err != nil {
			progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("load discovered ledger: %w", err)})
		}
		for _, u := range urls {
			state.Discover(u)
		}
	}

	if d.Checkpoints == nil {
		return false
	}
	cp, err := d.Checkpoints.LoadCheckpoint(ctx)
	if err != nil {
		if calregs.ErrorCode(err) != calregs.ENOTFOUND {
			progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: fmt.Errorf("load checkpoint: %w", err)})
		}
		return false
	}
	for _, u := range cp.DiscoveredURLs {
		state.Discover(u)
	}

	if !d.Resume || len(cp.Frontier) == 0 {
		return false
	}
	for _, u := range cp.Visited {
		state.MarkVisited(u)
	}
	for _, u := range cp.Frontier {
		state.Enqueue(u)
	}
	return state.Pending() > 0
}

// checkpoint saves the checkpoint and rewrites the discovered ledger.
// Failures are reported and do not stop the walk.
func (d *Discoverer) checkpoint(ctx context.Context, state *State, progress ProgressFunc) {
	ctx = context.WithoutCancel(ctx)

	urls := state.DiscoveredURLs()
	var errs []error
	if d.Checkpoints != nil {
		cp := &calregs.Checkpoint{
			DiscoveredURLs: urls,
			LastUpdated:    d.now(),
		}
		if d.Resume {
			cp.Frontier = state.FrontierURLs()
			cp.Visited = state.VisitedURLs()
		}
		if err := d.Checkpoints.SaveCheckpoint(ctx, cp); err != nil {
			errs = append(errs, fmt.Errorf("save checkpoint: %w", err))
		}
	}
	if d.Ledger != nil {
		if err := d.Ledger.WriteDiscovered(ctx, urls); err != nil {
			errs = append(errs, fmt.Errorf("write discovered ledger: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		progress.emit(ProgressEvent{Type: ProgressPersistFailed, Error: err})
		return
	}
	progress.emit(ProgressEvent{
		Type:       ProgressCheckpoint,
		Completed:  state.VisitedCount(),
		Discovered: len(urls),
	})
}

func (d *Discoverer) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
