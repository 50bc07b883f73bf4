package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/crawl"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	_, err := c.extract(deps, nil)
	return err
}

// extract fetches the sections of discovered, or of the discovered ledger
// when discovered is nil. An unreadable ledger is reported and treated as
// empty.
func (c *ExtractFlags) extract(deps *Dependencies, discovered []string) (*crawl.ExtractResult, error) {
	progress := deps.progress("extract")
	if discovered == nil {
		var err error
		discovered, err = deps.Discovered.LoadDiscovered(deps.Ctx)
		if err != nil {
			progress(crawl.ProgressEvent{Type: crawl.ProgressPersistFailed, Error: fmt.Errorf("load discovered ledger: %w", err)})
		}
	}
	if len(discovered) == 0 {
		fmt.Fprintln(deps.Stdout, "No discovered sections. Run 'calregs discover' first.")
		return &crawl.ExtractResult{}, nil
	}

	e := &crawl.Extractor{
		Fetcher:     deps.Fetcher,
		Parser:      deps.Parser,
		Sections:    deps.Sections,
		Failures:    deps.Failures,
		Retry:       deps.CLI.retryPolicy(),
		Concurrency: c.Concurrency,
		Delay:       deps.CLI.Delay,
		Timeout:     deps.CLI.Timeout,
		Now:         deps.Now,
	}

	result, err := e.Run(deps.Ctx, discovered, progress)
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return nil, err
	}

	fmt.Fprintf(deps.Stdout, "  Saved %d sections (%s), %d failed, %d already extracted\n",
		result.Saved, crawl.FormatBytes(result.Bytes), result.Failed, result.Skipped)
	if result.PersistFailed > 0 {
		fmt.Fprintf(deps.Stderr, "  %d records could not be written\n", result.PersistFailed)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "extraction interrupted: %v\n", err)
		return result, err
	}
	return result, nil
}
