package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/crawl"
)

// Run executes the retry command.
func (c *RetryCmd) Run(deps *Dependencies) error {
	_, err := retryFailures(deps, nil)
	return err
}

// retryFailures replays the failure ledger, or fallback when the ledger
// cannot be read.
func retryFailures(deps *Dependencies, fallback []*calregs.FailedURL) (*crawl.RetryResult, error) {
	p := &crawl.RetryPass{
		Fetcher:  deps.Fetcher,
		Parser:   deps.Parser,
		Sections: deps.Sections,
		Failures: deps.Failures,
		Delay:    deps.CLI.Delay,
		Timeout:  deps.CLI.Timeout,
		Fallback: fallback,
		Now:      deps.Now,
	}

	result, err := p.Run(deps.Ctx, deps.progress("retry"))
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return nil, err
	}
	if result.Attempted == 0 && result.Resolved == 0 {
		fmt.Fprintln(deps.Stdout, "No failed URLs to retry.")
		return result, err
	}

	fmt.Fprintf(deps.Stdout, "  Recovered %d of %d, %d still failing, %d already extracted\n",
		result.Recovered, result.Attempted, result.StillFailed, result.Resolved)
	if result.PersistFailed > 0 {
		fmt.Fprintf(deps.Stderr, "  %d records could not be written\n", result.PersistFailed)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "retry interrupted: %v\n", err)
		return result, err
	}
	return result, nil
}
