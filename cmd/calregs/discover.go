package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/crawl"
)

// Run executes the discover command.
func (c *DiscoverCmd) Run(deps *Dependencies) error {
	_, err := c.discover(deps)
	return err
}

func (c *DiscoverFlags) discover(deps *Dependencies) (*crawl.DiscoverResult, error) {
	d := &crawl.Discoverer{
		Fetcher:         deps.Fetcher,
		Links:           deps.Links,
		Classifier:      deps.Classifier,
		Ledger:          deps.Discovered,
		Checkpoints:     deps.Checkpoints,
		RateLimiter:     crawl.NewDomainLimiter(deps.CLI.Delay),
		Retry:           crawl.SingleAttempt(),
		Timeout:         deps.CLI.Timeout,
		CheckpointEvery: c.CheckpointEvery,
		MaxPages:        c.MaxPages,
		MaxDiscovered:   c.MaxDiscovered,
		Resume:          c.Resume,
		Logger:          deps.logf,
		Now:             deps.Now,
	}

	fmt.Fprintf(deps.Stdout, "Discovering sections under %s\n", deps.CLI.Root)
	result, err := d.Discover(deps.Ctx, deps.CLI.Root, deps.progress("discover"))
	if result == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return nil, err
	}

	fmt.Fprintf(deps.Stdout, "  Visited %d pages (%d failed, %d links dropped)\n",
		result.Visited, result.Failed, result.Dropped)
	fmt.Fprintf(deps.Stdout, "  Discovered %d sections (%d new), %d pages left in frontier\n",
		result.Discovered, result.NewlyDiscovered, result.Pending)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "discovery interrupted: %v\n", err)
		return result, err
	}
	return result, nil
}
