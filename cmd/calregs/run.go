package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
)

// Run executes the run command. Storage failures in any stage are reported
// and the run continues, so a finished run always prints a coverage report.
func (c *RunCmd) Run(deps *Dependencies) error {
	state := &runState{}

	if c.SkipDiscover {
		fmt.Fprintln(deps.Stdout, "Skipping discovery")
	} else {
		result, err := c.discover(deps)
		if err != nil {
			return err
		}
		state.discovered = result.URLs
		if state.discovered == nil {
			state.discovered = []string{}
		}
	}

	extracted, err := c.extract(deps, state.discovered)
	if err != nil {
		return err
	}
	state.extracted = extracted.Extracted
	state.failures = extracted.Failures

	if !c.SkipRetry {
		fmt.Fprintln(deps.Stdout, "Retrying failed URLs")
		retried, err := retryFailures(deps, state.failures)
		if err != nil {
			return err
		}
		state.extracted = append(state.extracted, retried.Extracted...)
		state.failures = retried.Remaining
	}

	report := &ReportCmd{MissingPreview: calregs.DefaultMissingPreview}
	_, err = report.report(deps, state)
	return err
}

// runState holds what the run command produced in memory. The report uses
// it for any ledger that cannot be read back.
type runState struct {
	discovered []string
	extracted  []string
	failures   []*calregs.FailedURL
}
