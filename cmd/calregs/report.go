package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
)

// Run executes the report command.
func (c *ReportCmd) Run(deps *Dependencies) error {
	_, err := c.report(deps, nil)
	return err
}

// report reconciles the ledgers. When state is set, any ledger that cannot
// be read is replaced by the matching results of the current run.
func (c *ReportCmd) report(deps *Dependencies, state *runState) (*calregs.CoverageReport, error) {
	discovered, err := deps.Discovered.LoadDiscovered(deps.Ctx)
	if err != nil {
		if state == nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
			return nil, err
		}
		deps.ledgerFallback("discovered", err)
		discovered = state.discovered
	}

	var extracted []string
	sections, err := deps.Sections.LoadSections(deps.Ctx)
	if err != nil {
		if state == nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
			return nil, err
		}
		deps.ledgerFallback("section", err)
		extracted = state.extracted
	}
	for _, s := range sections {
		extracted = append(extracted, s.SourceURL)
	}

	failures, err := deps.Failures.LoadFailures(deps.Ctx)
	if err != nil {
		if state == nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
			return nil, err
		}
		deps.ledgerFallback("failure", err)
		failures = state.failures
	}

	r := calregs.Reconcile(calregs.CoverageInput{
		Discovered:     discovered,
		Extracted:      extracted,
		Failures:       failures,
		GeneratedAt:    deps.Now(),
		MissingPreview: c.MissingPreview,
	})
	if deps.Metrics != nil {
		deps.Metrics.SetCoverage(r)
	}

	fmt.Fprintf(deps.Stdout, "Coverage: %.2f%% (%d of %d sections, %d failed, %d missing) - %s\n",
		r.CoveragePercent, r.Extracted, r.Discovered, r.Failed, r.Missing, r.Tier)

	if err := deps.Reports.WriteReport(r); err != nil {
		deps.log().Error("report: write failed", "error", err)
		fmt.Fprintf(deps.Stderr, "could not write report (%v); printing it instead\n", err)
		fmt.Fprintln(deps.Stdout, calregs.FormatCoverageReport(r))
		return r, nil
	}
	fmt.Fprintf(deps.Stdout, "  Report written to %s and %s\n", deps.Reports.MarkdownPath, deps.Reports.JSONPath)
	return r, nil
}

// ledgerFallback reports that the named ledger could not be read and that
// this run's results are used instead.
func (deps *Dependencies) ledgerFallback(ledger string, err error) {
	deps.log().Error("report: ledger unreadable", "ledger", ledger, "error", err)
	fmt.Fprintf(deps.Stderr, "could not read %s ledger (%s); using this run's results\n", ledger, calregs.ErrorMessage(err))
}
