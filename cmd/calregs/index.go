package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
)

// Run executes the index command.
func (c *IndexCmd) Run(deps *Dependencies) error {
	sections, err := deps.Sections.LoadSections(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return err
	}
	latest := calregs.LatestSections(sections)

	n, err := deps.Index.UpsertSections(deps.Ctx, latest)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return err
	}
	total, err := deps.Index.CountSections(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Indexed %d sections (%d ledger records), %d in %s\n",
		n, len(sections), total, deps.Paths.Index)
	return nil
}
