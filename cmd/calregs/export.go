package main

import (
	"fmt"

	"github.com/fwojciec/calregs"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	sections, err := deps.Sections.LoadSections(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return err
	}
	if len(sections) == 0 {
		fmt.Fprintln(deps.Stdout, "No extracted sections. Run 'calregs extract' first.")
		return nil
	}

	n, err := deps.Exporter.Export(deps.Ctx, sections)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", calregs.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Exported %d sections to %s\n", n, deps.Paths.Export)
	return nil
}
