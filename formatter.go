package calregs

import (
	"fmt"
	"strings"
)

// FormatCoverageReport renders r as a Markdown document for operators.
func FormatCoverageReport(r *CoverageReport) string {
	var b strings.Builder

	b.WriteString("# CCR Extraction Coverage Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count | Percent |\n")
	b.WriteString("|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Discovered | %d | 100.00%% |\n", r.Discovered)
	fmt.Fprintf(&b, "| Extracted | %d | %.2f%% |\n", r.Extracted, r.CoveragePercent)
	fmt.Fprintf(&b, "| Failed | %d | %.2f%% |\n", r.Failed, r.FailedPercent)
	fmt.Fprintf(&b, "| Missing | %d | %.2f%% |\n", r.Missing, r.MissingPercent)
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Coverage: %.2f%% (%s)**\n\n", r.CoveragePercent, r.Tier)

	if r.Orphaned > 0 || r.ResolvedFailures > 0 || r.Unaccounted > 0 {
		b.WriteString("## Consistency\n\n")
		fmt.Fprintf(&b, "- Missing without a failure record: %d\n", r.Unaccounted)
		fmt.Fprintf(&b, "- Extracted but never discovered: %d\n", r.Orphaned)
		fmt.Fprintf(&b, "- Failure records already extracted: %d\n\n", r.ResolvedFailures)
	}

	if len(r.FailureGroups) > 0 {
		b.WriteString("## Failures\n\n")
		for _, g := range r.FailureGroups {
			fmt.Fprintf(&b, "### %s (%d)\n\n", g.ErrorType, g.Count)
			for _, f := range g.Samples {
				fmt.Fprintf(&b, "- %s: %s\n", f.URL, f.ErrorMessage)
			}
			if g.Count > len(g.Samples) {
				fmt.Fprintf(&b, "- ... and %d more\n", g.Count-len(g.Samples))
			}
			b.WriteString("\n")
		}
	}

	if r.Missing > 0 {
		b.WriteString("## Missing URLs\n\n")
		for _, u := range r.MissingURLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
		if r.Missing > len(r.MissingURLs) {
			fmt.Fprintf(&b, "- ... and %d more\n", r.Missing-len(r.MissingURLs))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	for _, rec := range recommendations(r) {
		fmt.Fprintf(&b, "- %s\n", rec)
	}

	return b.String()
}

func recommendations(r *CoverageReport) []string {
	var recs []string
	if r.Failed > 0 {
		recs = append(recs, fmt.Sprintf("Replay the failure ledger to retry %d failed URLs.", r.Failed))
	}
	if r.Unaccounted > 0 {
		recs = append(recs, fmt.Sprintf("Run extraction again; %d discovered URLs have no section and no failure record.", r.Unaccounted))
	}
	if r.Tier == TierInsufficient {
		recs = append(recs, "Coverage is below 80%; re-run discovery and check the site structure for changes.")
	}
	if r.Orphaned > 0 {
		recs = append(recs, fmt.Sprintf("Re-run discovery; %d extracted sections are missing from the discovered ledger.", r.Orphaned))
	}
	if len(recs) == 0 {
		recs = append(recs, "Coverage is complete. No action needed.")
	}
	return recs
}
