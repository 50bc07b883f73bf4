package calregs

import (
	"math"
	"sort"
	"time"
)

// Tier grades a coverage percentage.
type Tier string

const (
	TierExcellent    Tier = "excellent"
	TierGood         Tier = "good"
	TierAcceptable   Tier = "acceptable"
	TierInsufficient Tier = "insufficient"
)

// TierFor returns the tier of a coverage percentage.
func TierFor(pct float64) Tier {
	switch {
	case pct >= 95:
		return TierExcellent
	case pct >= 90:
		return TierGood
	case pct >= 80:
		return TierAcceptable
	default:
		return TierInsufficient
	}
}

// Report preview bounds used when CoverageInput leaves them zero.
const (
	DefaultMissingPreview = 20
	DefaultFailureSamples = 10
)

// CoverageInput holds the three ledgers a coverage report is computed from.
type CoverageInput struct {
	Discovered []string
	// Extracted holds section source URLs; sub-record suffixes are ignored.
	Extracted []string
	Failures  []*FailedURL

	GeneratedAt    time.Time
	MissingPreview int
	FailureSamples int
}

// FailureGroup is the set of failures sharing an error type.
type FailureGroup struct {
	ErrorType string       `json:"error_type"`
	Count     int          `json:"count"`
	Samples   []*FailedURL `json:"samples"`
}

// CoverageReport states how much of the discovered corpus was extracted.
type CoverageReport struct {
	GeneratedAt time.Time `json:"generated_at"`

	Discovered int `json:"total_discovered"`
	Extracted  int `json:"total_extracted"`
	Failed     int `json:"total_failed"`
	Missing    int `json:"total_missing"`
	// Unaccounted counts missing URLs with no failure record.
	Unaccounted int `json:"unaccounted"`
	// Orphaned counts extracted keys that were never discovered.
	Orphaned int `json:"orphaned"`
	// ResolvedFailures counts failure records whose URL was extracted since.
	ResolvedFailures int `json:"resolved_failures"`

	CoveragePercent float64 `json:"coverage_percent"`
	FailedPercent   float64 `json:"failed_percent"`
	MissingPercent  float64 `json:"missing_percent"`
	Tier            Tier    `json:"tier"`

	FailureGroups []*FailureGroup `json:"failure_groups"`
	MissingURLs   []string        `json:"missing_preview"`
}

// Reconcile computes the coverage report for in. It does not modify in.
func Reconcile(in CoverageInput) *CoverageReport {
	missingPreview := in.MissingPreview
	if missingPreview <= 0 {
		missingPreview = DefaultMissingPreview
	}
	failureSamples := in.FailureSamples
	if failureSamples <= 0 {
		failureSamples = DefaultFailureSamples
	}

	discovered := keySet(in.Discovered)
	extracted := keySet(in.Extracted)

	r := &CoverageReport{
		GeneratedAt: in.GeneratedAt,
		Discovered:  len(discovered),
		Extracted:   len(extracted),
	}

	for key := range extracted {
		if _, ok := discovered[key]; !ok {
			r.Orphaned++
		}
	}

	failed := make(map[string]struct{})
	groups := make(map[string]*FailureGroup)
	for _, f := range LatestFailures(in.Failures) {
		key := SectionKey(f.URL)
		if _, ok := extracted[key]; ok {
			r.ResolvedFailures++
			continue
		}
		failed[key] = struct{}{}
		g, ok := groups[f.ErrorType]
		if !ok {
			g = &FailureGroup{ErrorType: f.ErrorType}
			groups[f.ErrorType] = g
		}
		g.Count++
		g.Samples = append(g.Samples, f)
	}
	r.Failed = len(failed)

	var missing []string
	for key := range discovered {
		if _, ok := extracted[key]; ok {
			continue
		}
		missing = append(missing, key)
		if _, ok := failed[key]; !ok {
			r.Unaccounted++
		}
	}
	sort.Strings(missing)
	r.Missing = len(missing)
	r.MissingURLs = missing[:min(len(missing), missingPreview)]

	denominator := float64(max(r.Discovered, 1))
	r.CoveragePercent = round2(float64(r.Extracted) / denominator * 100)
	r.FailedPercent = round2(float64(r.Failed) / denominator * 100)
	r.MissingPercent = round2(float64(r.Missing) / denominator * 100)
	r.Tier = TierFor(r.CoveragePercent)

	for _, g := range groups {
		sort.Slice(g.Samples, func(i, j int) bool {
			return g.Samples[i].URL < g.Samples[j].URL
		})
		g.Samples = g.Samples[:min(len(g.Samples), failureSamples)]
		r.FailureGroups = append(r.FailureGroups, g)
	}
	sort.Slice(r.FailureGroups, func(i, j int) bool {
		a, b := r.FailureGroups[i], r.FailureGroups[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ErrorType < b.ErrorType
	})

	return r
}

func keySet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[SectionKey(u)] = struct{}{}
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
