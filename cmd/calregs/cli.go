package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/crawl"
	"github.com/fwojciec/calregs/fs"
	"github.com/fwojciec/calregs/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Metrics *prometheus.Metrics
	Paths   fs.Paths
	Now     func() time.Time
	CLI     *CLI

	Fetcher    calregs.Fetcher
	Parser     calregs.SectionParser
	Links      calregs.LinkExtractor
	Classifier *calregs.URLClassifier

	Discovered  calregs.DiscoveredLedger
	Sections    calregs.SectionLedger
	Failures    calregs.FailureLedger
	Checkpoints calregs.CheckpointStore
	Reports     *fs.ReportWriter
	Exporter    *fs.Exporter
	Index       calregs.SectionIndex
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config   string `type:"path" placeholder:"FILE" help:"YAML, TOML or JSON file with flag defaults"`
	DataDir  string `type:"path" default:"data" help:"Directory holding ledgers, checkpoints and reports"`
	LogLevel string `enum:"debug,info,warn,error" default:"info" help:"Log level (${enum})"`
	Root     string `default:"${root}" help:"Root URL of the browse hierarchy"`

	Delay       time.Duration `default:"1.5s" help:"Delay before each request"`
	Timeout     time.Duration `default:"45s" help:"Timeout of each request"`
	MaxAttempts int           `default:"5" help:"Fetch attempts per section"`
	BackoffBase time.Duration `default:"1s" help:"Wait after the first failed attempt"`
	BackoffMax  time.Duration `default:"16s" help:"Longest wait between attempts"`
	UserAgent   string        `default:"${user_agent}" help:"User-Agent header"`
	Render      bool          `help:"Render pages in headless Chrome"`

	Discover DiscoverCmd `cmd:"" help:"Walk the browse hierarchy and record section URLs"`
	Extract  ExtractCmd  `cmd:"" help:"Fetch and parse every discovered section not yet extracted"`
	Retry    RetryCmd    `cmd:"" help:"Attempt every failed URL once more"`
	Report   ReportCmd   `cmd:"" help:"Reconcile discovered against extracted sections"`
	Index    IndexCmd    `cmd:"" help:"Load the latest record of every section into SQLite"`
	Export   ExportCmd   `cmd:"" help:"Write every section as a Markdown file"`
	Run      RunCmd      `cmd:"" help:"Discover, extract, retry and report in one go"`
}

// DiscoverFlags configures discovery.
type DiscoverFlags struct {
	CheckpointEvery int  `default:"10" help:"Visited pages between checkpoints"`
	MaxPages        int  `help:"Stop after visiting this many pages (0 for no limit)"`
	MaxDiscovered   int  `help:"Stop after discovering this many sections (0 for no limit)"`
	Resume          bool `help:"Continue traversal from the saved frontier"`
}

// ExtractFlags configures extraction.
type ExtractFlags struct {
	Concurrency int `short:"c" default:"3" help:"Concurrent extraction workers"`
}

// DiscoverCmd is the "discover" subcommand.
type DiscoverCmd struct {
	DiscoverFlags `embed:""`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	ExtractFlags `embed:""`
}

// RetryCmd is the "retry" subcommand.
type RetryCmd struct{}

// ReportCmd is the "report" subcommand.
type ReportCmd struct {
	MissingPreview int `default:"20" help:"Missing URLs listed in the report"`
}

// IndexCmd is the "index" subcommand.
type IndexCmd struct{}

// ExportCmd is the "export" subcommand.
type ExportCmd struct{}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	DiscoverFlags `embed:""`
	ExtractFlags  `embed:""`

	SkipDiscover bool `help:"Reuse the discovered ledger instead of walking again"`
	SkipRetry    bool `help:"Do not replay failures after extraction"`
}

// retryPolicy returns the extraction retry policy from the global flags.
func (c *CLI) retryPolicy() crawl.RetryPolicy {
	return crawl.RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BackoffBase,
		MaxDelay:    c.BackoffMax,
	}
}
