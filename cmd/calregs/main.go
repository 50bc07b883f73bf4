package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/calregs"
	"github.com/fwojciec/calregs/fs"
	"github.com/fwojciec/calregs/goquery"
	"github.com/fwojciec/calregs/htmltomarkdown"
	calhttp "github.com/fwojciec/calregs/http"
	"github.com/fwojciec/calregs/prometheus"
	"github.com/fwojciec/calregs/rod"
	calslog "github.com/fwojciec/calregs/slog"
	"github.com/fwojciec/calregs/sqlite"
	"github.com/fwojciec/calregs/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Fetcher replaces the network fetcher when set. Used by tests.
	Fetcher calregs.Fetcher

	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time

	// SQLite database opened by the index command.
	DB *sqlite.DB

	// Index replaces the SQLite index when set. Used by tests.
	Index calregs.SectionIndex
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	resolver, err := viper.NewResolver(viper.DefaultEnvPrefix, viper.ConfigFile(args))
	if err != nil {
		return err
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("calregs"),
		kong.Description("Crawl the California Code of Regulations and reconcile coverage."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
		kong.Resolvers(resolver),
		kong.Vars{
			"root":       calregs.DefaultRootURL,
			"user_agent": calhttp.DefaultUserAgent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'calregs --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Command()
	deps.CLI = cli

	logger, err := calslog.NewLogger(stderr, cli.LogLevel)
	if err != nil {
		return err
	}
	deps.Logger = logger

	root, err := rootURL(cli.Root)
	if err != nil {
		return err
	}
	cli.Root = root.String()

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	deps.Metrics = metrics

	paths := fs.DefaultPaths(cli.DataDir)
	deps.Paths = paths
	deps.Discovered = fs.NewDiscoveredLedger(paths.Discovered)
	deps.Sections = fs.NewSectionLedger(paths.Sections)
	deps.Failures = calslog.NewLoggingFailureLedger(fs.NewFailureLedger(paths.Failures), logger)
	deps.Checkpoints = calslog.NewLoggingCheckpointStore(fs.NewCheckpointStore(paths.Checkpoint), logger)
	deps.Reports = fs.NewReportWriter(paths)
	deps.Exporter = fs.NewExporter(paths.Export)

	classifier := calregs.DefaultURLClassifier()
	classifier.Host = root.Hostname()
	deps.Classifier = classifier
	deps.Links = goquery.NewLinkExtractor()

	conv := htmltomarkdown.NewConverter(htmltomarkdown.WithDomain(root.Scheme + "://" + root.Host))
	deps.Parser = calslog.NewLoggingSectionParser(goquery.NewSectionParser(conv), logger)

	switch cmd {
	case "discover", "extract", "retry", "run":
		fetcher, err := m.openFetcher(cli, stderr)
		if err != nil {
			return err
		}
		defer fetcher.Close()
		deps.Fetcher = calslog.NewLoggingFetcher(prometheus.NewFetcher(fetcher, metrics), logger)

	case "index":
		if m.Index != nil {
			deps.Index = m.Index
			break
		}
		if err := os.MkdirAll(paths.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		m.DB = sqlite.NewDB(paths.Index)
		if err := m.DB.Open(); err != nil {
			return fmt.Errorf("failed to open index at %q: %w", paths.Index, err)
		}
		defer m.Close()
		deps.Index = sqlite.NewSectionService(m.DB)
	}

	runErr := kongCtx.Run(deps)

	if err := metrics.WriteTextfile(paths.Metrics, m.Now()); err != nil {
		logger.Warn("metrics: write failed", "path", paths.Metrics, "error", err)
	}

	return runErr
}

// openFetcher returns the injected fetcher, a headless browser when
// rendering is requested, or a plain HTTP client.
func (m *Main) openFetcher(cli *CLI, stderr io.Writer) (calregs.Fetcher, error) {
	if m.Fetcher != nil {
		return m.Fetcher, nil
	}
	if cli.Render {
		fetcher, err := rod.NewFetcher(
			rod.WithFetchTimeout(cli.Timeout),
			rod.WithUserAgent(cli.UserAgent),
		)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed for --render")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return fetcher, nil
	}
	return calhttp.NewFetcher(
		calhttp.WithTimeout(cli.Timeout),
		calhttp.WithUserAgent(cli.UserAgent),
	), nil
}

// rootURL validates the crawl root.
func rootURL(raw string) (*url.URL, error) {
	canonical, err := calregs.CanonicalURL(raw)
	if err != nil {
		return nil, calregs.Errorf(calregs.EINVALID, "invalid --root %q: %s", raw, calregs.ErrorMessage(err))
	}
	return url.Parse(canonical)
}
