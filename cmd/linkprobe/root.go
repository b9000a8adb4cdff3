package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/linkprobe/internal/config"
	"github.com/nao1215/linkprobe/internal/crawler"
	"github.com/nao1215/linkprobe/internal/log"
	"github.com/nao1215/linkprobe/internal/model"
	"github.com/nao1215/linkprobe/internal/report"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. The root command itself runs the
// crawl; subcommands cover version and config scaffolding.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkprobe [seed-url]",
		Short: "Crawl a web site and verify every page's HTTP response",
		Long: `linkprobe crawls a single web site breadth-first starting from a seed
address. It fetches every page reachable through anchor links at or beneath
the seed's path, records status codes and response times, optionally checks
response headers against rules, and writes HTML and JSON reports.

The crawl never leaves the seed's scheme, host, and path prefix, and each
unique address is fetched exactly once.

Examples:
  # Crawl a site and write reports to the current directory
  linkprobe https://example.com/

  # Fail-check headers: server must match nginx, x-frame-options must exist
  linkprobe -h "server:nginx" -h "x-frame-options" https://example.com/

  # 5 second per-request timeout, reports into ./out
  linkprobe -t 5000 -p ./out https://example.com/

  # Additionally write a Markdown report
  linkprobe -m https://example.com/docs/

Configuration file (.linkprobe) example:
  rules:
    server: "nginx"
    x-frame-options: ""
  sites:
    example.com:
      cookie: "session=abc123"
      headers:
        Authorization: "Bearer token"`,
		// A wrong argument count reprints the usage text; errors after
		// parsing succeeds stay silenced and reach the operator as a
		// single line.
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				cmd.SilenceUsage = false
				return err
			}
			return nil
		},
		RunE:          runRootCmd,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Registering "help" by its long name only frees the -h shorthand for
	// header rules. Cobra looks the flag up by name, so --help still works.
	cmd.Flags().Bool("help", false, "help for linkprobe")

	cmd.Flags().IntP("timeout", "t", 10000,
		"Per-request timeout in milliseconds")
	cmd.Flags().StringArrayP("header", "h", nil,
		"Header rule to verify on every page: \"name\" or \"name:pattern\" (repeatable)")
	cmd.Flags().StringP("output-dir", "p", ".",
		"Output directory for report files (must exist)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Additionally write a Markdown report")
	cmd.Flags().Int("max-pages", 0,
		"Maximum number of pages to crawl (0 = unlimited)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkprobe in current directory)")

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Flag mistakes get the usage text too.
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.SilenceUsage = false
		return err
	})

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Run 'linkprobe --help' for usage.")
		os.Exit(1)
	}
}

// runRootCmd executes the crawl.
func runRootCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Interrupt stops the crawl between pages; the partial results are
	// still reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd, cfg, logger)
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file. Rules from the file are evaluated before rules from
// the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Seed = args[0]

	timeoutMillis, err := cmd.Flags().GetInt("timeout")
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeoutMillis) * time.Millisecond

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	// CLI rules come after file rules so the command line wins ties in
	// the record's verification partitions.
	headerSpecs, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return nil, err
	}
	cliRules, err := config.ParseHeaderRules(headerSpecs)
	if err != nil {
		return nil, err
	}
	cfg.HeaderRules = append(cfg.HeaderRules, cliRules...)

	return cfg, nil
}

// applyConfigFile merges the configuration file into cfg: file-level header
// rules plus the site section matching the seed's host. An explicitly
// specified file must exist; the default locations are optional.
func applyConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if explicit {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	fileRules, err := file.HeaderRules()
	if err != nil {
		return fmt.Errorf("invalid rule in config file %s: %w", path, err)
	}
	cfg.HeaderRules = append(cfg.HeaderRules, fileRules...)

	host := ""
	if u, err := url.Parse(cfg.Seed); err == nil {
		host = u.Host
	}
	site := file.GetSiteConfig(host)

	cfg.Cookie = site.Cookie
	cfg.RequestHeaders = site.Headers
	if site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}

	return nil
}

// runCrawl executes the crawl and writes the reports.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	fetcher := crawler.NewHTTPFetcher(cfg.Timeout,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithRequestHeaders(cfg.RequestHeaders),
		crawler.WithCookie(cfg.Cookie),
	)

	engine, err := crawler.New(cfg.Seed, fetcher,
		crawler.WithHeaderRules(cfg.HeaderRules),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// The seed record carries the normalized form of the address.
	seed := engine.Records()[0].URI
	crawlReport := model.NewCrawlReport(seed, ruleSpecs(cfg.HeaderRules))

	logger.Info("starting crawl",
		"seed", seed,
		"timeout", cfg.Timeout,
		"maxPages", cfg.MaxPages,
		"rules", len(cfg.HeaderRules),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Probing %s...\n", seed)

	records, runErr := engine.Run(ctx)
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) {
			return runErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Crawl interrupted; reporting partial results.")
	}

	crawlReport.Finalize(records, time.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "Crawled %d page(s) in %s\n",
		len(records), crawlReport.Duration().Round(time.Millisecond))

	writer := report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(cfg.Verbose))
	if _, err := writer.Write(crawlReport); err != nil {
		logger.Error("failed to render terminal report", "error", err)
	}

	// A file-write failure is reported but never fails a completed crawl;
	// the terminal summary above already carries the results.
	emitter := report.NewEmitter(cfg.OutputDir, getVersion(),
		report.WithMarkdownFile(cfg.MarkdownReport),
	)
	paths, err := emitter.Emit(crawlReport)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
	}
	if err != nil {
		logger.Error("failed to write report files", "error", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write report files: %v\n", err)
	}

	return nil
}

// ruleSpecs converts compiled header rules into their serializable form.
func ruleSpecs(rules []config.HeaderRule) []model.RuleSpec {
	specs := make([]model.RuleSpec, 0, len(rules))
	for _, rule := range rules {
		specs = append(specs, model.RuleSpec{
			Header:  rule.Name,
			Pattern: rule.ExpectedPattern(),
		})
	}
	return specs
}
