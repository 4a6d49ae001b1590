package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/crawl"
	"github.com/fwojciec/fulltext/etree"
	"github.com/fwojciec/fulltext/extract"
	"github.com/fwojciec/fulltext/feeds"
	"github.com/fwojciec/fulltext/fs"
	ftgin "github.com/fwojciec/fulltext/gin"
	"github.com/fwojciec/fulltext/gofeed"
	"github.com/fwojciec/fulltext/goquery"
	"github.com/fwojciec/fulltext/htmltomarkdown"
	fthttp "github.com/fwojciec/fulltext/http"
	"github.com/fwojciec/fulltext/lingua"
	"github.com/fwojciec/fulltext/readability"
	ftslog "github.com/fwojciec/fulltext/slog"
	"github.com/fwojciec/fulltext/sqlite"
	"github.com/fwojciec/fulltext/trafilatura"
	"github.com/fwojciec/fulltext/whatlang"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config overrides the --config file. Set before calling Run().
	Config *Config

	// Cache database, opened when the response cache is enabled.
	DB *sqlite.DB

	// Agent is the shared fetch agent.
	Agent *fthttp.Agent
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Agent != nil {
		_ = m.Agent.Close()
	}
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
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("fulltext"),
		kong.Description("Turn partial web feeds into full-text feeds."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'fulltext --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := m.Config
	if cfg == nil {
		if cfg, err = LoadConfig(cli.Config); err != nil {
			fmt.Fprintf(stderr, "Hint: Set FULLTEXT_CONFIG or --config to use a different configuration file\n")
			return err
		}
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cmd := strings.Fields(kongCtx.Command())[0]
	defer m.Close()
	if err := m.wire(deps, cfg, cli, cmd); err != nil {
		return err
	}

	return kongCtx.Run(deps)
}

// wire builds the services cmd needs into deps.
func (m *Main) wire(deps *Dependencies, cfg *Config, cli *CLI, cmd string) error {
	logger := deps.Logger
	deps.Language = fulltext.LanguageMode(cfg.DetectLanguage)

	var rules fulltext.RuleStore
	if cfg.RulesDir != "" {
		store, err := fs.Open(cfg.RulesDir, fs.WithCustomDir(cfg.CustomRulesDir), fs.WithLogger(logger))
		if err != nil {
			logger.Warn("site rules disabled", "dir", cfg.RulesDir, "err", err)
		} else {
			rules = ftslog.NewLoggingRuleStore(store, logger)
			deps.Watch = store.Watch
		}
	}
	deps.Rules = rules
	if cmd == "rules" {
		return nil
	}

	var cache fulltext.ResponseCache
	if cfg.Cache.Enabled {
		m.DB = sqlite.NewDB(cfg.Cache.Path)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(deps.Stderr, "Hint: Set FULLTEXT_CACHE or cache.path to use a different cache location\n")
			return fmt.Errorf("failed to open cache at %q: %w", cfg.Cache.Path, err)
		}
		cache = sqlite.NewResponseCache(m.DB)
	}
	deps.Cache = cache
	if cmd == "clean-cache" {
		return nil
	}

	opts := []fthttp.Option{
		fthttp.WithTimeout(cfg.Fetch.Timeout),
		fthttp.WithUserAgentOverrides(cfg.UserAgents),
		fthttp.WithRewrites(cfg.Rewrites),
		fthttp.WithHeaderOnlyTypes(cfg.ContentTypes.MediaTypes()),
		fthttp.WithConcurrency(cfg.Fetch.Concurrency),
	}
	if cfg.Fetch.RateLimit > 0 {
		opts = append(opts, fthttp.WithDomainLimiter(fthttp.NewDomainLimiter(cfg.Fetch.RateLimit, cfg.Fetch.Burst)))
	}
	if cache != nil {
		opts = append(opts, fthttp.WithCache(cache, cfg.Cache.TTL))
	}
	m.Agent = fthttp.NewAgent(opts...)
	fetcher := ftslog.NewLoggingFetcher(m.Agent, logger)

	cleaner := goquery.NewScorer()
	extractor := ftslog.NewLoggingExtractor(
		extract.NewExtractor(rules, newScorer(cfg.Scorer),
			extract.WithFingerprints(cfg.Fingerprints),
			extract.WithCleaner(cleaner),
		),
		logger,
	)

	deps.Fetcher = fetcher
	deps.Extractor = extractor
	deps.Formatter = goquery.NewFormatter()
	deps.Converter = htmltomarkdown.NewConverter()
	deps.Writers = map[string]fulltext.FeedWriter{
		ftgin.FormatRSS:  etree.NewWriter(),
		ftgin.FormatAtom: feeds.NewAtomWriter(),
		ftgin.FormatJSON: feeds.NewJSONWriter(),
	}

	builder := &crawl.Builder{
		Fetcher:     fetcher,
		Source:      ftslog.NewLoggingFetcher(m.Agent.Machine(), logger),
		Feeds:       gofeed.NewParser(),
		Extractor:   extractor,
		Formatter:   deps.Formatter,
		Cleaner:     cleaner,
		Detector:    newDetector(cfg.LanguageDetector),
		Options:     cfg.BuilderOptions(),
		RetryDelays: crawl.DefaultRetryDelays(),
		Logger:      logger,
	}
	if cmd == "feed" {
		builder.Progress = progressPrinter(deps.Stderr)
	}
	deps.Builder = builder

	if cmd == "serve" {
		if cli.Serve.Addr == "" {
			cli.Serve.Addr = cfg.Server.Addr
		}
		hopts := []ftgin.Option{
			ftgin.WithLanguage(deps.Language),
			ftgin.WithLogger(logger),
		}
		for format, w := range deps.Writers {
			hopts = append(hopts, ftgin.WithWriter(format, w))
		}
		if cache != nil && cfg.Server.OutputTTL > 0 {
			hopts = append(hopts, ftgin.WithOutputCache(cache, cfg.Server.OutputTTL))
		}
		deps.Handler = ftgin.NewHandler(builder, hopts...)
	}
	return nil
}

func newScorer(name string) fulltext.Scorer {
	switch name {
	case ScorerReadability:
		return readability.NewScorer()
	case ScorerTrafilatura:
		return trafilatura.NewScorer()
	}
	return goquery.NewScorer()
}

func newDetector(name string) fulltext.LanguageDetector {
	if name == DetectorLingua {
		return lingua.NewDetector()
	}
	return whatlang.NewDetector()
}
