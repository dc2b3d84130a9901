package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/articles"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/config"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/daemon"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/discover"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/eventstore"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/generate"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/llm"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/logfields"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/metrics"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/observability"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/pipeline"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/retry"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/site"
	"github.com/Sachin-Mamoru/error-fix-engine/internal/state"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Force  []string `help:"Slugs to regenerate even when up to date"`
		Max    int      `help:"Cap the number of topics generated this run (0 = no cap)"`
		DryRun bool     `help:"Report the work list without generating or building"`
	} `cmd:"" help:"Generate pending articles and rebuild the site"`

	Plan struct{} `cmd:"" help:"Print the topics a run would generate, without doing anything"`

	Build struct{} `cmd:"" help:"Rebuild the site from existing articles, no generation"`

	Discover struct {
		Count int `help:"Override how many topics to request"`
	} `cmd:"" help:"Ask the generation service for new error topics"`

	Daemon struct{} `cmd:"" help:"Run unattended: scheduled pipeline passes plus catalog watching"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := loadConfig(kctx.Command())
	if err != nil {
		slog.Error("Failed to load configuration", logfields.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "run":
		err = runPipeline(ctx, cfg, modeForRun(), forceSet(CLI.Run.Force), CLI.Run.Max)
	case "plan":
		err = runPipeline(ctx, cfg, pipeline.ModeDryRun, nil, 0)
	case "build":
		err = runPipeline(ctx, cfg, pipeline.ModeBuildOnly, nil, 0)
	case "discover":
		err = runDiscover(ctx, cfg, CLI.Discover.Count)
	case "daemon":
		err = runDaemon(ctx, cfg)
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", slog.String("command", kctx.Command()), logfields.Error(err))
		os.Exit(1)
	}
}

// loadConfig loads the config file and installs logging. init works without
// an existing file.
func loadConfig(command string) (*config.Config, error) {
	if command == "init" {
		cfg := &config.Config{}
		cfg.ApplyDefaults()
		observability.SetupLogging(verboseLevel(cfg.Logging.Level), cfg.Logging.Format)
		return cfg, nil
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		// Logging is not configured yet; fall back to defaults for the error.
		observability.SetupLogging(config.LogLevelInfo, config.LogFormatText)
		return nil, err
	}
	observability.SetupLogging(verboseLevel(cfg.Logging.Level), cfg.Logging.Format)
	return cfg, nil
}

func verboseLevel(configured config.LogLevel) config.LogLevel {
	if CLI.Verbose {
		return config.LogLevelDebug
	}
	return configured
}

func modeForRun() pipeline.Mode {
	if CLI.Run.DryRun {
		return pipeline.ModeDryRun
	}
	return pipeline.ModeNormal
}

func forceSet(slugs []string) map[string]bool {
	if len(slugs) == 0 {
		return nil
	}
	force := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		force[strings.TrimSpace(s)] = true
	}
	return force
}

// assemble wires the pipeline for one or more runs. The generation client is
// only created for modes that can call the service.
func assemble(ctx context.Context, cfg *config.Config, mode pipeline.Mode, maxOverride int, recorder metrics.Recorder) (*pipeline.Pipeline, func(), error) {
	topics, err := catalog.Load(cfg.Paths.Catalog, cfg.Paths.Discovered)
	if err != nil {
		return nil, nil, err
	}
	st, err := state.NewFileStore(cfg.Paths.State)
	if err != nil {
		return nil, nil, err
	}
	store, err := articles.NewFSStore(cfg.Paths.Content)
	if err != nil {
		return nil, nil, err
	}

	var client llm.Client
	if mode == pipeline.ModeNormal {
		client, err = newClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
	}

	gen := &generate.Generator{
		Client:   client,
		Articles: store,
		State:    st,
		Policy: retry.NewPolicy(cfg.Generation.Backoff, cfg.Generation.BackoffInitial,
			cfg.Generation.BackoffMax, cfg.Generation.MaxRetries),
		Metrics:           recorder,
		CallTimeout:       cfg.Generation.CallTimeout,
		RateLimitWait:     cfg.Generation.RateLimitWait,
		InterRequestDelay: cfg.Generation.InterRequestDelay,
		TargetWordsMin:    cfg.Generation.TargetWordsMin,
		TargetWordsMax:    cfg.Generation.TargetWordsMax,
	}
	builder := &site.Builder{
		BaseURL:     strings.TrimRight(cfg.Site.BaseURL, "/"),
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		Output:      cfg.Paths.Output,
	}

	maxPerRun := cfg.Generation.MaxPerRun
	if maxOverride > 0 {
		maxPerRun = maxOverride
	}

	p := &pipeline.Pipeline{
		Topics:     topics,
		State:      st,
		Articles:   store,
		Generator:  gen,
		Builder:    builder,
		Metrics:    recorder,
		MaxPerRun:  maxPerRun,
		BatchSize:  cfg.Generation.BatchSize,
		BatchPause: cfg.Generation.BatchPause,
	}

	cleanup := func() {}
	if cfg.Paths.Events != "" {
		events, err := eventstore.NewStore(cfg.Paths.Events)
		if err != nil {
			return nil, nil, err
		}
		p.Events = events
		cleanup = func() {
			if closeErr := events.Close(); closeErr != nil {
				slog.Warn("Event store close failed", logfields.Error(closeErr))
			}
		}
	}
	return p, cleanup, nil
}

func newClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	apiKey := os.Getenv(cfg.Generation.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", cfg.Generation.APIKeyEnv)
	}
	return llm.NewGeminiClient(ctx, apiKey, cfg.Generation.Models)
}

func runPipeline(ctx context.Context, cfg *config.Config, mode pipeline.Mode, force map[string]bool, maxOverride int) error {
	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	p, cleanup, err := assemble(ctx, cfg, mode, maxOverride, recorder)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := p.Run(ctx, mode, force)
	if err != nil {
		return err
	}
	if mode == pipeline.ModeDryRun {
		if len(report.Planned) == 0 {
			fmt.Println("Everything is up to date.")
			return nil
		}
		fmt.Printf("%d topic(s) pending:\n", len(report.Planned))
		for _, slug := range report.Planned {
			fmt.Printf("  %s\n", slug)
		}
	}
	return nil
}

func runDiscover(ctx context.Context, cfg *config.Config, countOverride int) error {
	topics, err := catalog.Load(cfg.Paths.Catalog, cfg.Paths.Discovered)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	count := cfg.Discovery.TopicsPerRun
	if countOverride > 0 {
		count = countOverride
	}
	d := &discover.Discoverer{Client: client, TopicsPerRun: count}
	fresh, err := d.Discover(ctx, topics)
	if err != nil {
		return err
	}
	added, err := discover.Append(cfg.Paths.Discovered, fresh)
	if err != nil {
		return err
	}
	fmt.Printf("Discovered %d new topic(s).\n", added)
	return nil
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	d := &daemon.Daemon{
		RunOnce: func(runCtx context.Context) error {
			// Re-assemble each run so catalog edits are picked up.
			p, cleanup, err := assemble(runCtx, cfg, pipeline.ModeNormal, 0, recorder)
			if err != nil {
				return err
			}
			defer cleanup()
			if cfg.Discovery.Enabled {
				if err := runDiscover(runCtx, cfg, 0); err != nil {
					slog.Warn("Discovery failed, continuing with existing catalog", logfields.Error(err))
				}
			}
			_, err = p.Run(runCtx, pipeline.ModeNormal, nil)
			return err
		},
		Interval:       cfg.Daemon.Interval,
		CatalogPath:    cfg.Paths.Catalog,
		WatchCatalog:   cfg.Daemon.WatchCatalog,
		MetricsAddr:    cfg.Daemon.MetricsAddr,
		MetricsHandler: metrics.HTTPHandler(registry),
	}
	return d.Run(ctx)
}

const starterConfig = `site:
  base_url: "https://errors.example.com"
  title: "Error Fix Engine"
  description: "Troubleshooting guides for common developer errors."

paths:
  catalog: "config/errors.yaml"
  discovered: "config/discovered_errors.yaml"
  content: "content"
  output: "site"
  state: "content/generated.yaml"
  events: "content/events.db"

generation:
  api_key_env: "GEMINI_API_KEY"
  call_timeout: 2m
  max_retries: 4
  backoff: exponential
  backoff_initial: 4s
  backoff_max: 60s
  rate_limit_wait: 65s
  inter_request_delay: 15s
  target_words_min: 900
  target_words_max: 1200
  batch_size: 10
  batch_pause: 70s

discovery:
  enabled: false
  topics_per_run: 30

daemon:
  interval: 2h
  watch_catalog: true

logging:
  level: info
  format: text
`

const starterCatalog = `errors:
  - tool: "Docker"
    error_code: "exit-137"
    error_name: "Container exited with code 137"
    description: "The container was killed by the OOM killer."
    context: "Running containers with memory limits"
    category: "containers"
    tags: ["docker", "oom", "memory"]
`

func runInit(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return err
	}
	if err := os.MkdirAll("config", 0o755); err != nil {
		return err
	}
	catalogPath := "config/errors.yaml"
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		if err := os.WriteFile(catalogPath, []byte(starterCatalog), 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %s and %s. Set GEMINI_API_KEY and run: errorfix run\n", path, catalogPath)
	return nil
}
