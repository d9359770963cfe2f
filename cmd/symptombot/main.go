package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"symptombot/internal/analytics"
	"symptombot/internal/bot"
	"symptombot/internal/config"
	"symptombot/internal/domain"
	"symptombot/internal/embedding/tfidf"
	"symptombot/internal/health"
	"symptombot/internal/knowledge"
	"symptombot/internal/logger"
	"symptombot/internal/metrics"
	"symptombot/internal/postgres"
	"symptombot/internal/ratelimit"
	"symptombot/internal/service"
	"symptombot/internal/transport/httpapi"
	"symptombot/internal/transport/telegram"
	"symptombot/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, importPath string
	var console bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/symptombot/config.yaml if not provided)")
	flag.BoolVar(&console, "console", false, "Chat in the terminal instead of starting the network transports")
	flag.StringVar(&importPath, "import", "", "Copy a JSON/YAML knowledge file into PostgreSQL and exit")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config %s: %v", cfgPath, err)
	}

	if console {
		// The console owns stdout, so logs go to a file.
		f, err := os.OpenFile(filepath.Join(os.TempDir(), "symptombot.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			log.Fatalf("opening log file: %v", err)
		}
		defer f.Close()
		logger.SetupWriter(f, cfg.Logging.Level, cfg.Logging.Format)
	} else {
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, console, importPath); err != nil {
		slog.Error("symptombot stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, console bool, importPath string) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	checker := health.NewChecker()

	var store *knowledge.Store
	if cfg.Knowledge.Source == "postgres" || importPath != "" {
		if cfg.Knowledge.Postgres == nil {
			return errors.New("knowledge.postgres settings are required")
		}
		pg, err := postgres.New(ctx, *cfg.Knowledge.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		checker.Register("postgres", health.Ping(pg.Ping))
		store = knowledge.NewStore(pg)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	if importPath != "" {
		kb, err := knowledge.FileLoader{Path: importPath}.Load(ctx)
		if err != nil {
			return err
		}
		return store.Save(ctx, kb)
	}

	var loader domain.KnowledgeLoader
	switch cfg.Knowledge.Source {
	case "file":
		loader = knowledge.FileLoader{Path: cfg.Knowledge.Path}
	case "postgres":
		loader = store
	default:
		loader = knowledge.EmbeddedLoader{}
	}
	kb, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}
	slog.Info("knowledge base loaded", "source", cfg.Knowledge.Source, "symptoms", len(kb.Symptoms), "diseases", len(kb.Info))

	engineCfg := service.Config{Threshold: cfg.Matcher.Threshold}
	if cfg.Matcher.Stopwords == "english" {
		engineCfg.Stopwords = tfidf.EnglishStopwords()
	}
	engine := service.New(kb, engineCfg)
	checker.Register("engine", func(context.Context) health.ComponentHealth {
		if err := engine.Err(); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d symptoms", engine.Vocabulary())}
	})

	opts := []bot.Option{bot.WithMetrics(m)}
	if cfg.RateLimit.Enabled && !console {
		limiter, err := newLimiter(ctx, cfg.RateLimit, checker)
		if err != nil {
			return err
		}
		defer limiter.Close()
		opts = append(opts, bot.WithLimiter(limiter))
	}
	if cfg.Analytics.Enabled {
		var onDrop func()
		if m != nil {
			onDrop = m.AnalyticsDropped.Inc
		}
		collector := analytics.NewCollector(
			analytics.NewKafkaPublisher(cfg.Analytics.Brokers, cfg.Analytics.Topic),
			cfg.Analytics.BufferSize,
			onDrop,
		)
		collector.Start(ctx)
		defer collector.Close()
		opts = append(opts, bot.WithTracker(collector))
	}
	handler := bot.NewHandler(engine, opts...)

	if console {
		summary := fmt.Sprintf("%d symptoms loaded from %s", engine.Vocabulary(), cfg.Knowledge.Source)
		_, err := tea.NewProgram(tui.New(ctx, handler, engine, summary), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	transports := 0
	if cfg.HTTP.Enabled {
		srv := httpapi.NewServer(cfg.HTTP, handler, engine, checker, m)
		g.Go(func() error { return srv.Run(gctx) })
		transports++
	}
	if cfg.Telegram.Enabled {
		timeout := time.Duration(cfg.Telegram.PollTimeoutSecs) * time.Second
		client := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.Token, timeout)
		poller := telegram.NewPoller(client, handler, timeout, m)
		g.Go(func() error { return poller.Run(gctx) })
		transports++
	}
	if transports == 0 {
		return errors.New("no transport enabled; enable http or telegram, or use --console")
	}
	slog.Info("symptombot started", "http", cfg.HTTP.Enabled, "telegram", cfg.Telegram.Enabled)
	err = g.Wait()
	slog.Info("symptombot shut down")
	return err
}

type closingLimiter interface {
	ratelimit.Limiter
	Close() error
}

func newLimiter(ctx context.Context, cfg config.RateLimitConfig, checker *health.Checker) (closingLimiter, error) {
	if cfg.Backend == "redis" {
		l, err := ratelimit.NewRedis(ctx, *cfg.Redis, cfg.Limit, cfg.Window)
		if err != nil {
			return nil, err
		}
		checker.Register("redis", health.Ping(l.Ping))
		return l, nil
	}
	return ratelimit.NewMemory(cfg.Limit, cfg.Window), nil
}
