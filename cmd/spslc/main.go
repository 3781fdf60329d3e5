// # cmd/spslc/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"spsl/internal/cache"
	"spsl/internal/config"
	"spsl/internal/history"
	"spsl/internal/module"
	"spsl/internal/observability"
	"spsl/internal/shader"
)

var (
	configPath    = flag.String("config", "./spsl.toml", "Path to config file")
	root          = flag.String("root", "", "Shader root directory (overrides config)")
	out           = flag.String("out", "out", "Directory for emitted GLSL")
	watch         = flag.Bool("watch", false, "Keep running and recompile on change")
	verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	version       = flag.Bool("version", false, "Print version and exit")
	metricsAddr   = flag.String("metrics-addr", "", "Address for metrics/health endpoint (overrides config)")
	traceEndpoint = flag.String("trace-endpoint", "", "OTLP gRPC endpoint for traces (overrides config)")
)

const VERSION = "1.0.0"

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	keyStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("spslc v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config; a missing default config file falls back to defaults.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./spsl.toml" {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if *root != "" {
		cfg.Root = *root
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}
	if *traceEndpoint != "" {
		cfg.Observability.TraceEndpoint = *traceEndpoint
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: spslc [flags] <module.key> [<module.key> ...]")
		os.Exit(2)
	}
	keys := make([]module.Key, 0, flag.NArg())
	for _, arg := range flag.Args() {
		keys = append(keys, module.Key(arg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close(ctx)

	failed := app.CompileAll(ctx, keys)

	if !*watch {
		if failed {
			os.Exit(1)
		}
		os.Exit(0)
	}

	app.Watch(ctx)
}

// app ties the cache, the compile targets and the optional side
// services together for one spslc run.
type app struct {
	cfg      *config.Config
	cache    *cache.Cache
	programs map[module.Key]*cache.Res[shader.Program]
	hist     *history.Store
	obs      *observability.Server
	shutdown func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		programs: make(map[module.Key]*cache.Res[shader.Program]),
	}

	c, err := cache.New(cfg.Root, cache.Options{
		Debounce:     cfg.Watch.Debounce,
		QueueSize:    cfg.Watch.QueueSize,
		Extensions:   cfg.Watch.Extensions,
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
	})
	if err != nil {
		return nil, err
	}
	a.cache = c

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		a.hist = store
	}

	if cfg.Observability.MetricsAddr != "" {
		a.obs = observability.NewServer(cfg.Observability.MetricsAddr)
		if err := a.obs.Start(); err != nil {
			slog.Warn("metrics endpoint unavailable", "error", err)
			a.obs = nil
		}
	}

	if cfg.Observability.TraceEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.TraceEndpoint)
		if err != nil {
			slog.Warn("tracing unavailable", "error", err)
		} else {
			a.shutdown = shutdown
		}
	}

	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.shutdown != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.shutdown(flushCtx)
	}
	if a.obs != nil {
		_ = a.obs.Stop(ctx)
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
	_ = a.cache.Close()
}

// CompileAll compiles every target once and writes its GLSL. Reports
// whether any target failed.
func (a *app) CompileAll(ctx context.Context, keys []module.Key) bool {
	failed := false
	for _, key := range keys {
		if !a.compile(ctx, key) {
			failed = true
		}
	}
	return failed
}

func (a *app) compile(ctx context.Context, key module.Key) bool {
	_, span := observability.Tracer.Start(ctx, "compile")
	defer span.End()

	start := time.Now()
	res, ok := cache.Get[shader.Program](a.cache, key, cache.NoArgs{})
	if !ok {
		fmt.Printf("%s %s\n", errStyle.Render("FAIL"), keyStyle.Render(string(key)))
		a.record(history.Compile{
			ModuleKey: string(key),
			Error:     "compile failed",
			Duration:  time.Since(start),
		})
		return false
	}

	a.programs[key] = res
	if err := a.emit(key, res); err != nil {
		slog.Error("failed to write output", "module", key, "error", err)
		return false
	}

	p := res.Value()
	fmt.Printf("%s %s %s\n",
		okStyle.Render("OK"),
		keyStyle.Render(string(key)),
		dimStyle.Render(fmt.Sprintf("(%d deps, %d bytes)", len(p.Deps), len(p.GLSL))))
	a.record(history.Compile{
		ModuleKey: string(key),
		OK:        true,
		DepCount:  len(p.Deps),
		GLSLBytes: len(p.GLSL),
		Duration:  time.Since(start),
	})
	return true
}

// Watch recompiles on file changes until the context is cancelled. The
// limiter paces Sync polling without busy-waiting on the dirty queue.
func (a *app) Watch(ctx context.Context) {
	fmt.Println(dimStyle.Render("watching " + a.cache.Root()))

	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		reloads := a.cache.Sync()
		if len(reloads) == 0 {
			continue
		}

		for _, r := range reloads {
			if r.Err != nil {
				fmt.Printf("%s %s %s\n", errStyle.Render("RELOAD FAIL"), r.Path, dimStyle.Render(r.Err.Error()))
			} else {
				fmt.Printf("%s %s\n", okStyle.Render("RELOAD"), r.Path)
			}
		}

		for key, res := range a.programs {
			if err := a.emit(key, res); err != nil {
				slog.Error("failed to write output", "module", key, "error", err)
				continue
			}
			p := res.Value()
			a.record(history.Compile{
				ModuleKey: string(key),
				OK:        true,
				DepCount:  len(p.Deps),
				GLSLBytes: len(p.GLSL),
			})
		}
	}
}

func (a *app) emit(key module.Key, res *cache.Res[shader.Program]) error {
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	path := filepath.Join(*out, string(key)+".glsl")
	return os.WriteFile(path, []byte(res.Value().GLSL), 0o644)
}

func (a *app) record(c history.Compile) {
	if a.hist == nil {
		return
	}
	if err := a.hist.RecordCompile(c); err != nil {
		slog.Warn("failed to record compile history", "error", err)
	}
}
