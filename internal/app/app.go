package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/specialistvlad/opcompile/internal/config"
	"github.com/specialistvlad/opcompile/internal/ctxlog"
	"github.com/specialistvlad/opcompile/internal/registry"
	"github.com/specialistvlad/opcompile/internal/scheduler"
	"github.com/specialistvlad/opcompile/modules/simulated"
	"github.com/zclconf/go-cty/cty"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	logCloser io.Closer
	config    *Config
	registry  *registry.Registry
	converter config.Converter

	backendType    string
	backendOptions map[string]cty.Value
	schedOpts      scheduler.Options
	plan           *plan

	progress   progress
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Misconfiguration is a fatal startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger, logCloser := newLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, converter, err := loader.Load(ctx, cfg.PlanPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "nodes", len(model.Nodes), "scopes", len(model.Scopes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	// This is a programmer error (an options struct the converter cannot fill), so we panic.
	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}

	backendType, backendOptions := selectBackend(cfg.Backend, model.Backend)
	if _, ok := reg.Backend(backendType); !ok {
		panic(fmt.Errorf("unknown backend type %q (available: %s)", backendType, strings.Join(reg.BackendNames(), ", ")))
	}

	schedOpts, err := schedulerOptions(model.Scheduler, cfg.SuppressRetry)
	if err != nil {
		panic(fmt.Errorf("invalid scheduler configuration: %w", err))
	}

	p, err := buildPlan(model)
	if err != nil {
		panic(fmt.Errorf("invalid compile plan: %w", err))
	}
	logger.Debug("Compile plan built.", "nodes", len(p.nodes), "threads", len(p.threads), "backend", backendType)

	return &App{
		outW:           outW,
		logger:         logger,
		logCloser:      logCloser,
		config:         cfg,
		registry:       reg,
		converter:      converter,
		backendType:    backendType,
		backendOptions: backendOptions,
		schedOpts:      schedOpts,
		plan:           p,
	}
}

// selectBackend applies the command-line override. Plan options only travel
// with the backend type they were written for.
func selectBackend(override string, b *config.Backend) (string, map[string]cty.Value) {
	switch {
	case override != "" && (b == nil || b.Type != override):
		return override, nil
	case b != nil:
		return b.Type, b.Options
	default:
		return simulated.Name, nil
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Close releases the resources held by the App itself.
func (a *App) Close() error {
	return a.logCloser.Close()
}
