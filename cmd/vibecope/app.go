package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/vibecope/vibecope/internal/classifier"
	"github.com/vibecope/vibecope/internal/config"
	"github.com/vibecope/vibecope/internal/locale"
	"github.com/vibecope/vibecope/internal/logging"
	"github.com/vibecope/vibecope/internal/patterns"
	"github.com/vibecope/vibecope/internal/scoring"
	"github.com/vibecope/vibecope/internal/settings"
)

// app holds everything a command needs.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	locales *locale.Store
	store   *settings.FileStore
	engine  *scoring.Engine
}

// newApp wires config, logging, locale tables, the classifier and the settings
// store. Patterns are compiled lazily; callers pick the locale source.
func newApp(withMetrics bool) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	var provider log.LoggerProvider
	if logCfg.Output.OTEL {
		provider = global.GetLoggerProvider()
	}
	logger, err := logging.NewLogger(logCfg, provider)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	zl := logger.Zap()

	locales, err := locale.StoreWithDir(cfg.Locales.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading locales: %w", err)
	}

	model, err := classifier.Load(cfg.Model.VocabularyPath, cfg.Model.WeightsPath)
	if err != nil {
		return nil, fmt.Errorf("loading classifier: %w", err)
	}
	if model.IsLoaded() {
		zl.Info("classifier loaded", zap.Int("features", model.Size()))
	}

	store, err := settings.NewFileStore(cfg.Settings.Path, settings.WithLogger(zl))
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	compilerOpts := []patterns.Option{patterns.WithLogger(zl)}
	engineOpts := []scoring.Option{scoring.WithClassifier(model), scoring.WithLogger(zl)}
	if withMetrics {
		compilerOpts = append(compilerOpts, patterns.WithMetrics(patterns.NewMetrics()))
		engineOpts = append(engineOpts, scoring.WithMetrics(scoring.NewMetrics()))
	}
	cache := patterns.NewCache(patterns.NewCompiler(locales, compilerOpts...))

	return &app{
		cfg:     cfg,
		logger:  logger,
		locales: locales,
		store:   store,
		engine:  scoring.NewEngine(cache, engineOpts...),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// initPatterns compiles the --locales override when given and the persisted
// settings otherwise.
func (a *app) initPatterns(ctx context.Context, override string) error {
	if override == "" {
		return a.engine.InitPatterns(ctx, a.store)
	}
	ids, err := parseLocales(override, a.locales)
	if err != nil {
		return err
	}
	return a.engine.InitPatterns(ctx, staticLocales(ids))
}

// parseLocales splits a comma-separated id list and checks every id.
func parseLocales(s string, store *locale.Store) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := store.Lookup(id); !ok {
			return nil, fmt.Errorf("unknown locale %q (available: %s)", id, strings.Join(store.IDs(), ", "))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// staticLocales is a fixed locale set that never changes.
type staticLocales []string

func (s staticLocales) EnabledLocales(context.Context) ([]string, error) {
	return s, nil
}

func (s staticLocales) WatchLocales(context.Context, func([]string)) error {
	return nil
}

// readInput reads the post from the named file, or stdin for "-" or no args.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		content []byte
		err     error
	)
	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}
	return string(content), nil
}
