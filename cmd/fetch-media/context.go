package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/catalog/youtube"
	"fetchmedia/internal/config"
	"fetchmedia/internal/engine"
	"fetchmedia/internal/fetch"
	"fetchmedia/internal/history"
	"fetchmedia/internal/logging"
)

// errReported marks a failure whose record was already written to stdout.
var errReported = errors.New("run failed")

// dependencies are the collaborators the CLI wires into the fetch service.
type dependencies struct {
	newCatalog func(cfg *config.Config, logger *slog.Logger) (catalog.Catalog, error)
	runner     engine.Runner
}

func defaultDependencies() dependencies {
	return dependencies{
		newCatalog: func(cfg *config.Config, logger *slog.Logger) (catalog.Catalog, error) {
			session, err := youtube.NewSession(cfg.Catalog)
			if err != nil {
				return nil, err
			}
			client, err := youtube.New(session, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		runner: engine.ExecRunner{},
	}
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	deps         dependencies

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, deps dependencies) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		deps:         deps,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// logger writes to the command's stderr and the configured log file.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Writer:   cmd.ErrOrStderr(),
		FilePath: logFilePath(cfg),
	})
}

// service builds the fetch service. The returned close function releases the
// history journal and must always be called.
func (c *commandContext) service(cmd *cobra.Command) (*fetch.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	cat, err := c.deps.newCatalog(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create catalog client: %w", err)
	}

	opts := []fetch.Option{fetch.WithLogger(logger), fetch.WithRunner(c.deps.runner)}
	closeFn := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cmd.Context(), cfg.Paths.HistoryDB)
		if err != nil {
			logging.WarnWithContext(logger, "history journal unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.history_db or set history.enabled = false"),
				logging.String(logging.FieldImpact, "download will not be journaled"),
			)
		} else {
			opts = append(opts, fetch.WithJournal(store))
			closeFn = func() { _ = store.Close() }
		}
	}
	return fetch.New(cfg, cat, opts...), closeFn, nil
}

func logFilePath(cfg *config.Config) string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	if cfg.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "fetch-media.log")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && (c.Annotations["skipConfigLoad"] == "true" || c.Annotations[recordsFailures] == "true") {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
