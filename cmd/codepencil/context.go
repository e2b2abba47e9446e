package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/config"
	"github.com/sarmentow/codepencil/internal/logging"
)

// skipConfigAnnotation marks commands that must run without a loadable
// config, such as config init.
const skipConfigAnnotation = "skipConfigLoad"

// commandContext is shared by every subcommand of one invocation. Config and
// logger are built on first use.
type commandContext struct {
	flagConfig *string
	flagYes    *bool

	loadOnce   sync.Once
	cfg        *config.Config
	configPath string // empty when defaults were used
	loadErr    error

	logOnce sync.Once
	logger  *slog.Logger
}

func newCommandContext(configFlag *string, yesFlag *bool) *commandContext {
	return &commandContext{flagConfig: configFlag, flagYes: yesFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.loadOnce.Do(func() {
		explicit := ""
		if c.flagConfig != nil {
			explicit = strings.TrimSpace(*c.flagConfig)
		}
		cfg, resolved, exists, err := config.Load(explicit)
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.loadErr = err
			return
		}
		c.cfg = cfg
		if exists {
			c.configPath = resolved
		}
	})
	return c.cfg, c.loadErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// log returns the process logger. Worker and serve processes share the log
// file with the CLI; console output always goes to stderr.
func (c *commandContext) log() *slog.Logger {
	c.logOnce.Do(func() {
		cfg := c.configValue()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info"})
			logger.Warn("file logging unavailable", logging.Error(err))
		}
		if cfg != nil {
			logging.PruneLogDir(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) assumeYes() bool {
	return c.flagYes != nil && *c.flagYes
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
