package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"src2purl/internal/config"
	"src2purl/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	logFormat  *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verbose *bool, logFormat *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		logFormat:  logFormat,
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
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// logger writes to stderr so JSON reports on stdout stay parseable.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	if c.logFormat != nil && strings.TrimSpace(*c.logFormat) != "" {
		override := config.Default()
		if cfg != nil {
			override = *cfg
		}
		override.Logging.Format = strings.TrimSpace(*c.logFormat)
		cfg = &override
	}
	logger, err := logging.NewFromConfig(cfg, c.verbose != nil && *c.verbose)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	return logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
