package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCanvas()
	c.normalizeStorage()
	c.normalizeBridge()
	c.Serve.Bind = strings.TrimSpace(c.Serve.Bind)
	if c.Serve.Bind == "" {
		c.Serve.Bind = defaultServeBind
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCanvas() {
	if c.Canvas.Width <= 0 {
		c.Canvas.Width = defaultCanvasWidth
	}
	if c.Canvas.Height <= 0 {
		c.Canvas.Height = defaultCanvasHeight
	}
	if c.Canvas.StrokeWidth <= 0 {
		c.Canvas.StrokeWidth = defaultStrokeWidth
	}
	c.Canvas.StrokeColor = strings.TrimSpace(c.Canvas.StrokeColor)
	if c.Canvas.StrokeColor == "" {
		c.Canvas.StrokeColor = defaultStrokeColor
	}
}

func (c *Config) normalizeStorage() {
	if c.Storage.LoadConcurrency <= 0 {
		c.Storage.LoadConcurrency = defaultLoadConcurrency
	}
}

func (c *Config) normalizeBridge() {
	c.Bridge.Isolation = strings.ToLower(strings.TrimSpace(c.Bridge.Isolation))
	if c.Bridge.Isolation == "" {
		c.Bridge.Isolation = defaultIsolation
	}
	c.Bridge.Runtime = strings.ToLower(strings.TrimSpace(c.Bridge.Runtime))
	if c.Bridge.Runtime == "" {
		c.Bridge.Runtime = defaultRuntime
	}
	command := make([]string, 0, len(c.Bridge.Command))
	for _, arg := range c.Bridge.Command {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	c.Bridge.Command = command
	if c.Bridge.RequestTimeout <= 0 {
		c.Bridge.RequestTimeout = defaultRequestTimeout
	}
	if c.Bridge.ExecTimeout <= 0 {
		c.Bridge.ExecTimeout = defaultExecTimeout
	}
	seen := make(map[string]struct{}, len(c.Bridge.AllowedImports))
	imports := make([]string, 0, len(c.Bridge.AllowedImports))
	for _, pkg := range c.Bridge.AllowedImports {
		normalized := strings.TrimSpace(pkg)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		imports = append(imports, normalized)
	}
	c.Bridge.AllowedImports = imports
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("CODEPENCIL_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
