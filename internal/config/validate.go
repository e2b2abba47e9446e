package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCanvas(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCanvas() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errors.New("canvas.width and canvas.height must be positive")
	}
	if c.Canvas.StrokeWidth <= 0 {
		return errors.New("canvas.stroke_width must be positive")
	}
	if strings.ContainsAny(c.Canvas.StrokeColor, `"<>&`) {
		return fmt.Errorf("canvas.stroke_color %q is not a valid color", c.Canvas.StrokeColor)
	}
	return nil
}

func (c *Config) validateBridge() error {
	switch c.Bridge.Isolation {
	case IsolationProcess, IsolationInProcess:
	default:
		return fmt.Errorf("bridge.isolation must be %q or %q, got %q", IsolationProcess, IsolationInProcess, c.Bridge.Isolation)
	}
	switch c.Bridge.Runtime {
	case RuntimeYaegi:
	case RuntimeCommand:
		if len(c.Bridge.Command) == 0 {
			return errors.New("bridge.command must be set when bridge.runtime is \"command\"")
		}
	default:
		return fmt.Errorf("bridge.runtime must be %q or %q, got %q", RuntimeYaegi, RuntimeCommand, c.Bridge.Runtime)
	}
	if err := ensurePositiveMap(map[string]int{
		"bridge.request_timeout":   c.Bridge.RequestTimeout,
		"bridge.exec_timeout":      c.Bridge.ExecTimeout,
		"storage.load_concurrency": c.Storage.LoadConcurrency,
	}); err != nil {
		return err
	}
	// The worker runs one request at a time. A run that outlives the bridge's
	// wait keeps the worker busy and times out every request queued behind it.
	if c.Bridge.ExecTimeout >= c.Bridge.RequestTimeout {
		return fmt.Errorf("bridge.exec_timeout (%ds) must be shorter than bridge.request_timeout (%ds)",
			c.Bridge.ExecTimeout, c.Bridge.RequestTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
