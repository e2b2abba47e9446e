package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Canvas contains the drawing surface geometry used when encoding cells.
type Canvas struct {
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	StrokeWidth float64 `toml:"stroke_width"`
	StrokeColor string  `toml:"stroke_color"`
}

// Storage contains project persistence settings.
type Storage struct {
	// LiveHandles disables the directory backend when false; every project
	// then goes through the archive backend.
	LiveHandles     bool `toml:"live_handles"`
	LoadConcurrency int  `toml:"load_concurrency"`
	Lock            bool `toml:"lock"`
}

// Bridge contains execution bridge and sandbox settings.
type Bridge struct {
	Isolation      string   `toml:"isolation"`
	Runtime        string   `toml:"runtime"`
	Command        []string `toml:"command"`
	RequestTimeout int      `toml:"request_timeout"`
	ExecTimeout    int      `toml:"exec_timeout"`
	AllowedImports []string `toml:"allowed_imports"`
}

// Serve contains the websocket execution server settings.
type Serve struct {
	Bind string `toml:"bind"`
}

// History contains the local action history settings.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for codepencil.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Canvas: default geometry for encoded cell documents
//   - Storage: backend selection and load fan-out
//   - Bridge: execution context isolation, runtime, and timeouts
//   - Serve: websocket bind address
//   - History: local save/load index
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Canvas  Canvas  `toml:"canvas"`
	Storage Storage `toml:"storage"`
	Bridge  Bridge  `toml:"bridge"`
	Serve   Serve   `toml:"serve"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// EnvConfigPath names an environment variable that points at the config
// file when no --config flag is given.
const EnvConfigPath = "CODEPENCIL_CONFIG"

// DefaultConfigPath returns where `config init` writes and where Load looks
// first: $XDG_CONFIG_HOME/codepencil/config.toml, falling back to
// ~/.config/codepencil/config.toml.
func DefaultConfigPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, "codepencil", "config.toml"), nil
	}
	return expandPath("~/.config/codepencil/config.toml")
}

// Load resolves the configuration file, decodes it over the defaults, and
// normalizes and validates the result. It returns the path it settled on and
// whether a file existed there; a missing file is not an error.
//
// Resolution order: path, $CODEPENCIL_CONFIG, DefaultConfigPath, then
// ./codepencil.toml. An explicit path or environment value is used even when
// the file does not exist yet.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// decodeFile strictly decodes a TOML file into cfg. Syntax errors carry the
// line and column; unknown keys are listed by name.
func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	err = decoder.Decode(cfg)

	var decodeErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &decodeErr):
		row, col := decodeErr.Position()
		return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
	case errors.As(err, &strictErr):
		keys := make([]string, 0, len(strictErr.Errors))
		for _, e := range strictErr.Errors {
			keys = append(keys, strings.Join(e.Key(), "."))
		}
		return fmt.Errorf("parse config %s: unknown keys %s", path, strings.Join(keys, ", "))
	default:
		return fmt.Errorf("parse config %s: %w", path, err)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	explicit := strings.TrimSpace(path)
	if explicit == "" {
		explicit = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("codepencil.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, local} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the sqlite database used for the action history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// RequestTimeout returns the bridge per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Bridge.RequestTimeout) * time.Second
}

// ExecTimeout returns the sandbox per-execution timeout.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.Bridge.ExecTimeout) * time.Second
}

// expandPath resolves "~" and "~/..." against the home directory and returns
// a clean absolute path. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same expansion Load uses for configured paths.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the annotated sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
