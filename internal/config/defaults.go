package config

const (
	defaultDataDir          = "~/.local/share/codepencil"
	defaultLogDir           = "~/.local/share/codepencil/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultCanvasWidth      = 800
	defaultCanvasHeight     = 320
	defaultStrokeWidth      = 3
	defaultStrokeColor      = "#111111"
	defaultLoadConcurrency  = 4
	defaultIsolation        = IsolationProcess
	defaultRuntime          = RuntimeYaegi
	defaultRequestTimeout   = 30
	defaultExecTimeout      = 10
	defaultServeBind        = "127.0.0.1:7491"
)

// Bridge isolation modes.
const (
	IsolationProcess   = "process"
	IsolationInProcess = "inprocess"
)

// Sandbox runtimes.
const (
	RuntimeYaegi   = "yaegi"
	RuntimeCommand = "command"
)

var defaultAllowedImports = []string{
	"fmt", "math", "strings", "strconv", "sort", "errors", "unicode", "time",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Canvas: Canvas{
			Width:       defaultCanvasWidth,
			Height:      defaultCanvasHeight,
			StrokeWidth: defaultStrokeWidth,
			StrokeColor: defaultStrokeColor,
		},
		Storage: Storage{
			LiveHandles:     true,
			LoadConcurrency: defaultLoadConcurrency,
			Lock:            true,
		},
		Bridge: Bridge{
			Isolation:      defaultIsolation,
			Runtime:        defaultRuntime,
			RequestTimeout: defaultRequestTimeout,
			ExecTimeout:    defaultExecTimeout,
			AllowedImports: append([]string(nil), defaultAllowedImports...),
		},
		Serve: Serve{
			Bind: defaultServeBind,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
