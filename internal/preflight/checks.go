package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sarmentow/codepencil/internal/config"
	"github.com/sarmentow/codepencil/internal/history"
	"github.com/sarmentow/codepencil/internal/ipc"
	"github.com/sarmentow/codepencil/internal/sandbox"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary reports whether command resolves on PATH.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckRuntime validates the configured sandbox runtime without running
// any code.
func CheckRuntime(cfg *config.Config) Result {
	const name = "Runtime"

	switch cfg.Bridge.Runtime {
	case config.RuntimeYaegi:
		rt := sandbox.NewYaegi(cfg.Bridge.AllowedImports, 0)
		if missing := rt.Unavailable(); len(missing) > 0 {
			return Result{Name: name, Detail: "unknown allowed imports: " + strings.Join(missing, ", ")}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("yaegi (%d packages allowed)", len(rt.Allowed()))}
	case config.RuntimeCommand:
		if len(cfg.Bridge.Command) == 0 {
			return Result{Name: name, Detail: "bridge.command is empty"}
		}
		check := CheckBinary(name, cfg.Bridge.Command[0])
		if check.Passed {
			check.Detail = "command " + check.Detail
		}
		return check
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown runtime %q", cfg.Bridge.Runtime)}
	}
}

// CheckWorkerExecutable verifies the running binary can be re-executed as a
// worker process.
func CheckWorkerExecutable() Result {
	const name = "Worker"

	path, err := os.Executable()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("resolve executable: %v", err)}
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckBind verifies the serve address is free, or already held by a
// healthy codepencil server.
func CheckBind(ctx context.Context, bind string) Result {
	const name = "Serve address"

	bind = strings.TrimSpace(bind)
	if bind == "" {
		return Result{Name: name, Detail: "serve.bind is empty"}
	}
	ln, err := net.Listen("tcp", bind)
	if err == nil {
		_ = ln.Close()
		return Result{Name: name, Passed: true, Detail: bind + " (available)"}
	}

	health, herr := probeHealth(ctx, bind)
	if herr != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", bind, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (codepencil serve running, %d pending)", bind, health.Pending)}
}

func probeHealth(ctx context.Context, bind string) (ipc.HealthResponse, error) {
	var health ipc.HealthResponse

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, "http://"+bind+ipc.HealthPath, nil)
	if err != nil {
		return health, err
	}
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	if err != nil {
		return health, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return health, fmt.Errorf("health status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return health, err
	}
	if health.Status != "ok" {
		return health, errors.New("server not healthy")
	}
	return health, nil
}

// CheckHistory opens the history database and reports its schema version.
func CheckHistory(ctx context.Context, cfg *config.Config) Result {
	const name = "History"

	store, err := history.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (schema %s)", store.Path(), version)}
}
