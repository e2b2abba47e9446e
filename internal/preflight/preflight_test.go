package preflight

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/config"
	"github.com/sarmentow/codepencil/internal/ipc"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinary(t *testing.T) {
	if result := CheckBinary("sh", "sh"); !result.Passed {
		t.Fatalf("expected sh on PATH: %s", result.Detail)
	}
	if result := CheckBinary("missing", "codepencil-no-such-binary"); result.Passed {
		t.Fatal("expected failure for missing binary")
	}
	if result := CheckBinary("empty", " "); result.Passed || result.Detail != "command not configured" {
		t.Fatalf("unexpected result for empty command: %+v", result)
	}
}

func TestCheckRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckRuntime(cfg); !result.Passed {
		t.Fatalf("expected default allow-list to pass: %s", result.Detail)
	}

	cfg.Bridge.AllowedImports = []string{"fmt", "not/a/package"}
	result := CheckRuntime(cfg)
	if result.Passed || !strings.Contains(result.Detail, "not/a/package") {
		t.Fatalf("expected unknown import to fail: %+v", result)
	}

	cmdCfg := testsupport.NewConfig(t, testsupport.WithCommandRuntime("codepencil-no-such-binary", "-"))
	if result := CheckRuntime(cmdCfg); result.Passed {
		t.Fatal("expected missing command runtime to fail")
	}
	cmdCfg = testsupport.NewConfig(t, testsupport.WithCommandRuntime("sh"))
	if result := CheckRuntime(cmdCfg); !result.Passed {
		t.Fatalf("expected sh runtime to pass: %s", result.Detail)
	}
}

func TestCheckBind(t *testing.T) {
	if result := CheckBind(context.Background(), "127.0.0.1:0"); !result.Passed {
		t.Fatalf("expected free port to pass: %s", result.Detail)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if result := CheckBind(context.Background(), ln.Addr().String()); result.Passed {
		t.Fatal("expected failure for a port held by something else")
	}
}

func TestCheckBindAcceptsRunningServer(t *testing.T) {
	b := bridge.New(bridge.LocalLauncher(func(ctx context.Context, _ io.Reader, _ io.Writer) error {
		<-ctx.Done()
		return nil
	}, logging.NewNop()))
	defer b.Close()

	srv, err := ipc.NewServer(context.Background(), "127.0.0.1:0", b, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	defer srv.Close()

	result := CheckBind(context.Background(), srv.Addr())
	if !result.Passed || !strings.Contains(result.Detail, "codepencil serve running") {
		t.Fatalf("expected running server to pass: %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "Data directory,Log directory,Runtime,Serve address,History"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("checks = %s, want %s", got, want)
	}
	if Failed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}

	cfg.Bridge.Isolation = config.IsolationProcess
	cfg.History.Enabled = false
	results = RunAll(context.Background(), cfg)
	if results[3].Name != "Worker" {
		t.Fatalf("expected worker check for process isolation, got %s", results[3].Name)
	}
	for _, r := range results {
		if r.Name == "History" {
			t.Fatal("history check should be skipped when disabled")
		}
	}

	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
