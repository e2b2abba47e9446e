package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/logging"
	"github.com/sarmentow/codepencil/internal/notebook"
	"github.com/sarmentow/codepencil/internal/sandbox"
)

func TestRunFile(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "hello.go")
	if err := os.WriteFile(src, []byte(helloProgram), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", src}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "hello from cell")
}

func TestRunStdinReportsForbiddenImport(t *testing.T) {
	env := setupCLITestEnv(t)
	code := "package main\n\nimport \"os\"\n\nfunc main() { os.Exit(3) }\n"

	_, errOut, err := runCLIWithInput(t, []string{"run", "-"}, env.configPath, code)
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("expected errRunFailed, got %v", err)
	}
	requireContains(t, errOut, `"os"`)
}

func TestRunProjectCells(t *testing.T) {
	env := setupCLITestEnv(t)
	snapshot := writeSnapshot(t, env.baseDir, helloProgram, "")
	dir := filepath.Join(env.baseDir, "runnable")
	if _, _, err := runCLI(t, []string{"project", "new", dir, "--from", snapshot}, env.configPath); err != nil {
		t.Fatalf("project new: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--project", dir, "--parallel"}, env.configPath)
	if err != nil {
		t.Fatalf("run --project: %v", err)
	}
	requireContains(t, out, "== cell 1 ==")
	requireContains(t, out, "hello from cell")
	requireContains(t, out, "== cell 2 ==")
	requireContains(t, out, "(no recognized code)")
}

func TestRunRejectsFileAndProject(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", "x.go", "--project", "p"}, env.configPath)
	if err == nil {
		t.Fatal("expected error when both a file and --project are given")
	}
}

func TestRunCellsLeavesEmptyCellsIdle(t *testing.T) {
	worker := sandbox.NewWorker(sandbox.NewYaegi([]string{"fmt"}, 2*time.Second), logging.NewNop())
	b := bridge.New(bridge.LocalLauncher(worker.Serve, logging.NewNop()))
	defer b.Close()

	ran := notebook.NewCell()
	ran.SetRecognizedCode(helloProgram)
	cells := []notebook.Cell{ran, notebook.NewCell()}

	if err := runCells(context.Background(), b, cells, false); err != nil {
		t.Fatalf("runCells: %v", err)
	}
	if cells[0].RunStatus != notebook.RunDone || cells[0].Stdout != "hello from cell\n" {
		t.Fatalf("unexpected first cell: status %q stdout %q stderr %q", cells[0].RunStatus, cells[0].Stdout, cells[0].Stderr)
	}
	if cells[1].RunStatus != notebook.RunIdle {
		t.Fatalf("expected idle empty cell, got %q", cells[1].RunStatus)
	}
}

func TestRunCellsStopsOnCancelledContext(t *testing.T) {
	b := bridge.New(func(context.Context) (bridge.ExecContext, error) {
		return nil, errors.New("should not launch")
	})
	defer b.Close()

	cell := notebook.NewCell()
	cell.SetRecognizedCode(helloProgram)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runCells(ctx, b, []notebook.Cell{cell}, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
