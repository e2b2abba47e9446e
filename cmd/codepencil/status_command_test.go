package main

import (
	"errors"
	"testing"

	"github.com/sarmentow/codepencil/internal/testsupport"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== codepencil ==")
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "[OK] yaegi")
	requireContains(t, out, "History:")
}

func TestStatusCommandReportsMissingRuntime(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCommandRuntime("codepencil-no-such-binary"))
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if !errors.Is(err, errPreflightFailed) {
		t.Fatalf("expected errPreflightFailed, got %v", err)
	}
	requireContains(t, out, "[ERROR] binary \"codepencil-no-such-binary\" not found")
}

func TestKindForStatus(t *testing.T) {
	cases := map[string]statusKind{
		"ok":        statusOK,
		"OK":        statusOK,
		"cancelled": statusWarn,
		"failed":    statusError,
		"other":     statusInfo,
	}
	for in, want := range cases {
		if got := kindForStatus(in); got != want {
			t.Fatalf("kindForStatus(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Runtime", statusOK, "yaegi", false)
	requireContains(t, line, "Runtime:")
	requireContains(t, line, "[OK] yaegi")

	colored := renderStatusLine("Runtime", statusError, "", true)
	requireContains(t, colored, ansiRed)
	requireContains(t, colored, "[ERROR]")
}
