package main

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/sarmentow/codepencil/internal/bridge"
)

func TestWorkerCommandAnswersRequests(t *testing.T) {
	env := setupCLITestEnv(t)

	var in strings.Builder
	for i, code := range []string{helloProgram, "package main\n\nfunc main() { undefinedThing() }\n"} {
		line, err := json.Marshal(bridge.Request{ID: strconv.Itoa(i + 1), Code: code})
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		in.Write(line)
		in.WriteByte('\n')
	}

	out, _, err := runCLIWithInput(t, []string{bridge.WorkerCommand}, env.configPath, in.String())
	if err != nil {
		t.Fatalf("worker: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 responses, got %d: %q", len(lines), out)
	}
	var first, second bridge.Response
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if first.ID != "1" || first.Stdout != "hello from cell\n" || first.Stderr != "" {
		t.Fatalf("unexpected first response: %+v", first)
	}
	if second.ID != "2" || second.Stderr == "" {
		t.Fatalf("expected compile error in second response: %+v", second)
	}
}
