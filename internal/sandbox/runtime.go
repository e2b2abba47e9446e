package sandbox

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
)

// Result is the captured output of one run.
type Result struct {
	Stdout string
	Stderr string
}

// Runtime executes one code payload.
type Runtime interface {
	Name() string
	Run(ctx context.Context, code string) Result
}

// ErrForbiddenImport reports an import outside the allow-list.
var ErrForbiddenImport = errors.New("import not allowed")

var (
	importBlock = regexp.MustCompile(`(?m)^\s*import\s*(\([^)]*\)|[^\n]*)`)
	quotedPath  = regexp.MustCompile("\"([^\"]+)\"|`([^`]+)`")
)

// imports lists the package paths named by import declarations in code.
func imports(code string) []string {
	var paths []string
	for _, block := range importBlock.FindAllStringSubmatch(code, -1) {
		for _, m := range quotedPath.FindAllStringSubmatch(block[1], -1) {
			path := m[1]
			if path == "" {
				path = m[2]
			}
			paths = append(paths, strings.TrimSpace(path))
		}
	}
	return paths
}

func appendLine(text, line string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text + line + "\n"
	}
	return text + "\n" + line + "\n"
}

// minimalEnv keeps only what an interpreter needs to start.
func minimalEnv() []string {
	env := make([]string, 0, 3)
	for _, key := range []string{"PATH", "HOME", "LANG"} {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}
