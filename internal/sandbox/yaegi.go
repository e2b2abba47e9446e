package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Yaegi interprets Go source with an import allow-list. Each run gets a fresh
// interpreter, so cells do not share state.
type Yaegi struct {
	allowed map[string]struct{}
	symbols interp.Exports
	missing []string
	timeout time.Duration
}

// NewYaegi builds a Go runtime that may import only the listed standard
// library packages. A zero timeout disables the per-run limit.
func NewYaegi(allowed []string, timeout time.Duration) *Yaegi {
	set := make(map[string]struct{}, len(allowed))
	for _, pkg := range allowed {
		set[pkg] = struct{}{}
	}
	symbols := make(interp.Exports)
	found := make(map[string]struct{}, len(set))
	for key, values := range stdlib.Symbols {
		// Keys are "import/path/name".
		i := strings.LastIndexByte(key, '/')
		if i < 0 {
			continue
		}
		if _, ok := set[key[:i]]; ok {
			symbols[key] = values
			found[key[:i]] = struct{}{}
		}
	}
	var missing []string
	for pkg := range set {
		if _, ok := found[pkg]; !ok {
			missing = append(missing, pkg)
		}
	}
	sort.Strings(missing)
	return &Yaegi{allowed: set, symbols: symbols, missing: missing, timeout: timeout}
}

// Name implements Runtime.
func (y *Yaegi) Name() string { return "yaegi" }

// Allowed returns the allow-list in sorted order.
func (y *Yaegi) Allowed() []string {
	out := make([]string, 0, len(y.allowed))
	for pkg := range y.allowed {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// Unavailable lists allowed packages the interpreter has no symbols for.
// Importing them always fails.
func (y *Yaegi) Unavailable() []string {
	return append([]string(nil), y.missing...)
}

// Run implements Runtime.
func (y *Yaegi) Run(ctx context.Context, code string) (res Result) {
	if err := y.checkImports(code); err != nil {
		return Result{Stderr: err.Error() + "\n"}
	}

	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	stdout, stderr := new(capture), new(capture)
	defer func() {
		if r := recover(); r != nil {
			res = Result{Stdout: stdout.seal(), Stderr: appendLine(stderr.seal(), fmt.Sprintf("panic: %v", r))}
		}
	}()

	i := interp.New(interp.Options{
		Stdout: stdout,
		Stderr: stderr,
		Env:    []string{},
	})
	if err := i.Use(y.symbols); err != nil {
		return Result{Stderr: fmt.Sprintf("load symbols: %v\n", err)}
	}

	// A timed-out loop or a goroutine the cell started can keep printing
	// after Eval returns; sealing drops that output.
	_, err := i.EvalWithContext(ctx, code)
	out := Result{Stdout: stdout.seal(), Stderr: stderr.seal()}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		out.Stderr = appendLine(out.Stderr, fmt.Sprintf("execution exceeded %s", y.timeout))
	case errors.Is(err, context.Canceled):
		out.Stderr = appendLine(out.Stderr, "execution cancelled")
	default:
		out.Stderr = appendLine(out.Stderr, strings.TrimRight(err.Error(), "\n"))
	}
	return out
}

func (y *Yaegi) checkImports(code string) error {
	for _, path := range imports(code) {
		if _, ok := y.allowed[path]; !ok {
			return fmt.Errorf("%w: %q", ErrForbiddenImport, path)
		}
	}
	return nil
}
