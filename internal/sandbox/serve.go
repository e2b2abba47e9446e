package sandbox

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/logging"
)

const maxRequestLine = 16 << 20

// Worker executes bridge requests one at a time against a Runtime.
type Worker struct {
	runtime Runtime
	logger  *slog.Logger
}

// NewWorker binds a runtime to the request stream protocol.
func NewWorker(rt Runtime, logger *slog.Logger) *Worker {
	return &Worker{runtime: rt, logger: logging.NewComponentLogger(logger, "sandbox")}
}

// Serve reads newline-delimited bridge.Request values from in and writes one
// bridge.Response per request to out, echoing the request ID. Requests are
// run in arrival order. Serve returns nil once in is exhausted and every
// queued request is answered, or ctx's error when ctx ends first.
//
// Its signature matches bridge.ServeFunc.
func (w *Worker) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	queue := make(chan bridge.Request, 64)
	readErr := make(chan error, 1)

	go func() {
		defer close(queue)
		readErr <- w.readRequests(ctx, in, queue)
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-queue:
			if !ok {
				return <-readErr
			}
			res := w.run(ctx, req)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			err := enc.Encode(bridge.Response{ID: req.ID, Stdout: res.Stdout, Stderr: res.Stderr})
			if err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}
	}
}

func (w *Worker) readRequests(ctx context.Context, in io.Reader, queue chan<- bridge.Request) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxRequestLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var req bridge.Request
		err := json.Unmarshal(line, &req)
		if err == nil && req.ID == "" {
			err = errors.New("request has no id")
		}
		if err != nil {
			logging.WarnWithContext(w.logger, "malformed request dropped", "sandbox_request_invalid",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the sender will time out waiting for a reply"),
			)
			continue
		}
		select {
		case queue <- req:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (w *Worker) run(ctx context.Context, req bridge.Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(w.logger, "runtime panicked", "sandbox_runtime_panic",
				logging.RequestID(req.ID),
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "request answered with the panic text"),
			)
			res = Result{Stderr: fmt.Sprintf("panic: %v\n", r)}
		}
	}()
	w.logger.Debug("executing request",
		logging.RequestID(req.ID),
		logging.String(logging.FieldRuntime, w.runtime.Name()),
		logging.Int("code_bytes", len(req.Code)),
	)
	return w.runtime.Run(ctx, req.Code)
}
