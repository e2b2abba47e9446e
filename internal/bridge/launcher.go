package bridge

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ServeFunc runs an execution context over a request reader and a response
// writer until in is exhausted or ctx is done.
type ServeFunc func(ctx context.Context, in io.Reader, out io.Writer) error

// LocalLauncher runs serve in a goroutine of the calling process, connected
// by in-memory pipes. Isolation is whatever serve itself provides.
func LocalLauncher(serve ServeFunc, logger *slog.Logger) Launcher {
	return func(ctx context.Context) (ExecContext, error) {
		reqR, reqW := io.Pipe()
		respR, respW := io.Pipe()
		ctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})

		go func() {
			defer close(done)
			err := serve(ctx, reqR, respW)
			_ = respW.CloseWithError(err)
			_ = reqR.Close()
			if err != nil && ctx.Err() == nil && logger != nil {
				logger.Debug("local execution context stopped", slog.Any("error", err))
			}
		}()

		closer := func() error {
			cancel()
			_ = respR.Close()
			<-done
			return nil
		}
		return NewStream(respR, reqW, closer), nil
	}
}

// WorkerCommand is the hidden CLI subcommand that runs an execution context
// on stdin/stdout.
const WorkerCommand = "worker"

// SelfExecutable returns the running binary, used to re-exec it as a worker.
func SelfExecutable() (string, error) {
	return os.Executable()
}
