package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarmentow/codepencil/internal/logging"
)

// DefaultTimeout bounds how long Submit waits for a reply.
const DefaultTimeout = 30 * time.Second

// ExecContext is one live execution context. Responses is closed when the
// context dies, including after Close.
type ExecContext interface {
	Send(ctx context.Context, req Request) error
	Responses() <-chan Response
	Close() error
}

// Launcher starts an execution context. The context passed in lives as long
// as the Bridge.
type Launcher func(ctx context.Context) (ExecContext, error)

type requestState int

const (
	stateCreated requestState = iota
	stateDispatched
	stateResolved
)

type pendingRequest struct {
	state requestState
	owner ExecContext
	done  chan Output
}

// Bridge correlates Submit calls with replies from a lazily launched
// execution context.
type Bridge struct {
	launch  Launcher
	logger  *slog.Logger
	timeout time.Duration
	next    atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	exec    ExecContext
	pending map[uint64]*pendingRequest
	closed  bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout sets the per-request reply timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New returns a Bridge that launches its execution context with launch on
// first use.
func New(launch Launcher, opts ...Option) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		launch:  launch,
		timeout: DefaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint64]*pendingRequest),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "bridge")
	return b
}

// Submit runs code in the execution context and waits for its output, the
// request timeout, or ctx, whichever comes first. It is safe for concurrent
// use; overlapping calls resolve independently.
func (b *Bridge) Submit(ctx context.Context, code string) Output {
	id := b.next.Add(1)
	req := &pendingRequest{state: stateCreated, done: make(chan Output, 1)}

	exec, err := b.register(id, req)
	if err != nil {
		return Output{Stderr: err.Error()}
	}

	b.transition(id, stateDispatched)
	token := strconv.FormatUint(id, 10)
	if err := exec.Send(ctx, Request{ID: token, Code: code}); err != nil {
		b.resolve(id, Output{Stderr: fmt.Sprintf("send request: %v", err)})
		return <-req.done
	}
	b.logger.Debug("request dispatched", logging.RequestID(token))

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case out := <-req.done:
		return out
	case <-timer.C:
		if b.resolve(id, Output{Stderr: fmt.Sprintf("execution timed out after %s", b.timeout)}) {
			logging.WarnWithContext(b.logger, "request timed out; reply will be dropped", "bridge_request_timeout",
				logging.RequestID(token),
				logging.Duration("timeout", b.timeout),
				logging.String(logging.FieldErrorHint, "raise bridge.request_timeout or check the worker"),
				logging.String(logging.FieldImpact, "the cell shows a timeout instead of its output"),
			)
		}
	case <-ctx.Done():
		b.resolve(id, Output{Stderr: "execution cancelled"})
	}
	return <-req.done
}

// register launches the execution context when needed and records the
// pending request against it.
func (b *Bridge) register(id uint64, req *pendingRequest) (ExecContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("execution bridge closed")
	}
	if b.exec == nil {
		exec, err := b.launch(b.ctx)
		if err != nil {
			logging.ErrorWithContext(b.logger, "execution context launch failed", "bridge_launch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check bridge.isolation and bridge.runtime settings"),
			)
			return nil, fmt.Errorf("start execution context: %w", err)
		}
		b.exec = exec
		b.wg.Add(1)
		go b.dispatch(exec)
		b.logger.Debug("execution context started")
	}
	req.owner = b.exec
	b.pending[id] = req
	return b.exec, nil
}

func (b *Bridge) transition(id uint64, to requestState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req, ok := b.pending[id]; ok && req.state < to && to != stateResolved {
		req.state = to
	}
}

// resolve completes a pending request once. It reports false when the token
// is unknown or already resolved.
func (b *Bridge) resolve(id uint64, out Output) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.pending[id]
	if !ok || req.state == stateResolved {
		return false
	}
	req.state = stateResolved
	delete(b.pending, id)
	req.done <- out
	return true
}

// dispatch routes replies from exec until it dies, then fails whatever was
// still waiting on it.
func (b *Bridge) dispatch(exec ExecContext) {
	defer b.wg.Done()

	for resp := range exec.Responses() {
		id, err := strconv.ParseUint(resp.ID, 10, 64)
		if err != nil || !b.accept(id, resp) {
			b.logger.Debug("reply dropped", logging.RequestID(resp.ID))
		}
	}

	b.mu.Lock()
	if b.exec == exec {
		b.exec = nil
	}
	var orphaned []uint64
	for id, req := range b.pending {
		if req.owner == exec {
			orphaned = append(orphaned, id)
		}
	}
	closed := b.closed
	b.mu.Unlock()

	_ = exec.Close()
	for _, id := range orphaned {
		b.resolve(id, Output{Stderr: "execution context exited"})
	}
	if !closed {
		logging.WarnWithContext(b.logger, "execution context exited; next run relaunches it", "bridge_context_exited",
			logging.Int("orphaned", len(orphaned)),
			logging.String(logging.FieldImpact, "in-flight runs report an error"),
		)
	}
}

// accept resolves a reply only for requests that were actually dispatched.
func (b *Bridge) accept(id uint64, resp Response) bool {
	b.mu.Lock()
	req, ok := b.pending[id]
	dispatched := ok && req.state == stateDispatched
	b.mu.Unlock()
	if !dispatched {
		return false
	}
	return b.resolve(id, Output{Stdout: resp.Stdout, Stderr: resp.Stderr})
}

// Pending returns the number of unresolved requests.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close shuts down the execution context and fails outstanding requests.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	exec := b.exec
	ids := make([]uint64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.resolve(id, Output{Stderr: "execution bridge closed"})
	}
	b.cancel()
	var err error
	if exec != nil {
		err = exec.Close()
	}
	b.wg.Wait()
	return err
}
