package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sarmentow/codepencil/internal/bridge"
	"github.com/sarmentow/codepencil/internal/logging"
)

const writeWait = 10 * time.Second

// Runner executes code; *bridge.Bridge satisfies it.
type Runner interface {
	Submit(ctx context.Context, code string) bridge.Output
	Pending() int
}

// Server exposes a Runner over websocket connections.
type Server struct {
	runner   Runner
	logger   *slog.Logger
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// NewServer listens on bind (host:port; port 0 picks a free port).
func NewServer(ctx context.Context, bind string, runner Runner, logger *slog.Logger) (*Server, error) {
	if runner == nil {
		return nil, errors.New("ipc server requires a runner")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bind, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "ipc"),
		listener: listener,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		ctx:      serverCtx,
		cancel:   cancel,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(RunPath, s.handleRun)
	mux.HandleFunc(HealthPath, s.handleHealth)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return serverCtx },
	}
	return s, nil
}

// Addr is the address actually bound.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL is the websocket URL clients dial.
func (s *Server) URL() string {
	return RunURL(s.Addr())
}

// Serve starts accepting connections in the background.
func (s *Server) Serve() {
	s.logger.Info("execution server listening", logging.String("url", s.URL()))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "execution server stopped", "ipc_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "remote clients can no longer run cells"),
			)
		}
	}()
}

// Close stops accepting, disconnects clients, and waits for in-flight runs to
// be abandoned.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	s.cancel()
	_ = s.http.Close()
	for _, conn := range conns {
		_ = conn.Close()
	}
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	clients := len(s.conns)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Pending: s.runner.Pending(), Clients: clients})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade refused", logging.Error(err))
		return
	}
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.wg.Done()
	defer s.untrack(conn)

	conn.SetReadLimit(maxMessageSize)
	remote := conn.RemoteAddr().String()
	s.logger.Debug("client connected", logging.String("remote", remote))

	ctx, cancel := context.WithCancel(s.ctx)
	var inflight sync.WaitGroup
	var writeMu sync.Mutex
	defer conn.Close()
	defer inflight.Wait()
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.ctx.Err() == nil {
				s.logger.Debug("client read ended", logging.String("remote", remote), logging.Error(err))
			}
			return
		}
		var req bridge.Request
		if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
			logging.WarnWithContext(s.logger, "malformed execution request dropped", "ipc_request_invalid",
				logging.String("remote", remote),
				logging.String(logging.FieldErrorHint, "send {\"id\":\"...\",\"code\":\"...\"}"),
				logging.String(logging.FieldImpact, "the client will not receive a reply"),
			)
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			out := s.runner.Submit(ctx, req.Code)
			writeMu.Lock()
			defer writeMu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(bridge.Response{ID: req.ID, Stdout: out.Stdout, Stderr: out.Stderr}); err != nil {
				s.logger.Debug("reply not delivered",
					logging.RequestID(req.ID),
					logging.Error(err),
				)
			}
		}()
	}
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}
