package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sarmentow/codepencil/internal/bridge"
)

// Conn is a client connection to a Server. It implements bridge.ExecContext.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	responses chan bridge.Response
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ bridge.ExecContext = (*Conn)(nil)

// Dial connects to a server at url, which may be a websocket URL or a bare
// host:port.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := dialer.DialContext(ctx, RunURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", RunURL(url), err)
	}
	ws.SetReadLimit(maxMessageSize)
	c := &Conn{
		ws:        ws,
		responses: make(chan bridge.Response, 16),
		done:      make(chan struct{}),
	}
	go c.read()
	return c, nil
}

// Launcher dials url each time the bridge needs a new execution context.
func Launcher(url string) bridge.Launcher {
	return func(ctx context.Context) (bridge.ExecContext, error) {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return Dial(dialCtx, url)
	}
}

func (c *Conn) read() {
	defer close(c.responses)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var resp bridge.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		select {
		case c.responses <- resp:
		case <-c.done:
			return
		}
	}
}

// Send implements bridge.ExecContext.
func (c *Conn) Send(ctx context.Context, req bridge.Request) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteJSON(req)
}

// Responses implements bridge.ExecContext.
func (c *Conn) Responses() <-chan bridge.Response {
	return c.responses
}

// Close sends a close frame and drops the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
