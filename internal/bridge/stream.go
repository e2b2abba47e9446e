package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxLine bounds a single JSON line on the stream.
const maxLine = 16 << 20

// Stream is an ExecContext speaking newline-delimited JSON: Requests are
// written to w and Responses are read from r.
type Stream struct {
	mu        sync.Mutex
	enc       *json.Encoder
	w         io.WriteCloser
	responses chan Response
	closeOnce sync.Once
	closer    func() error
	closeErr  error
	done      chan struct{}
}

// NewStream starts reading responses from r. closer runs once on Close after
// w is closed; it must stop the worker behind the pipes so that r reaches EOF.
func NewStream(r io.Reader, w io.WriteCloser, closer func() error) *Stream {
	s := &Stream{
		enc:       json.NewEncoder(w),
		w:         w,
		responses: make(chan Response, 16),
		closer:    closer,
		done:      make(chan struct{}),
	}
	go s.read(r)
	return s
}

func (s *Stream) read(r io.Reader) {
	defer close(s.responses)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		select {
		case s.responses <- resp:
		case <-s.done:
			return
		}
	}
}

// Send writes one request line.
func (s *Stream) Send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return errors.New("execution context closed")
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return nil
}

// Responses implements ExecContext.
func (s *Stream) Responses() <-chan Response {
	return s.responses
}

// Close closes the request pipe and runs the closer.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		err := s.w.Close()
		if s.closer != nil {
			if cerr := s.closer(); cerr != nil && err == nil {
				err = cerr
			}
		}
		s.closeErr = err
	})
	return s.closeErr
}
