package sandbox

import (
	"bytes"
	"sync"
)

// capture collects interpreter output. Interpreted code may still be writing
// from its own goroutines after a run ends, so reads happen under the lock and
// seal discards anything written afterwards.
type capture struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	sealed bool
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sealed {
		c.buf.Write(p)
	}
	return len(p), nil
}

// seal stops accepting output and returns what was written so far.
func (c *capture) seal() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return c.buf.String()
}
