package ipc

import "strings"

const (
	// RunPath is the websocket endpoint for execution requests.
	RunPath = "/run"
	// HealthPath reports server liveness and bridge load.
	HealthPath = "/healthz"

	maxMessageSize = 16 << 20
)

// HealthResponse is the body served on HealthPath.
type HealthResponse struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
	Clients int    `json:"clients"`
}

// RunURL turns a host:port or http(s) base into the websocket URL of RunPath.
func RunURL(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	switch {
	case strings.HasPrefix(addr, "ws://"), strings.HasPrefix(addr, "wss://"):
		if strings.HasSuffix(addr, RunPath) {
			return addr
		}
		return addr + RunPath
	case strings.HasPrefix(addr, "http://"):
		return "ws://" + strings.TrimPrefix(addr, "http://") + RunPath
	case strings.HasPrefix(addr, "https://"):
		return "wss://" + strings.TrimPrefix(addr, "https://") + RunPath
	default:
		return "ws://" + addr + RunPath
	}
}
