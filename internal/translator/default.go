package translator

import "sync"

var (
	defaultMu     sync.RWMutex
	defaultClient *Client
)

// SetDefault registers c as the process-wide client returned by Default.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = c
}

// Default returns the process-wide client, or nil when none is registered.
func Default() *Client {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}
