package apiclient

import "sync"

// Credentials holds the bearer token attached to outgoing requests. It is
// owned by the session and handed to the client explicitly.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials returns an empty credential holder.
func NewCredentials() *Credentials {
	return &Credentials{}
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() {
	c.Set("")
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
