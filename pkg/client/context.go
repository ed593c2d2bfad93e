package client

import (
	"time"
)

// ClientContext carries per-call state through the filter chain and the
// dispatch: the target endpoint, the deadline and the final status. A
// context may be reused across operations (a transaction's begin, statements
// and commit); each operation resets the status before it runs.
type ClientContext struct {
	ServiceName string

	// IP/Port select the endpoint directly. When IP is empty the proxy asks
	// its selector (or falls back to the configured target).
	IP   string
	Port uint16

	// Timeout bounds the call when no explicit deadline is set.
	Timeout time.Duration

	deadline time.Time
	status   Status
}

func NewClientContext() *ClientContext {
	return &ClientContext{}
}

func (c *ClientContext) SetTarget(ip string, port uint16) {
	c.IP = ip
	c.Port = port
}

func (c *ClientContext) SetDeadline(deadline time.Time) {
	c.deadline = deadline
}

func (c *ClientContext) Deadline() time.Time {
	return c.deadline
}

// DeadlineExceeded reports whether the call deadline has already passed.
// Contexts without a deadline never expire.
func (c *ClientContext) DeadlineExceeded() bool {
	return !c.deadline.IsZero() && time.Now().After(c.deadline)
}

func (c *ClientContext) SetStatus(s Status) {
	c.status = s
}

func (c *ClientContext) Status() Status {
	return c.status
}
