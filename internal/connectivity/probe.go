// Package connectivity decides whether the device can reach the remote
// backend and reports changes to the façade.
package connectivity

import (
	"context"
	"net"
	"time"

	"ideas-go/internal/ideas"
)

// DefaultTimeout bounds a probe dial when none is configured.
const DefaultTimeout = 2 * time.Second

// DialProbe reports online when a TCP connection to Address succeeds.
// An empty Address always reports online.
type DialProbe struct {
	Address string
	Timeout time.Duration

	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

var _ ideas.ConnectivityProbe = (*DialProbe)(nil)

func NewDialProbe(address string, timeout time.Duration) *DialProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{Timeout: timeout}
	return &DialProbe{Address: address, Timeout: timeout, dial: d.DialContext}
}

func (p *DialProbe) Online(ctx context.Context) bool {
	if p.Address == "" {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
