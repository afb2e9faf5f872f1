// Package client provides a client for connecting to the calcd daemon.
// It supports automatic detection of running daemons and graceful fallback
// to direct execution when the daemon is unavailable.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/daemon"
	"github.com/l3aro/go-calculadora/pkg/protocol"
)

// DefaultTimeout is the default round trip timeout
const DefaultTimeout = 5 * time.Second

// ErrDaemonNotAvailable marks failures to reach the daemon, as opposed to
// errors the daemon answered with
var ErrDaemonNotAvailable = errors.New("daemon not available")

// Calculator is the arithmetic surface shared by the daemon client, the
// local executor and the router
type Calculator interface {
	Add(ctx context.Context, a, b int) (int, error)
	Divide(ctx context.Context, a, b int) (int, error)
}

// Client is a daemon client
type Client struct {
	endpoint  daemon.Endpoint
	timeout   time.Duration
	codec     protocol.Codec
	mu        sync.RWMutex
	connected bool
}

// Option is a client option
type Option func(*Client)

// WithSocketPath sets the socket path
func WithSocketPath(path string) Option {
	return func(c *Client) {
		c.endpoint.SocketPath = path
	}
}

// WithTCPPort sets the TCP port (for Windows)
func WithTCPPort(port string) Option {
	return func(c *Client) {
		c.endpoint.TCPPort = port
	}
}

// WithTimeout sets the round trip timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithCodec sets the wire codec
func WithCodec(codec protocol.Codec) Option {
	return func(c *Client) {
		c.codec = codec
	}
}

// WithConfig applies endpoint, timeout and codec from cfg
func WithConfig(cfg *config.Config) Option {
	return func(c *Client) {
		if cfg.SocketPath != "" {
			c.endpoint.SocketPath = cfg.SocketPath
		}
		if cfg.TCPPort != "" {
			c.endpoint.TCPPort = cfg.TCPPort
		}
		if t := cfg.RoundTripTimeout(); t > 0 {
			c.timeout = t
		}
		if codec, err := protocol.CodecByName(string(cfg.Codec)); err == nil {
			c.codec = codec
		}
	}
}

// New creates a new daemon client
func New(opts ...Option) *Client {
	c := &Client{
		endpoint: daemon.DefaultEndpoint(),
		timeout:  DefaultTimeout,
		codec:    protocol.JSON,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the daemon address the client dials
func (c *Client) Endpoint() daemon.Endpoint {
	return c.endpoint
}

// Codec returns the wire codec in use
func (c *Client) Codec() protocol.Codec {
	return c.codec
}

// connect establishes a connection to the daemon
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	network, addr := c.endpoint.Network()
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s: %v", ErrDaemonNotAvailable, c.endpoint, err)
	}
	return conn, nil
}

var idCounter atomic.Uint64

// generateID generates a unique command ID
func generateID() string {
	return fmt.Sprintf("cmd-%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}

// sendCommand sends a command to the daemon and returns the response.
// Transport failures wrap ErrDaemonNotAvailable; daemon-side errors are
// returned through Response.Err.
func (c *Client) sendCommand(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	// Abort the round trip if ctx is cancelled mid-flight
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if cmd.ID == "" {
		cmd.ID = generateID()
	}

	if err := c.codec.NewEncoder(conn).Encode(cmd); err != nil {
		return nil, fmt.Errorf("%w: sending command: %v", ErrDaemonNotAvailable, err)
	}

	var resp protocol.Response
	if err := c.codec.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: reading response: %v", ErrDaemonNotAvailable, err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	if err := resp.Err(); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) arithmetic(ctx context.Context, cmdType string, a, b int) (int, error) {
	resp, err := c.sendCommand(ctx, protocol.Command{
		Type:   cmdType,
		Params: &protocol.Operands{A: a, B: b},
	})
	if err != nil {
		return 0, err
	}
	if resp.Result == nil {
		return 0, fmt.Errorf("invalid response format")
	}
	return resp.Result.Value, nil
}

// Add asks the daemon for a + b
func (c *Client) Add(ctx context.Context, a, b int) (int, error) {
	return c.arithmetic(ctx, protocol.TypeAdd, a, b)
}

// Divide asks the daemon for a / b. A zero divisor yields an error
// matching calculator.ErrDivisionByZero.
func (c *Client) Divide(ctx context.Context, a, b int) (int, error) {
	return c.arithmetic(ctx, protocol.TypeDivide, a, b)
}

// GetStatus gets the daemon status
func (c *Client) GetStatus(ctx context.Context) (*protocol.StatusInfo, error) {
	resp, err := c.sendCommand(ctx, protocol.Command{Type: protocol.TypeStatus})
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("invalid response format")
	}
	return resp.Status, nil
}

// Stop asks the daemon to shut down
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.sendCommand(ctx, protocol.Command{Type: protocol.TypeStop})
	return err
}

// IsConnected returns whether the client has completed a round trip
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
