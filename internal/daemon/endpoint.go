package daemon

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/l3aro/go-calculadora/internal/config"
)

// Endpoint is where the daemon listens: a Unix socket, or a localhost TCP
// port on Windows and when the socket path is not absolute.
type Endpoint struct {
	SocketPath string
	TCPPort    string
}

// DefaultEndpoint returns the endpoint from CALC_SOCKET_PATH / CALC_TCP_PORT,
// then the config files, then defaults
func DefaultEndpoint() Endpoint {
	return Endpoint{
		SocketPath: GetSocketPath(),
		TCPPort:    GetTCPPort(),
	}
}

// GetSocketPath returns the socket path from the environment, config or default
func GetSocketPath() string {
	if socketPath := os.Getenv("CALC_SOCKET_PATH"); socketPath != "" {
		return socketPath
	}
	if cfg, err := config.Load(); err == nil && cfg.SocketPath != "" {
		return cfg.SocketPath
	}
	return DefaultSocketPath
}

// GetTCPPort returns the TCP port from the environment, config or default
func GetTCPPort() string {
	if port := os.Getenv("CALC_TCP_PORT"); port != "" {
		return port
	}
	if cfg, err := config.Load(); err == nil && cfg.TCPPort != "" {
		return cfg.TCPPort
	}
	return DefaultTCPPort
}

// UseTCP reports whether the endpoint should use TCP instead of a Unix socket
func (e Endpoint) UseTCP() bool {
	if runtime.GOOS == "windows" {
		return true
	}
	return !strings.HasPrefix(e.SocketPath, "/")
}

// Network returns the net package network name and address for the endpoint
func (e Endpoint) Network() (string, string) {
	if e.UseTCP() {
		port := e.TCPPort
		if port == "" {
			port = DefaultTCPPort
		}
		return "tcp", "localhost:" + port
	}
	return "unix", e.SocketPath
}

// String returns a human readable address
func (e Endpoint) String() string {
	network, addr := e.Network()
	return network + "://" + addr
}

// Dial connects to the daemon
func (e Endpoint) Dial(timeout time.Duration) (net.Conn, error) {
	network, addr := e.Network()
	conn, err := net.DialTimeout(network, addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	return conn, nil
}

// Listen opens the daemon listener, replacing a stale socket file
func (e Endpoint) Listen() (net.Listener, error) {
	network, addr := e.Network()
	if network == "unix" {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing existing socket: %w", err)
		}
	}

	listener, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", e, err)
	}

	if network == "unix" {
		if err := os.Chmod(addr, 0777); err != nil {
			listener.Close()
			return nil, fmt.Errorf("setting socket permissions: %w", err)
		}
	}

	return listener, nil
}
