package client

import (
	"fmt"
	"time"

	"github.com/l3aro/go-calculadora/internal/daemon"
)

// DaemonInfo contains information about a running daemon
type DaemonInfo struct {
	PID       int
	Endpoint  string
	Ready     bool
	Version   string
	StartedAt time.Time
}

// DetectionOptions for daemon detection
type DetectionOptions struct {
	// Endpoint is the daemon address to ping
	Endpoint daemon.Endpoint
}

// DefaultDetectionOptions returns default detection options
func DefaultDetectionOptions() *DetectionOptions {
	return &DetectionOptions{
		Endpoint: daemon.CurrentEndpoint(),
	}
}

// IsRunning checks if the daemon is running by checking both PID file
// and attempting to ping via socket
func IsRunning() bool {
	return daemon.IsRunning()
}

// IsRunningAt checks if the daemon is running and answering at ep
func IsRunningAt(ep daemon.Endpoint) bool {
	return daemon.IsRunningAt(ep)
}

// DetectDaemon checks if the daemon is running and returns info
func DetectDaemon(opts *DetectionOptions) (*DaemonInfo, error) {
	if opts == nil {
		opts = DefaultDetectionOptions()
	}

	if !daemon.PIDExists() {
		return nil, fmt.Errorf("daemon not running (no PID file)")
	}

	pid, err := daemon.ReadPID()
	if err != nil {
		return nil, fmt.Errorf("failed to read PID: %w", err)
	}

	if !daemon.IsProcessRunning(pid) {
		daemon.RemovePID()
		daemon.RemoveStatus()
		return nil, fmt.Errorf("daemon not running (process not found)")
	}

	info := &DaemonInfo{
		PID:      pid,
		Endpoint: opts.Endpoint.String(),
	}

	status, err := daemon.Ping(opts.Endpoint)
	if err != nil {
		return info, nil
	}

	info.Ready = status.Status == "running"
	info.Version = status.Version
	info.StartedAt = status.StartedAt
	return info, nil
}
