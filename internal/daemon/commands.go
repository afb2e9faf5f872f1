package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/pkg/protocol"
)

// StartOptions contains options for starting the daemon
type StartOptions struct {
	// DaemonPath is the path to the daemon executable
	DaemonPath string
	// SocketPath is the Unix socket path
	SocketPath string
	// ConfigPath is the path to the config file
	ConfigPath string
	// Verbose enables verbose logging
	Verbose bool
	// WaitForReady indicates whether to wait for the daemon to be ready
	WaitForReady bool
	// ReadyTimeout is the timeout for waiting daemon to be ready
	ReadyTimeout time.Duration
	// Background indicates whether to run in background
	Background bool
}

// StartResult contains the result of a start operation
type StartResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Ready     bool      `json:"ready"`
}

// StopResult contains the result of a stop operation
type StopResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	StoppedAt time.Time `json:"stopped_at"`
	Error     string    `json:"error,omitempty"`
}

// StatusResult contains the result of a status operation
type StatusResult struct {
	Status    string    `json:"status"`
	Running   bool      `json:"running"`
	Ready     bool      `json:"ready"`
	PID       int       `json:"pid,omitempty"`
	Version   string    `json:"version,omitempty"`
	Codec     string    `json:"codec,omitempty"`
	Served    uint64    `json:"served,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// endpoint resolves where the started daemon will listen: the socket
// override, else the config file's endpoint, else DefaultEndpoint.
func (o *StartOptions) endpoint() Endpoint {
	ep := DefaultEndpoint()
	if o.ConfigPath != "" {
		if cfg, err := config.LoadFromFile(o.ConfigPath); err == nil {
			ep = Endpoint{SocketPath: cfg.SocketPath, TCPPort: cfg.TCPPort}
		}
	}
	if o.SocketPath != "" {
		ep.SocketPath = o.SocketPath
	}
	return ep
}

// Start starts the daemon
func Start(ctx context.Context, opts *StartOptions) (*StartResult, error) {
	status, err := CheckStatus()
	if err == nil && status.Running && status.Ready {
		return &StartResult{
			Success: false,
			PID:     status.PID,
			Error:   "daemon already running",
		}, nil
	}

	daemonPath := opts.DaemonPath
	if daemonPath == "" {
		daemonPath = findDaemonBinary()
		if daemonPath == "" {
			return nil, fmt.Errorf("daemon binary not found")
		}
	}

	env := os.Environ()
	if opts.SocketPath != "" {
		env = append(env, "CALC_SOCKET_PATH="+opts.SocketPath)
	}
	if opts.ConfigPath != "" {
		env = append(env, "CALC_CONFIG_PATH="+opts.ConfigPath)
	}
	if opts.Verbose {
		env = append(env, "CALC_VERBOSE=true")
	}

	cmd := exec.Command(daemonPath)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if opts.Background {
		detach(cmd)
		cmd.Stdout = nil
		cmd.Stderr = nil
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}

	pid := cmd.Process.Pid
	startedAt := time.Now()
	ep := opts.endpoint()

	if err := WritePID(pid); err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	if err := WriteStatus(&DaemonStatus{
		Running:    true,
		PID:        pid,
		Ready:      false,
		StartedAt:  startedAt,
		SocketPath: ep.SocketPath,
		TCPPort:    ep.TCPPort,
	}); err != nil {
		cmd.Process.Kill()
		RemovePID()
		return nil, fmt.Errorf("writing status: %w", err)
	}

	result := &StartResult{
		Success:   true,
		PID:       pid,
		StartedAt: startedAt,
	}

	if !opts.WaitForReady {
		return result, nil
	}

	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = ReadyTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := WaitForReadyAt(waitCtx, ep); err != nil {
		cmd.Process.Kill()
		RemovePID()
		RemoveStatus()
		return &StartResult{
			Success:   false,
			PID:       pid,
			StartedAt: startedAt,
			Error:     fmt.Sprintf("daemon not ready: %v", err),
		}, nil
	}

	WriteStatus(&DaemonStatus{
		Running:    true,
		PID:        pid,
		Ready:      true,
		StartedAt:  startedAt,
		SocketPath: ep.SocketPath,
		TCPPort:    ep.TCPPort,
	})
	result.Ready = true

	return result, nil
}

// findDaemonBinary finds the daemon binary path
func findDaemonBinary() string {
	if path := os.Getenv("CALC_DAEMON_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	// Next to the running calc binary
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), daemonBinaryName())
		if _, err := os.Stat(sibling); err == nil {
			return sibling
		}
	}

	local := filepath.Join(".", "bin", daemonBinaryName())
	if _, err := os.Stat(local); err == nil {
		return local
	}

	// Fall back to PATH lookup
	if path, err := exec.LookPath(daemonBinaryName()); err == nil {
		return path
	}

	return ""
}

// WaitForReady polls the daemon at the recorded endpoint until it answers
// a status ping or ctx ends.
func WaitForReady(ctx context.Context) error {
	return WaitForReadyAt(ctx, CurrentEndpoint())
}

// WaitForReadyAt polls the daemon at ep until it answers a status ping or ctx ends.
func WaitForReadyAt(ctx context.Context, ep Endpoint) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		status, err := CheckStatusAt(ep)
		if err == nil && status.Running && status.Ready {
			return nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout waiting for daemon to be ready")
			}
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop stops the daemon
func Stop() (*StopResult, error) {
	if !PIDExists() {
		return &StopResult{
			Success: false,
			Error:   "daemon not running (no PID file)",
		}, nil
	}

	pid, err := ReadPID()
	if err != nil {
		return &StopResult{
			Success: false,
			Error:   fmt.Sprintf("failed to read PID: %v", err),
		}, nil
	}

	if !IsProcessRunning(pid) {
		RemovePID()
		RemoveStatus()
		return &StopResult{
			Success: false,
			Error:   "daemon not running (process not found)",
		}, nil
	}

	// Try graceful shutdown first via socket
	if err := sendStopCommand(CurrentEndpoint()); err == nil {
		if waitForShutdown(pid, ShutdownTimeout) {
			RemovePID()
			RemoveStatus()
			return &StopResult{
				Success:   true,
				PID:       pid,
				StoppedAt: time.Now(),
			}, nil
		}
	}

	// Force kill if graceful shutdown failed
	process, err := findProcess(pid)
	if err != nil {
		RemovePID()
		RemoveStatus()
		return &StopResult{
			Success:   true,
			PID:       pid,
			StoppedAt: time.Now(),
			Error:     "process already terminated",
		}, nil
	}

	if err := process.Kill(); err != nil {
		return &StopResult{
			Success: false,
			PID:     pid,
			Error:   fmt.Sprintf("failed to kill process: %v", err),
		}, nil
	}

	waitForShutdown(pid, 2*time.Second)
	RemovePID()
	RemoveStatus()

	return &StopResult{
		Success:   true,
		PID:       pid,
		StoppedAt: time.Now(),
	}, nil
}

// sendStopCommand sends a stop command to the daemon and waits for its acknowledgement
func sendStopCommand(ep Endpoint) error {
	conn, err := ep.Dial(pingTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if err := protocol.JSON.NewEncoder(conn).Encode(protocol.Command{Type: protocol.TypeStop, ID: "stop-cmd"}); err != nil {
		return fmt.Errorf("sending stop command: %w", err)
	}

	var resp protocol.Response
	if err := protocol.JSON.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("reading stop response: %w", err)
	}
	return resp.Err()
}

// waitForShutdown waits for the process to shutdown
func waitForShutdown(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if !IsProcessRunning(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}

	return false
}

// GetStatus returns a formatted status result for the recorded endpoint
func GetStatus() (*StatusResult, error) {
	return GetStatusAt(CurrentEndpoint())
}

// GetStatusAt returns a formatted status result for the daemon at ep
func GetStatusAt(ep Endpoint) (*StatusResult, error) {
	status, err := CheckStatusAt(ep)
	if err != nil {
		return &StatusResult{
			Status: "unknown",
			Error:  err.Error(),
		}, nil
	}

	result := &StatusResult{
		Running:   status.Running,
		Ready:     status.Ready,
		PID:       status.PID,
		Version:   status.Version,
		Codec:     status.Codec,
		Served:    status.Served,
		StartedAt: status.StartedAt,
		Endpoint:  ep.String(),
		Error:     status.Error,
	}

	switch {
	case !status.Running:
		result.Status = "stopped"
	case !status.Ready:
		result.Status = "starting"
	default:
		result.Status = "running"
	}

	return result, nil
}

func daemonBinaryName() string {
	if filepath.Separator == '\\' {
		return "calcd.exe"
	}
	return "calcd"
}
