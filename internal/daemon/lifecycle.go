// Package daemon provides lifecycle management for the calcd daemon.
// It handles PID file management, status tracking, and start/stop/status commands.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/l3aro/go-calculadora/pkg/protocol"
)

const (
	// DefaultDir is the default directory for daemon files
	DefaultDir = ".calc"
	// PIDFileName is the name of the PID file
	PIDFileName = "daemon.pid"
	// StatusFileName is the name of the status file
	StatusFileName = "status"
	// DefaultSocketPath is the default Unix socket path
	DefaultSocketPath = "/tmp/calc.sock"
	// DefaultTCPPort is the default TCP port for Windows
	DefaultTCPPort = "9848"
	// ReadyTimeout is the timeout for waiting daemon to be ready
	ReadyTimeout = 10 * time.Second
	// ShutdownTimeout is the timeout for waiting daemon to shutdown
	ShutdownTimeout = 5 * time.Second
	// pingTimeout bounds a single status round trip
	pingTimeout = 2 * time.Second
)

var findProcess = os.FindProcess

// DaemonDir returns the path to the daemon directory: CALC_DAEMON_DIR, else
// ~/.calc so every working directory sees the same daemon.
func DaemonDir() string {
	dir := os.Getenv("CALC_DAEMON_DIR")
	if dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, DefaultDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultDir
	}
	return filepath.Join(cwd, DefaultDir)
}

// PIDFile returns the path to the PID file
func PIDFile() string {
	return filepath.Join(DaemonDir(), PIDFileName)
}

// StatusFile returns the path to the status file
func StatusFile() string {
	return filepath.Join(DaemonDir(), StatusFileName)
}

// ensureDaemonDir ensures the daemon directory exists
func ensureDaemonDir() error {
	if err := os.MkdirAll(DaemonDir(), 0755); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	return nil
}

// WritePID writes the PID to the PID file
func WritePID(pid int) error {
	if err := ensureDaemonDir(); err != nil {
		return err
	}
	if err := os.WriteFile(PIDFile(), []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	return nil
}

// ReadPID reads the PID from the PID file
func ReadPID() (int, error) {
	data, err := os.ReadFile(PIDFile())
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PID: %w", err)
	}
	return pid, nil
}

// RemovePID removes the PID file
func RemovePID() error {
	if err := os.Remove(PIDFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file: %w", err)
	}
	return nil
}

// PIDExists checks if the PID file exists.
func PIDExists() bool {
	_, err := os.Stat(PIDFile())
	return err == nil
}

// DaemonStatus represents the status of the daemon
type DaemonStatus struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	Ready     bool      `json:"ready"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Version   string    `json:"version,omitempty"`
	Codec     string    `json:"codec,omitempty"`
	Served    uint64    `json:"served,omitempty"`

	// Endpoint the daemon listens on, recorded by Start and Run
	SocketPath string `json:"socket_path,omitempty"`
	TCPPort    string `json:"tcp_port,omitempty"`
}

// Endpoint returns the recorded endpoint, or false if none was recorded
func (s *DaemonStatus) Endpoint() (Endpoint, bool) {
	if s == nil || (s.SocketPath == "" && s.TCPPort == "") {
		return Endpoint{}, false
	}
	ep := Endpoint{SocketPath: s.SocketPath, TCPPort: s.TCPPort}
	if ep.TCPPort == "" {
		ep.TCPPort = DefaultTCPPort
	}
	return ep, true
}

// CurrentEndpoint returns the endpoint recorded in the status file,
// falling back to DefaultEndpoint.
func CurrentEndpoint() Endpoint {
	if status, err := ReadStatus(); err == nil {
		if ep, ok := status.Endpoint(); ok {
			return ep
		}
	}
	return DefaultEndpoint()
}

// WriteStatus writes the status to the status file
func WriteStatus(status *DaemonStatus) error {
	if err := ensureDaemonDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	if err := os.WriteFile(StatusFile(), data, 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return nil
}

// ReadStatus reads the status from the status file
func ReadStatus() (*DaemonStatus, error) {
	data, err := os.ReadFile(StatusFile())
	if err != nil {
		return nil, fmt.Errorf("reading status file: %w", err)
	}
	var status DaemonStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	return &status, nil
}

// RemoveStatus removes the status file
func RemoveStatus() error {
	if err := os.Remove(StatusFile()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing status file: %w", err)
	}
	return nil
}

// Ping sends a status command to the daemon at ep and returns its answer
func Ping(ep Endpoint) (*protocol.StatusInfo, error) {
	conn, err := ep.Dial(pingTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(pingTimeout))

	codec := protocol.JSON
	if err := codec.NewEncoder(conn).Encode(protocol.Command{Type: protocol.TypeStatus, ID: "ping"}); err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}

	var resp protocol.Response
	if err := codec.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("invalid response format")
	}
	return resp.Status, nil
}

// CheckStatus checks the daemon status at the recorded endpoint
func CheckStatus() (*DaemonStatus, error) {
	return CheckStatusAt(CurrentEndpoint())
}

// CheckStatusAt checks the PID file and pings the daemon at ep
func CheckStatusAt(ep Endpoint) (*DaemonStatus, error) {
	if !PIDExists() {
		return &DaemonStatus{
			Running: false,
			Ready:   false,
		}, nil
	}

	pid, err := ReadPID()
	if err != nil {
		return &DaemonStatus{
			Running: false,
			Ready:   false,
			Error:   fmt.Sprintf("failed to read PID: %v", err),
		}, nil
	}

	if !IsProcessRunning(pid) {
		// Process not running but PID file exists - cleanup
		RemovePID()
		RemoveStatus()
		return &DaemonStatus{
			Running: false,
			Ready:   false,
		}, nil
	}

	info, err := Ping(ep)
	if err != nil {
		return &DaemonStatus{
			Running: true,
			PID:     pid,
			Ready:   false,
			Error:   fmt.Sprintf("daemon not responding: %v", err),
		}, nil
	}

	return &DaemonStatus{
		Running:   true,
		PID:       pid,
		Ready:     info.Status == "running",
		StartedAt: info.StartedAt,
		Version:   info.Version,
		Codec:     info.Codec,
		Served:    info.Served,

		SocketPath: ep.SocketPath,
		TCPPort:    ep.TCPPort,
	}, nil
}

// IsRunning checks if the daemon is currently running
func IsRunning() bool {
	return IsRunningAt(CurrentEndpoint())
}

// IsRunningAt checks if a daemon is running and answering at ep
func IsRunningAt(ep Endpoint) bool {
	status, err := CheckStatusAt(ep)
	return err == nil && status.Running && status.Ready
}
