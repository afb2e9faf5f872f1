package daemon

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/l3aro/go-calculadora/pkg/protocol"
)

// deadPID is far above any pid_max, so no process can own it.
const deadPID = 1 << 30

// useTempDaemonDir points CALC_DAEMON_DIR at a fresh directory.
func useTempDaemonDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CALC_DAEMON_DIR", dir)
	return dir
}

// serveStatus starts a minimal status responder on a short Unix socket path
// and points CALC_SOCKET_PATH at it.
func serveStatus(t *testing.T) Endpoint {
	t.Helper()
	dir, err := os.MkdirTemp("", "calc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	ep := Endpoint{SocketPath: filepath.Join(dir, "d.sock")}
	t.Setenv("CALC_SOCKET_PATH", ep.SocketPath)

	listener, err := ep.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	answerStatus(listener, time.Now())

	return ep
}

// answerStatus replies to status and stop commands on listener until it is
// closed. The returned channel is closed after a stop command is answered.
func answerStatus(listener net.Listener, started time.Time) <-chan struct{} {
	stopped := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var cmd protocol.Command
				if err := protocol.JSON.NewDecoder(bufio.NewReader(conn)).Decode(&cmd); err != nil {
					return
				}
				resp := protocol.Response{ID: cmd.ID, Type: cmd.Type}
				switch cmd.Type {
				case protocol.TypeStatus:
					resp.Status = &protocol.StatusInfo{
						Status:    "running",
						Version:   "test",
						Codec:     "json",
						StartedAt: started,
						Served:    3,
					}
				case protocol.TypeStop:
					resp.Status = &protocol.StatusInfo{Status: "stopped"}
				}
				protocol.JSON.NewEncoder(conn).Encode(resp)
				if cmd.Type == protocol.TypeStop {
					once.Do(func() { close(stopped) })
				}
			}(conn)
		}
	}()
	return stopped
}

func TestMain(m *testing.M) {
	// Start tests re-exec this binary as a stand-in calcd
	if os.Getenv("CALC_FAKE_DAEMON") == "1" {
		runFakeDaemon()
		return
	}
	os.Exit(m.Run())
}

// runFakeDaemon answers on CALC_SOCKET_PATH until stopped or a minute passes.
func runFakeDaemon() {
	listener, err := Endpoint{SocketPath: os.Getenv("CALC_SOCKET_PATH")}.Listen()
	if err != nil {
		os.Exit(1)
	}
	select {
	case <-answerStatus(listener, time.Now()):
		time.Sleep(50 * time.Millisecond)
	case <-time.After(time.Minute):
	}
	listener.Close()
	os.Exit(0)
}

func TestDaemonDir(t *testing.T) {
	t.Setenv("CALC_DAEMON_DIR", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())
	expected := filepath.Join(home, DefaultDir)

	if result := DaemonDir(); result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

func TestDaemonDirWithEnv(t *testing.T) {
	testDir := "/tmp/calc-test-dir"
	t.Setenv("CALC_DAEMON_DIR", testDir)

	if result := DaemonDir(); result != testDir {
		t.Errorf("Expected %q, got %q", testDir, result)
	}
	if result := PIDFile(); result != filepath.Join(testDir, PIDFileName) {
		t.Errorf("Unexpected PID file %q", result)
	}
	if result := StatusFile(); result != filepath.Join(testDir, StatusFileName) {
		t.Errorf("Unexpected status file %q", result)
	}
}

func TestPIDRoundTrip(t *testing.T) {
	dir := useTempDaemonDir(t)

	if PIDExists() {
		t.Fatal("PID file should not exist yet")
	}
	if err := WritePID(4242); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	if !PIDExists() {
		t.Fatal("PID file should exist")
	}

	data, err := os.ReadFile(filepath.Join(dir, PIDFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != strconv.Itoa(4242) {
		t.Errorf("Expected PID file content 4242, got %q", data)
	}

	pid, err := ReadPID()
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 4242 {
		t.Errorf("Expected 4242, got %d", pid)
	}

	if err := RemovePID(); err != nil {
		t.Fatalf("RemovePID: %v", err)
	}
	if PIDExists() {
		t.Error("PID file should be removed")
	}
	// Removing twice is not an error
	if err := RemovePID(); err != nil {
		t.Errorf("second RemovePID: %v", err)
	}
}

func TestReadPIDInvalid(t *testing.T) {
	dir := useTempDaemonDir(t)
	if err := os.WriteFile(filepath.Join(dir, PIDFileName), []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadPID(); err == nil {
		t.Error("Expected error for invalid PID")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	useTempDaemonDir(t)
	started := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	in := &DaemonStatus{Running: true, PID: 12, Ready: true, StartedAt: started, Version: "v1"}
	if err := WriteStatus(in); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}

	out, err := ReadStatus()
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if out.PID != 12 || !out.Running || !out.Ready || out.Version != "v1" {
		t.Errorf("Unexpected status %+v", out)
	}
	if !out.StartedAt.Equal(started) {
		t.Errorf("Expected StartedAt %v, got %v", started, out.StartedAt)
	}

	if err := RemoveStatus(); err != nil {
		t.Fatalf("RemoveStatus: %v", err)
	}
	if _, err := ReadStatus(); err == nil {
		t.Error("Expected error after status removed")
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !IsProcessRunning(os.Getpid()) {
		t.Error("Current process should be running")
	}
	if IsProcessRunning(0) {
		t.Error("PID 0 should not be reported as running")
	}
	if IsProcessRunning(-1) {
		t.Error("Negative PID should not be reported as running")
	}
	if IsProcessRunning(deadPID) {
		t.Error("Unused PID should not be reported as running")
	}
}

func TestCheckStatusNoPIDFile(t *testing.T) {
	useTempDaemonDir(t)

	status, err := CheckStatus()
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if status.Running || status.Ready {
		t.Errorf("Expected stopped status, got %+v", status)
	}
	if IsRunning() {
		t.Error("IsRunning should be false without PID file")
	}
}

func TestCheckStatusCleansStalePID(t *testing.T) {
	useTempDaemonDir(t)
	if err := WritePID(deadPID); err != nil {
		t.Fatal(err)
	}
	if err := WriteStatus(&DaemonStatus{Running: true, PID: deadPID}); err != nil {
		t.Fatal(err)
	}

	status, err := CheckStatus()
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if status.Running {
		t.Error("Stale PID should not be running")
	}
	if PIDExists() {
		t.Error("Stale PID file should be cleaned up")
	}
	if _, err := ReadStatus(); err == nil {
		t.Error("Stale status file should be cleaned up")
	}
}

func TestCheckStatusNotResponding(t *testing.T) {
	useTempDaemonDir(t)
	t.Setenv("CALC_SOCKET_PATH", filepath.Join(t.TempDir(), "missing.sock"))
	if err := WritePID(os.Getpid()); err != nil {
		t.Fatal(err)
	}

	status, err := CheckStatus()
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if !status.Running || status.Ready {
		t.Errorf("Expected running but not ready, got %+v", status)
	}
	if status.Error == "" {
		t.Error("Expected error message for unresponsive daemon")
	}

	result, err := GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if result.Status != "starting" {
		t.Errorf("Expected status starting, got %q", result.Status)
	}
}

func TestCheckStatusRunning(t *testing.T) {
	useTempDaemonDir(t)
	serveStatus(t)
	if err := WritePID(os.Getpid()); err != nil {
		t.Fatal(err)
	}

	status, err := CheckStatus()
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if !status.Running || !status.Ready {
		t.Fatalf("Expected running and ready, got %+v", status)
	}
	if status.Version != "test" || status.Served != 3 {
		t.Errorf("Unexpected status details %+v", status)
	}
	if !IsRunning() {
		t.Error("IsRunning should be true")
	}

	result, err := GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if result.Status != "running" || result.PID != os.Getpid() {
		t.Errorf("Unexpected status result %+v", result)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := WaitForReady(ctx); err != nil {
		t.Errorf("WaitForReady: %v", err)
	}
}

func TestPing(t *testing.T) {
	ep := serveStatus(t)

	info, err := Ping(ep)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if info.Status != "running" || info.Codec != "json" {
		t.Errorf("Unexpected ping answer %+v", info)
	}
}

func TestCurrentEndpointFollowsStatusFile(t *testing.T) {
	useTempDaemonDir(t)
	t.Setenv("CALC_SOCKET_PATH", "/tmp/default.sock")

	if ep := CurrentEndpoint(); ep.SocketPath != "/tmp/default.sock" {
		t.Errorf("Expected default endpoint without status file, got %+v", ep)
	}

	if err := WriteStatus(&DaemonStatus{Running: true, PID: 1, SocketPath: "/tmp/recorded.sock"}); err != nil {
		t.Fatal(err)
	}
	ep := CurrentEndpoint()
	if ep.SocketPath != "/tmp/recorded.sock" || ep.TCPPort != DefaultTCPPort {
		t.Errorf("Expected recorded endpoint, got %+v", ep)
	}
}

func TestCheckStatusAtCustomSocket(t *testing.T) {
	useTempDaemonDir(t)
	ep := serveStatus(t)
	t.Setenv("CALC_SOCKET_PATH", filepath.Join(t.TempDir(), "other.sock"))
	if err := WritePID(os.Getpid()); err != nil {
		t.Fatal(err)
	}

	if IsRunning() {
		t.Error("Nothing answers on the default socket")
	}
	if !IsRunningAt(ep) {
		t.Error("Daemon on the custom socket should be detected")
	}

	result, err := GetStatusAt(ep)
	if err != nil {
		t.Fatalf("GetStatusAt: %v", err)
	}
	if result.Status != "running" || result.Endpoint != ep.String() {
		t.Errorf("Unexpected status result %+v", result)
	}
}
