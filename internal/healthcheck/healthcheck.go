package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/daemon"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/l3aro/go-calculadora/pkg/client"
)

// ComponentStatus represents the health of one part of the system.
type ComponentStatus struct {
	Name   string
	Status string // "ready", "running", "starting", "stopped", "error"
	Detail string
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Codec          string
	Calculator     ComponentStatus
	Daemon         ComponentStatus
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
		Codec:          string(cfg.Codec),
	}

	result.Calculator = checkCalculator()
	result.Daemon = checkDaemon(cfg)

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, config.DirName)
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkCalculator runs a known addition and a division by zero in process.
func checkCalculator() ComponentStatus {
	status := ComponentStatus{Name: "calculator"}

	if got := calculator.Add(2, 3); got != 5 {
		status.Status = "error"
		status.Error = fmt.Sprintf("2 + 3 returned %d", got)
		return status
	}
	if _, err := calculator.Divide(1, 0); !errors.Is(err, calculator.ErrDivisionByZero) {
		status.Status = "error"
		status.Error = fmt.Sprintf("1 / 0 returned %v", err)
		return status
	}

	status.Status = "ready"
	return status
}

// checkDaemon reports the state of the daemon at the configured endpoint and,
// when it is running, performs a status round trip with the configured codec.
func checkDaemon(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{Name: "daemon"}

	st, err := daemon.GetStatusAt(daemon.Endpoint{SocketPath: cfg.SocketPath, TCPPort: cfg.TCPPort})
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}

	status.Status = st.Status
	status.Error = st.Error
	if st.Status != "running" {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	c := client.New(client.WithConfig(cfg))
	info, err := c.GetStatus(ctx)
	if err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("%s round trip failed: %v", c.Codec().Name(), err)
		return status
	}

	status.Detail = fmt.Sprintf("pid %d, version %s, %s, %d served", st.PID, info.Version, c.Endpoint(), info.Served)
	return status
}
