package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/healthcheck"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/l3aro/go-calculadora/pkg/protocol"
)

// isolate keeps config and daemon state lookups inside temp directories.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CALC_DAEMON_DIR", t.TempDir())
	for _, key := range []string{"CALC_SOCKET_PATH", "CALC_TCP_PORT", "CALC_CODEC", "CALC_TIMEOUT", "CALC_LOG_LEVEL", "CALC_VERBOSE"} {
		t.Setenv(key, "")
	}
	chdir(t, t.TempDir())
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(RootCmd)

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAddCommand(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "add", "--no-daemon", "5", "4")
	require.NoError(t, err)
	assert.Equal(t, "9\n", out)
}

func TestAddCommandNegativeOperands(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "add", "--no-daemon", "--", "10", "-5")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestDivideCommandTruncates(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "divide", "--no-daemon", "--", "-7", "2")
	require.NoError(t, err)
	assert.Equal(t, "-3\n", out)
}

func TestDivideByZeroCommand(t *testing.T) {
	isolate(t)

	out, errOut, err := execute(t, "divide", "--no-daemon", "10", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, calculator.ErrDivisionByZero)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Error: division by zero")
}

func TestAddCommandJSON(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "add", "--no-daemon", "--json", "10", "5")
	require.NoError(t, err)

	var got OperationOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "add", got.Operation)
	require.NotNil(t, got.Result)
	assert.Equal(t, 15, *got.Result)
	assert.Equal(t, "direct", got.Via)
	assert.Empty(t, got.Error)
}

func TestDivideByZeroCommandJSON(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "divide", "--no-daemon", "-j", "10", "0")
	require.ErrorIs(t, err, calculator.ErrDivisionByZero)

	var got OperationOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Nil(t, got.Result)
	assert.Equal(t, "division by zero", got.Error)
	assert.Equal(t, protocol.ErrorKindDivisionByZero, got.ErrorKind)
}

func TestOperationArgumentErrors(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "add", "--no-daemon", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")

	_, _, err = execute(t, "divide", "--no-daemon", "ten", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid integer "ten"`)
}

func TestParseOperands(t *testing.T) {
	a, b, err := parseOperands([]string{"-12", "+3"})
	require.NoError(t, err)
	assert.Equal(t, -12, a)
	assert.Equal(t, 3, b)

	_, _, err = parseOperands([]string{"1", "1.5"})
	assert.Error(t, err)

	_, _, err = parseOperands([]string{"99999999999999999999999", "1"})
	assert.Error(t, err)
}

func TestValidateInt(t *testing.T) {
	assert.NoError(t, validateInt("42"))
	assert.NoError(t, validateInt(" -7 "))
	assert.Error(t, validateInt(""))
	assert.Error(t, validateInt("abc"))
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, validateDuration("5s"))
	assert.NoError(t, validateDuration("250ms"))
	assert.Error(t, validateDuration("0s"))
	assert.Error(t, validateDuration("soon"))
}

func TestBuildConfig(t *testing.T) {
	cfg, err := buildConfig("msgpack", " /tmp/custom.sock ", "2s", "debug", true)
	require.NoError(t, err)
	assert.Equal(t, config.CodecMsgpack, cfg.Codec)
	assert.Equal(t, "/tmp/custom.sock", cfg.SocketPath)
	assert.Equal(t, 2*time.Second, cfg.RoundTripTimeout())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)

	cfg, err = buildConfig("json", "", "5s", "info", false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().SocketPath, cfg.SocketPath)

	_, err = buildConfig("xml", "", "5s", "info", false)
	assert.Error(t, err)

	_, err = buildConfig("json", "", "later", "info", false)
	assert.Error(t, err)
}

func TestDoctorCommand(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "Using config: defaults")
	assert.Contains(t, out, "Calculator:\n  Status: ✓ ready")
	assert.Contains(t, out, "Daemon:\n  Status: ○ stopped")
}

func TestDoctorCommandWithProjectConfig(t *testing.T) {
	isolate(t)

	cfg := config.DefaultConfig()
	cfg.Codec = config.CodecMsgpack
	require.NoError(t, cfg.Save(config.ProjectConfigPath()))

	out, _, err := execute(t, "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "Using config: "+config.ProjectConfigPath()+" (project)")
	assert.Contains(t, out, "Codec: msgpack")
}

func TestDoctorCommandExplicitConfig(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "doctor", "--config", "missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestDisplayDoctorResultShowsErrors(t *testing.T) {
	var buf bytes.Buffer
	displayDoctorResult(&buf, &healthcheck.HealthCheckResult{
		EffectivePath:  "/home/u/.calc/config.yaml",
		EffectiveScope: "global",
		Codec:          "json",
		Calculator:     healthcheck.ComponentStatus{Name: "calculator", Status: "ready"},
		Daemon: healthcheck.ComponentStatus{
			Name:   "daemon",
			Status: "error",
			Error:  "json round trip failed",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Using config: /home/u/.calc/config.yaml (global)")
	assert.Contains(t, out, "Status: ✗ error")
	assert.Contains(t, out, "Error: json round trip failed")
	assert.Equal(t, 1, strings.Count(out, "Error:"))
}

func TestFormatStatusIcon(t *testing.T) {
	assert.Equal(t, "✓", formatStatusIcon("ready"))
	assert.Equal(t, "✓", formatStatusIcon("running"))
	assert.Equal(t, "◐", formatStatusIcon("starting"))
	assert.Equal(t, "○", formatStatusIcon("stopped"))
	assert.Equal(t, "✗", formatStatusIcon("error"))
	assert.Equal(t, "?", formatStatusIcon("weird"))
}
