package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/healthcheck"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and the daemon",
	Long: `Checks the configuration, runs a calculator self-test and, when the
daemon is running, performs a status round trip with the configured codec.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := loadConfigWithPath(cmd)
		if err != nil {
			return err
		}

		result, err := healthcheck.Check(cfg, configPath, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(cmd.OutOrStdout(), result)

		if result.Calculator.Status == "error" || result.Daemon.Status == "error" {
			return fmt.Errorf("health check failed: one or more components reported an error")
		}
		return nil
	},
}

// loadConfigWithPath loads the config and reports which file it came from.
// An empty path means defaults plus environment overrides.
func loadConfigWithPath(cmd *cobra.Command) (*config.Config, string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return cfg, path, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, config.EffectivePath(), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(w io.Writer, result *healthcheck.HealthCheckResult) {
	if result.EffectivePath == "" {
		fmt.Fprintln(w, "Using config: defaults (run 'calc init' to create a config file)")
	} else {
		fmt.Fprintf(w, "Using config: %s (%s)\n", result.EffectivePath, result.EffectiveScope)
	}
	fmt.Fprintf(w, "Codec: %s\n\n", result.Codec)

	fmt.Fprintln(w, "Calculator:")
	printComponentStatus(w, result.Calculator)

	fmt.Fprintln(w, "\nDaemon:")
	printComponentStatus(w, result.Daemon)
}

func printComponentStatus(w io.Writer, c healthcheck.ComponentStatus) {
	fmt.Fprintf(w, "  Status: %s %s\n", formatStatusIcon(c.Status), c.Status)
	if c.Detail != "" {
		fmt.Fprintf(w, "  Detail: %s\n", c.Detail)
	}
	if c.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", c.Error)
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case "ready", "running":
		return "✓"
	case "starting":
		return "◐"
	case "stopped":
		return "○"
	case "error":
		return "✗"
	default:
		return "?"
	}
}
