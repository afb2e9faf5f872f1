package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/healthcheck"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize calc configuration interactively",
	Long: `Guides you through setting up calc configuration step by step.
Creates a config file with the daemon endpoint, wire codec, timeout and logging settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a duration such as 5s")
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

func runInit(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	defaults := config.DefaultConfig()

	// === SECTION 1: Daemon connection ===
	codec := string(defaults.Codec)
	socketPath := defaults.SocketPath
	timeout := time.Duration(defaults.Timeout).String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Wire Codec").
				Description("Encoding used between calc and calcd").
				Options(
					huh.NewOption("JSON (readable)", string(config.CodecJSON)),
					huh.NewOption("MessagePack (compact)", string(config.CodecMsgpack)),
				).
				Value(&codec),
			huh.NewInput().
				Title("Daemon socket path").
				Placeholder(defaults.SocketPath).
				Value(&socketPath),
			huh.NewInput().
				Title("Round trip timeout").
				Placeholder(timeout).
				Validate(validateDuration).
				Value(&timeout),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Logging ===
	logLevel := defaults.LogLevel
	logJSON := defaults.LogJSON
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug", "debug"),
					huh.NewOption("Info", "info"),
					huh.NewOption("Warn", "warn"),
					huh.NewOption("Error", "error"),
				).
				Value(&logLevel),
			huh.NewConfirm().
				Title("JSON log output?").
				Affirmative("Yes").
				Negative("No").
				Value(&logJSON),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.calc/config.yaml)", "global"),
					huh.NewOption("Project (./.calc/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigPath()
	}

	if fileExists(configPath) {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg, err := buildConfig(codec, socketPath, timeout, logLevel, logJSON)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", configPath)
	fmt.Fprintf(out, "Socket path: %s\n", cfg.SocketPath)
	fmt.Fprintf(out, "Codec: %s\n", cfg.Codec)
	fmt.Fprintf(out, "Timeout: %s\n", cfg.RoundTripTimeout())
	fmt.Fprintf(out, "Log level: %s (json: %t)\n", cfg.LogLevel, cfg.LogJSON)
	fmt.Fprintln(out, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Fprintln(out, "\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(loadedCfg, configPath, config.EffectivePath())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfig Scope: %s\n", result.SavedScope)
	if result.SavedScope == "global" {
		fmt.Fprintf(out, "Config Path: %s\n", configPath)
	} else {
		absPath, _ := filepath.Abs(configPath)
		fmt.Fprintf(out, "Config Path: %s\n", absPath)
	}
	if result.EffectivePath != "" && result.EffectivePath != configPath {
		fmt.Fprintf(out, "Note: %s (%s) takes precedence over the saved file\n",
			result.EffectivePath, result.EffectiveScope)
	}

	fmt.Fprintln(out)
	displayDoctorResult(out, result)
	return nil
}

// buildConfig assembles and validates a config from the wizard answers
func buildConfig(codec, socketPath, timeout, logLevel string, logJSON bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Codec = config.CodecType(codec)
	if s := strings.TrimSpace(socketPath); s != "" {
		cfg.SocketPath = s
	}
	d, err := time.ParseDuration(strings.TrimSpace(timeout))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	cfg.Timeout = config.Duration(d)
	cfg.LogLevel = logLevel
	cfg.LogJSON = logJSON

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
