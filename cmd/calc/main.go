// Package main implements the calc CLI.
// It adds and divides integers, directly or through the calcd daemon,
// and manages the daemon's lifecycle.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/l3aro/go-calculadora/cmd/calc/commands"
	"github.com/l3aro/go-calculadora/internal/daemon"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	// Add start command
	startCmd := &cobra.Command{
		Use:   "start [flags]",
		Short: "Start daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			daemonPath, _ := cmd.Flags().GetString("daemon")
			socketPath, _ := cmd.Flags().GetString("socket")
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")
			background, _ := cmd.Flags().GetBool("d")
			return runStart(cmd.Context(), daemonPath, socketPath, configPath, verbose, background)
		},
	}
	startCmd.Flags().String("daemon", "", "Path to daemon binary")
	startCmd.Flags().String("socket", "", "Unix socket path")
	startCmd.Flags().BoolP("d", "d", false, "Run in background")

	// Add stop command
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop()
		},
	}

	// Add status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return runStatus(jsonOutput)
		},
	}
	statusCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	// Add all commands to root
	commands.RootCmd.AddCommand(startCmd)
	commands.RootCmd.AddCommand(stopCmd)
	commands.RootCmd.AddCommand(statusCmd)

	commands.RootCmd.Flags().BoolP("version", "v", false, "Print version information")
	commands.RootCmd.SetVersionTemplate(`calc version {{.Version}}
`)
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (built " + buildTime + ")"
	}

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStart(ctx context.Context, daemonPath, socketPath, configPath string, verbose, background bool) error {
	opts := &daemon.StartOptions{
		DaemonPath:   daemonPath,
		SocketPath:   socketPath,
		ConfigPath:   configPath,
		Verbose:      verbose,
		WaitForReady: true,
		ReadyTimeout: daemon.ReadyTimeout,
		Background:   background,
	}

	result, err := daemon.Start(ctx, opts)
	if err != nil {
		return err
	}

	if !result.Success {
		if result.PID > 0 {
			return fmt.Errorf("failed to start daemon: %s (PID %d)", result.Error, result.PID)
		}
		return fmt.Errorf("failed to start daemon: %s", result.Error)
	}

	fmt.Printf("Daemon started with PID %d\n", result.PID)
	return nil
}

func runStop() error {
	result, err := daemon.Stop()
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("failed to stop daemon: %s", result.Error)
	}

	fmt.Printf("Daemon stopped (PID: %d)\n", result.PID)
	return nil
}

func runStatus(jsonOutput bool) error {
	result, err := daemon.GetStatus()
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Status: %s\n", result.Status)
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
		return nil
	}
	if result.PID > 0 {
		fmt.Printf("PID: %d\n", result.PID)
	}
	if result.Version != "" {
		fmt.Printf("Version: %s\n", result.Version)
	}
	if result.Endpoint != "" {
		fmt.Printf("Endpoint: %s\n", result.Endpoint)
	}
	if result.Codec != "" {
		fmt.Printf("Codec: %s\n", result.Codec)
	}
	if result.Status == "running" {
		fmt.Printf("Served: %d\n", result.Served)
	}
	if !result.StartedAt.IsZero() {
		fmt.Printf("Started: %s\n", result.StartedAt.Format(time.RFC3339))
	}
	return nil
}
