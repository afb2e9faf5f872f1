package commands

import (
	"fmt"
	"os"

	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/pkg/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve add and divide as MCP tools over stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout exposing the
ping, add and divide tools. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		noDaemon, _ := cmd.Flags().GetBool("no-daemon")

		level, err := log.ParseLevel(cfg.EffectiveLogLevel())
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = log.DebugLevel
		}
		logger := log.New(log.LoggerConfig{
			Level:      level,
			JSONOutput: cfg.LogJSON,
			Output:     os.Stderr,
		})

		srv := mcp.NewCalcServer(cmd.Root().Version, newRouter(cfg, noDaemon), logger)
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.Flags().Bool("no-daemon", false, "Compute directly without the daemon")
}
