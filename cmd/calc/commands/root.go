package commands

import (
	"fmt"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/pkg/client"
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "calc",
	Short: "calc - integer calculator with an optional background daemon",
	Long: `calc adds and divides integers, either directly or through the calcd daemon.

Commands:
  add         Add two integers
  divide      Divide two integers, truncating toward zero
  prompt      Enter an operation interactively
  init        Create a configuration file interactively
  doctor      Check configuration and daemon health
  mcp         Serve add and divide as MCP tools over stdio

Negative operands must follow "--", for example: calc add -- 10 -5

Use "calc [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			log.Default().SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (default: project, then global config)")
	RootCmd.PersistentFlags().Bool("verbose", false, "Verbose logging")

	// Add subcommands
	RootCmd.AddCommand(addCmd)
	RootCmd.AddCommand(divideCmd)
	RootCmd.AddCommand(promptCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(mcpCmd)
}

// loadConfig loads the --config file when given, else the layered config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newRouter builds a router that talks to the daemon described by cfg
func newRouter(cfg *config.Config, noDaemon bool) *client.Router {
	opts := []client.RouterOption{
		client.WithClient(client.New(client.WithConfig(cfg))),
	}
	if noDaemon {
		opts = append(opts, client.WithoutDaemon())
	}
	return client.NewRouter(opts...)
}
