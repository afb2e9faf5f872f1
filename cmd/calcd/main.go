// Package main implements the calculator daemon (calcd).
// It serves add and divide over a Unix domain socket (TCP on Windows).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/internal/server"
)

var version = "dev"

func main() {
	socketPath := ""
	configPath := os.Getenv("CALC_CONFIG_PATH")
	verbose := false

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-socket", "--socket":
			if i+1 < len(os.Args) {
				socketPath = os.Args[i+1]
				i++
			}
		case "-config", "--config":
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				i++
			}
		case "-v", "--verbose", "-verbose":
			verbose = true
		case "-version", "--version":
			fmt.Printf("calcd version %s\n", version)
			os.Exit(0)
		case "-h", "--help", "-help":
			fmt.Println("Usage: calcd [options]")
			fmt.Println("Options:")
			fmt.Println("  -socket PATH   Unix socket path (default: /tmp/calc.sock)")
			fmt.Println("  -config PATH   Config file path")
			fmt.Println("  -v, -verbose   Verbose logging")
			fmt.Println("  -version       Print version and exit")
			fmt.Println("  -h, -help      Show this help")
			os.Exit(0)
		}
	}

	logger := log.Default()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Warn("using default config", "error", err)
		cfg = config.DefaultConfig()
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}
	if verbose {
		cfg.Verbose = true
	}

	level, err := log.ParseLevel(cfg.EffectiveLogLevel())
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetJSONOutput(cfg.LogJSON)

	server.Version = version
	d := server.New(cfg, logger)

	logger.Info("starting calcd", "version", version, "socket", cfg.SocketPath)

	if err := d.Run(context.Background(), server.RunOptions{
		ConfigPath: configPath,
		SocketPath: socketPath,
		ManagePID:  true,
	}); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("calcd stopped")
}
