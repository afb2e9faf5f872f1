package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/daemon"
	"github.com/l3aro/go-calculadora/internal/watch"
)

// RunOptions controls how Run sets up the daemon process
type RunOptions struct {
	// ConfigPath is the file to watch and reload. Empty means the layered
	// global/project config, watching whichever file currently exists.
	ConfigPath string
	// SocketPath overrides the configured socket path across reloads
	SocketPath string
	// ManagePID writes the PID and status files for the lifetime of Run
	ManagePID bool
}

// Run listens on the configured endpoint and serves until SIGINT, SIGTERM,
// a stop command or ctx cancellation.
func (d *Daemon) Run(ctx context.Context, opts RunOptions) error {
	cfg := d.Config()
	ep := daemon.Endpoint{SocketPath: cfg.SocketPath, TCPPort: cfg.TCPPort}

	if opts.ManagePID {
		if pid, err := daemon.ReadPID(); err == nil && pid != os.Getpid() && daemon.IsProcessRunning(pid) {
			if _, err := daemon.Ping(ep); err == nil {
				return fmt.Errorf("daemon already running (pid %d)", pid)
			}
		}
	}

	listener, err := ep.Listen()
	if err != nil {
		return err
	}

	if opts.ManagePID {
		if err := daemon.WritePID(os.Getpid()); err != nil {
			listener.Close()
			return err
		}
		if err := daemon.WriteStatus(&daemon.DaemonStatus{
			Running:   true,
			PID:       os.Getpid(),
			Ready:     true,
			StartedAt: d.startedAt,
			Version:   Version,

			SocketPath: ep.SocketPath,
			TCPPort:    ep.TCPPort,
		}); err != nil {
			d.logger.Warn("writing status file", "error", err)
		}
		defer func() {
			daemon.RemovePID()
			daemon.RemoveStatus()
		}()
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if w := d.watchConfig(opts); w != nil {
		defer w.Stop()
	}

	return d.Serve(sigCtx, listener)
}

// watchConfig starts reloading the config file on change. It returns nil
// when there is nothing to watch.
func (d *Daemon) watchConfig(opts RunOptions) *watch.FileWatcher {
	path := opts.ConfigPath
	if path == "" {
		path = config.EffectivePath()
	}
	if path == "" {
		return nil
	}

	w := watch.New(path, watch.DefaultDebounce)
	if err := w.Start(); err != nil {
		d.logger.Warn("config watch disabled", "path", path, "error", err)
		return nil
	}
	d.logger.Debug("watching config", "path", path)

	go func() {
		for {
			select {
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				if ev.Removed {
					d.logger.Warn("config file removed, keeping current settings", "path", ev.Path)
					continue
				}
				d.reload(opts)
			case err := <-w.Errors():
				d.logger.Warn("config watch error", "error", err)
			}
		}
	}()

	return w
}

func (d *Daemon) reload(opts RunOptions) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		d.logger.Error("config reload failed", "error", err)
		return
	}
	if opts.SocketPath != "" {
		cfg.SocketPath = opts.SocketPath
	}
	if err := d.ApplyConfig(cfg); err != nil {
		d.logger.Error("config reload rejected", "error", err)
	}
}
