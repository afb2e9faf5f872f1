// Package server implements the calcd daemon: a Unix domain socket server
// (TCP on Windows) answering arithmetic commands from the calc CLI.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l3aro/go-calculadora/internal/config"
	"github.com/l3aro/go-calculadora/internal/log"
	"github.com/l3aro/go-calculadora/pkg/calculator"
	"github.com/l3aro/go-calculadora/pkg/protocol"
)

// Version is reported by the status command. Set by cmd/calcd at link time.
var Version = "dev"

// idleTimeout bounds the wait for the next command on an open connection
const idleTimeout = 30 * time.Second

// Daemon serves the calculator over a listener
type Daemon struct {
	config    *config.Config
	logger    *log.DefaultLogger
	calc      calculator.Service
	startedAt time.Time

	served        atomic.Uint64
	divisionZeros atomic.Uint64

	mu     sync.RWMutex
	conns  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a daemon for cfg. A nil logger discards output.
func New(cfg *config.Config, logger *log.DefaultLogger) *Daemon {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config:    cfg,
		logger:    logger,
		calc:      calculator.New(),
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Done is closed once the daemon has been asked to stop
func (d *Daemon) Done() <-chan struct{} {
	return d.ctx.Done()
}

// Stop asks the daemon to shut down. Safe to call more than once.
func (d *Daemon) Stop() {
	d.cancel()
}

// Config returns the active configuration
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Serve accepts connections until ctx is cancelled or Stop is called.
// The listener is closed on return and open connections are drained.
func (d *Daemon) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		select {
		case <-ctx.Done():
			d.Stop()
		case <-d.ctx.Done():
		}
		listener.Close()
	}()

	d.logger.Info("daemon listening", "addr", listener.Addr().String(), "version", Version)

	var tempDelay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			if tempDelay == 0 {
				tempDelay = time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			d.logger.Warn("accept error", "error", err, "retry_in", tempDelay.String())
			select {
			case <-time.After(tempDelay):
				continue
			case <-d.ctx.Done():
			}
			break
		}
		tempDelay = 0

		d.conns.Add(1)
		go func() {
			defer d.conns.Done()
			d.handleConnection(conn)
		}()
	}

	d.conns.Wait()
	d.logger.Info("daemon stopped", "served", d.served.Load())
	return nil
}

// handleConnection answers commands on conn until EOF, idle timeout or stop.
// The codec is chosen from the first byte the client sends.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(idleTimeout))

	// Unblock a pending read when the daemon stops
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-d.ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-closed:
		}
	}()

	reader := bufio.NewReader(conn)
	first, err := reader.Peek(1)
	if err != nil {
		return
	}
	codec := protocol.Sniff(first[0])
	decoder := codec.NewDecoder(reader)
	encoder := codec.NewEncoder(conn)

	d.logger.Debug("connection opened", "codec", codec.Name())

	for {
		if d.ctx.Err() != nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		var cmd protocol.Command
		if err := decoder.Decode(&cmd); err != nil {
			if errors.Is(err, io.EOF) || d.ctx.Err() != nil {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return
			}
			// The stream position is unknown after a bad frame
			encoder.Encode(protocol.Response{Error: fmt.Sprintf("decode error: %v", err)})
			return
		}

		resp := d.handleCommand(cmd, codec)
		if err := encoder.Encode(resp); err != nil {
			d.logger.Warn("encode error", "error", err)
			return
		}

		if cmd.Type == protocol.TypeStop {
			d.Stop()
			return
		}
	}
}

// Handle executes a single command against the daemon
func (d *Daemon) Handle(cmd protocol.Command) protocol.Response {
	return d.handleCommand(cmd, protocol.JSON)
}

func (d *Daemon) handleCommand(cmd protocol.Command, codec protocol.Codec) protocol.Response {
	switch cmd.Type {
	case protocol.TypeStatus:
		return d.handleStatus(cmd, codec)
	case protocol.TypeAdd, protocol.TypeDivide:
		return d.handleArithmetic(cmd)
	case protocol.TypeStop:
		d.logger.Info("stop requested")
		return protocol.Response{
			ID:     cmd.ID,
			Type:   protocol.TypeStop,
			Status: &protocol.StatusInfo{Status: "stopped"},
		}
	default:
		return protocol.Response{
			ID:    cmd.ID,
			Error: fmt.Sprintf("unknown command: %s", cmd.Type),
		}
	}
}

func (d *Daemon) handleStatus(cmd protocol.Command, codec protocol.Codec) protocol.Response {
	return protocol.Response{
		ID:     cmd.ID,
		Type:   protocol.TypeStatus,
		Status: d.Status(codec.Name()),
	}
}

// Status returns the daemon's current status as seen over a connection using codecName
func (d *Daemon) Status(codecName string) *protocol.StatusInfo {
	status := "running"
	if d.ctx.Err() != nil {
		status = "stopping"
	}
	return &protocol.StatusInfo{
		Status:        status,
		Version:       Version,
		Codec:         codecName,
		StartedAt:     d.startedAt,
		Served:        d.served.Load(),
		DivisionZeros: d.divisionZeros.Load(),
	}
}

func (d *Daemon) handleArithmetic(cmd protocol.Command) protocol.Response {
	if cmd.Params == nil {
		return protocol.Response{ID: cmd.ID, Error: "params a and b are required"}
	}

	op, err := calculator.ParseOp(cmd.Type)
	if err != nil {
		return protocol.ErrorResponse(cmd.ID, err)
	}

	a, b := cmd.Params.A, cmd.Params.B
	value, err := calculator.Apply(d.calc, op, a, b)
	d.served.Add(1)
	if err != nil {
		if errors.Is(err, calculator.ErrDivisionByZero) {
			d.divisionZeros.Add(1)
		}
		d.logger.Debug("operation failed", "op", string(op), "a", a, "b", b, "error", err)
		return protocol.ErrorResponse(cmd.ID, err)
	}

	d.logger.Debug("operation", "op", string(op), "a", a, "b", b, "result", value)
	return protocol.Response{
		ID:     cmd.ID,
		Type:   cmd.Type,
		Result: &protocol.Result{Value: value},
	}
}

// ApplyConfig swaps in a new configuration and re-applies its logging settings.
// Listener settings only take effect on restart.
func (d *Daemon) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.EffectiveLogLevel())
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.config
	d.config = cfg
	d.mu.Unlock()

	d.logger.SetLevel(level)
	d.logger.SetJSONOutput(cfg.LogJSON)

	if old.SocketPath != cfg.SocketPath || old.TCPPort != cfg.TCPPort {
		d.logger.Warn("listener settings changed, restart calcd to apply",
			"socket_path", cfg.SocketPath, "tcp_port", cfg.TCPPort)
	}
	d.logger.Info("config applied", "log_level", level.String(), "log_json", cfg.LogJSON)
	return nil
}
