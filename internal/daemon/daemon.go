package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/leonardotrapani/hyprscribe/internal/bus"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/notify"
	"github.com/leonardotrapani/hyprscribe/internal/recording"
	"github.com/leonardotrapani/hyprscribe/internal/session"
)

type Daemon struct {
	manager *config.Manager
	ctrl    *session.Controller
	version string
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a daemon whose sessions use the manager's current configuration.
func New(manager *config.Manager, version string) *Daemon {
	cfg := ConfigFunc(manager.GetConfig)
	return newDaemon(manager, version, Source(cfg), Connector(cfg))
}

func newDaemon(manager *config.Manager, version string, source recording.Source, connector session.Connector) *Daemon {
	cfg := manager.GetConfig()
	opts := cfg.ToSessionOptions()
	ctx, cancel := context.WithCancel(context.Background())

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notifications.Enabled {
		notifier = notify.New(cfg.Notifications.Type)
		opts.Observers = append(opts.Observers, notify.NewObserver(notifier))
	}
	if cfg.Output.Mode != injection.ModeNone {
		inj := injection.New(cfg.ToInjectionConfig())
		opts.Observers = append(opts.Observers, injection.NewObserver(ctx, inj, func(err error) {
			notifier.Error("Could not deliver transcript: " + err.Error())
		}))
	}

	return &Daemon{
		manager: manager,
		ctrl:    session.New(source, connector, opts),
		version: version,
		logger:  log.Default().WithPrefix("daemon"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Daemon) Run() error {
	defer d.cancel()

	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Infof("received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go d.ctrl.Run(d.ctx)
	defer d.ctrl.Close()

	d.manager.OnReload(func(c *config.Config) {
		log.SetLevel(c.LogLevel())
	})
	if err := d.manager.StartWatching(d.ctx); err != nil {
		d.logger.Warnf("config hot reload disabled: %v", err)
	}
	defer d.manager.Stop()

	if addr := d.manager.GetConfig().Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(d.ctx, addr); err != nil {
				d.logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.logger.Infof("daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.logger.Infof("shutdown requested")
				return nil
			}
			d.logger.Errorf("accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.logger.Debugf("client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	fmt.Fprint(c, d.command(line[0]))
}

// command executes one socket command and returns the reply.
func (d *Daemon) command(cmd byte) string {
	switch cmd {
	case 't':
		return statusLine(d.ctrl.Toggle())
	case 'r':
		return statusLine(d.ctrl.Start())
	case 'x':
		return statusLine(d.ctrl.Stop())
	case 's':
		return statusLine(d.ctrl.Snapshot())
	case 'p':
		snap := d.ctrl.Snapshot()
		return fmt.Sprintf("TRANSCRIPT segments=%d\n%s\n", len(snap.Transcript), strings.Join(snap.Transcript, " "))
	case 'v':
		return fmt.Sprintf("STATUS proto=%s version=%s\n", bus.ProtoVer, d.version)
	case 'q':
		d.cancel()
		return "OK quitting\n"
	default:
		d.logger.Warnf("unknown command: %q", cmd)
		return fmt.Sprintf("ERR unknown=%q\n", cmd)
	}
}

func statusLine(s session.Snapshot) string {
	lastError := string(s.LastError)
	if lastError == "" {
		lastError = "none"
	}
	line := fmt.Sprintf("STATUS state=%s segments=%d error=%s", s.State, len(s.Transcript), lastError)
	if s.LastError != session.NoError {
		line += "\nHINT " + s.LastError.Remediation()
	}
	return line + "\n"
}
