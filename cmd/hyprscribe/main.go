package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/hyprscribe/internal/bus"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/daemon"
	"github.com/leonardotrapani/hyprscribe/internal/deps"
	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
	"github.com/leonardotrapani/hyprscribe/internal/tui"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	debug      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hyprscribe",
		Short: "Live speech-to-text for Wayland/Hyprland",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/hyprscribe/config.toml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		serveCmd(),
		clientCmd("toggle", "Start or stop a recording session", 't'),
		clientCmd("start", "Start a recording session", 'r'),
		clientCmd("stop", "Stop the current recording session", 'x'),
		clientCmd("status", "Show session state and last error", 's'),
		clientCmd("transcript", "Print the transcript of the latest session", 'p'),
		clientCmd("quit", "Stop the daemon", 'q'),
		versionCmd(),
		recordCmd(),
		configureCmd(),
		doctorCmd(),
	)
	return root
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !debug {
				log.SetLevel(manager.GetConfig().LogLevel())
			}
			if err := manager.GetConfig().RequireAPIKey(); err != nil {
				log.Warnf("%v; sessions will fail until it is set", err)
			}
			for _, t := range deps.MissingRequired(deps.CheckAll()) {
				log.Warnf("%s not found (%s); %s", t.Name, t.Purpose, t.InstallHint)
			}
			return daemon.New(manager, version).Run()
		},
	}
}

// clientCmd sends a single command to the running daemon and prints its reply.
func clientCmd(use, short string, c byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to reach daemon (is `hyprscribe serve` running?): %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and daemon versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "hyprscribe %s (protocol %s)\n", version, bus.ProtoVer)
			resp, err := bus.SendCommand('v')
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "daemon: not running")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), "daemon: "+resp)
			return nil
		},
	}
}

func recordCmd() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record and transcribe in the foreground until Ctrl-C",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
			if !debug {
				log.SetLevel(cfg.LogLevel())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			p := newPrinter(cmd.OutOrStdout())
			observers := []session.Observer{p}
			if cfg.Output.Mode != injection.ModeNone {
				inj := injection.New(cfg.ToInjectionConfig())
				observers = append(observers, injection.NewObserver(context.Background(), inj, func(err error) {
					log.Errorf("could not deliver transcript: %v", err)
				}))
			}
			ctrl := daemon.NewController(func() *config.Config { return cfg }, observers...)
			return record(ctx, ctrl, p)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "stop automatically after this long")
	return cmd
}

// record runs one session until ctx ends or the session stops on its own.
func record(ctx context.Context, ctrl *session.Controller, p *printer) error {
	go ctrl.Run(context.Background())
	defer ctrl.Close()

	ctrl.Start()
	select {
	case <-ctx.Done():
		ctrl.Stop()
		<-p.finished
	case <-p.finished:
	}

	snap := ctrl.Snapshot()
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, tui.RenderTranscript(snap.Transcript))
	if snap.LastError != session.NoError {
		return errors.New(snap.Err)
	}
	return nil
}

// printer echoes session progress to the terminal.
type printer struct {
	out      io.Writer
	finished chan struct{}
	once     sync.Once
	active   bool
	last     session.State
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, finished: make(chan struct{}), last: session.Idle}
}

func (p *printer) StateChanged(s session.Snapshot) {
	if s.State != p.last || s.LastError != session.NoError {
		fmt.Fprintln(p.out, tui.RenderState(s))
	}
	p.last = s.State
	if s.State != session.Idle {
		p.active = true
		return
	}
	if p.active {
		p.once.Do(func() { close(p.finished) })
	}
}

func (p *printer) SegmentAppended(seg transcript.Segment) {
	fmt.Fprintln(p.out, tui.RenderSegment(seg))
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			result, err := tui.Configure(cfg)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if result.Cancelled {
				fmt.Println("Configuration cancelled.")
				return nil
			}

			if err := config.Save(result.Config, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Println()
			fmt.Println(tui.StyleSuccess.Render("Configuration saved to " + path))
			showNextSteps(result.Config)
			return nil
		},
	}
}

func showNextSteps(cfg *config.Config) {
	fmt.Println()
	fmt.Println("Next Steps:")
	step := 1
	if cfg.RequireAPIKey() != nil {
		fmt.Printf("%d. Export your key: export DEEPGRAM_API_KEY=...\n", step)
		step++
	}
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "hyprscribe.service").Run(); err != nil {
		fmt.Printf("%d. Start the daemon: hyprscribe serve (or systemctl --user start hyprscribe.service)\n", step)
	} else {
		fmt.Printf("%d. A running daemon picks up the new settings on its next session\n", step)
	}
	step++
	fmt.Printf("%d. Bind a key to: hyprscribe toggle\n", step)
	fmt.Println(tui.StyleMuted.Render("   e.g. bind = SUPER, R, exec, hyprscribe toggle"))
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			statuses := deps.CheckAll()
			for _, s := range statuses {
				fmt.Fprintln(out, toolLine(s))
			}

			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(out, tui.StyleError.Render("✗ config: "+err.Error()))
			} else {
				fmt.Fprintln(out, tui.StyleSuccess.Render("✓ config: "+path))
			}
			if err := cfg.RequireAPIKey(); err != nil {
				fmt.Fprintln(out, tui.StyleError.Render("✗ api key: ")+tui.StyleMuted.Render(err.Error()))
			} else {
				fmt.Fprintln(out, tui.StyleSuccess.Render("✓ api key"))
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required tool(s) missing", len(missing))
			}
			return nil
		},
	}
}

func toolLine(s deps.Status) string {
	if s.Installed {
		line := tui.StyleSuccess.Render("✓ "+s.Tool.Name) + tui.StyleMuted.Render(" "+s.Path)
		if s.Version != "" {
			line += tui.StyleMuted.Render(" (" + s.Version + ")")
		}
		return line
	}
	if s.Tool.Required {
		return tui.StyleError.Render("✗ "+s.Tool.Name) + tui.StyleMuted.Render(" needed for "+s.Tool.Purpose+": "+s.Tool.InstallHint)
	}
	return tui.StyleWarning.Render("! "+s.Tool.Name) + tui.StyleMuted.Render(" optional, for "+s.Tool.Purpose+": "+s.Tool.InstallHint)
}
