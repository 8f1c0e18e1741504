package injection

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	ModeNone      = "none"
	ModeClipboard = "clipboard"
	ModeType      = "type"
	ModeFallback  = "fallback" // type, leaving the text on the clipboard if typing fails
)

// Config for delivering a finished transcript
type Config struct {
	Mode             string
	RestoreClipboard bool
	Timeout          time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:             ModeNone,
		RestoreClipboard: true,
		Timeout:          5 * time.Second,
	}
}

// Backend types text into the focused window.
type Backend interface {
	Name() string
	Available() error
	Type(ctx context.Context, text string) error
}

// runner executes a command, feeding stdin when non-empty, and returns stdout.
type runner func(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.Output()
}

type Injector struct {
	config    Config
	clipboard clipboard
	backends  []Backend
	logger    *log.Logger
}

func New(config Config) *Injector {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Injector{
		config:    config,
		clipboard: clipboard{run: execRunner, lookPath: exec.LookPath},
		backends:  []Backend{newWtype(execRunner), newYdotool(execRunner)},
		logger:    log.Default().WithPrefix("injection"),
	}
}

// Inject delivers text according to the configured mode.
func (i *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("cannot inject empty text")
	}

	switch i.config.Mode {
	case ModeNone:
		return nil
	case ModeClipboard:
		return i.copy(ctx, text)
	case ModeType:
		return i.typeText(ctx, text)
	case ModeFallback:
		var original string
		if i.config.RestoreClipboard {
			original, _ = i.clipboard.get(ctx, i.config.Timeout)
		}
		if err := i.copy(ctx, text); err != nil {
			return err
		}
		if err := i.typeText(ctx, text); err != nil {
			i.logger.Warnf("typing failed, transcript left on clipboard: %v", err)
			return nil
		}
		if original != "" {
			i.restore(original)
		}
		return nil
	default:
		return fmt.Errorf("unsupported injection mode: %s", i.config.Mode)
	}
}

func (i *Injector) copy(ctx context.Context, text string) error {
	if err := i.clipboard.available(); err != nil {
		return fmt.Errorf("clipboard tools not available: %w", err)
	}
	if err := i.clipboard.set(ctx, text, i.config.Timeout); err != nil {
		return fmt.Errorf("failed to copy text to clipboard: %w", err)
	}
	return nil
}

// typeText uses the first available backend.
func (i *Injector) typeText(ctx context.Context, text string) error {
	var errs []error
	for _, b := range i.backends {
		if err := b.Available(); err != nil {
			errs = append(errs, err)
			continue
		}
		tctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
		err := b.Type(tctx, text)
		cancel()
		if err == nil {
			i.logger.Debugf("typed %d bytes with %s", len(text), b.Name())
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return fmt.Errorf("no typing backend succeeded: %w", errors.Join(errs...))
}

// restore puts the previous clipboard back once the typed text has landed.
func (i *Injector) restore(original string) {
	go func() {
		time.Sleep(100 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), i.config.Timeout)
		defer cancel()
		if err := i.clipboard.set(ctx, original, i.config.Timeout); err != nil {
			i.logger.Debugf("clipboard restore failed: %v", err)
		}
	}()
}
