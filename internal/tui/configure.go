package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/injection"
	"github.com/leonardotrapani/hyprscribe/internal/language"
)

type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

var models = []string{"nova-3", "nova-2", "enhanced", "base"}

// formValues holds the editable settings as the form sees them.
type formValues struct {
	device         string
	model          string
	language       string
	keywords       string
	interim        bool
	smartFormat    bool
	drainTimeout   string
	connectTimeout string
	outputMode     string
	notifyEnabled  bool
	notifyType     string
	logLevel       string
}

func valuesFrom(cfg *config.Config) formValues {
	return formValues{
		device:         cfg.Recording.Device,
		model:          cfg.Transcription.Model,
		language:       cfg.Transcription.Language,
		keywords:       strings.Join(cfg.Transcription.Keywords, ", "),
		interim:        cfg.Transcription.InterimResults,
		smartFormat:    cfg.Transcription.SmartFormat,
		drainTimeout:   cfg.Transcription.DrainTimeout.String(),
		connectTimeout: cfg.Transcription.ConnectTimeout.String(),
		outputMode:     cfg.Output.Mode,
		notifyEnabled:  cfg.Notifications.Enabled,
		notifyType:     cfg.Notifications.Type,
		logLevel:       cfg.Log.Level,
	}
}

// apply returns a copy of base with the form values applied.
func (v formValues) apply(base *config.Config) (*config.Config, error) {
	cfg := *base

	drain, err := time.ParseDuration(strings.TrimSpace(v.drainTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid drain timeout: %w", err)
	}
	connect, err := time.ParseDuration(strings.TrimSpace(v.connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid connect timeout: %w", err)
	}

	cfg.Recording.Device = strings.TrimSpace(v.device)
	cfg.Transcription.Model = v.model
	cfg.Transcription.Language = strings.TrimSpace(v.language)
	cfg.Transcription.Keywords = splitKeywords(v.keywords)
	cfg.Transcription.InterimResults = v.interim
	cfg.Transcription.SmartFormat = v.smartFormat
	cfg.Transcription.DrainTimeout = drain
	cfg.Transcription.ConnectTimeout = connect
	cfg.Output.Mode = v.outputMode
	cfg.Notifications.Enabled = v.notifyEnabled
	cfg.Notifications.Type = v.notifyType
	cfg.Log.Level = v.logLevel

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// languageOptions lists the known languages, keeping current selectable
// when it is a regional tag without its own entry.
func languageOptions(current string) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(language.Default.Name, language.Default.Code)}
	found := current == language.Default.Code
	for _, l := range language.List() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", l.Name, l.Code), l.Code))
		found = found || l.Code == current
	}
	if !found {
		opts = append(opts, huh.NewOption(language.Label(current), current))
	}
	return opts
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func validDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.New("use a duration like 0s, 500ms or 2s")
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func clearScreen() {
	termenv.NewOutput(os.Stdout).ClearScreen()
}

// Configure shows the settings form prefilled from cfg.
func Configure(cfg *config.Config) (*ConfigureResult, error) {
	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	v := valuesFrom(cfg)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Microphone").
				Description("PipeWire target; leave empty for the default source").
				Value(&v.device),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(huh.NewOptions(models...)...).
				Value(&v.model),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions(v.language)...).
				Value(&v.language),
			huh.NewInput().
				Title("Keywords").
				Description("Comma separated terms to boost").
				Value(&v.keywords),
			huh.NewConfirm().
				Title("Show interim results?").
				Value(&v.interim),
			huh.NewConfirm().
				Title("Smart formatting?").
				Value(&v.smartFormat),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Drain timeout").
				Description("How long to wait for trailing results after stop (0s closes immediately)").
				Value(&v.drainTimeout).
				Validate(validDuration),
			huh.NewInput().
				Title("Connect timeout").
				Description("0s waits as long as the dialer allows").
				Value(&v.connectTimeout).
				Validate(validDuration),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("When a recording ends").
				Options(
					huh.NewOption("Keep it in the daemon only", injection.ModeNone),
					huh.NewOption("Copy to clipboard", injection.ModeClipboard),
					huh.NewOption("Type into the focused window", injection.ModeType),
					huh.NewOption("Type, falling back to clipboard", injection.ModeFallback),
				).
				Value(&v.outputMode),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&v.notifyEnabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&v.notifyType),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&v.logLevel),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return &ConfigureResult{Cancelled: true}, nil
		}
		return nil, err
	}

	updated, err := v.apply(cfg)
	if err != nil {
		return nil, err
	}
	return &ConfigureResult{Config: updated}, nil
}
