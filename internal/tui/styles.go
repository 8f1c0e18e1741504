package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/transcript"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	StyleSegment = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

const logoASCII = `
 _                                   _ _
| |__  _   _ _ __  _ __ ___  ___ _ __(_) |__   ___
| '_ \| | | | '_ \| '__/ __|/ __| '__| | '_ \ / _ \
| | | | |_| | |_) | |  \__ \ (__| |  | | |_) |  __/
|_| |_|\__, | .__/|_|  |___/\___|_|  |_|_.__/ \___|
       |___/|_|`

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// RenderState is the one-line status shown while recording in the foreground.
func RenderState(s session.Snapshot) string {
	switch s.State {
	case session.Connecting:
		return StyleWarning.Render("● connecting…")
	case session.Recording:
		return StyleSuccess.Render("● recording") + StyleMuted.Render("  (Ctrl-C to stop)")
	case session.Stopping:
		return StyleMuted.Render("● finishing…")
	}
	if s.LastError != session.NoError {
		return RenderError(s.LastError)
	}
	return StyleMuted.Render("● stopped")
}

func RenderError(kind session.ErrorKind) string {
	return StyleError.Render("✗ "+kind.Remediation()) + StyleMuted.Render(fmt.Sprintf(" (%s)", kind))
}

func RenderSegment(seg transcript.Segment) string {
	return StyleSegment.Render(seg.Text)
}

// RenderTranscript boxes the final transcript, or notes that nothing was heard.
func RenderTranscript(texts []string) string {
	if len(texts) == 0 {
		return StyleMuted.Render("No speech was transcribed.")
	}
	return StyleBox.Render(strings.Join(texts, " "))
}
