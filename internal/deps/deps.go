package deps

import (
	"os/exec"
	"strings"
)

// Tool is an external program hyprscribe shells out to.
type Tool struct {
	Name        string
	VersionArg  string
	Required    bool
	Purpose     string
	InstallHint string
}

// Status represents the installation status of a tool
type Status struct {
	Tool      Tool
	Installed bool
	Path      string
	Version   string
}

var Tools = []Tool{
	{Name: "pw-record", VersionArg: "--version", Required: true, Purpose: "microphone capture", InstallHint: "install pipewire (pipewire-tools on some distros)"},
	{Name: "notify-send", VersionArg: "--version", Purpose: "desktop notifications", InstallHint: "install libnotify"},
	{Name: "wl-copy", VersionArg: "--version", Purpose: "clipboard output", InstallHint: "install wl-clipboard"},
	{Name: "wtype", Purpose: "typed output", InstallHint: "install wtype"},
	{Name: "ydotool", Purpose: "typed output without virtual-keyboard support", InstallHint: "install ydotool and start ydotoold"},
}

type checker struct {
	lookPath func(string) (string, error)
	output   func(name string, args ...string) ([]byte, error)
}

var system = checker{
	lookPath: exec.LookPath,
	output: func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	},
}

func (c checker) check(t Tool) Status {
	path, err := c.lookPath(t.Name)
	if err != nil {
		return Status{Tool: t}
	}

	status := Status{Tool: t, Installed: true, Path: path}
	if t.VersionArg == "" {
		return status
	}
	// first line of the version output
	if out, err := c.output(path, t.VersionArg); err == nil {
		line, _, _ := strings.Cut(string(out), "\n")
		status.Version = strings.TrimSpace(line)
	}
	return status
}

// Check reports the status of a single tool.
func Check(t Tool) Status {
	return system.check(t)
}

// CheckAll reports every known tool, in order.
func CheckAll() []Status {
	out := make([]Status, len(Tools))
	for i, t := range Tools {
		out[i] = Check(t)
	}
	return out
}

// MissingRequired returns the required tools that are not installed.
func MissingRequired(statuses []Status) []Tool {
	var missing []Tool
	for _, s := range statuses {
		if s.Tool.Required && !s.Installed {
			missing = append(missing, s.Tool)
		}
	}
	return missing
}
