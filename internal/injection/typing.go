package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

type wtype struct {
	run      runner
	lookPath func(string) (string, error)
}

func newWtype(run runner) Backend {
	return &wtype{run: run, lookPath: exec.LookPath}
}

func (w *wtype) Name() string { return "wtype" }

func (w *wtype) Available() error {
	if _, err := w.lookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	return nil
}

func (w *wtype) Type(ctx context.Context, text string) error {
	_, err := w.run(ctx, "", "wtype", text)
	return err
}

type ydotool struct {
	run      runner
	lookPath func(string) (string, error)
	socket   func() string
}

func newYdotool(run runner) Backend {
	return &ydotool{run: run, lookPath: exec.LookPath, socket: ydotoolSocket}
}

func (y *ydotool) Name() string { return "ydotool" }

func (y *ydotool) Available() error {
	if _, err := y.lookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}

	path := y.socket()
	if path == "" {
		return fmt.Errorf("ydotoold socket not found - ensure ydotoold is running")
	}
	// ydotoold v1.0.4+ uses SOCK_DGRAM sockets; older versions use stream.
	conn, err := net.Dial("unixgram", path)
	if err != nil {
		conn, err = net.DialTimeout("unix", path, 500*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ydotoold not responding at %s: %w", path, err)
	}
	return conn.Close()
}

func (y *ydotool) Type(ctx context.Context, text string) error {
	_, err := y.run(ctx, "", "ydotool", "type", "--", text)
	return err
}

func ydotoolSocket() string {
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}

	var paths []string
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ".ydotool_socket"))
	}
	paths = append(paths,
		fmt.Sprintf("/run/user/%d/.ydotool_socket", os.Getuid()),
		"/tmp/.ydotool_socket",
	)

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
