package bus

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "hyprscribe.pid"
const ProtoVer = "0.2"

const dialTimeout = 5 * time.Second

// ~/.cache/hyprscribe
func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hyprscribe"), nil
}

// ~/.cache/hyprscribe/control.sock
func SockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

// ~/.cache/hyprscribe/hyprscribe.pid
func PidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

type socketManager struct {
	path string
}

func defaultSocketManager() (*socketManager, error) {
	p, err := SockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: p}, nil
}

func (m *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(m.path) // stale socket from last run
	return net.Listen("unix", m.path)
}

func (m *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", m.path, dialTimeout)
}

func Listen() (net.Listener, error) {
	m, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return m.listen()
}

func Dial() (net.Conn, error) {
	m, err := defaultSocketManager()
	if err != nil {
		return nil, err
	}
	return m.dial()
}

// SendCommand sends a one-byte command and returns the daemon's full reply.
func SendCommand(cmd byte) (string, error) {
	c, err := Dial()
	if err != nil {
		return "", err
	}
	return exchange(c, cmd)
}

func exchange(c net.Conn, cmd byte) (string, error) {
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(dialTimeout))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	// The daemon closes the connection after replying.
	resp, err := io.ReadAll(c)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

type pidManager struct {
	path string
}

func defaultPidManager() (*pidManager, error) {
	p, err := PidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

func (m *pidManager) checkExisting() error {
	pidData, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // no existing daemon
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || pid <= 0 || !m.isProcessAlive(pid) {
		// invalid or stale pid file
		_ = os.Remove(m.path)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (m *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (m *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(m.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (m *pidManager) remove() error {
	err := os.Remove(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func CheckExistingDaemon() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.checkExisting()
}

func CreatePidFile() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.create()
}

func RemovePidFile() error {
	m, err := defaultPidManager()
	if err != nil {
		return err
	}
	return m.remove()
}
