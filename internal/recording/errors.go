package recording

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// Acquisition failures are distinguishable so callers can offer distinct remediation.
var (
	ErrPermissionDenied = errors.New("microphone access denied")
	ErrDeviceNotFound   = errors.New("no capture device found")
	ErrCaptureFailed    = errors.New("audio capture failed")
)

var (
	permissionHints = []string{"permission denied", "access denied", "not allowed", "operation not permitted"}
	notFoundHints   = []string{"no such", "not found", "can't find", "cannot find", "unknown target", "no target"}
)

// classify maps a recorder failure and its stderr output onto one of the sentinel errors.
func classify(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" && err != nil {
		detail = err.Error()
	}

	switch {
	case err != nil && errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
	case err != nil && errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, detail)
	}

	lower := strings.ToLower(stderr)
	for _, h := range permissionHints {
		if strings.Contains(lower, h) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
		}
	}
	for _, h := range notFoundHints {
		if strings.Contains(lower, h) {
			return fmt.Errorf("%w: %s", ErrDeviceNotFound, detail)
		}
	}

	if detail == "" {
		detail = "recorder exited"
	}
	return fmt.Errorf("%w: %s", ErrCaptureFailed, detail)
}
