package injection

import (
	"context"
	"fmt"
	"time"
)

type clipboard struct {
	run      runner
	lookPath func(string) (string, error)
}

func (c clipboard) get(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := c.run(ctx, "", "wl-paste", "--no-newline")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c clipboard) set(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.run(ctx, text, "wl-copy"); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}
	return nil
}

func (c clipboard) available() error {
	for _, tool := range []string{"wl-copy", "wl-paste"} {
		if _, err := c.lookPath(tool); err != nil {
			return fmt.Errorf("%s not found: %w (install wl-clipboard)", tool, err)
		}
	}
	return nil
}
