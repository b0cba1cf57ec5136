// Package worker drives the external marketplace scripts: the posting script
// that places one ad and the scraper that reads ad statistics.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

var ErrTimeout = errors.New("worker timed out")

// ScriptRunner runs one script with an interpreter under a timeout.
type ScriptRunner struct {
	Cmd     string
	Script  string
	Timeout time.Duration
}

// Run executes the script with args and extra KEY=VALUE env entries and
// returns combined stdout and stderr. A non-zero exit is returned as an error
// alongside the output.
func (r ScriptRunner) Run(ctx context.Context, env []string, args ...string) (string, error) {
	if _, err := os.Stat(r.Script); err != nil {
		return "", fmt.Errorf("script not found at %s", r.Script)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, r.Cmd, append([]string{r.Script}, args...)...)
	cmd.Dir = filepath.Dir(r.Script)
	cmd.Env = append(append(os.Environ(), "PYTHONUNBUFFERED=1"), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out.String(), fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
	}
	return out.String(), err
}
