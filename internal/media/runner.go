package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// CommandResult is what a finished transcoder run produced.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// CommandRunner runs an external program to completion. A non-zero exit is
// reported through CommandResult.ExitCode with a nil error; the error is
// reserved for runs that could not start or were killed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (CommandResult, error)
}

// OSRunner runs commands as child processes.
type OSRunner struct {
	// Timeout bounds each run; zero means no limit beyond ctx.
	Timeout time.Duration
}

var _ CommandRunner = OSRunner{}

// Run starts name in its own process group so the whole tree can be killed
// when ctx is done or the timeout fires.
func (r OSRunner) Run(ctx context.Context, name string, args []string) (CommandResult, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return CommandResult{ExitCode: -1}, err
	}

	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return CommandResult{ExitCode: -1}, fmt.Errorf("media: failed to start %s: %w", name, err)
	}

	var mu sync.Mutex
	var killed bool
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		killed = true
		mu.Unlock()
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	})

	err := cmd.Wait()
	stop()

	res := CommandResult{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}

	mu.Lock()
	wasKilled := killed
	mu.Unlock()
	if wasKilled {
		return res, fmt.Errorf("media: %s killed: %w", name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, nil
	}
	return res, fmt.Errorf("media: %s failed: %w", name, err)
}
