// Package executor runs a single command string through the configured
// shell, capturing output as it is produced and reporting a structured
// result. Non-zero exits, timeouts and cancellation are result data;
// only launch failures are errors.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/runenv"
)

// ExecutionError means the process could not be launched at all
// (command not found, missing working directory, permission denied).
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Request describes one command to run.
type Request struct {
	Command string
	Dir     string

	// Env is the full child environment. nil inherits the grader's own.
	Env runenv.Env

	// Stdin, when non-nil, is written to the process and the pipe is
	// closed. nil leaves the process without standard input.
	Stdin *string

	// Detach starts the process and returns immediately; the result
	// carries a handle ID for later polling.
	Detach bool

	// Passthrough connects the process straight to the grader's
	// terminal; nothing is captured.
	Passthrough bool
}

// Executor interprets command strings through a shell template and
// tracks detached processes in a handle registry.
type Executor struct {
	Shell   ShellConfig
	Timeout time.Duration // zero means no timeout

	// Live, when set, receives captured output as it is produced, so
	// the calling layer can show the command running.
	Live io.Writer

	logger  *slog.Logger
	handles *Registry
}

func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger:  logger,
		handles: NewRegistry(),
	}
}

// Handles exposes the detached-process registry so callers can poll or
// wait on background commands after their step has logically finished.
func (x *Executor) Handles() *Registry { return x.handles }

// Execute runs one command. The returned error is always an
// *ExecutionError; everything that happens after a successful launch
// is reported inside the CommandResult.
func (x *Executor) Execute(ctx context.Context, req Request) (*api.CommandResult, error) {
	if req.Passthrough {
		return x.executePassthrough(ctx, req)
	}

	argv := x.Shell.Argv(req.Command)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = req.Dir
	if req.Env != nil {
		cmd.Env = req.Env.Slice()
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newOutputBuffer(x.Live)
	stderr := newOutputBuffer(x.Live)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ExecutionError{Command: req.Command, Err: err}
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ExecutionError{Command: req.Command, Err: err}
	}
	var stdinPipe io.WriteCloser
	if req.Stdin != nil {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, &ExecutionError{Command: req.Command, Err: err}
		}
	}

	x.logger.Debug("starting command",
		slog.String("command", req.Command), slog.String("dir", req.Dir))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExecutionError{Command: req.Command, Err: err}
	}

	// The pumps drain the pipes as the child writes, so a child that
	// produces more output than the pipe buffer never deadlocks.
	pumps := &errgroup.Group{}
	pumps.Go(func() error {
		_, err := io.Copy(stdout, outPipe)
		return err
	})
	pumps.Go(func() error {
		_, err := io.Copy(stderr, errPipe)
		return err
	})

	if stdinPipe != nil {
		stdin := *req.Stdin
		go func() {
			// A child that exits without reading its input breaks the
			// pipe; that is its prerogative.
			_, _ = io.WriteString(stdinPipe, stdin)
			_ = stdinPipe.Close()
		}()
	}

	if req.Detach {
		h := newHandle(req, cmd, stdout, stderr, pumps, start)
		x.handles.add(h)
		go h.run()
		x.logger.Debug("command detached", slog.String("handle", h.ID))
		return &api.CommandResult{
			Status:   api.StatusRunning,
			Detached: true,
			HandleID: h.ID,
		}, nil
	}

	waitCh := make(chan error, 1)
	go func() {
		_ = pumps.Wait()
		waitCh <- cmd.Wait()
	}()

	status := x.await(ctx, cmd, waitCh)
	res := &api.CommandResult{
		Status:   status,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		WallMs:   time.Since(start).Milliseconds(),
	}
	x.logger.Debug("command finished",
		slog.String("command", req.Command),
		slog.String("status", string(status)),
		slog.Int("exit", res.ExitCode))
	return res, nil
}

func (x *Executor) executePassthrough(ctx context.Context, req Request) (*api.CommandResult, error) {
	argv := x.Shell.Argv(req.Command)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = req.Dir
	if req.Env != nil {
		cmd.Env = req.Env.Slice()
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExecutionError{Command: req.Command, Err: err}
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	status := x.await(ctx, cmd, waitCh)
	return &api.CommandResult{
		Status:   status,
		ExitCode: cmd.ProcessState.ExitCode(),
		WallMs:   time.Since(start).Milliseconds(),
	}, nil
}

// await blocks until the process exits, the timeout fires, or ctx is
// cancelled. On timeout or cancellation the whole process group is
// terminated and the wait is still collected, so the child is reaped.
func (x *Executor) await(ctx context.Context, cmd *exec.Cmd, waitCh <-chan error) api.ResultStatus {
	var timer <-chan time.Time
	if x.Timeout > 0 {
		t := time.NewTimer(x.Timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-waitCh:
		return api.StatusDone
	case <-timer:
		x.logger.Warn("command timed out", slog.Duration("timeout", x.Timeout))
		terminate(cmd, waitCh)
		return api.StatusTimedOut
	case <-ctx.Done():
		x.logger.Info("command cancelled")
		terminate(cmd, waitCh)
		return api.StatusCancelled
	}
}

const killGrace = 2 * time.Second

// terminate stops the process group: SIGTERM first, then SIGKILL if it
// does not go quietly. Returns once the process has been reaped.
func terminate(cmd *exec.Cmd, waitCh <-chan error) {
	pgid, pgErr := syscall.Getpgid(cmd.Process.Pid)
	kill := func(sig syscall.Signal) {
		if pgErr == nil {
			_ = syscall.Kill(-pgid, sig)
		} else {
			_ = cmd.Process.Signal(sig)
		}
	}

	kill(syscall.SIGTERM)
	select {
	case <-waitCh:
	case <-time.After(killGrace):
		kill(syscall.SIGKILL)
		<-waitCh
	}
}
