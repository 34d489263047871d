package executor

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/jhartz/gradefast/api"
)

// Handle tracks a detached command. It outlives the traversal step
// that started it; the session can poll it, wait on it, or kill it,
// and its output stays attributable to the originating command.
type Handle struct {
	ID      string
	Command string
	Dir     string

	cmd    *exec.Cmd
	stdout *outputBuffer
	stderr *outputBuffer
	pumps  *errgroup.Group
	start  time.Time

	done  chan struct{}
	mu    sync.Mutex
	final *api.CommandResult
}

func newHandle(req Request, cmd *exec.Cmd, stdout, stderr *outputBuffer,
	pumps *errgroup.Group, start time.Time) *Handle {

	return &Handle{
		ID:      uuid.NewString(),
		Command: req.Command,
		Dir:     req.Dir,
		cmd:     cmd,
		stdout:  stdout,
		stderr:  stderr,
		pumps:   pumps,
		start:   start,
		done:    make(chan struct{}),
	}
}

// run reaps the process in the background. Called exactly once, by the
// executor that created the handle.
func (h *Handle) run() {
	_ = h.pumps.Wait()
	_ = h.cmd.Wait()

	h.mu.Lock()
	h.final = &api.CommandResult{
		Status:   api.StatusDone,
		ExitCode: h.cmd.ProcessState.ExitCode(),
		Stdout:   h.stdout.String(),
		Stderr:   h.stderr.String(),
		WallMs:   time.Since(h.start).Milliseconds(),
		Detached: true,
		HandleID: h.ID,
	}
	h.mu.Unlock()
	close(h.done)
}

// Running reports whether the process has exited yet.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Poll returns the final result if the command has exited, or a
// snapshot (status "running", output captured so far) if it has not.
// The boolean reports whether the result is final.
func (h *Handle) Poll() (*api.CommandResult, bool) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.final, true
	default:
		return &api.CommandResult{
			Status:   api.StatusRunning,
			Stdout:   h.stdout.String(),
			Stderr:   h.stderr.String(),
			WallMs:   time.Since(h.start).Milliseconds(),
			Detached: true,
			HandleID: h.ID,
		}, false
	}
}

// Wait blocks until the command exits or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) (*api.CommandResult, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.final, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Kill terminates the command's process group if it is still running,
// then waits for the handle to settle.
func (h *Handle) Kill() *api.CommandResult {
	if h.Running() {
		pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
		if err == nil {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			_ = h.cmd.Process.Kill()
		}
	}
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.final
}

// Registry holds handles for every detached command started during a
// grading session. Safe for concurrent use: the walker adds handles
// while the UI layer polls them.
type Registry struct {
	m *xsync.MapOf[string, *Handle]
}

func NewRegistry() *Registry {
	return &Registry{m: xsync.NewMapOf[string, *Handle]()}
}

func (r *Registry) add(h *Handle) { r.m.Store(h.ID, h) }

func (r *Registry) Get(id string) (*Handle, bool) { return r.m.Load(id) }

// All returns the registered handles in no particular order.
func (r *Registry) All() []*Handle {
	var out []*Handle
	r.m.Range(func(_ string, h *Handle) bool {
		out = append(out, h)
		return true
	})
	return out
}

// WaitAll blocks until every detached command has exited or ctx is
// cancelled. Used at the end of a grading session.
func (r *Registry) WaitAll(ctx context.Context) error {
	for _, h := range r.All() {
		if _, err := h.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
