package executor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/runenv"
)

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	return executor.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecuteCapturesOutput(t *testing.T) {
	x := newExecutor(t)

	res, err := x.Execute(context.Background(), executor.Request{
		Command: "echo hi",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusDone, res.Status)
	require.Equal(t, 0, res.ExitCode)
	require.Equal(t, "hi\n", res.Stdout)
	require.Empty(t, res.Stderr)
}

func TestExecuteReportsNonZeroExit(t *testing.T) {
	x := newExecutor(t)

	res, err := x.Execute(context.Background(), executor.Request{
		Command: "echo oops >&2; exit 3",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusDone, res.Status)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "oops\n", res.Stderr)
}

func TestExecuteFeedsStdin(t *testing.T) {
	x := newExecutor(t)
	input := "line one\nline two\n"

	res, err := x.Execute(context.Background(), executor.Request{
		Command: "cat",
		Dir:     t.TempDir(),
		Stdin:   &input,
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusDone, res.Status)
	require.Equal(t, input, res.Stdout)
}

func TestExecutePassesEnvironment(t *testing.T) {
	x := newExecutor(t)

	res, err := x.Execute(context.Background(), executor.Request{
		Command: `echo "$GREETING"`,
		Dir:     t.TempDir(),
		Env:     runenv.Env{"GREETING": "hello"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello\n", res.Stdout)
}

func TestExecuteTimesOut(t *testing.T) {
	x := newExecutor(t)
	x.Timeout = 100 * time.Millisecond

	start := time.Now()
	res, err := x.Execute(context.Background(), executor.Request{
		Command: "sleep 30",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusTimedOut, res.Status)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestExecuteCancelled(t *testing.T) {
	x := newExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := x.Execute(ctx, executor.Request{
		Command: "sleep 30",
		Dir:     t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusCancelled, res.Status)
}

func TestExecuteLaunchFailure(t *testing.T) {
	x := newExecutor(t)

	_, err := x.Execute(context.Background(), executor.Request{
		Command: "echo hi",
		Dir:     "/does/not/exist",
	})
	var xe *executor.ExecutionError
	require.ErrorAs(t, err, &xe)
	require.Equal(t, "echo hi", xe.Command)
}

func TestExecuteDetached(t *testing.T) {
	x := newExecutor(t)

	res, err := x.Execute(context.Background(), executor.Request{
		Command: "sleep 0.2; echo from-background",
		Dir:     t.TempDir(),
		Detach:  true,
	})
	require.NoError(t, err)
	require.Equal(t, api.StatusRunning, res.Status)
	require.True(t, res.Detached)
	require.NotEmpty(t, res.HandleID)

	h, ok := x.Handles().Get(res.HandleID)
	require.True(t, ok)

	// the partial snapshot before completion is still well-formed
	partial, done := h.Poll()
	if !done {
		require.Equal(t, api.StatusRunning, partial.Status)
	}

	final, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, api.StatusDone, final.Status)
	require.Equal(t, "from-background\n", final.Stdout)
}

func TestKillDetached(t *testing.T) {
	x := newExecutor(t)

	res, err := x.Execute(context.Background(), executor.Request{
		Command: "sleep 30",
		Dir:     t.TempDir(),
		Detach:  true,
	})
	require.NoError(t, err)

	h, ok := x.Handles().Get(res.HandleID)
	require.True(t, ok)
	require.True(t, h.Running())

	final := h.Kill()
	require.NotNil(t, final)
	require.False(t, h.Running())
}
