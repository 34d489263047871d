package session_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/cmdtree"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/session"
	"github.com/jhartz/gradefast/internal/submissions"
	"github.com/jhartz/gradefast/internal/walker"
)

type nopGatherer struct{}

func (nopGatherer) StartSubmission(*api.Submission)                           {}
func (nopGatherer) StartGroup([]string, *cmdtree.Group, string)               {}
func (nopGatherer) SkipGroup([]string, *cmdtree.Group, string)                {}
func (nopGatherer) EndGroup([]string, *cmdtree.Group)                         {}
func (nopGatherer) StartCommand([]string, *cmdtree.Leaf)                      {}
func (nopGatherer) FinishCommand([]string, *cmdtree.Leaf, *api.CommandResult) {}
func (nopGatherer) FinishSubmission(*api.Submission)                          {}

func newSession(t *testing.T, root *cmdtree.Group, subs []*api.Submission) (*session.Session, *executor.Executor) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	x := executor.New(logger)
	w := walker.New(x, nopGatherer{}, t.TempDir(), logger)
	sess := session.New(w, x, root, submissions.NewList(subs), logger)
	sess.Out = io.Discard
	return sess, x
}

func TestBatchGradesEverySubmission(t *testing.T) {
	root := &cmdtree.Group{Name: "root", Children: []cmdtree.Node{
		&cmdtree.Leaf{Name: "hello", Command: "echo hi"},
	}}
	subs := []*api.Submission{
		{ID: 1, Name: "alice", Dir: t.TempDir()},
		{ID: 2, Name: "bob", Dir: t.TempDir()},
	}

	sess, _ := newSession(t, root, subs)
	require.NoError(t, sess.Batch(context.Background()))

	for _, sub := range subs {
		require.Len(t, sub.Log, 1)
		require.Equal(t, "hi\n", sub.Log[0].Stdout)
	}
}

func TestBatchAbortStopsBackgroundCommands(t *testing.T) {
	root := &cmdtree.Group{Name: "root", Children: []cmdtree.Node{
		&cmdtree.Leaf{Name: "server", Command: "sleep 30", Background: true},
		&cmdtree.Leaf{Name: "blocker", Command: "sleep 30"},
	}}
	subs := []*api.Submission{{ID: 1, Name: "alice", Dir: t.TempDir()}}

	sess, x := newSession(t, root, subs)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	require.Error(t, sess.Batch(ctx))

	handles := x.Handles().All()
	require.Len(t, handles, 1)
	for _, h := range handles {
		require.False(t, h.Running())
	}
}
