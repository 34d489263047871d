// Package walker descends a command tree inside one submission,
// resolving group folders, layering environments, running leaves and
// appending every outcome to the submission log.
package walker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/cmdtree"
	"github.com/jhartz/gradefast/internal/diffcmp"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/fspath"
	"github.com/jhartz/gradefast/internal/runenv"
)

// Gatherer receives walk progress so a front end can render it live.
// Every callback fires before the walker moves on.
type Gatherer interface {
	StartSubmission(sub *api.Submission)

	StartGroup(path []string, group *cmdtree.Group, dir string)
	SkipGroup(path []string, group *cmdtree.Group, reason string)
	EndGroup(path []string, group *cmdtree.Group)

	StartCommand(path []string, leaf *cmdtree.Leaf)
	FinishCommand(path []string, leaf *cmdtree.Leaf, res *api.CommandResult)

	FinishSubmission(sub *api.Submission)
}

// Context carries the state a node executes in: the resolved working
// directory, the fully-layered environment and the submission itself.
// Child groups derive a new Context; siblings never see each other's
// changes.
type Context struct {
	Dir string
	Env runenv.Env
	Sub *api.Submission
}

// Walker runs command trees. SupportDir is where relative reference
// files for diffs are found.
type Walker struct {
	Exec       *executor.Executor
	Gatherer   Gatherer
	SupportDir string

	logger *slog.Logger
}

func New(exec *executor.Executor, g Gatherer, supportDir string, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{Exec: exec, Gatherer: g, SupportDir: supportDir, logger: logger}
}

// Run walks the whole tree for one submission. The returned error is
// non-nil only for cancellation; every other failure is recorded in
// the submission log and the walk continues.
func (w *Walker) Run(ctx context.Context, root *cmdtree.Group, sub *api.Submission) error {
	w.Gatherer.StartSubmission(sub)
	defer w.Gatherer.FinishSubmission(sub)

	ec := Context{
		Dir: sub.Dir,
		Env: runenv.Build(runenv.FromOS(), sub, sub.Dir, w.SupportDir, nil),
		Sub: sub,
	}
	return w.walkGroup(ctx, nil, root, ec)
}

// RunNode executes a single node (and, for groups, its subtree) in a
// fresh context for the submission. Front ends use it to re-run one
// step without restarting the whole tree.
func (w *Walker) RunNode(ctx context.Context, node cmdtree.Node, sub *api.Submission) error {
	ec := Context{
		Dir: sub.Dir,
		Env: runenv.Build(runenv.FromOS(), sub, sub.Dir, w.SupportDir, nil),
		Sub: sub,
	}
	return w.walkNode(ctx, nil, node, ec)
}

func (w *Walker) walkNode(ctx context.Context, path []string, node cmdtree.Node, ec Context) error {
	switch n := node.(type) {
	case *cmdtree.Group:
		return w.walkGroup(ctx, path, n, ec)
	case *cmdtree.Leaf:
		return w.runLeaf(ctx, path, n, ec)
	default:
		w.logger.Warn("unknown node kind", "name", node.NodeName())
		return nil
	}
}

func (w *Walker) walkGroup(ctx context.Context, path []string, group *cmdtree.Group, ec Context) error {
	path = childPath(path, group.Name)

	dir, err := fspath.Resolve(ec.Dir, group.Folder)
	if err != nil {
		var nf *fspath.NotFoundError
		reason := err.Error()
		if errors.As(err, &nf) {
			reason = nf.Error()
		}
		w.Gatherer.SkipGroup(path, group, reason)
		ec.Sub.Log = append(ec.Sub.Log, api.CommandResult{
			Name:     group.Name,
			TreePath: path,
			Status:   api.StatusSkipped,
			Error:    reason,
		})
		return nil
	}

	child := Context{
		Dir: dir,
		Env: layered(ec.Env, ec.Sub, dir, w.SupportDir, group.Env),
		Sub: ec.Sub,
	}

	w.Gatherer.StartGroup(path, group, dir)
	for _, node := range group.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.walkNode(ctx, path, node, child); err != nil {
			return err
		}
	}
	w.Gatherer.EndGroup(path, group)
	return nil
}

func (w *Walker) runLeaf(ctx context.Context, path []string, leaf *cmdtree.Leaf, ec Context) error {
	path = childPath(path, leaf.Name)
	w.Gatherer.StartCommand(path, leaf)

	env := ec.Env
	if len(leaf.Env) > 0 {
		env = layered(ec.Env, ec.Sub, ec.Dir, w.SupportDir, leaf.Env)
	}

	req := executor.Request{
		Command:     leaf.Command,
		Dir:         ec.Dir,
		Env:         env,
		Stdin:       leaf.Stdin,
		Detach:      leaf.Background,
		Passthrough: leaf.Passthrough,
	}

	res, err := w.Exec.Execute(ctx, req)
	if err != nil {
		var xe *executor.ExecutionError
		if errors.As(err, &xe) {
			res = &api.CommandResult{
				Name:   leaf.Name,
				Status: api.StatusFailedToStart,
				Error:  xe.Error(),
			}
		} else {
			return err
		}
	}

	res.Name = leaf.Name
	res.TreePath = path

	if leaf.Diff != nil && res.Status == api.StatusDone {
		report := diffcmp.Compare(res.Stdout, leaf.Diff, diffcmp.Lookup{
			SupportDir:    w.SupportDir,
			SubmissionDir: ec.Sub.Dir,
			RunCommand: func(command string) (string, error) {
				ref, err := w.Exec.Execute(ctx, executor.Request{
					Command: command,
					Dir:     ec.Dir,
					Env:     env,
				})
				if err != nil {
					return "", err
				}
				return ref.Stdout, nil
			},
		})
		res.Diff = &report
	}

	ec.Sub.Log = append(ec.Sub.Log, *res)
	w.Gatherer.FinishCommand(path, leaf, res)

	if res.Status == api.StatusCancelled {
		return context.Canceled
	}
	return ctx.Err()
}

// layered rebuilds the reserved variables on top of user overrides so
// a configured SUBMISSION_NAME or CURRENT_DIRECTORY can never shadow
// the real one.
func layered(parent runenv.Env, sub *api.Submission, dir, supportDir string, overrides map[string]string) runenv.Env {
	return runenv.Build(parent, sub, dir, supportDir, overrides)
}

// childPath extends a tree path into a fresh slice, so the slices
// handed to Gatherer callbacks and stored in log entries never share a
// backing array with a sibling's path.
func childPath(parent []string, name string) []string {
	out := make([]string, len(parent)+1)
	copy(out, parent)
	out[len(parent)] = name
	return out
}
