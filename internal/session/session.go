// Package session drives grading across submissions, either straight
// through in batch mode or through an interactive prompt that lets the
// grader jump around.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/jhartz/gradefast/internal/cmdtree"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/submissions"
	"github.com/jhartz/gradefast/internal/walker"
)

// Session owns the submission cursor and the tree walker. Terminal,
// when configured, is the shell used for the "open a shell here"
// prompt command.
type Session struct {
	Walker   *walker.Walker
	Exec     *executor.Executor
	Terminal executor.ShellConfig
	Root     *cmdtree.Group
	List     *submissions.List

	Out    io.Writer
	logger *slog.Logger
}

func New(w *walker.Walker, exec *executor.Executor, root *cmdtree.Group,
	list *submissions.List, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Walker: w,
		Exec:   exec,
		Root:   root,
		List:   list,
		Out:    os.Stdout,
		logger: logger,
	}
}

// Batch grades every submission in order without prompting.
func (s *Session) Batch(ctx context.Context) error {
	for {
		sub := s.List.Next()
		if sub == nil {
			break
		}
		if err := s.Walker.Run(ctx, s.Root, sub); err != nil {
			s.killBackground()
			return err
		}
	}
	return s.drainBackground(ctx)
}

// Interactive prompts between submissions. Enter grades the next one;
// see printHelp for the rest.
func (s *Session) Interactive(ctx context.Context) error {
	rl, err := readline.New("gradefast> ")
	if err != nil {
		return fmt.Errorf("cannot open prompt: %w", err)
	}
	defer rl.Close()

	for {
		next := s.List.Peek()
		if next == nil {
			fmt.Fprintln(s.Out, "No submissions left.")
		} else {
			fmt.Fprintf(s.Out, "Next up: %s\n", next)
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		quit, err := s.dispatch(ctx, strings.TrimSpace(line))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				color.Yellow("cancelled")
				continue
			}
			s.killBackground()
			return err
		}
		if quit {
			break
		}
	}
	return s.drainBackground(ctx)
}

func (s *Session) dispatch(ctx context.Context, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "", "r":
		sub := s.List.Next()
		if sub == nil {
			return false, nil
		}
		return false, s.Walker.Run(ctx, s.Root, sub)
	case "s":
		if !s.List.Skip() {
			fmt.Fprintln(s.Out, "Nothing to skip.")
		}
	case "b":
		if !s.List.Back() {
			fmt.Fprintln(s.Out, "Already at the first submission.")
		}
	case "g":
		id, convErr := strconv.Atoi(strings.TrimSpace(arg))
		if convErr != nil || !s.List.Seek(id) {
			fmt.Fprintf(s.Out, "No submission with id %q.\n", arg)
		}
	case "l":
		s.printList()
	case "o":
		return false, s.openShell(ctx)
	case "q":
		return true, nil
	case "?", "h":
		s.printHelp()
	default:
		fmt.Fprintf(s.Out, "Unknown command %q; ? for help.\n", cmd)
	}
	return false, nil
}

func (s *Session) printList() {
	for _, sub := range s.List.All() {
		mark := " "
		if len(sub.Log) > 0 {
			mark = "*"
		}
		late := ""
		if sub.Late {
			late = " (late)"
		}
		fmt.Fprintf(s.Out, "%s %3d  %s%s\n", mark, sub.ID, sub, late)
	}
}

// openShell drops the grader into a shell in the next submission's
// directory, through the configured terminal template.
func (s *Session) openShell(ctx context.Context) error {
	sub := s.List.Peek()
	if sub == nil {
		fmt.Fprintln(s.Out, "No submission to open.")
		return nil
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	term := executor.New(s.logger)
	term.Shell = s.Terminal
	_, err := term.Execute(ctx, executor.Request{
		Command:     shell,
		Dir:         sub.Dir,
		Passthrough: true,
	})
	return err
}

func (s *Session) printHelp() {
	fmt.Fprint(s.Out, `Commands:
  <Enter>  grade the next submission
  s        skip the next submission
  b        go back one submission
  g <id>   jump to a submission by id
  l        list submissions (* = already graded)
  o        open a shell in the next submission's directory
  q        quit
`)
}

// killBackground stops every detached command still running. Used on
// abort, where waiting is not an option but the processes must not be
// orphaned; Kill still collects each command's final output into its
// handle.
func (s *Session) killBackground() {
	for _, h := range s.Exec.Handles().All() {
		if h.Running() {
			s.logger.Warn("stopping background command", "command", h.Command)
			h.Kill()
		}
	}
}

// drainBackground waits for detached commands still running at the end
// of the session so their output lands in the record.
func (s *Session) drainBackground(ctx context.Context) error {
	handles := s.Exec.Handles().All()
	running := 0
	for _, h := range handles {
		if h.Running() {
			running++
		}
	}
	if running == 0 {
		return nil
	}
	fmt.Fprintf(s.Out, "Waiting for %d background command(s)...\n", running)
	return s.Exec.Handles().WaitAll(ctx)
}
