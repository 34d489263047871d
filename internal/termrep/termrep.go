// Package termrep renders walk progress on the grader's terminal.
package termrep

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/cmdtree"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	okay    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed, color.Bold)
	warn    = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

// TerminalReporter prints one block per submission and one line (plus
// captured output) per command.
type TerminalReporter struct {
	Out       io.Writer
	StartedAt time.Time
}

func New() *TerminalReporter {
	return &TerminalReporter{Out: os.Stdout, StartedAt: time.Now()}
}

func (t *TerminalReporter) StartSubmission(sub *api.Submission) {
	fmt.Fprintln(t.Out)
	heading.Fprintf(t.Out, "== Submission %d: %s ==\n", sub.ID, sub)
	if sub.Late {
		warn.Fprintln(t.Out, "   (late)")
	}
}

func (t *TerminalReporter) StartGroup(path []string, group *cmdtree.Group, dir string) {
	fmt.Fprintf(t.Out, "%s%s\n", indent(path), group.Name)
	if !group.Folder.IsCurrentDir() {
		faint.Fprintf(t.Out, "%s  in %s\n", indent(path), dir)
	}
}

func (t *TerminalReporter) SkipGroup(path []string, group *cmdtree.Group, reason string) {
	warn.Fprintf(t.Out, "%sskipping %s: %s\n", indent(path), group.Name, reason)
}

func (t *TerminalReporter) EndGroup(path []string, group *cmdtree.Group) {}

func (t *TerminalReporter) StartCommand(path []string, leaf *cmdtree.Leaf) {
	fmt.Fprintf(t.Out, "%s$ %s\n", indent(path), leaf.Command)
}

func (t *TerminalReporter) FinishCommand(path []string, leaf *cmdtree.Leaf, res *api.CommandResult) {
	pad := indent(path) + "  "
	switch res.Status {
	case api.StatusDone:
		if res.ExitCode == 0 {
			okay.Fprintf(t.Out, "%sdone (%dms)\n", pad, res.WallMs)
		} else {
			bad.Fprintf(t.Out, "%sexit %d (%dms)\n", pad, res.ExitCode, res.WallMs)
		}
	case api.StatusRunning:
		faint.Fprintf(t.Out, "%srunning in background (%s)\n", pad, res.HandleID)
	case api.StatusTimedOut:
		bad.Fprintf(t.Out, "%stimed out\n", pad)
	case api.StatusCancelled:
		warn.Fprintf(t.Out, "%scancelled\n", pad)
	case api.StatusFailedToStart:
		bad.Fprintf(t.Out, "%s%s\n", pad, res.Error)
	}

	t.printOutput(pad, res)
	t.printDiff(pad, res.Diff)
}

func (t *TerminalReporter) FinishSubmission(sub *api.Submission) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	faint.Fprintf(t.Out, "-- %s: %d commands logged (%s elapsed) --\n",
		sub.Name, len(sub.Log), dur)
}

func (t *TerminalReporter) printOutput(pad string, res *api.CommandResult) {
	if res.Stdout != "" {
		writeBlock(t.Out, pad, res.Stdout)
	}
	if res.Stderr != "" {
		bad.Fprintf(t.Out, "%sstderr:\n", pad)
		writeBlock(t.Out, pad, res.Stderr)
	}
}

func (t *TerminalReporter) printDiff(pad string, report *api.DiffReport) {
	if report == nil {
		return
	}
	switch report.State {
	case api.DiffMatch:
		okay.Fprintf(t.Out, "%soutput matches expected\n", pad)
	case api.DiffMismatch:
		bad.Fprintf(t.Out, "%soutput differs from expected:\n", pad)
		writeBlock(t.Out, pad, report.Unified)
	case api.DiffNotAttempted:
		if report.Note != "" {
			warn.Fprintf(t.Out, "%sdiff not attempted: %s\n", pad, report.Note)
		}
	}
}

func writeBlock(w io.Writer, pad, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s| %s\n", pad, line)
	}
}

func indent(path []string) string {
	if len(path) <= 1 {
		return ""
	}
	return strings.Repeat("  ", len(path)-1)
}
