// Package diffcmp compares a command's captured stdout against a
// configured reference and produces a line-oriented diff report.
package diffcmp

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jhartz/gradefast/api"
)

// Lookup tells the comparator where relative reference files live and
// how to run a reference command when the spec asks for one.
type Lookup struct {
	SupportDir    string
	SubmissionDir string

	// RunCommand executes a reference command in the leaf's own
	// context and returns its stdout.
	RunCommand func(command string) (string, error)
}

// Compare produces a DiffReport for the captured stdout. A nil spec or
// an unreadable reference yields "not attempted", never an error; the
// group/leaf still counts as run.
func Compare(stdout string, spec *api.DiffSpec, lk Lookup) api.DiffReport {
	if spec == nil {
		return api.DiffReport{State: api.DiffNotAttempted}
	}

	expected, note, ok := reference(spec, lk)
	if !ok {
		return api.DiffReport{State: api.DiffNotAttempted, Note: note}
	}

	expLines := normalize(expected, spec.CollapseWhitespace)
	actLines := normalize(stdout, spec.CollapseWhitespace)

	if equal(expLines, actLines) {
		return api.DiffReport{State: api.DiffMatch}
	}

	matcher := difflib.NewMatcher(expLines, actLines)
	var ops []api.DiffOp
	for _, oc := range matcher.GetOpCodes() {
		var tag string
		switch oc.Tag {
		case 'r':
			tag = "replace"
		case 'd':
			tag = "delete"
		case 'i':
			tag = "insert"
		default:
			continue
		}
		ops = append(ops, api.DiffOp{
			Tag:           tag,
			ExpectedStart: oc.I1,
			ExpectedEnd:   oc.I2,
			ActualStart:   oc.J1,
			ActualEnd:     oc.J2,
		})
	}

	unified, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        expLines,
		B:        actLines,
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
		Eol:      "\n",
	})

	return api.DiffReport{
		State:   api.DiffMismatch,
		Ops:     ops,
		Unified: unified,
	}
}

func reference(spec *api.DiffSpec, lk Lookup) (content, note string, ok bool) {
	switch {
	case spec.Content != "":
		return spec.Content, "", true
	case spec.File != "":
		return readRef(filepath.Join(lk.SupportDir, spec.File))
	case spec.SubmissionFile != "":
		return readRef(filepath.Join(lk.SubmissionDir, spec.SubmissionFile))
	case spec.Command != "":
		if lk.RunCommand == nil {
			return "", "no executor available for diff command", false
		}
		out, err := lk.RunCommand(spec.Command)
		if err != nil {
			return "", "diff reference command failed: " + err.Error(), false
		}
		return out, "", true
	default:
		return "", "", false
	}
}

func readRef(path string) (string, string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "reference file not readable: " + path, false
	}
	return string(data), "", true
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalize splits into lines, insensitive to a single trailing
// newline. With collapse set, runs of whitespace inside each line
// become one space and edges are trimmed.
func normalize(s string, collapse bool) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if collapse {
			line = whitespaceRe.ReplaceAllString(strings.TrimSpace(line), " ")
		}
		lines[i] = line
	}
	return lines
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
