// Package cmdtree holds the declarative tree of command groups and
// leaf commands that gets run against every submission. The tree is
// built once by the config loader and never mutated afterwards.
package cmdtree

import (
	"fmt"

	"github.com/jhartz/gradefast/api"
)

// Node is either a *Leaf or a *Group, never both.
type Node interface {
	NodeName() string
	node()
}

// Leaf is a single runnable command.
type Leaf struct {
	Name    string
	Command string
	Env     map[string]string

	// Stdin, when non-nil, is fed to the process as its whole standard
	// input. nil means the process inherits the interactive channel.
	Stdin *string

	// Background leaves are started and left running; their results are
	// collected later through the executor's handle registry.
	Background bool

	// Passthrough leaves talk to the grader's terminal directly, with
	// no pipe wrapping and no output capture.
	Passthrough bool

	Diff *api.DiffSpec
}

func (l *Leaf) NodeName() string { return l.Name }
func (*Leaf) node()              {}

// Group establishes a working directory and environment for its
// children. Children run in declared order.
type Group struct {
	Name     string
	Folder   FolderSpec
	Env      map[string]string
	Children []Node
}

func (g *Group) NodeName() string { return g.Name }
func (*Group) node()              {}

// FolderSpec says where a group's commands run, relative to the
// current directory of the traversal. The zero value is the "current
// directory" sentinel. Contains, when set, is a fallback: if the other
// forms fail (or none is given), the first subfolder containing all
// the named files is used.
type FolderSpec struct {
	Literal  string
	Regexes  []string
	Contains []string
}

// IsCurrentDir reports whether the spec resolves to the traversal's
// current directory unchanged.
func (f FolderSpec) IsCurrentDir() bool {
	return f.Literal == "" && len(f.Regexes) == 0 && len(f.Contains) == 0
}

func (f FolderSpec) String() string {
	switch {
	case f.Literal != "":
		return f.Literal
	case len(f.Regexes) > 0:
		return fmt.Sprintf("%v", f.Regexes)
	case len(f.Contains) > 0:
		return fmt.Sprintf("containing %v", f.Contains)
	default:
		return "."
	}
}

// Validate checks the invariants the config loader must uphold:
// non-empty names and commands, and no leaf that is both passthrough
// and piped (stdin, diff or background).
func Validate(n Node) error {
	switch v := n.(type) {
	case *Leaf:
		if v.Name == "" {
			return fmt.Errorf("leaf command has no name")
		}
		if v.Command == "" {
			return fmt.Errorf("command %q: empty command string", v.Name)
		}
		if v.Passthrough {
			if v.Background {
				return fmt.Errorf("command %q: both passthrough and background set", v.Name)
			}
			if v.Stdin != nil {
				return fmt.Errorf("command %q: both passthrough and stdin set", v.Name)
			}
			if v.Diff != nil {
				return fmt.Errorf("command %q: both passthrough and diff set", v.Name)
			}
		}
		if v.Diff != nil {
			if err := validateDiff(v.Diff); err != nil {
				return fmt.Errorf("command %q: %w", v.Name, err)
			}
		}
		return nil
	case *Group:
		if v.Name == "" {
			return fmt.Errorf("command group has no name")
		}
		for _, child := range v.Children {
			if err := Validate(child); err != nil {
				return fmt.Errorf("group %q: %w", v.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
}

func validateDiff(d *api.DiffSpec) error {
	set := 0
	for _, s := range []string{d.Content, d.File, d.SubmissionFile, d.Command} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("diff must set exactly one of content, file, submission_file, command")
	}
	return nil
}
