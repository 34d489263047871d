// Package fspath resolves a group's folder specification to an actual
// directory inside a submission.
package fspath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/jhartz/gradefast/internal/cmdtree"
)

// NotFoundError means a folder specification could not be satisfied.
// Callers skip the group and keep going; this is never fatal for the
// whole submission.
type NotFoundError struct {
	Base string
	Spec string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no folder matching %s under %s", e.Spec, e.Base)
}

// Resolve finds the directory a command group should run in.
//
// Literal subpaths are joined onto baseDir and must exist. Regex lists
// are resolved by a breadth-first search: each queue entry is a
// directory plus the index of the next regex to match; listing is
// sorted lexically so resolution is deterministic when several
// siblings match. The zero-value spec returns baseDir unchanged.
func Resolve(baseDir string, spec cmdtree.FolderSpec) (string, error) {
	if spec.IsCurrentDir() {
		return baseDir, nil
	}

	if spec.Literal != "" {
		dir := filepath.Join(baseDir, spec.Literal)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return "", &NotFoundError{Base: baseDir, Spec: spec.String()}
		}
		return dir, nil
	}

	if len(spec.Regexes) > 0 {
		dir, err := resolveRegexes(baseDir, spec.Regexes)
		if err == nil {
			return dir, nil
		}
		var nf *NotFoundError
		if len(spec.Contains) == 0 || !errors.As(err, &nf) {
			return "", err
		}
		// fall through to the contains fallback
	}

	return ResolveContaining(baseDir, spec.Contains)
}

func resolveRegexes(baseDir string, regexes []string) (string, error) {
	compiled := make([]*regexp.Regexp, len(regexes))
	for i, expr := range regexes {
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return "", fmt.Errorf("bad folder regex %q: %w", expr, err)
		}
		compiled[i] = re
	}

	type state struct {
		dir  string
		next int // index of the first unmatched regex
	}
	queue := []state{{dir: baseDir, next: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.next == len(compiled) {
			return cur.dir, nil
		}
		for _, name := range sortedSubdirs(cur.dir) {
			if compiled[cur.next].MatchString(name) {
				queue = append(queue, state{
					dir:  filepath.Join(cur.dir, name),
					next: cur.next + 1,
				})
			}
		}
	}
	return "", &NotFoundError{Base: baseDir, Spec: fmt.Sprintf("%v", regexes)}
}

// ResolveContaining finds, breadth-first, the first directory at or
// below baseDir that contains all the named files. Sibling order is
// lexical, so the result is deterministic.
func ResolveContaining(baseDir string, required []string) (string, error) {
	if len(required) == 0 {
		return "", &NotFoundError{Base: baseDir, Spec: "(empty spec)"}
	}
	queue := []string{baseDir}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		if containsAll(dir, required) {
			return dir, nil
		}
		for _, name := range sortedSubdirs(dir) {
			queue = append(queue, filepath.Join(dir, name))
		}
	}
	return "", &NotFoundError{Base: baseDir, Spec: fmt.Sprintf("containing %v", required)}
}

func containsAll(dir string, names []string) bool {
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

func sortedSubdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
