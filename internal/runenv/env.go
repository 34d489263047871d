// Package runenv builds the process environment handed to every
// command: the ambient environment, layered user overrides, and the
// reserved gradefast variables that user overrides can never shadow.
package runenv

import (
	"os"
	"sort"
	"strings"

	"github.com/jhartz/gradefast/api"
)

// Reserved variable names, injected for every command.
const (
	SubmissionDirVar  = "SUBMISSION_DIRECTORY"
	CurrentDirVar     = "CURRENT_DIRECTORY"
	SubmissionNameVar = "SUBMISSION_NAME"
	SupportDirVar     = "SUPPORT_DIRECTORY"

	// HelperDirVar is a legacy alias of SupportDirVar.
	HelperDirVar = "HELPER_DIRECTORY"
)

var reserved = map[string]bool{
	SubmissionDirVar:  true,
	CurrentDirVar:     true,
	SubmissionNameVar: true,
	SupportDirVar:     true,
	HelperDirVar:      true,
}

// IsReserved reports whether key is one of the injected variables.
// Overrides for reserved keys are ignored, not errors.
func IsReserved(key string) bool { return reserved[key] }

// Env is an immutable-by-convention variable mapping. Build always
// returns a fresh copy; callers never mutate an Env they received.
type Env map[string]string

// FromOS captures the current process environment.
func FromOS() Env {
	env := Env{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Build layers declared overrides on top of parent and injects the
// reserved variables. Later (deeper) declarations win over earlier
// ones; reserved keys always win over everything. parent is never
// mutated.
func Build(parent Env, sub *api.Submission, currentDir, supportDir string,
	overrides map[string]string) Env {

	env := make(Env, len(parent)+len(overrides)+5)
	for k, v := range parent {
		env[k] = v
	}
	for k, v := range overrides {
		if IsReserved(k) {
			continue
		}
		env[k] = v
	}

	env[CurrentDirVar] = currentDir
	env[SupportDirVar] = supportDir
	env[HelperDirVar] = supportDir
	if sub != nil {
		env[SubmissionDirVar] = sub.Dir
		env[SubmissionNameVar] = sub.Name
	}
	return env
}

// Slice renders the environment in the KEY=value form expected by
// exec.Cmd, sorted for deterministic behavior.
func (e Env) Slice() []string {
	kvs := make([]string, 0, len(e))
	for k, v := range e {
		kvs = append(kvs, k+"="+v)
	}
	sort.Strings(kvs)
	return kvs
}
