package executor

import (
	"fmt"

	"github.com/google/shlex"
)

// Placeholder marks where the command string goes in a user-provided
// shell template.
const Placeholder = "{}"

// ShellConfig is the argv template used to interpret command strings.
// The zero value means "host default shell" (/bin/sh -c).
type ShellConfig struct {
	Args []string
}

// ParseShell splits a shell template string like "bash -ic {}" into a
// ShellConfig. If the template has no placeholder, the command string
// is appended as the final argument.
func ParseShell(s string) (ShellConfig, error) {
	if s == "" {
		return ShellConfig{}, nil
	}
	args, err := shlex.Split(s)
	if err != nil {
		return ShellConfig{}, fmt.Errorf("bad shell template %q: %w", s, err)
	}
	if len(args) == 0 {
		return ShellConfig{}, nil
	}
	found := false
	for _, a := range args {
		if a == Placeholder {
			found = true
			break
		}
	}
	if !found {
		args = append(args, Placeholder)
	}
	return ShellConfig{Args: args}, nil
}

// Argv builds the argument vector that runs command. The command
// string is always passed as a single argument; the shell does the
// word splitting.
func (sc ShellConfig) Argv(command string) []string {
	if len(sc.Args) == 0 {
		return []string{"/bin/sh", "-c", command}
	}
	argv := make([]string, len(sc.Args))
	for i, a := range sc.Args {
		if a == Placeholder {
			argv[i] = command
		} else {
			argv[i] = a
		}
	}
	return argv
}
