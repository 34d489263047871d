// Package xdg locates gradefast's per-user files according to the XDG
// Base Directory Specification.
package xdg

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const appName = "gradefast"

func home() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return "/tmp"
}

// ConfigHome is the directory for user configuration, usually
// ~/.config/gradefast.
func ConfigHome() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home(), ".config")
	}
	return filepath.Join(base, appName)
}

// StateHome is the directory for saved grading records, usually
// ~/.local/state/gradefast.
func StateHome() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		base = filepath.Join(home(), ".local", "state")
	}
	return filepath.Join(base, appName)
}

// DefaultRecordPath is where a grading record is written when the
// grader gives no explicit path: StateHome()/<project>-<timestamp>.json.
func DefaultRecordPath(project string, now time.Time) string {
	if project == "" {
		project = "grading"
	}
	project = strings.ReplaceAll(project, string(os.PathSeparator), "-")
	name := project + "-" + now.Format("20060102-150405") + ".json"
	return filepath.Join(StateHome(), name)
}

// FindProjectFile returns the first project file that exists, searching
// the working directory and then the user config directory. The empty
// string means nothing was found.
func FindProjectFile() string {
	candidates := []string{
		"gradefast.toml",
		filepath.Join(ConfigHome(), "project.toml"),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
