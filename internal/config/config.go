// Package config reads the grading project file (TOML) and converts it
// into the runtime command tree and scan sources.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/cmdtree"
	"github.com/jhartz/gradefast/internal/executor"
	"github.com/jhartz/gradefast/internal/submissions"
)

// specCommand maps one [[commands]] entry. A node is a leaf when
// `command` is set and a group when `commands` is; never both.
type specCommand struct {
	Name     string            `toml:"name"`
	Command  string            `toml:"command"`
	Commands []specCommand     `toml:"commands"`
	Folder   any               `toml:"folder"`
	Contains []string          `toml:"contains"`
	Env      map[string]string `toml:"environment"`
	Stdin    *string           `toml:"stdin"`
	Bg       bool              `toml:"background"`
	Passthru bool              `toml:"passthrough"`
	Diff     any               `toml:"diff"`
}

type specDiff struct {
	Content            string `toml:"content"`
	File               string `toml:"file"`
	SubmissionFile     string `toml:"submission_file"`
	Command            string `toml:"command"`
	CollapseWhitespace bool   `toml:"collapse_whitespace"`
}

type specSource struct {
	Path          string `toml:"path"`
	Regex         string `toml:"regex"`
	CheckArchives bool   `toml:"check_archives"`
	LateRegex     string `toml:"late_regex"`
}

type specRoot struct {
	ProjectName   string        `toml:"project_name"`
	SupportDir    string        `toml:"support_directory"`
	Shell         string        `toml:"shell"`
	Terminal      string        `toml:"terminal"`
	TimeoutSec    float64       `toml:"timeout_sec"`
	LastNameFirst bool          `toml:"last_name_first"`
	Submissions   []specSource  `toml:"submissions"`
	Commands      []specCommand `toml:"commands"`
}

// Config is the fully-converted project configuration.
type Config struct {
	ProjectName   string
	SupportDir    string
	Shell         executor.ShellConfig
	Terminal      executor.ShellConfig
	Timeout       time.Duration
	LastNameFirst bool
	Sources       []submissions.Source
	Root          *cmdtree.Group

	// Dir is the directory the config file lives in; relative paths in
	// the file resolve against it.
	Dir string
}

// Load reads, converts and validates a project file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectName:   root.ProjectName,
		LastNameFirst: root.LastNameFirst,
		Dir:           dir,
	}

	cfg.SupportDir = dir
	if root.SupportDir != "" {
		cfg.SupportDir = absAgainst(dir, root.SupportDir)
	}
	if root.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(root.TimeoutSec * float64(time.Second))
	}
	if cfg.Shell, err = executor.ParseShell(root.Shell); err != nil {
		return nil, fmt.Errorf("shell: %w", err)
	}
	if cfg.Terminal, err = executor.ParseShell(root.Terminal); err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}

	for _, src := range root.Submissions {
		if src.Path == "" {
			return nil, fmt.Errorf("submissions entry has no path")
		}
		cfg.Sources = append(cfg.Sources, submissions.Source{
			Path:          absAgainst(dir, src.Path),
			Regex:         src.Regex,
			CheckArchives: src.CheckArchives,
			LateRegex:     src.LateRegex,
		})
	}

	children, err := convertList(root.Commands)
	if err != nil {
		return nil, err
	}
	cfg.Root = &cmdtree.Group{Name: cfg.ProjectName, Children: children}
	if cfg.Root.Name == "" {
		cfg.Root.Name = "commands"
	}
	if err := cmdtree.Validate(cfg.Root); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convertList(specs []specCommand) ([]cmdtree.Node, error) {
	var nodes []cmdtree.Node
	for _, sc := range specs {
		node, err := convert(sc)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func convert(sc specCommand) (cmdtree.Node, error) {
	// A nil Commands means the key was absent; an empty group written
	// as commands = [] is still a group.
	hasChildren := sc.Commands != nil
	if sc.Command != "" && hasChildren {
		return nil, fmt.Errorf("entry %q sets both command and commands", sc.Name)
	}
	if sc.Command == "" && !hasChildren {
		return nil, fmt.Errorf("entry %q has neither command nor commands", sc.Name)
	}

	if hasChildren {
		folder, err := convertFolder(sc.Folder, sc.Contains)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", sc.Name, err)
		}
		children, err := convertList(sc.Commands)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", sc.Name, err)
		}
		return &cmdtree.Group{
			Name:     sc.Name,
			Folder:   folder,
			Env:      sc.Env,
			Children: children,
		}, nil
	}

	diff, err := convertDiff(sc.Diff)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", sc.Name, err)
	}
	return &cmdtree.Leaf{
		Name:        sc.Name,
		Command:     sc.Command,
		Env:         sc.Env,
		Stdin:       sc.Stdin,
		Background:  sc.Bg,
		Passthrough: sc.Passthru,
		Diff:        diff,
	}, nil
}

// convertFolder accepts either a single string (a literal subfolder)
// or an array of strings (regexes matched level by level).
func convertFolder(raw any, contains []string) (cmdtree.FolderSpec, error) {
	spec := cmdtree.FolderSpec{Contains: contains}
	switch v := raw.(type) {
	case nil:
	case string:
		spec.Literal = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return spec, fmt.Errorf("folder list element %v is not a string", item)
			}
			spec.Regexes = append(spec.Regexes, s)
		}
	default:
		return spec, fmt.Errorf("folder must be a string or a list of strings, got %T", raw)
	}
	return spec, nil
}

// convertDiff accepts either a bare string (path of an expected-output
// file in the support directory) or a table with one source field.
func convertDiff(raw any) (*api.DiffSpec, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &api.DiffSpec{File: v}, nil
	case map[string]any:
		data, err := toml.Marshal(v)
		if err != nil {
			return nil, err
		}
		var sd specDiff
		if err := toml.Unmarshal(data, &sd); err != nil {
			return nil, fmt.Errorf("diff table: %w", err)
		}
		return &api.DiffSpec{
			Content:            sd.Content,
			File:               sd.File,
			SubmissionFile:     sd.SubmissionFile,
			Command:            sd.Command,
			CollapseWhitespace: sd.CollapseWhitespace,
		}, nil
	default:
		return nil, fmt.Errorf("diff must be a string or a table, got %T", raw)
	}
}

func absAgainst(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
