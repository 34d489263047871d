package fspath_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhartz/gradefast/internal/cmdtree"
	"github.com/jhartz/gradefast/internal/fspath"
)

func TestResolveCurrentDir(t *testing.T) {
	base := t.TempDir()

	dir, err := fspath.Resolve(base, cmdtree.FolderSpec{})
	require.NoError(t, err)
	require.Equal(t, base, dir)
}

func TestResolveLiteral(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "src", "app"), 0o755))

	dir, err := fspath.Resolve(base, cmdtree.FolderSpec{Literal: "src/app"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "src", "app"), dir)

	_, err = fspath.Resolve(base, cmdtree.FolderSpec{Literal: "nope"})
	var nf *fspath.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResolveLiteralRejectsFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "src"), []byte("x"), 0o644))

	_, err := fspath.Resolve(base, cmdtree.FolderSpec{Literal: "src"})
	var nf *fspath.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResolveRegexDescends(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "project-v2", "code"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "project-v2", "docs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "other"), 0o755))

	dir, err := fspath.Resolve(base, cmdtree.FolderSpec{
		Regexes: []string{`project-v\d+`, `code`},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "project-v2", "code"), dir)
}

func TestResolveRegexAnchored(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "my-src-backup"), 0o755))

	// "src" must match the whole name, not a substring of it.
	_, err := fspath.Resolve(base, cmdtree.FolderSpec{Regexes: []string{`src`}})
	var nf *fspath.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestResolveRegexTieBreakIsLexical(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "b-match"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a-match"), 0o755))

	dir, err := fspath.Resolve(base, cmdtree.FolderSpec{Regexes: []string{`.*-match`}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "a-match"), dir)
}

func TestResolveContainingFallback(t *testing.T) {
	base := t.TempDir()
	deep := filepath.Join(base, "zipped", "project")
	require.NoError(t, os.MkdirAll(deep, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(deep, "Makefile"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(deep, "main.c"), nil, 0o644))

	dir, err := fspath.Resolve(base, cmdtree.FolderSpec{
		Regexes:  []string{`does-not-exist`},
		Contains: []string{"Makefile", "main.c"},
	})
	require.NoError(t, err)
	require.Equal(t, deep, dir)

	_, err = fspath.Resolve(base, cmdtree.FolderSpec{Contains: []string{"missing.txt"}})
	var nf *fspath.NotFoundError
	require.ErrorAs(t, err, &nf)
}
