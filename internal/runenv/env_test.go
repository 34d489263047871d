package runenv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/runenv"
)

func TestBuildInjectsReservedVariables(t *testing.T) {
	sub := &api.Submission{ID: 3, Name: "Jane Doe", FullName: "doe_jane", Dir: "/subs/doe_jane"}

	env := runenv.Build(runenv.Env{"PATH": "/usr/bin"}, sub, "/subs/doe_jane/src", "/grading/support", nil)

	require.Equal(t, "/usr/bin", env["PATH"])
	require.Equal(t, "/subs/doe_jane", env[runenv.SubmissionDirVar])
	require.Equal(t, "/subs/doe_jane/src", env[runenv.CurrentDirVar])
	require.Equal(t, "Jane Doe", env[runenv.SubmissionNameVar])
	require.Equal(t, "/grading/support", env[runenv.SupportDirVar])
	require.Equal(t, "/grading/support", env[runenv.HelperDirVar])
}

func TestBuildOverridesNeverShadowReserved(t *testing.T) {
	sub := &api.Submission{Name: "Jane Doe", Dir: "/subs/doe_jane"}

	env := runenv.Build(nil, sub, "/subs/doe_jane", "/support", map[string]string{
		"CC":                     "clang",
		runenv.SubmissionNameVar: "Impostor",
		runenv.CurrentDirVar:     "/elsewhere",
	})

	require.Equal(t, "clang", env["CC"])
	require.Equal(t, "Jane Doe", env[runenv.SubmissionNameVar])
	require.Equal(t, "/subs/doe_jane", env[runenv.CurrentDirVar])
}

func TestBuildLayersChildOverParent(t *testing.T) {
	sub := &api.Submission{Name: "A", Dir: "/subs/a"}

	parent := runenv.Build(runenv.Env{"MODE": "debug", "KEEP": "yes"}, sub, "/subs/a", "/support", nil)
	child := runenv.Build(parent, sub, "/subs/a/src", "/support", map[string]string{"MODE": "release"})

	require.Equal(t, "release", child["MODE"])
	require.Equal(t, "yes", child["KEEP"])
	require.Equal(t, "/subs/a/src", child[runenv.CurrentDirVar])

	// the parent is untouched
	require.Equal(t, "debug", parent["MODE"])
	require.Equal(t, "/subs/a", parent[runenv.CurrentDirVar])
}

func TestIsReserved(t *testing.T) {
	require.True(t, runenv.IsReserved(runenv.SubmissionDirVar))
	require.True(t, runenv.IsReserved(runenv.HelperDirVar))
	require.False(t, runenv.IsReserved("PATH"))
}

func TestSliceIsSortedKeyValue(t *testing.T) {
	env := runenv.Env{"B": "2", "A": "1"}
	require.Equal(t, []string{"A=1", "B=2"}, env.Slice())
}
