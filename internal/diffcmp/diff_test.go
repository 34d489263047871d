package diffcmp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhartz/gradefast/api"
	"github.com/jhartz/gradefast/internal/diffcmp"
)

func TestCompareNilSpec(t *testing.T) {
	report := diffcmp.Compare("anything", nil, diffcmp.Lookup{})
	require.Equal(t, api.DiffNotAttempted, report.State)
}

func TestCompareMatchIgnoresTrailingNewline(t *testing.T) {
	spec := &api.DiffSpec{Content: "42\n"}

	report := diffcmp.Compare("42", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMatch, report.State)

	report = diffcmp.Compare("42\n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMatch, report.State)
}

func TestCompareMismatch(t *testing.T) {
	spec := &api.DiffSpec{Content: "42\n"}

	report := diffcmp.Compare("43\n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMismatch, report.State)
	require.NotEmpty(t, report.Ops)
	require.Equal(t, "replace", report.Ops[0].Tag)
	require.Contains(t, report.Unified, "-42")
	require.Contains(t, report.Unified, "+43")
}

func TestCompareCollapseWhitespace(t *testing.T) {
	spec := &api.DiffSpec{Content: "a b c\n", CollapseWhitespace: true}

	report := diffcmp.Compare("  a \t b   c  \n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMatch, report.State)
}

func TestCompareWhitespaceSignificantByDefault(t *testing.T) {
	spec := &api.DiffSpec{Content: "a b c\n"}

	report := diffcmp.Compare("a  b c\n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMismatch, report.State)
}

func TestCompareReferenceFile(t *testing.T) {
	support := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(support, "expected.txt"), []byte("ok\n"), 0o644))

	spec := &api.DiffSpec{File: "expected.txt"}
	report := diffcmp.Compare("ok\n", spec, diffcmp.Lookup{SupportDir: support})
	require.Equal(t, api.DiffMatch, report.State)
}

func TestCompareMissingReferenceFile(t *testing.T) {
	spec := &api.DiffSpec{File: "expected.txt"}

	report := diffcmp.Compare("ok\n", spec, diffcmp.Lookup{SupportDir: t.TempDir()})
	require.Equal(t, api.DiffNotAttempted, report.State)
	require.NotEmpty(t, report.Note)
}

func TestCompareSubmissionFile(t *testing.T) {
	subDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "out.txt"), []byte("result\n"), 0o644))

	spec := &api.DiffSpec{SubmissionFile: "out.txt"}
	report := diffcmp.Compare("result\n", spec, diffcmp.Lookup{SubmissionDir: subDir})
	require.Equal(t, api.DiffMatch, report.State)
}

func TestCompareReferenceCommand(t *testing.T) {
	spec := &api.DiffSpec{Command: "reference-solution"}

	lk := diffcmp.Lookup{
		RunCommand: func(command string) (string, error) {
			require.Equal(t, "reference-solution", command)
			return "42\n", nil
		},
	}
	report := diffcmp.Compare("42\n", spec, lk)
	require.Equal(t, api.DiffMatch, report.State)

	// no executor wired in
	report = diffcmp.Compare("42\n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffNotAttempted, report.State)
}

func TestCompareOpsUseHalfOpenRanges(t *testing.T) {
	spec := &api.DiffSpec{Content: "a\nb\nc\n"}

	report := diffcmp.Compare("a\nc\n", spec, diffcmp.Lookup{})
	require.Equal(t, api.DiffMismatch, report.State)

	var deletes []api.DiffOp
	for _, op := range report.Ops {
		if op.Tag == "delete" {
			deletes = append(deletes, op)
		}
	}
	require.Len(t, deletes, 1)
	require.Equal(t, 1, deletes[0].ExpectedStart)
	require.Equal(t, 2, deletes[0].ExpectedEnd)
	require.Equal(t, deletes[0].ActualStart, deletes[0].ActualEnd)
}
