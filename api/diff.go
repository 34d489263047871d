package api

// DiffSpec says what a command's captured stdout should be compared
// against. At most one of Content, File, SubmissionFile and Command may
// be set. File is resolved against the support directory,
// SubmissionFile against the submission root, and Command is executed
// in the command's own context with its output used as the reference.
type DiffSpec struct {
	Content        string `json:"content,omitempty" toml:"content"`
	File           string `json:"file,omitempty" toml:"file"`
	SubmissionFile string `json:"submission_file,omitempty" toml:"submission_file"`
	Command        string `json:"command,omitempty" toml:"command"`

	CollapseWhitespace bool `json:"collapse_whitespace,omitempty" toml:"collapse_whitespace"`
}

type DiffState string

const (
	DiffNotAttempted DiffState = "not_attempted"
	DiffMatch        DiffState = "match"
	DiffMismatch     DiffState = "mismatch"
)

// DiffOp is one contiguous difference between the expected lines and
// the actual lines. Indices are zero-based, half-open line ranges.
type DiffOp struct {
	Tag string `json:"tag"` // "insert", "delete" or "replace"

	ExpectedStart int `json:"expected_start"`
	ExpectedEnd   int `json:"expected_end"`
	ActualStart   int `json:"actual_start"`
	ActualEnd     int `json:"actual_end"`
}

// DiffReport is the outcome of comparing captured output against a
// reference. "not attempted" covers both an absent DiffSpec and a
// reference that could not be read (a missing expected file is not an
// error).
type DiffReport struct {
	State DiffState `json:"state"`
	Note  string    `json:"note,omitempty"`

	Ops     []DiffOp `json:"ops,omitempty"`
	Unified string   `json:"unified,omitempty"`
}
