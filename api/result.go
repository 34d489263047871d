package api

// ResultStatus describes how far a command (or a whole group) got.
type ResultStatus string

const (
	// StatusDone means the process ran to completion. The exit code may
	// still be nonzero; that is data, not an error.
	StatusDone ResultStatus = "done"
	// StatusRunning means the command was detached and had not exited
	// when the result was recorded. HandleID points at the live handle.
	StatusRunning ResultStatus = "running"
	// StatusTimedOut means the process was killed after the timeout expired.
	StatusTimedOut ResultStatus = "timed_out"
	// StatusCancelled means the run was interrupted from outside.
	StatusCancelled ResultStatus = "cancelled"
	// StatusFailedToStart means the process could not be launched at all.
	StatusFailedToStart ResultStatus = "failed_to_start"
	// StatusSkipped marks a group whose folder could not be resolved;
	// none of its children were attempted.
	StatusSkipped ResultStatus = "skipped"
)

// CommandResult is the outcome of one leaf command (or a group-level
// skip entry). Immutable once appended to a submission's log.
type CommandResult struct {
	Name     string   `json:"name"`
	TreePath []string `json:"tree_path"` // ancestor group names, root first

	Status   ResultStatus `json:"status"`
	ExitCode int          `json:"exit_code"`
	Stdout   string       `json:"stdout"`
	Stderr   string       `json:"stderr"`
	WallMs   int64        `json:"wall_ms"`

	Detached bool   `json:"detached,omitempty"`
	HandleID string `json:"handle_id,omitempty"`
	Error    string `json:"error,omitempty"`

	Diff *DiffReport `json:"diff,omitempty"`
}
