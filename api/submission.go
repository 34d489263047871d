package api

// Submission is one student's body of work, rooted at one directory.
// The Log is appended to by the walker as commands run and is consumed
// by the gradebook layer as JSON.
type Submission struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`      // derived from the first regex capture group
	FullName string `json:"full_name"` // the folder name the submission was found under
	Dir      string `json:"dir"`
	Late     bool   `json:"late"`

	Log []CommandResult `json:"log"`
}

func (s *Submission) String() string {
	if s.Name != s.FullName {
		return s.Name + " (" + s.FullName + ")"
	}
	return s.Name
}
