package submissions

import "github.com/jhartz/gradefast/api"

// List is a restartable cursor over scanned submissions. The grading
// session moves it forward, backward and by direct jump.
type List struct {
	subs []*api.Submission
	pos  int // index of the next submission to hand out
}

func NewList(subs []*api.Submission) *List {
	return &List{subs: subs}
}

func (l *List) Len() int { return len(l.subs) }

// All returns the underlying slice in scan order.
func (l *List) All() []*api.Submission { return l.subs }

// Peek returns the submission Next would hand out, without advancing.
func (l *List) Peek() *api.Submission {
	if l.pos >= len(l.subs) {
		return nil
	}
	return l.subs[l.pos]
}

// Next returns the next submission and advances, or nil when the list
// is exhausted.
func (l *List) Next() *api.Submission {
	if l.pos >= len(l.subs) {
		return nil
	}
	sub := l.subs[l.pos]
	l.pos++
	return sub
}

// Back moves the cursor to re-hand-out the previous submission. It
// returns false at the start of the list.
func (l *List) Back() bool {
	// pos points past the submission just handed out, so stepping
	// back one submission means rewinding two slots.
	if l.pos < 2 {
		return false
	}
	l.pos -= 2
	return true
}

// Skip advances past the next submission without handing it out.
func (l *List) Skip() bool {
	if l.pos >= len(l.subs) {
		return false
	}
	l.pos++
	return true
}

// Seek positions the cursor so the submission with the given ID is
// handed out next.
func (l *List) Seek(id int) bool {
	for i, sub := range l.subs {
		if sub.ID == id {
			l.pos = i
			return true
		}
	}
	return false
}

// At returns the submission with the given ID without moving the
// cursor.
func (l *List) At(id int) *api.Submission {
	for _, sub := range l.subs {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}
