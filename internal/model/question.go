package model

// Question is a single multiple-choice question within a quiz session.
//
// Options are immutable after load and their order is significant: it matches
// the on-screen position and the grading round-trip. UserSelection is set at
// most once (answers cannot be edited after submission). CorrectOption and
// Explanation stay nil until the grading authority reports them — correctness
// is never known locally before submission.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	UserSelection *string  `json:"user_selection,omitempty"`
	CorrectOption *string  `json:"correct_option,omitempty"`
	Explanation   *string  `json:"explanation,omitempty"`
}

// MinOptions and MaxOptions bound a well-formed option list.
const (
	MinOptions = 2
	MaxOptions = 5
)

// Answered reports whether the question has a recorded submission.
func (q *Question) Answered() bool {
	return q.UserSelection != nil
}

// HasOption reports whether s is one of the question's options.
func (q *Question) HasOption(s string) bool {
	for _, opt := range q.Options {
		if opt == s {
			return true
		}
	}
	return false
}

// WellFormed reports whether the question can be served at all: a non-empty
// ID and text, and an option list within bounds.
func (q *Question) WellFormed() bool {
	if q.ID == "" || q.Text == "" {
		return false
	}
	return len(q.Options) >= MinOptions && len(q.Options) <= MaxOptions
}
