package model

// Subject is a top-level content grouping served by the upstream content API.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Chapter is a question-set container within a subject. A quiz session is
// always taken against a single chapter.
type Chapter struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id,omitempty"`
	Name      string `json:"name"`
}
