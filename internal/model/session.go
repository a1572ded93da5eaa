package model

// Mode enumerates the resting states of a quiz session.
//
// ACTIVE: the current question is answerable, the countdown is running.
// FEEDBACK: the last answer has been graded, the countdown keeps running,
// the session waits for an advance. FINISHED: the score is frozen and the
// countdown is stopped; the user chooses between review and exit. REVIEW:
// read-only replay of all questions from the start.
type Mode string

const (
	ModeActive   Mode = "ACTIVE"
	ModeFeedback Mode = "FEEDBACK"
	ModeFinished Mode = "FINISHED"
	ModeReview   Mode = "REVIEW"
)

// PerQuestionSeconds is the per-question time budget used to seed the
// countdown: totalSeconds = questionCount * PerQuestionSeconds.
const PerQuestionSeconds = 90

// Summary is the finishing payload. Timer-driven and user-driven finishes
// produce the same shape. Total counts all loaded questions; Score counts
// only questions the grading authority reported correct, so ungraded
// questions lower accuracy but are never counted as correct.
type Summary struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// Feedback is the graded outcome of a single submission.
type Feedback struct {
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// CreateSessionRequest is the payload for starting a quiz session.
type CreateSessionRequest struct {
	ChapterID string `json:"chapter_id" binding:"required,min=1,max=100"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	SelectedOption string `json:"selected_option" binding:"required,min=1,max=500"`
}
