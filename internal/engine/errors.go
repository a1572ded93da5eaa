package engine

import "errors"

// Session errors. Guards reject invalid operations at the boundary instead of
// silently ignoring them, so callers can surface a precise condition.
var (
	// ErrEmptyQuestionSet means the loader produced no questions. The session
	// must not start: an empty load is "not ready", never a finished quiz.
	ErrEmptyQuestionSet = errors.New("question set is empty")

	// ErrNoSelection rejects a submission without a chosen option.
	ErrNoSelection = errors.New("no option selected")

	// ErrUnknownOption rejects a submission whose option is not part of the
	// current question's option list.
	ErrUnknownOption = errors.New("option is not part of the current question")

	// ErrAlreadyAnswered rejects a second submission for an answered question;
	// answers are immutable once recorded.
	ErrAlreadyAnswered = errors.New("question already answered")

	// ErrWrongMode rejects an operation the current mode does not allow.
	ErrWrongMode = errors.New("operation not allowed in current session mode")

	// ErrNotFinished rejects entering review before the session finished.
	ErrNotFinished = errors.New("session has not finished")

	// ErrGrading wraps a grading-client failure. Recoverable: the question
	// stays unanswered, the mode stays active, the submission may be retried.
	ErrGrading = errors.New("grading failed")

	// ErrClosed means the session was torn down. No operation and no timer
	// tick is applied after teardown.
	ErrClosed = errors.New("session closed")
)
