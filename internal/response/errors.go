package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Quiz session ──────────────────────────────────────────────────
	ErrQuestionsUnavailable ErrCode = "QUESTIONS_UNAVAILABLE"
	ErrMalformedQuestions   ErrCode = "MALFORMED_QUESTIONS"
	ErrSessionActive        ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrNoSelection          ErrCode = "NO_OPTION_SELECTED"
	ErrUnknownOption        ErrCode = "UNKNOWN_OPTION"
	ErrAlreadyAnswered      ErrCode = "ALREADY_ANSWERED"
	ErrWrongMode            ErrCode = "WRONG_SESSION_MODE"
	ErrSessionNotFinished   ErrCode = "SESSION_NOT_FINISHED"
	ErrGradingUnavailable   ErrCode = "GRADING_UNAVAILABLE"
	ErrUpstreamUnavailable  ErrCode = "UPSTREAM_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrForbidden:
		return "You do not have access to this resource."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrNotFound:
		return "Resource not found."
	case ErrQuestionsUnavailable:
		return "No questions are available for this chapter right now."
	case ErrMalformedQuestions:
		return "The chapter's question set could not be read."
	case ErrSessionActive:
		return "You already have an active quiz session."
	case ErrNoSelection:
		return "Select an option before submitting."
	case ErrUnknownOption:
		return "The selected option is not part of this question."
	case ErrAlreadyAnswered:
		return "This question has already been answered."
	case ErrWrongMode:
		return "The session does not allow this action right now."
	case ErrSessionNotFinished:
		return "The quiz session has not finished yet."
	case ErrGradingUnavailable:
		return "Your answer could not be graded. Please try again."
	case ErrUpstreamUnavailable:
		return "The content service is unavailable. Please try again later."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
