package upstream

import (
	"context"
	"fmt"

	"github.com/quizpath/session-gateway/internal/model"
)

// AttemptRequest is the grading submission payload. Field names follow the
// grading authority's contract.
type AttemptRequest struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
	ChapterID      string `json:"chapterId"`
}

type attemptResponse struct {
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// SubmitAttempt sends one answer to the grading authority. Correctness is
// decided exclusively server-side; the gateway never evaluates answers
// locally. A failure here is recoverable — the caller keeps the question
// answerable and may retry.
func (c *Client) SubmitAttempt(ctx context.Context, req AttemptRequest, token string) (*model.Feedback, error) {
	var resp attemptResponse
	if err := c.postJSON(ctx, c.gradingURL+"/attempts", token, req, &resp); err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	return &model.Feedback{
		Correct:       resp.Correct,
		CorrectOption: resp.CorrectOption,
		Explanation:   resp.Explanation,
	}, nil
}
