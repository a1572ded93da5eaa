package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/quizpath/session-gateway/internal/model"
)

// wireQuestion mirrors the content API's question shape. The upstream may or
// may not include correct_answer/explanation depending on deployment; the
// loader drops them unconditionally so correctness is never resident in a
// session before grading.
type wireQuestion struct {
	ID            flexibleID `json:"id"`
	QuestionText  string     `json:"question_text"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// FetchQuestions loads the ordered question set for a chapter. Called exactly
// once per session, before the countdown may start.
//
// An empty list is returned as-is: the caller must treat it as "chapter not
// ready", never as a zero-question quiz. A question that fails validation
// (missing ID or text, option count outside 2..5) makes the whole payload
// malformed — a partially loadable chapter is not served.
func (c *Client) FetchQuestions(ctx context.Context, chapterID, token string) ([]model.Question, error) {
	u := fmt.Sprintf("%s/questions?chapterId=%s", c.contentURL, url.QueryEscape(chapterID))

	var wire []wireQuestion
	if err := c.getJSON(ctx, u, token, &wire); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	questions := make([]model.Question, 0, len(wire))
	for i, wq := range wire {
		q := model.Question{
			ID:      string(wq.ID),
			Text:    wq.QuestionText,
			Options: wq.Options, // order preserved exactly as received
		}
		if !q.WellFormed() {
			return nil, fmt.Errorf("%w: question %d failed validation", ErrMalformedPayload, i)
		}
		questions = append(questions, q)
	}

	return questions, nil
}

// ListSubjects fetches the subject catalog.
func (c *Client) ListSubjects(ctx context.Context, token string) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := c.getJSON(ctx, c.contentURL+"/subjects", token, &subjects); err != nil {
		return nil, fmt.Errorf("fetch subjects: %w", err)
	}
	return subjects, nil
}

// ListChapters fetches the chapters of a subject.
func (c *Client) ListChapters(ctx context.Context, subjectID, token string) ([]model.Chapter, error) {
	u := fmt.Sprintf("%s/chapters?subjectId=%s", c.contentURL, url.QueryEscape(subjectID))

	var chapters []model.Chapter
	if err := c.getJSON(ctx, u, token, &chapters); err != nil {
		return nil, fmt.Errorf("fetch chapters: %w", err)
	}
	return chapters, nil
}
