package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/quizpath/session-gateway/internal/model"
)

// QuestionView is the client-facing projection of a question. Grading fields
// are nil until the question has been graded; before that, correctness data
// simply does not exist inside the session.
type QuestionView struct {
	ID            string   `json:"id"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	UserSelection *string  `json:"user_selection,omitempty"`
	CorrectOption *string  `json:"correct_option,omitempty"`
	Explanation   *string  `json:"explanation,omitempty"`
}

// View is a consistent snapshot of the session, taken on the session
// goroutine.
type View struct {
	ID        uuid.UUID      `json:"id"`
	ChapterID string         `json:"chapter_id"`
	Mode      model.Mode     `json:"mode"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Score     int            `json:"score"`
	Remaining int            `json:"remaining_seconds"`
	Pending   string         `json:"pending_selection,omitempty"`
	Question  *QuestionView  `json:"question,omitempty"`
	Summary   *model.Summary `json:"summary,omitempty"`
}

// ReviewEntry is one question's read-only replay record: original order,
// full option list, the user's choice (nil if the question went unanswered),
// and the grading outcome. Explanation visibility is a display concern.
type ReviewEntry struct {
	ID            string   `json:"id"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	UserSelection *string  `json:"user_selection"`
	CorrectOption *string  `json:"correct_option"`
	Explanation   *string  `json:"explanation"`
}

// View returns a snapshot of the session state.
func (s *Session) View(ctx context.Context) (*View, error) {
	var v *View
	err := s.do(ctx, func() error {
		v = s.buildView()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Session) buildView() *View {
	v := &View{
		ID:        s.ID,
		ChapterID: s.ChapterID,
		Mode:      s.mode,
		Index:     s.current,
		Total:     len(s.questions),
		Score:     s.score,
		Pending:   s.pending,
		Summary:   s.summary,
	}

	if s.countdownRunning() {
		v.Remaining = s.remaining()
	} else {
		// Frozen at the moment of finishing; ignored in review.
		v.Remaining = s.frozenRemain
	}

	q := s.questions[s.current]
	v.Question = &QuestionView{
		ID:            q.ID,
		Text:          q.Text,
		Options:       q.Options,
		UserSelection: q.UserSelection,
		CorrectOption: q.CorrectOption,
		Explanation:   q.Explanation,
	}

	return v
}

// Review returns the full read-only replay with the frozen summary. Only
// valid in review mode. The data is already resident from the original
// grading responses — no network is involved, and nothing is mutated. The
// summary is the value captured at finishing, never recomputed from the
// per-question records.
func (s *Session) Review(ctx context.Context) ([]ReviewEntry, *model.Summary, error) {
	var (
		entries []ReviewEntry
		sum     *model.Summary
	)
	err := s.do(ctx, func() error {
		if s.mode != model.ModeReview {
			return ErrNotFinished
		}
		entries = make([]ReviewEntry, len(s.questions))
		for i, q := range s.questions {
			entries[i] = ReviewEntry{
				ID:            q.ID,
				Text:          q.Text,
				Options:       q.Options,
				UserSelection: q.UserSelection,
				CorrectOption: q.CorrectOption,
				Explanation:   q.Explanation,
			}
		}
		sum = s.summary
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entries, sum, nil
}
