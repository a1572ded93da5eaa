package model

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is the persisted summary of a finished quiz session. Live session
// state is never stored — only this record survives teardown, feeding the
// progress view.
type Attempt struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	ChapterID  string    `json:"chapter_id"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	FinishedAt time.Time `json:"finished_at"`
}
