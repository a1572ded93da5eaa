package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizpath/session-gateway/internal/model"
)

// AttemptRepository handles finished-attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Insert persists a single attempt summary.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.Attempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (user_id, chapter_id, score, total, finished_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.UserID, a.ChapterID, a.Score, a.Total, a.FinishedAt)
	return err
}

// BulkInsert persists a batch of attempt summaries in one statement.
func (r *AttemptRepository) BulkInsert(ctx context.Context, batch []*model.Attempt) error {
	n := len(batch)
	userIDs := make([]string, 0, n)
	chapterIDs := make([]string, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, a := range batch {
		userIDs = append(userIDs, a.UserID)
		chapterIDs = append(chapterIDs, a.ChapterID)
		scores = append(scores, a.Score)
		totals = append(totals, a.Total)
		finishedAts = append(finishedAts, a.FinishedAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (user_id, chapter_id, score, total, finished_at)
		 SELECT u.user_id, u.chapter_id, u.score, u.total, u.finished_at
		 FROM UNNEST(
			$1::text[],
			$2::text[],
			$3::int[],
			$4::int[],
			$5::timestamptz[]
		 ) AS u (user_id, chapter_id, score, total, finished_at)`,
		userIDs, chapterIDs, scores, totals, finishedAts)
	return err
}

// ListByUser retrieves a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, chapter_id, score, total, finished_at
		 FROM attempts
		 WHERE user_id = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.ChapterID, &a.Score, &a.Total, &a.FinishedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
