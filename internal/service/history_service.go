package service

import (
	"context"

	"github.com/quizpath/session-gateway/internal/model"
	"github.com/quizpath/session-gateway/internal/repository"
)

// HistoryService serves the finished-attempt history backing the progress
// view. Rows are written asynchronously by the history worker; this service
// only reads.
type HistoryService struct {
	repo *repository.AttemptRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(repo *repository.AttemptRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// ListByUser returns the user's most recent attempts, newest first.
func (s *HistoryService) ListByUser(ctx context.Context, userID string, limit int) ([]model.Attempt, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	attempts, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}
