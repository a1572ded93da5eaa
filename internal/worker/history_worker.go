package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/quizpath/session-gateway/internal/config"
	"github.com/quizpath/session-gateway/internal/model"
	"github.com/quizpath/session-gateway/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AttemptBatchSize    = 50
	AttemptBatchTimeout = 2 * time.Second
	AttemptPollTimeout  = 1 * time.Second
)

// HistoryWorker drains finished-attempt summaries from the Redis queue and
// persists them into PostgreSQL in batches. Sessions never wait on this path:
// enqueueing is fire-and-forget.
type HistoryWorker struct {
	repo *repository.AttemptRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewHistoryWorker creates a new HistoryWorker.
func NewHistoryWorker(repo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *HistoryWorker {
	return &HistoryWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "history_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled, flushing any remainder
// on the way out.
func (w *HistoryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("HistoryWorker started")

	batch := make([]*model.Attempt, 0, AttemptBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AttemptBatchSize || time.Since(lastFlush) >= AttemptBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AttemptPollTimeout, config.WorkerKey.PersistAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.Attempt
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &a)
		}
	}
}

// flushSafe writes a batch, falling back to single inserts and requeueing
// whatever still fails.
func (w *HistoryWorker) flushSafe(ctx context.Context, batch []*model.Attempt) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk attempt insert failed, using fallback")

		for _, a := range batch {
			if err := w.repo.Insert(ctx, a); err != nil {
				w.log.Error().Err(err).Msg("Single insert failed — requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Attempt batch persisted")
}
