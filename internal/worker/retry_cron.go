package worker

// retry_cron.go
// Background goroutine that moves scheduled retries whose time has come
// from the jobs:agendados sorted set back onto their queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 5 * time.Second
	retryBatchSize    = 50
)

// StartRetryCron ticks every few seconds until ctx is cancelled.
func StartRetryCron(ctx context.Context, rdb *redis.Client) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case now := <-ticker.C:
				if n, err := promoverAgendados(ctx, rdb, now); err != nil {
					log.Error().Err(err).Msg("retry_cron: failed to promote scheduled jobs")
				} else if n > 0 {
					log.Info().Int("count", n).Msg("retry_cron: jobs requeued")
				}
			}
		}
	}()
}

// promoverAgendados requeues due jobs. ZREM decides ownership so several
// replicas never requeue the same job twice.
func promoverAgendados(ctx context.Context, rdb *redis.Client, now time.Time) (int, error) {
	membros, err := rdb.ZRangeByScore(ctx, QueueAgendados, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	movidos := 0
	for _, m := range membros {
		removido, err := rdb.ZRem(ctx, QueueAgendados, m).Result()
		if err != nil {
			return movidos, err
		}
		if removido == 0 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(m), &job); err != nil || job.Queue == "" {
			log.Error().Err(err).Msg("retry_cron: dropping malformed scheduled job")
			continue
		}
		if err := rdb.LPush(ctx, job.Queue, m).Err(); err != nil {
			return movidos, err
		}
		movidos++
	}
	return movidos, nil
}
