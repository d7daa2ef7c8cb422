package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueOCR = "jobs:ocr"
	// QueueAgendados is a sorted set of jobs waiting for their retry time,
	// scored by unix seconds.
	QueueAgendados = "jobs:agendados"

	TipoOCR = "ocr"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type      string          `json:"type"`
	Queue     string          `json:"queue"`
	Payload   json.RawMessage `json:"payload"`
	Tentativa int             `json:"tentativa"`
}

// JobHandler processes one job type. Returning an error schedules a retry;
// Esgotado is called once retries run out.
type JobHandler interface {
	Process(ctx context.Context, job Job) error
	Esgotado(ctx context.Context, job Job, err error)
}

// WorkerHandlers binds job types to their processors.
type WorkerHandlers struct {
	OCR JobHandler
}

func (h *WorkerHandlers) para(tipo string) JobHandler {
	switch tipo {
	case TipoOCR:
		return h.OCR
	}
	return nil
}

// OCRJobPayload identifies the uploaded document to read.
type OCRJobPayload struct {
	DocumentoID string `json:"documento_id"`
	// Fretista of the uploading carrier session, if any
	Fretista string `json:"fretista,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueOCR pushes a document read job to Redis.
func (d *Dispatcher) EnqueueOCR(ctx context.Context, documentoID uuid.UUID, fretista string) error {
	return d.enqueue(ctx, QueueOCR, TipoOCR, OCRJobPayload{DocumentoID: documentoID.String(), Fretista: fretista})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, Job{Type: jobType, Queue: queue, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, job.Queue, encoded).Err()
}

// Agendar parks a job until em; the retry cron moves it back to its queue.
func (d *Dispatcher) Agendar(ctx context.Context, job Job, em time.Time) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.ZAdd(ctx, QueueAgendados, redis.Z{Score: float64(em.Unix()), Member: encoded}).Err()
}

// EnviarDLQ moves a job to the dead letter list of its queue.
func (d *Dispatcher) EnviarDLQ(ctx context.Context, job Job, motivo string) {
	SendToDLQ(ctx, d.rdb, job, motivo)
}

// fila is the retry side of the Dispatcher used by processJob.
type fila interface {
	Agendar(ctx context.Context, job Job, em time.Time) error
	EnviarDLQ(ctx context.Context, job Job, motivo string)
}

// PoolConfig sizes the pool and its retry policy.
type PoolConfig struct {
	Workers       int
	MaxTentativas int
}

// StartWorkerPool launches cfg.Workers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, d *Dispatcher, handlers *WorkerHandlers, cfg PoolConfig) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxTentativas <= 0 {
		cfg.MaxTentativas = 3
	}
	for i := 0; i < cfg.Workers; i++ {
		go runWorker(ctx, rdb, d, handlers, cfg.MaxTentativas, i)
	}
	log.Info().Msgf("worker pool started with %d workers", cfg.Workers)
}

func runWorker(ctx context.Context, rdb *redis.Client, f fila, handlers *WorkerHandlers, maxTentativas, id int) {
	queues := []string{QueueOCR}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, f, handlers, maxTentativas, result[0], result[1], time.Now())
		}
	}
}

func processJob(ctx context.Context, f fila, handlers *WorkerHandlers, maxTentativas int, queue, raw string, now time.Time) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	if job.Queue == "" {
		job.Queue = queue
	}
	h := handlers.para(job.Type)
	if h == nil {
		f.EnviarDLQ(ctx, job, "no handler for job type")
		return
	}

	log.Info().Str("type", job.Type).Str("queue", queue).Int("tentativa", job.Tentativa).Msg("processing job")
	err := h.Process(ctx, job)
	if err == nil {
		return
	}

	job.Tentativa++
	if job.Tentativa >= maxTentativas {
		f.EnviarDLQ(ctx, job, err.Error())
		h.Esgotado(ctx, job, err)
		return
	}
	em := now.Add(computeRetryBackoff(job.Tentativa))
	if serr := f.Agendar(ctx, job, em); serr != nil {
		log.Error().Err(serr).Str("type", job.Type).Msg("failed to schedule retry")
		f.EnviarDLQ(ctx, job, err.Error())
		h.Esgotado(ctx, job, err)
		return
	}
	log.Warn().Err(err).
		Str("type", job.Type).
		Int("tentativa", job.Tentativa).
		Time("retry_at", em).
		Msg("job failed, retry scheduled")
}

// computeRetryBackoff doubles from 10s, capped at 10 minutes.
func computeRetryBackoff(tentativa int) time.Duration {
	d := 10 * time.Second
	for i := 1; i < tentativa; i++ {
		d *= 2
		if d >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return d
}
