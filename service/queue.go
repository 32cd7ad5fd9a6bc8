package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeClipJob   = "reel:clip"
	TypeStitchJob = "reel:stitch"
)

type JobPayload struct {
	JobID string `json:"job_id"`
}

// QueueDispatcher is the production Dispatcher: every clip and stitch job
// becomes one asynq task so the fan-out survives process restarts and is
// spread over the worker pool.
type QueueDispatcher struct {
	client     *asynq.Client
	jobTimeout time.Duration
}

func NewQueueDispatcher(redisAddr, redisPassword string, jobTimeout time.Duration) *QueueDispatcher {
	return &QueueDispatcher{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
		}),
		jobTimeout: jobTimeout,
	}
}

func (d *QueueDispatcher) enqueue(taskType, jobID string) error {
	payload, err := json.Marshal(JobPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	task := asynq.NewTask(taskType, payload,
		asynq.MaxRetry(3),
		// The asynq deadline sits above the per-job capability timeout so a
		// hung handler is still reaped.
		asynq.Timeout(d.jobTimeout+time.Minute),
		asynq.Retention(24*time.Hour),
	)
	info, err := d.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[queue] enqueued %s: job=%s task=%s", taskType, jobID, info.ID)
	return nil
}

func (d *QueueDispatcher) DispatchClip(jobID string) error {
	return d.enqueue(TypeClipJob, jobID)
}

func (d *QueueDispatcher) DispatchStitch(jobID string) error {
	return d.enqueue(TypeStitchJob, jobID)
}

func (d *QueueDispatcher) Close() error {
	return d.client.Close()
}
