package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Processor consumes queued jobs and drives them through the coordinator.
type Processor struct {
	coordinator   *Coordinator
	redisAddr     string
	redisPassword string
}

func NewProcessor(coordinator *Coordinator, redisAddr, redisPassword string) *Processor {
	return &Processor{
		coordinator:   coordinator,
		redisAddr:     redisAddr,
		redisPassword: redisPassword,
	}
}

// Start runs the asynq server in the background. Concurrency bounds how many
// clip/stitch jobs this instance executes at once; jobs past that wait in
// redis, which does not affect batch semantics.
func (p *Processor) Start(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     p.redisAddr,
			Password: p.redisPassword,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeClipJob, p.handleClip)
	mux.HandleFunc(TypeStitchJob, p.handleStitch)

	log.Printf("[processor] starting with concurrency %d", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run task server: %v", err)
		}
	}()
}

func (p *Processor) handleClip(ctx context.Context, t *asynq.Task) error {
	jobID, err := decodePayload(t)
	if err != nil {
		return err
	}
	return p.coordinator.RunClipJob(ctx, jobID)
}

func (p *Processor) handleStitch(ctx context.Context, t *asynq.Task) error {
	jobID, err := decodePayload(t)
	if err != nil {
		return err
	}
	return p.coordinator.RunStitchJob(ctx, jobID)
}

func decodePayload(t *asynq.Task) (string, error) {
	var payload JobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return "", fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return payload.JobID, nil
}
