package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"reelforge-server/models"
)

const (
	maxBatchPrompts = 50
	maxPromptRunes  = 400
)

// ClipRequest is one clip-generation instruction for the capability.
type ClipRequest struct {
	ProjectID       string
	JobID           string
	PromptIndex     int
	Prompt          string
	Orientation     string
	DurationSeconds int
}

// StitchRequest asks the capability to combine the inputs, in order, into a
// single reel. Inputs are normalized to the properties of the first one.
type StitchRequest struct {
	ProjectID    string
	JobID        string
	Inputs       []string
	Orientation  string
	AudioEnabled bool
}

// Capability is the external clip/stitch engine: an opaque asynchronous
// operation that eventually returns a stable result reference or an error.
type Capability interface {
	GenerateClip(ctx context.Context, req ClipRequest) (string, error)
	StitchClips(ctx context.Context, req StitchRequest) (string, error)
}

// Dispatcher hands a created job to whatever executes it. Production uses
// the asynq queue; tests run jobs in-process.
type Dispatcher interface {
	DispatchClip(jobID string) error
	DispatchStitch(jobID string) error
}

// Coordinator owns the generation and stitch workflows of all projects.
// Status transitions and in-flight checks are serialized per project through
// projectLock; clip fan-out itself is unordered and concurrent.
type Coordinator struct {
	store      models.Store
	events     *Publisher
	capability Capability
	dispatch   Dispatcher
	jobTimeout time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCoordinator(store models.Store, events *Publisher, capability Capability, dispatch Dispatcher, jobTimeout time.Duration) *Coordinator {
	if jobTimeout <= 0 {
		jobTimeout = 20 * time.Minute
	}
	return &Coordinator{
		store:      store,
		events:     events,
		capability: capability,
		dispatch:   dispatch,
		jobTimeout: jobTimeout,
		locks:      make(map[string]*sync.Mutex),
	}
}

// projectLock returns the single-writer mutex of a project. Entries are kept
// for the process lifetime; the table only grows with distinct project ids
// seen by this instance.
func (c *Coordinator) projectLock(projectID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[projectID] = l
	}
	return l
}

// validatePrompts trims every prompt and enforces the batch bounds. Nothing
// is persisted on violation.
func validatePrompts(prompts []string) ([]string, error) {
	if len(prompts) == 0 {
		return nil, validationErrf("prompt batch is empty")
	}
	if len(prompts) > maxBatchPrompts {
		return nil, validationErrf("prompt batch has %d entries, maximum is %d", len(prompts), maxBatchPrompts)
	}
	trimmed := make([]string, len(prompts))
	for i, raw := range prompts {
		p := strings.TrimSpace(raw)
		if p == "" {
			return nil, validationErrf("prompt %d is empty", i)
		}
		if n := utf8.RuneCountInString(p); n > maxPromptRunes {
			return nil, validationErrf("prompt %d is %d characters, maximum is %d", i, n, maxPromptRunes)
		}
		trimmed[i] = p
	}
	return trimmed, nil
}

// SubmitGeneration validates the prompt batch, replaces the project's prompt
// list, creates one job per prompt and dispatches them all. Jobs run
// independently: one failing never cancels or blocks its siblings.
func (c *Coordinator) SubmitGeneration(ctx context.Context, projectID string, prompts []string) ([]*models.GenerationJob, error) {
	trimmed, err := validatePrompts(prompts)
	if err != nil {
		return nil, err
	}

	lock := c.projectLock(projectID)
	lock.Lock()
	jobs, err := func() ([]*models.GenerationJob, error) {
		defer lock.Unlock()
		project, err := c.store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if err := CanStartGeneration(project); err != nil {
			return nil, err
		}
		if err := c.store.BeginGeneration(ctx, projectID, trimmed); err != nil {
			return nil, err
		}
		batchID := uuid.NewString()
		jobs := make([]*models.GenerationJob, len(trimmed))
		for i, prompt := range trimmed {
			jobs[i] = &models.GenerationJob{
				ID:          uuid.NewString(),
				ProjectID:   projectID,
				BatchID:     batchID,
				PromptIndex: i,
				Prompt:      prompt,
				State:       models.JobStatePending,
			}
		}
		if err := c.store.CreateGenerationJobs(ctx, jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	}()
	if err != nil {
		return nil, err
	}

	// Fan out after the guarded section; dispatch order carries no meaning.
	for _, job := range jobs {
		if err := c.dispatch.DispatchClip(job.ID); err != nil {
			log.Printf("[generation] dispatch failed for job %s: %v", job.ID, err)
			c.settleClip(ctx, job.ID, "", err)
		}
	}
	return jobs, nil
}

// RunClipJob executes one clip job end to end: mark running, call the
// capability under the job timeout, settle. Safe to call again for an
// already settled job (queue retries).
func (c *Coordinator) RunClipJob(ctx context.Context, jobID string) error {
	job, err := c.store.GetGenerationJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("[generation] job %s gone before start, skipping", jobID)
			return nil
		}
		return err
	}
	if models.JobSettled(job.State) {
		return nil
	}

	project, err := c.store.GetProject(ctx, job.ProjectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("[generation] project %s gone, abandoning job %s", job.ProjectID, jobID)
			return nil
		}
		return err
	}

	job.State = models.JobStateRunning
	if err := c.store.UpdateGenerationJob(ctx, job); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	c.events.Publish(Event{
		Type:      EventGenerationStarted,
		ProjectID: job.ProjectID,
		JobID:     job.ID,
		Payload:   ClipStartedPayload{PromptIndex: job.PromptIndex},
	})

	runCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()
	ref, genErr := c.capability.GenerateClip(runCtx, ClipRequest{
		ProjectID:       project.ID,
		JobID:           job.ID,
		PromptIndex:     job.PromptIndex,
		Prompt:          job.Prompt,
		Orientation:     project.Orientation,
		DurationSeconds: project.DurationSeconds,
	})
	c.settleClip(ctx, job.ID, ref, genErr)
	return nil
}

// settleClip records one job outcome and, when it is the last of its batch,
// derives the aggregate project status. Runs under the project lock so a
// late settle cannot race a new submit.
func (c *Coordinator) settleClip(ctx context.Context, jobID, ref string, jobErr error) {
	job, err := c.store.GetGenerationJob(ctx, jobID)
	if err != nil {
		log.Printf("[generation] settle: job %s unavailable: %v", jobID, err)
		return
	}

	lock := c.projectLock(job.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the queue may deliver a job twice, and a
	// pre-lock snapshot can miss the settle that already won.
	job, err = c.store.GetGenerationJob(ctx, jobID)
	if err != nil {
		log.Printf("[generation] settle: job %s unavailable: %v", jobID, err)
		return
	}
	if models.JobSettled(job.State) {
		return
	}
	if jobErr != nil {
		job.State = models.JobStateFailed
		job.Error = jobErr.Error()
	} else {
		job.State = models.JobStateSucceeded
		job.ClipRef = ref
	}
	if err := c.store.UpdateGenerationJob(ctx, job); err != nil {
		log.Printf("[generation] settle: job %s write skipped: %v", jobID, err)
		return
	}

	if jobErr != nil {
		c.events.Publish(Event{
			Type:      EventGenerationFailed,
			ProjectID: job.ProjectID,
			JobID:     job.ID,
			Payload:   ClipFailedPayload{PromptIndex: job.PromptIndex, Error: job.Error},
		})
	} else {
		if err := c.store.SetClipResult(ctx, job.ProjectID, job.PromptIndex, ref); err != nil {
			log.Printf("[generation] settle: project %s gone, result %s dropped", job.ProjectID, jobID)
			return
		}
		c.events.Publish(Event{
			Type:      EventGenerationCompleted,
			ProjectID: job.ProjectID,
			JobID:     job.ID,
			Payload:   ClipCompletedPayload{PromptIndex: job.PromptIndex, ClipRef: ref},
		})
	}

	batch, err := c.store.ListBatchJobs(ctx, job.BatchID)
	if err != nil || len(batch) == 0 {
		log.Printf("[generation] settle: batch %s unavailable: %v", job.BatchID, err)
		return
	}
	if !batchSettled(batch) {
		return
	}

	status, errorInfo := BatchOutcome(batch)
	if err := c.store.UpdateProjectStatus(ctx, job.ProjectID, status, errorInfo); err != nil {
		log.Printf("[generation] settle: project %s gone before aggregate", job.ProjectID)
		return
	}
	succeeded := 0
	for _, b := range batch {
		if b.State == models.JobStateSucceeded {
			succeeded++
		}
	}
	c.events.Publish(Event{
		Type:      EventGenerationDone,
		ProjectID: job.ProjectID,
		Payload:   BatchDonePayload{ClipCount: succeeded},
	})
	log.Printf("[generation] batch %s settled: %d/%d clips, project %s -> %s",
		job.BatchID, succeeded, len(batch), job.ProjectID, status)
}
