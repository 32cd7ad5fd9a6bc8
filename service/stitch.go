package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"reelforge-server/models"
)

// SubmitStitch validates preconditions and starts the single stitch job for
// a project. Inputs are the present clip results in ascending promptIndex
// order; absent indices are skipped, not treated as aborting gaps.
func (c *Coordinator) SubmitStitch(ctx context.Context, projectID string) (*models.StitchJob, error) {
	lock := c.projectLock(projectID)
	lock.Lock()
	job, err := func() (*models.StitchJob, error) {
		defer lock.Unlock()
		project, err := c.store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if err := CanStartStitch(project); err != nil {
			return nil, err
		}
		job := &models.StitchJob{
			ID:            uuid.NewString(),
			ProjectID:     projectID,
			OrderedInputs: project.ClipResults.RefsInOrder(),
			PriorStatus:   project.Status,
			State:         models.JobStatePending,
		}
		if err := c.store.CreateStitchJob(ctx, job); err != nil {
			return nil, err
		}
		// Keep errorInfo as is; a failed stitch reverts to the pre-stitch
		// status and its message must survive the round trip.
		if err := c.store.UpdateProjectStatus(ctx, projectID, models.ProjectStatusStitching, project.ErrorInfo); err != nil {
			return nil, err
		}
		c.events.Publish(Event{
			Type:      EventStitchingStarted,
			ProjectID: projectID,
			JobID:     job.ID,
			Payload:   StitchStartedPayload{ClipCount: len(job.OrderedInputs)},
		})
		return job, nil
	}()
	if err != nil {
		return nil, err
	}

	if err := c.dispatch.DispatchStitch(job.ID); err != nil {
		log.Printf("[stitch] dispatch failed for job %s: %v", job.ID, err)
		c.settleStitch(ctx, job.ID, "", err)
	}
	return job, nil
}

// RunStitchJob executes the stitch job under the job timeout and settles it.
func (c *Coordinator) RunStitchJob(ctx context.Context, jobID string) error {
	job, err := c.store.GetStitchJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("[stitch] job %s gone before start, skipping", jobID)
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
			log.Printf("[stitch] project %s gone, abandoning job %s", job.ProjectID, jobID)
			return nil
		}
		return err
	}

	job.State = models.JobStateRunning
	if err := c.store.UpdateStitchJob(ctx, job); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()
	ref, stitchErr := c.capability.StitchClips(runCtx, StitchRequest{
		ProjectID:    project.ID,
		JobID:        job.ID,
		Inputs:       job.OrderedInputs,
		Orientation:  project.Orientation,
		AudioEnabled: project.AudioEnabled,
	})
	c.settleStitch(ctx, job.ID, ref, stitchErr)
	return nil
}

// settleStitch finishes the stitch job. Success replaces stitchedResult and
// moves the project to ready; failure reverts to the pre-stitch status and
// leaves the previous stitched result and all clips untouched.
func (c *Coordinator) settleStitch(ctx context.Context, jobID, ref string, jobErr error) {
	job, err := c.store.GetStitchJob(ctx, jobID)
	if err != nil {
		log.Printf("[stitch] settle: job %s unavailable: %v", jobID, err)
		return
	}

	lock := c.projectLock(job.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: the queue may deliver a job twice, and a
	// pre-lock snapshot can miss the settle that already won.
	job, err = c.store.GetStitchJob(ctx, jobID)
	if err != nil {
		log.Printf("[stitch] settle: job %s unavailable: %v", jobID, err)
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
		job.ResultRef = ref
	}
	if err := c.store.UpdateStitchJob(ctx, job); err != nil {
		log.Printf("[stitch] settle: job %s write skipped: %v", jobID, err)
		return
	}

	if jobErr != nil {
		project, err := c.store.GetProject(ctx, job.ProjectID)
		if err != nil {
			log.Printf("[stitch] settle: project %s gone, revert skipped", job.ProjectID)
			return
		}
		if err := c.store.UpdateProjectStatus(ctx, job.ProjectID, job.PriorStatus, project.ErrorInfo); err != nil {
			log.Printf("[stitch] settle: project %s gone, revert skipped", job.ProjectID)
			return
		}
		c.events.Publish(Event{
			Type:      EventStitchingFailed,
			ProjectID: job.ProjectID,
			JobID:     job.ID,
			Payload:   StitchFailedPayload{Error: job.Error},
		})
		log.Printf("[stitch] job %s failed, project %s reverted to %s", jobID, job.ProjectID, job.PriorStatus)
		return
	}

	if err := c.store.SetStitchedResult(ctx, job.ProjectID, ref); err != nil {
		log.Printf("[stitch] settle: project %s gone, result dropped", job.ProjectID)
		return
	}
	if err := c.store.UpdateProjectStatus(ctx, job.ProjectID, models.ProjectStatusReady, ""); err != nil {
		log.Printf("[stitch] settle: project %s gone after result write", job.ProjectID)
		return
	}
	c.events.Publish(Event{
		Type:      EventStitchingCompleted,
		ProjectID: job.ProjectID,
		JobID:     job.ID,
		Payload:   StitchCompletedPayload{ResultRef: ref},
	})
	log.Printf("[stitch] job %s completed for project %s", jobID, job.ProjectID)
}

// DeleteStitched clears the stitched result synchronously. Idempotent: a
// project without a stitched result is left as is.
func (c *Coordinator) DeleteStitched(ctx context.Context, projectID string) error {
	lock := c.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()
	return c.store.ClearStitchedResult(ctx, projectID)
}
