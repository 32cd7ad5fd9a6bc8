package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge-server/models"
)

// SubmitGeneration starts one clip batch: one job per prompt, fanned out
// concurrently. Accepted work answers 202 with the created job ids.
func (h *Handler) SubmitGeneration(c *gin.Context) {
	var req struct {
		Prompts []string `json:"prompts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.Coordinator.SubmitGeneration(c.Request.Context(), c.Param("project_id"), req.Prompts)
	if err != nil {
		writeError(c, err)
		return
	}
	jobIDs := make([]string, len(jobs))
	for i, j := range jobs {
		jobIDs[i] = j.ID
	}
	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": jobs[0].BatchID,
		"job_ids":  jobIDs,
	})
}

// SubmitStitch starts the single stitch job over the present clips.
func (h *Handler) SubmitStitch(c *gin.Context) {
	job, err := h.Coordinator.SubmitStitch(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     job.ID,
		"clip_count": len(job.OrderedInputs),
	})
}

// DeleteStitched clears the stitched reel reference. Idempotent.
func (h *Handler) DeleteStitched(c *gin.Context) {
	if err := h.Coordinator.DeleteStitched(c.Request.Context(), c.Param("project_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetJob returns the state of a generation or stitch job.
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	ctx := c.Request.Context()

	if job, err := h.Store.GetGenerationJob(ctx, jobID); err == nil {
		c.JSON(http.StatusOK, gin.H{"job": job, "kind": "generation"})
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		writeError(c, err)
		return
	}
	job, err := h.Store.GetStitchJob(ctx, jobID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "kind": "stitch"})
}
