package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelforge-server/models"
)

// CreateProject inserts a new draft project. Generation and stitching are
// separate calls; a fresh project carries no prompts and no clips.
func (h *Handler) CreateProject(c *gin.Context) {
	var req struct {
		Title           string `json:"title"`
		Orientation     string `json:"orientation"`
		DurationSeconds int    `json:"durationSeconds"`
		AudioEnabled    bool   `json:"audioEnabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Orientation == "" {
		req.Orientation = models.OrientationPortrait
	}
	if req.Orientation != models.OrientationPortrait && req.Orientation != models.OrientationLandscape {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orientation must be portrait or landscape"})
		return
	}

	project := models.Project{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Orientation:     req.Orientation,
		DurationSeconds: req.DurationSeconds,
		AudioEnabled:    req.AudioEnabled,
		PromptList:      models.PromptList{},
		ClipResults:     models.ClipMap{},
		Status:          models.ProjectStatusDraft,
	}
	if err := h.Store.CreateProject(c.Request.Context(), &project); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// GetProject returns the authoritative project state. Callers reconcile
// against this after any event-stream gap.
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.Store.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// UpdateProject changes project metadata. Orientation is immutable once any
// clip result exists.
func (h *Handler) UpdateProject(c *gin.Context) {
	var req struct {
		Title           *string `json:"title"`
		Orientation     *string `json:"orientation"`
		DurationSeconds *int    `json:"durationSeconds"`
		AudioEnabled    *bool   `json:"audioEnabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.Store.GetProject(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Orientation != nil && *req.Orientation != project.Orientation {
		if *req.Orientation != models.OrientationPortrait && *req.Orientation != models.OrientationLandscape {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orientation must be portrait or landscape"})
			return
		}
		if len(project.ClipResults) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orientation is immutable once a clip exists"})
			return
		}
		project.Orientation = *req.Orientation
	}
	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.DurationSeconds != nil {
		project.DurationSeconds = *req.DurationSeconds
	}
	if req.AudioEnabled != nil {
		project.AudioEnabled = *req.AudioEnabled
	}
	if err := h.Store.SaveProject(c.Request.Context(), project); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": project})
}

// DeleteProject removes the project record. Jobs still in flight settle
// against the missing record and abandon without writes.
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.Store.DeleteProject(c.Request.Context(), c.Param("project_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
