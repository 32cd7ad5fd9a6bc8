package routers

import (
	"github.com/gin-gonic/gin"

	"reelforge-server/routers/api"
)

func InitRouter(h *api.Handler) *gin.Engine {
	r := gin.Default()
	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", h.CreateProject)
		v1.GET("/projects/:project_id", h.GetProject)
		v1.PUT("/projects/:project_id", h.UpdateProject)
		v1.DELETE("/projects/:project_id", h.DeleteProject)
		v1.POST("/projects/:project_id/generate", h.SubmitGeneration)
		v1.POST("/projects/:project_id/stitch", h.SubmitStitch)
		v1.DELETE("/projects/:project_id/stitch", h.DeleteStitched)
		v1.GET("/jobs/:job_id", h.GetJob)
	}
	r.GET("/projects/:project_id/events/wss", h.ProjectEvents)
	return r
}
