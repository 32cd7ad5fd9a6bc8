package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reelforge-server/models"
	"reelforge-server/service"
)

// Handler carries the dependencies of every route.
type Handler struct {
	Store       models.Store
	Coordinator *service.Coordinator
	Events      *service.Publisher
}

func NewHandler(store models.Store, coordinator *service.Coordinator, events *service.Publisher) *Handler {
	return &Handler{Store: store, Coordinator: coordinator, Events: events}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var ce *service.ConflictError
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Msg})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": ce.Msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
