package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProjectEvents streams progress events for one project over a websocket.
// Delivery is best effort and not persisted: a client that connects late or
// drops the connection re-fetches the project for the authoritative state
// and uses this stream only as a liveness signal.
func (h *Handler) ProjectEvents(c *gin.Context) {
	projectID := c.Param("project_id")
	project, err := h.Store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.Events.Subscribe(projectID)
	defer h.Events.Unsubscribe(sub)

	// Initial snapshot so the client starts from the current state.
	if err := conn.WriteJSON(gin.H{"project": project}); err != nil {
		return
	}

	// Drain reads to notice the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
