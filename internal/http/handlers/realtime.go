package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/v1/stream
// Every open stream of a learner receives every result message for that learner.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	learnerID := ctxutil.LearnerID(c.Request.Context())
	if learnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}
	client := h.hub.Subscribe(learnerID)
	defer h.hub.Unsubscribe(client)

	h.log.Info("live stream open", "learner_id", learnerID, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.log.Info("live stream closed", "learner_id", learnerID, "client_id", client.ID)
}
