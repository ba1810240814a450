package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/vaccilearn-backend/internal/http/response"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type SummaryHandler struct {
	summaries services.SummaryService
}

func NewSummaryHandler(summaries services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// GET /api/v1/summary
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	view, err := h.summaries.GetSummary(requestDB(c), ctxutil.LearnerID(c.Request.Context()))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, view)
}
