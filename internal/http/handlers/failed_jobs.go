package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vaccilearn-backend/internal/http/response"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type FailedJobHandler struct {
	failed services.FailedJobService
}

func NewFailedJobHandler(failed services.FailedJobService) *FailedJobHandler {
	return &FailedJobHandler{failed: failed}
}

// GET /api/v1/ops/failed-jobs?status=failed&queue=question_submission&limit=50&offset=0
func (h *FailedJobHandler) ListFailedJobs(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	page, err := h.failed.List(requestDB(c), services.FailedJobFilter{
		Status: c.Query("status"),
		Queue:  c.Query("queue"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.Validation("%s must be an integer", key)
	}
	return n, nil
}
