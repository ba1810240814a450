package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type fakeFailed struct {
	filter services.FailedJobFilter
}

func (f *fakeFailed) List(_ dbctx.Context, filter services.FailedJobFilter) (*services.FailedJobPage, error) {
	f.filter = filter
	return &services.FailedJobPage{Items: []*types.FailedJob{}, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeFailed) OpenCount(dbctx.Context) (int64, error) { return 0, nil }

func TestListFailedJobsPassesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeFailed{}
	r := gin.New()
	r.GET("/failed-jobs", NewFailedJobHandler(svc).ListFailedJobs)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/failed-jobs?status=failed&queue=streak_progress&limit=10&offset=20", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, services.FailedJobFilter{Status: "failed", Queue: "streak_progress", Limit: 10, Offset: 20}, svc.filter)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/failed-jobs?limit=many", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
