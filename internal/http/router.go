package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/vaccilearn-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vaccilearn-backend/internal/http/middleware"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

const streamRoute = "/api/v1/stream"

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// ServiceName enables otelgin spans when set.
	ServiceName    string
	AllowedOrigins []string
	OpsToken       string

	AuthMiddleware    *httpMW.AuthMiddleware
	SubmissionLimiter *httpMW.SubmissionLimiter

	SubmissionHandler *httpH.SubmissionHandler
	RealtimeHandler   *httpH.RealtimeHandler
	SummaryHandler    *httpH.SummaryHandler
	FailedJobHandler  *httpH.FailedJobHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, streamRoute))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")

	protected := api.Group("")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.SubmissionHandler != nil {
			submissions := protected.Group("/submissions")
			if cfg.SubmissionLimiter != nil {
				submissions.Use(cfg.SubmissionLimiter.Handler())
			}
			submissions.POST("/question", cfg.SubmissionHandler.SubmitQuestion)
			submissions.POST("/streak", cfg.SubmissionHandler.SubmitStreakTick)
			submissions.POST("/daily-goal", cfg.SubmissionHandler.SubmitDailyGoalIncrement)
			submissions.POST("/game", cfg.SubmissionHandler.SubmitGameCompletion)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/stream", cfg.RealtimeHandler.Stream)
		}

		if cfg.SummaryHandler != nil {
			protected.GET("/summary", cfg.SummaryHandler.GetSummary)
		}
	}

	// Ops
	if cfg.FailedJobHandler != nil && cfg.OpsToken != "" {
		ops := api.Group("/ops", httpMW.RequireOpsToken(cfg.OpsToken))
		ops.GET("/failed-jobs", cfg.FailedJobHandler.ListFailedJobs)
	}

	return r
}
