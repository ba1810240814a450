package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/vaccilearn-backend/internal/http"
	httpH "github.com/yungbote/vaccilearn-backend/internal/http/handlers"
	httpMW "github.com/yungbote/vaccilearn-backend/internal/http/middleware"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// wireRouter always serves health and metrics. The learner routes only exist in
// processes that run the API.
func wireRouter(log *logger.Logger, cfg Config, m *observability.Metrics, db *gorm.DB, live Live, svc Services) apphttp.RouterConfig {
	log.Info("Wiring router...")
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if live.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return live.Redis.Ping(ctx).Err() }
	}

	rc := apphttp.RouterConfig{
		Log:            log,
		Metrics:        m,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		OpsToken:       cfg.Auth.OpsToken,
		HealthHandler:  httpH.NewHealthHandler(checks),
	}
	if cfg.Tracing.Enabled {
		rc.ServiceName = cfg.ServiceName
	}
	if !cfg.RunsAPI() {
		return rc
	}
	rc.AuthMiddleware = httpMW.NewAuthMiddleware(log, cfg.Auth.JWTSecret)
	rc.SubmissionLimiter = httpMW.NewSubmissionLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, m)
	rc.SubmissionHandler = httpH.NewSubmissionHandler(svc.Submissions)
	rc.RealtimeHandler = httpH.NewRealtimeHandler(log, live.Hub)
	rc.SummaryHandler = httpH.NewSummaryHandler(svc.Summaries)
	rc.FailedJobHandler = httpH.NewFailedJobHandler(svc.FailedJobs)
	return rc
}
