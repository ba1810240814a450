package streak_progress

import (
	domainagg "github.com/yungbote/vaccilearn-backend/internal/domain/aggregates"
	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/services"
)

type Pipeline struct {
	log    *logger.Logger
	engine domainagg.ProgressEngine
	notify services.Notifier
}

func New(baseLog *logger.Logger, engine domainagg.ProgressEngine, notify services.Notifier) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", jobs.KindStreakProgress),
		engine: engine,
		notify: notify,
	}
}

func (p *Pipeline) Type() string { return jobs.KindStreakProgress }
