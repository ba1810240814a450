package db

import (
	"fmt"

	types "github.com/yungbote/vaccilearn-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureProgressIndexes adds the partial unique indexes gorm tags cannot express.
// Both Postgres and SQLite accept this syntax.
func EnsureProgressIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			// one open attempt per (lesson, learner); retakes only start after completion
			name: "idx_lesson_progress_open",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_lesson_progress_open
				ON lesson_progress(lesson_id, learner_id) WHERE is_completed = false;`,
		},
		{
			name: "idx_streak_progress_open",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_streak_progress_open
				ON streak_progress(streak_id, learner_id) WHERE in_progress = true;`,
		},
		{
			name: "idx_daily_goal_progress_open",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_goal_progress_open
				ON daily_goal_progress(goal_id, learner_id) WHERE in_progress = true;`,
		},
		{
			name: "idx_job_run_runnable",
			sql: `CREATE INDEX IF NOT EXISTS idx_job_run_runnable
				ON job_run(job_type, next_run_at) WHERE status IN ('queued', 'retrying');`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating database tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureProgressIndexes(s.db); err != nil {
		s.log.Error("Progress index migration failed", "error", err)
		return err
	}
	return nil
}
