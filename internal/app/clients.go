package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/vaccilearn-backend/internal/data/db"
	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
	"github.com/yungbote/vaccilearn-backend/internal/realtime"
	"github.com/yungbote/vaccilearn-backend/internal/realtime/bus"
)

// Live is the result fan-out: workers publish on Bus, the API process forwards
// into Hub, and Hub writes to the open streams.
type Live struct {
	Hub   *realtime.Hub
	Bus   bus.Bus
	Redis *goredis.Client
}

func openDatabase(log *logger.Logger, cfg DatabaseConfig) (*db.Service, error) {
	if cfg.Driver == "sqlite" {
		svc, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return svc, nil
	}
	svc, err := db.NewPostgresService(log, db.PostgresConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Name:            cfg.Name,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	return svc, nil
}

func wireLive(ctx context.Context, log *logger.Logger, cfg Config, m *observability.Metrics) (Live, error) {
	log.Info("Wiring live fan-out...")
	live := Live{Hub: realtime.NewHub(log, realtime.WithMetrics(m))}

	if cfg.Redis.Addr == "" {
		if cfg.Mode != ModeAll {
			log.Warn("REDIS_ADDR not set; live results only reach streams held by this process", "mode", cfg.Mode)
		}
		live.Bus = bus.NewLocalBus()
		return live, nil
	}

	rdb, err := bus.NewRedisClient(ctx, bus.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return Live{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
	if err != nil {
		_ = rdb.Close()
		return Live{}, fmt.Errorf("init redis live bus: %w", err)
	}
	live.Bus = b
	live.Redis = rdb
	return live, nil
}
