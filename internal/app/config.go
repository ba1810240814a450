package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
)

const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

type Config struct {
	Mode        string `mapstructure:"mode"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`

	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
}

type LogConfig struct {
	Mode           string `mapstructure:"mode"`
	File           string `mapstructure:"file"`
	HashLearnerIDs bool   `mapstructure:"hash_learner_ids"`
	HashSalt       string `mapstructure:"hash_salt"`
}

type HTTPConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is postgres or sqlite.
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	// Empty Addr keeps live fan-out inside the process.
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	OpsToken  string `mapstructure:"ops_token"`
}

type WorkerConfig struct {
	Concurrency        map[string]int `mapstructure:"concurrency"`
	DefaultConcurrency int            `mapstructure:"default_concurrency"`
	MaxAttempts        int            `mapstructure:"max_attempts"`
	BackoffBase        time.Duration  `mapstructure:"backoff_base"`
	BackoffMax         time.Duration  `mapstructure:"backoff_max"`
	StaleRunning       time.Duration  `mapstructure:"stale_running"`
	PollInterval       time.Duration  `mapstructure:"poll_interval"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Headers     string  `mapstructure:"headers"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type RulesConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

type SweepConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeAll)
	v.SetDefault("service_name", "vaccilearn")
	v.SetDefault("environment", "development")

	v.SetDefault("log.mode", "development")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "vaccilearn")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "vaccilearn.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.channel", "vaccilearn:live")

	v.SetDefault("auth.jwt_secret", "defaultsecret")

	v.SetDefault("worker.default_concurrency", 2)
	v.SetDefault("worker.concurrency", map[string]int{
		jobs.KindQuestionSubmission: 4,
		jobs.KindStreakProgress:     2,
		jobs.KindDailyGoalProgress:  2,
		jobs.KindGameCompletion:     2,
	})
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.backoff_base", 2*time.Second)
	v.SetDefault("worker.backoff_max", 5*time.Minute)
	v.SetDefault("worker.stale_running", 5*time.Minute)
	v.SetDefault("worker.poll_interval", time.Second)

	v.SetDefault("rate_limit.per_second", 5.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 0.1)

	v.SetDefault("rules.seed_file", "config/reward_rules.yaml")

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.spec", "15 0 * * *")
}

// the flat names the deployment manifests already use
var envBindings = map[string]string{
	"mode":                       "APP_MODE",
	"environment":                "APP_ENV",
	"log.mode":                   "LOG_MODE",
	"log.file":                   "LOG_FILE",
	"log.hash_learner_ids":       "LOG_HASH_LEARNER_IDS",
	"log.hash_salt":              "LOG_HASH_SALT",
	"http.addr":                  "HTTP_ADDR",
	"database.driver":            "DB_DRIVER",
	"database.host":              "POSTGRES_HOST",
	"database.port":              "POSTGRES_PORT",
	"database.user":              "POSTGRES_USER",
	"database.password":          "POSTGRES_PASSWORD",
	"database.name":              "POSTGRES_NAME",
	"database.sslmode":           "POSTGRES_SSLMODE",
	"database.sqlite_path":       "SQLITE_PATH",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"redis.channel":              "REDIS_LIVE_CHANNEL",
	"auth.jwt_secret":            "JWT_SECRET_KEY",
	"auth.ops_token":             "OPS_TOKEN",
	"worker.max_attempts":        "JOB_MAX_ATTEMPTS",
	"worker.default_concurrency": "WORKER_CONCURRENCY",
	"worker.backoff_base":        "JOB_BACKOFF_BASE",
	"worker.backoff_max":         "JOB_BACKOFF_MAX",
	"worker.stale_running":       "JOB_STALE_RUNNING",
	"worker.poll_interval":       "JOB_POLL_INTERVAL",
	"rate_limit.per_second":      "RATE_LIMIT_PER_SECOND",
	"rate_limit.burst":           "RATE_LIMIT_BURST",
	"metrics.enabled":            "METRICS_ENABLED",
	"tracing.enabled":            "OTEL_ENABLED",
	"tracing.endpoint":           "OTEL_EXPORTER_OTLP_ENDPOINT",
	"tracing.headers":            "OTEL_EXPORTER_OTLP_HEADERS",
	"tracing.insecure":           "OTEL_EXPORTER_OTLP_INSECURE",
	"tracing.sample_ratio":       "OTEL_SAMPLE_RATIO",
	"rules.seed_file":            "REWARD_RULES_FILE",
	"sweep.enabled":              "SWEEP_ENABLED",
	"sweep.spec":                 "SWEEP_SPEC",
}

// LoadConfig reads config.yaml from the given paths when present, then the environment.
// Environment values win.
func LoadConfig(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("VACCILEARN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("unknown mode %q (want api, worker or all)", c.Mode)
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Mode != ModeAll && c.Database.Driver == "sqlite" {
		return fmt.Errorf("sqlite is single-process; use mode=all")
	}
	if c.Worker.MaxAttempts < 1 {
		return fmt.Errorf("worker.max_attempts must be at least 1")
	}
	if c.Environment == "production" && c.Auth.JWTSecret == "defaultsecret" {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	return nil
}

func (c Config) RunsAPI() bool    { return c.Mode == ModeAPI || c.Mode == ModeAll }
func (c Config) RunsWorker() bool { return c.Mode == ModeWorker || c.Mode == ModeAll }
