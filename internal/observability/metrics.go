package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/vaccilearn-backend/internal/domain/jobs"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	jobsProcessed    *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobsDeadLettered *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	failedJobsOpen   prometheus.Gauge

	aggregateOps       *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec
	grants             *prometheus.CounterVec
	rulesFired         *prometheus.CounterVec
	eventsReplayed     *prometheus.CounterVec

	liveClients      prometheus.Gauge
	liveDeliveries   *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	rateLimited      prometheus.Counter
	pgStats          *prometheus.GaugeVec
	redisUp          prometheus.Gauge
	redisPing        prometheus.Gauge
	collectorSeconds time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when Init was never called.
// Every method is nil-safe so callers never need to check.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// New builds a metrics set on its own registry. Tests use this directly.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaccilearn_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaccilearn_http_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_jobs_processed_total",
			Help: "Job attempts by kind and outcome (succeeded, retrying, dead).",
		}, []string{"kind", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaccilearn_job_duration_seconds",
			Help:    "Job attempt duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
		jobsDeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_jobs_dead_lettered_total",
			Help: "Jobs moved to the dead-letter store.",
		}, []string{"kind"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vaccilearn_job_queue_depth",
			Help: "Job rows by kind and status.",
		}, []string{"kind", "status"}),
		failedJobsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaccilearn_failed_jobs_open",
			Help: "Dead-letter rows awaiting inspection.",
		}),
		aggregateOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vaccilearn_aggregate_operation_duration_seconds",
			Help:    "Progress engine write duration by operation and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_aggregate_conflicts_total",
			Help: "Progress engine writes that hit a uniqueness conflict.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_aggregate_retryable_total",
			Help: "Progress engine writes that failed with a retryable error.",
		}, []string{"operation"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_reward_grants_total",
			Help: "Badge and certificate grants actually created.",
		}, []string{"type"}),
		rulesFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_reward_rules_fired_total",
			Help: "Reward rules whose condition matched.",
		}, []string{"context"}),
		eventsReplayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_events_replayed_total",
			Help: "Redelivered submissions answered from the applied-event ledger.",
		}, []string{"kind"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaccilearn_live_clients",
			Help: "Connected server-sent-event clients.",
		}),
		liveDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_live_messages_total",
			Help: "Live messages by type and result (delivered, dropped).",
		}, []string{"type", "result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vaccilearn_submissions_total",
			Help: "Accepted submissions by kind.",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaccilearn_rate_limited_total",
			Help: "Requests rejected by the per-learner limiter.",
		}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vaccilearn_postgres_pool",
			Help: "database/sql pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaccilearn_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaccilearn_redis_ping_seconds",
			Help: "Last redis ping latency.",
		}),
		collectorSeconds: 15 * time.Second,
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobsProcessed, m.jobDuration, m.jobsDeadLettered, m.queueDepth, m.failedJobsOpen,
		m.aggregateOps, m.aggregateConflicts, m.aggregateRetries,
		m.grants, m.rulesFired, m.eventsReplayed,
		m.liveClients, m.liveDeliveries, m.submissions, m.rateLimited,
		m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetCollectorInterval(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.collectorSeconds = d
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveJob(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(kind, outcome).Inc()
	m.jobDuration.WithLabelValues(kind, outcome).Observe(dur.Seconds())
}

func (m *Metrics) IncDeadLettered(kind string) {
	if m == nil {
		return
	}
	m.jobsDeadLettered.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetFailedJobsOpen(n int64) {
	if m == nil {
		return
	}
	m.failedJobsOpen.Set(float64(n))
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(name, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(name).Inc()
}

func (m *Metrics) IncGrant(kind string) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRuleFired(context string) {
	if m == nil {
		return
	}
	m.rulesFired.WithLabelValues(context).Inc()
}

func (m *Metrics) IncReplayed(kind string) {
	if m == nil {
		return
	}
	m.eventsReplayed.WithLabelValues(kind).Inc()
}

func (m *Metrics) LiveClientsInc() {
	if m == nil {
		return
	}
	m.liveClients.Inc()
}

func (m *Metrics) LiveClientsDec() {
	if m == nil {
		return
	}
	m.liveClients.Dec()
}

func (m *Metrics) IncLiveMessage(msgType string, delivered bool) {
	if m == nil {
		return
	}
	result := "dropped"
	if delivered {
		result = "delivered"
	}
	m.liveDeliveries.WithLabelValues(msgType, result).Inc()
}

func (m *Metrics) IncSubmission(kind string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.collectorSeconds)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.collectorSeconds)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.collectorSeconds)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.queueDepth.Reset()
				var rows []struct {
					JobType string
					Status  string
					Count   int64
				}
				if err := db.WithContext(ctx).
					Model(&jobs.JobRun{}).
					Select("job_type, status, count(*) as count").
					Group("job_type, status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					status := strings.TrimSpace(row.Status)
					if status == "" {
						status = "unknown"
					}
					m.queueDepth.WithLabelValues(row.JobType, status).Set(float64(row.Count))
				}
			}
		}
	}()
}
