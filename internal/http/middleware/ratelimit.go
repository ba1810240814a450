package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/vaccilearn-backend/internal/observability"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
)

const limiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmissionLimiter keeps one token bucket per learner, falling back to the client
// ip for unauthenticated requests. Idle buckets are pruned as requests arrive.
type SubmissionLimiter struct {
	mu        sync.Mutex
	perSecond rate.Limit
	burst     int
	visitors  map[string]*visitor
	lastPrune time.Time
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewSubmissionLimiter(perSecond float64, burst int, m *observability.Metrics) *SubmissionLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SubmissionLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		metrics:   m,
		now:       time.Now,
	}
}

func (l *SubmissionLimiter) Allow(key string) bool {
	if l.perSecond <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastPrune) > limiterIdle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.visitors, k)
			}
		}
		l.lastPrune = now
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

func (l *SubmissionLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			key = rd.LearnerID.String()
		}
		if !l.Allow(key) {
			l.metrics.IncRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "too many submissions", "code": apierr.CodeRateLimited},
			})
			return
		}
		c.Next()
	}
}
