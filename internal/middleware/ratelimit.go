package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// visitorTTL is how long an idle user's limiter is kept
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserRateLimiter applies a token bucket per authenticated user.
type UserRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter creates a limiter allowing perMinute requests per user
// with the given burst. A non-positive perMinute disables limiting.
func NewUserRateLimiter(perMinute float64, burst int) *UserRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &UserRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether the user may make a request now
func (rl *UserRateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[userID] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Cleanup removes idle visitors every interval until ctx is done
func (rl *UserRateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for id, v := range rl.visitors {
				if time.Since(v.lastSeen) > visitorTTL {
					delete(rl.visitors, id)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects requests over the user's budget. It must run after JWTAuth.
func (rl *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			userID = "ip:" + c.ClientIP()
		}
		if !rl.Allow(userID) {
			c.Header("Retry-After", "60")
			HandleAPIError(c, apperrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
