package database

import (
	"time"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
)

// LimiterWithClock pins the clock of a limiter built by NewRedisCreationLimiter.
func LimiterWithClock(l interfaces.CreationLimiter, now func() time.Time) interfaces.CreationLimiter {
	return l.(*redisCreationLimiter).withClock(now)
}
