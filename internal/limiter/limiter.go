package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// OpLimiter caps the number of remote operations issued per second
// A zero or negative rate disables throttling
type OpLimiter struct {
	limiter *rate.Limiter
}

// NewOpLimiter creates a limiter allowing opsPerSecond operations with a
// burst of one second's worth
func NewOpLimiter(opsPerSecond float64) *OpLimiter {
	if opsPerSecond <= 0 {
		return &OpLimiter{}
	}
	burst := int(opsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &OpLimiter{limiter: rate.NewLimiter(rate.Limit(opsPerSecond), burst)}
}

// Wait blocks until the next operation may proceed or ctx is done
func (l *OpLimiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Enabled reports whether throttling is active
func (l *OpLimiter) Enabled() bool {
	return l != nil && l.limiter != nil
}
