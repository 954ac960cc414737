package openai

import (
	"context"

	"golang.org/x/time/rate"
)

// throttle gates outbound provider calls. A nil throttle never blocks.
type throttle struct {
	limiter *rate.Limiter
}

func newThrottle(rps float64, burst int) *throttle {
	if rps <= 0 {
		return &throttle{}
	}
	if burst < 1 {
		burst = 1
	}
	return &throttle{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// wait blocks until a request may proceed or ctx is done.
func (t *throttle) wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
