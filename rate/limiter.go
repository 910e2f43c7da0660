// Package rate keeps a token-bucket limiter per client id and forgets
// clients that stay quiet long enough.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	burst  int
	rps    float64
	expiry time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewLimiter builds a limiter granting each client a bucket of burst tokens
// refilled at rps. Clients idle longer than expiry minutes are evicted by a
// background sweep.
func NewLimiter(burst int, expiry int, rps float64) *Limiter {
	l := &Limiter{
		burst:    burst,
		rps:      rps,
		expiry:   time.Duration(expiry) * time.Minute,
		visitors: make(map[string]*visitor),
	}
	go l.sweep()
	return l
}

// Check consumes one token from the client's bucket and reports whether the
// request is within budget.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = time.Now()
	return v.bucket.Allow()
}

func (l *Limiter) sweep() {
	for range time.Tick(time.Minute) {
		l.mu.Lock()
		for id, v := range l.visitors {
			if time.Since(v.lastSeen) > l.expiry {
				delete(l.visitors, id)
			}
		}
		l.mu.Unlock()
	}
}

// Every converts a refill interval to the rps NewLimiter wants.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
