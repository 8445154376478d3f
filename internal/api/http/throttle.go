package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/mind-engage/rapidrate/internal/metrics"
)

// Throttle keeps one token bucket per trial so a runaway client cannot starve
// the others. Buckets idle longer than idleTTL are dropped on the next prune.
type Throttle struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	buckets map[string]*bucket
	metrics *metrics.Metrics
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewThrottle(perSecond float64, burst int, mt *metrics.Metrics) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		buckets: make(map[string]*bucket),
		metrics: mt,
		now:     time.Now,
	}
}

// Allow reports whether one more request for key fits in its bucket.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Prune drops idle buckets and returns how many were removed.
func (t *Throttle) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.idleTTL)
	n := 0
	for k, b := range t.buckets {
		if b.seen.Before(cutoff) {
			delete(t.buckets, k)
			n++
		}
	}
	return n
}

// Middleware throttles on the {trialID} route parameter.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(chi.URLParam(r, "trialID")) {
			t.metrics.EventThrottled()
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
