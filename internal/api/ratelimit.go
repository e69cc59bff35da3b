package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per client IP. Idle clients are forgotten.
type Limiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	clients   map[string]*client
	ttl       time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func NewLimiter(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*client),
		ttl:       10 * time.Minute,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (l *Limiter) Allow(r *http.Request) bool {
	ip := clientIP(r)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < 2*time.Minute {
		return
	}
	l.lastPrune = now

	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.ttl {
			delete(l.clients, ip)
		}
	}
}

// clientIP is the TCP peer. X-Forwarded-For is not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
