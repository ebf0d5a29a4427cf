// Package ratelimit provides token-bucket rate limiting for the HTTP API.
package ratelimit

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Rule describes a single rate limit: Limit requests per Window, with a
// burst capacity of Burst (defaults to Limit when zero).
type Rule struct {
	Limit  int
	Window time.Duration
	Burst  int
}

// Config holds rate limiting configuration. Analyze covers the analyzer
// trigger endpoint, which fans out to LLM calls and is priced accordingly;
// Default covers everything else. Health checks are never limited.
type Config struct {
	Enabled         bool
	Default         Rule
	Analyze         Rule
	CleanupInterval time.Duration
}

// LoadConfig builds a Config from the environment. RATE_LIMIT_ENABLED=false
// disables limiting entirely.
func LoadConfig() *Config {
	cfg := &Config{
		Enabled:         os.Getenv("RATE_LIMIT_ENABLED") != "false",
		Default:         Rule{Limit: 300, Window: time.Minute},
		Analyze:         Rule{Limit: 10, Window: time.Minute},
		CleanupInterval: 5 * time.Minute,
	}
	return cfg
}

// Info reports the limit state for a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages per-client token buckets.
type Limiter struct {
	config *Config

	mu         sync.Mutex
	buckets    map[string]*bucket
	lastAccess map[string]time.Time

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
}

type bucket struct {
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

// NewLimiter creates a rate limiter.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig()
	}
	l := &Limiter{
		config:     config,
		buckets:    make(map[string]*bucket),
		lastAccess: make(map[string]time.Time),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanupLoop()
	}
	return l
}

// ruleFor picks the rule matching a request path. A zero rule means
// unlimited.
func (l *Limiter) ruleFor(path, method string) Rule {
	if path == "/health" {
		return Rule{}
	}
	if method == "POST" && strings.HasSuffix(path, "/analyze") {
		return l.config.Analyze
	}
	return l.config.Default
}

// Allow checks whether a request from clientID is within limits.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled {
		return true, Info{Allowed: true}
	}

	rule := l.ruleFor(path, method)
	if rule.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + ":" + method + ":" + path

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = &bucket{
			capacity:   float64(capacity),
			refillRate: float64(rule.Limit) / rule.Window.Seconds(),
			tokens:     float64(capacity),
			lastRefill: time.Now(),
		}
		l.buckets[key] = b
	}
	l.lastAccess[key] = time.Now()

	now := time.Now()
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	allowed := b.tokens >= 1.0
	if allowed {
		b.tokens -= 1.0
	}

	var resetTime time.Time
	if b.tokens < b.capacity {
		secondsUntilFull := (b.capacity - b.tokens) / b.refillRate
		resetTime = now.Add(time.Duration(secondsUntilFull * float64(time.Second)))
	} else {
		resetTime = now
	}

	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: int(b.tokens),
		ResetTime: resetTime,
	}
	if !allowed {
		info.RetryAfter = max(time.Until(resetTime), 0)
	}
	return allowed, info
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets drops buckets idle for over an hour.
func (l *Limiter) cleanupBuckets() {
	cutoff := time.Now().Add(-1 * time.Hour)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, last := range l.lastAccess {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastAccess, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	if l.cleanupTicker != nil {
		l.cleanupTicker.Stop()
	}
	if l.cleanupStop != nil {
		close(l.cleanupStop)
	}
}
