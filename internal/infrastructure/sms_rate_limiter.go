package infrastructure

import (
	"sync"
	"time"
)

// SMSRateLimiter implements token bucket rate limiting per phone number for
// the inbound SMS webhook, where no JWT identity exists yet.
type SMSRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      float64 // tokens per second
	maxTokens float64 // burst capacity
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

func NewSMSRateLimiter(rate float64, burst int) *SMSRateLimiter {
	rl := &SMSRateLimiter{
		buckets:   make(map[string]*tokenBucket),
		rate:      rate,
		maxTokens: float64(burst),
	}

	go rl.cleanup()

	return rl
}

// Allow consumes one token for the phone number if available.
func (rl *SMSRateLimiter) Allow(phone string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, exists := rl.buckets[phone]
	if !exists {
		rl.buckets[phone] = &tokenBucket{
			tokens:     rl.maxTokens - 1,
			lastUpdate: now,
		}
		return true
	}

	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true
	}

	return false
}

func (rl *SMSRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for phone, bucket := range rl.buckets {
			if now.Sub(bucket.lastUpdate) > 10*time.Minute {
				delete(rl.buckets, phone)
			}
		}
		rl.mu.Unlock()
	}
}
