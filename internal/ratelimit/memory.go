package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a per-key token bucket refilled at rate tokens/second up to burst.
type Memory struct {
	mu       sync.Mutex
	rate     float64
	burst    float64
	visitors map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	lastSeen time.Time
	tokens   float64
}

func NewMemory(rate float64, burst int) *Memory {
	if rate <= 0 {
		rate = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Memory{
		rate:     rate,
		burst:    float64(burst),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{tokens: m.burst, lastSeen: now}
		m.visitors[key] = v
	}
	v.tokens += now.Sub(v.lastSeen).Seconds() * m.rate
	if v.tokens > m.burst {
		v.tokens = m.burst
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// Prune drops visitors idle for longer than maxIdle and returns how many
// were removed.
func (m *Memory) Prune(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) > maxIdle {
			delete(m.visitors, key)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
