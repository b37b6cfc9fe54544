package auth

import (
	"sync"
	"time"
)

// LoginLimiter tracks consecutive login failures per identity. Once
// an identity reaches the threshold it stays locked until the TTL
// since its last failure elapses, regardless of credential validity.
type LoginLimiter struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*loginEntry
}

type loginEntry struct {
	fallos int
	ultimo time.Time
}

func NewLoginLimiter(max int, ttl time.Duration) *LoginLimiter {
	if max <= 0 {
		max = 3
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LoginLimiter{
		max:     max,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*loginEntry),
	}
}

// RecordFailure increments the counter for identity and returns the
// new count.
func (l *LoginLimiter) RecordFailure(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	e, ok := l.entries[identity]
	if !ok {
		e = &loginEntry{}
		l.entries[identity] = e
	}
	e.fallos++
	e.ultimo = now
	return e.fallos
}

func (l *LoginLimiter) IsLocked(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[identity]
	if !ok {
		return false
	}
	if now.Sub(e.ultimo) > l.ttl {
		delete(l.entries, identity)
		return false
	}
	return e.fallos >= l.max
}

func (l *LoginLimiter) Reset(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identity)
}

func (l *LoginLimiter) prune(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.ultimo) > l.ttl {
			delete(l.entries, key)
		}
	}
}
