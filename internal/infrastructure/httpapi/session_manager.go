package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// sessionManager tracks last-activity per HTTP caller and evicts idle
// ToolSessions from the shared Session after ttl of inactivity. It never
// touches LocalSessionID, which the stdio transport and unauthenticated
// HTTP callers share permanently (spec.md §4.5).
type sessionManager struct {
	sess  *usecases.Session
	clock ports.Clock
	ttl   time.Duration

	mu       sync.Mutex
	lastSeen map[string]int64
}

func newSessionManager(sess *usecases.Session, clock ports.Clock, ttl time.Duration) *sessionManager {
	return &sessionManager{sess: sess, clock: clock, ttl: ttl, lastSeen: make(map[string]int64)}
}

// touch records activity for id, creating its ToolSession if this is its
// first call.
func (m *sessionManager) touch(id string) {
	m.sess.ToolSessionFor(id, "")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen[id] = m.clock.Now()
}

// startReaper runs an eviction sweep every interval until ctx is
// canceled. The returned stop function cancels nothing: it blocks until
// the reaper goroutine has exited, which happens only after ctx is
// canceled.
func (m *sessionManager) startReaper(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
	return func() { <-done }
}

func (m *sessionManager) sweep() {
	now := m.clock.Now()
	m.mu.Lock()
	var expired []string
	for id, last := range m.lastSeen {
		if id == usecases.LocalSessionID {
			continue
		}
		if time.Duration(now-last)*time.Second > m.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.sess.EvictToolSession(id)
	}
}
