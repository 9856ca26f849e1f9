package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

type fakeClock struct{ now int64 }

func (f *fakeClock) Now() int64 { return f.now }

func TestSessionManager_TouchCreatesToolSession(t *testing.T) {
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	fc := &fakeClock{now: 1000}
	m := newSessionManager(sess, fc, time.Minute)

	m.touch("caller-1")
	if _, ok := m.lastSeen["caller-1"]; !ok {
		t.Fatalf("expected caller-1 to be tracked after touch")
	}
}

func TestSessionManager_SweepEvictsExpired(t *testing.T) {
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	fc := &fakeClock{now: 1000}
	m := newSessionManager(sess, fc, time.Minute)

	m.touch("stale-caller")
	fc.now += int64(2 * time.Minute / time.Second)
	m.sweep()

	if _, ok := m.lastSeen["stale-caller"]; ok {
		t.Errorf("expected stale-caller to be evicted after its ttl elapsed")
	}
}

func TestSessionManager_SweepNeverEvictsLocal(t *testing.T) {
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	fc := &fakeClock{now: 1000}
	m := newSessionManager(sess, fc, time.Minute)

	m.touch(usecases.LocalSessionID)
	fc.now += int64(time.Hour / time.Second)
	m.sweep()

	local := sess.ToolSessionFor(usecases.LocalSessionID, "")
	if local.ID != usecases.LocalSessionID {
		t.Errorf("expected local session to survive a sweep regardless of ttl")
	}
}

func TestSessionManager_StartReaperStopsOnContextCancel(t *testing.T) {
	opener := sqlite.NewOpener(t.TempDir(), 8)
	sess := usecases.NewSession(opener, usecases.DefaultConfig())
	fc := &fakeClock{now: 1000}
	m := newSessionManager(sess, fc, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	stop := m.startReaper(ctx, time.Millisecond)
	cancel()
	stop() // must return promptly once the reaper goroutine observes cancellation
}
