package usecases

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// Session is the single process-wide state façade described in spec.md
// §4.5: a selectable database, a monotonic generation counter, an
// in-flight operation counter, and process-wide config. It is the only
// global the rest of the core touches, and it is encapsulated behind this
// struct so tests can build a fresh one around a fresh temp-directory
// database (spec.md §9 "Global mutable state").
type Session struct {
	opener ports.DatabaseOpener

	mu           sync.Mutex
	db           ports.Store
	dbName       string
	generation   int64
	activeOps    int64
	cfg          Config

	tools map[string]*ToolSession
	toolsMu sync.Mutex
}

// ToolSession is optional per-session bookkeeping (user id, metadata,
// last activity) that exists orthogonally to database selection and does
// not participate in the concurrency model below (spec.md §4.5).
type ToolSession struct {
	ID           string
	UserID       string
	Metadata     map[string]string
	LastActivity int64
}

// LocalSessionID is the well-known session id stdio clients share
// (spec.md §4.5).
const LocalSessionID = "local"

// NewSession builds a façade around the given database opener and initial
// config.
func NewSession(opener ports.DatabaseOpener, cfg Config) *Session {
	s := &Session{
		opener: opener,
		cfg:    cfg,
		tools:  make(map[string]*ToolSession),
	}
	s.tools[LocalSessionID] = &ToolSession{ID: LocalSessionID, Metadata: map[string]string{}}
	return s
}

// Generation returns the current generation counter (spec.md §8 property 7:
// monotone non-decreasing for the life of the process).
func (s *Session) Generation() int64 {
	return atomic.LoadInt64(&s.generation)
}

// ActiveOperations returns the current in-flight write-op count.
func (s *Session) ActiveOperations() int64 {
	return atomic.LoadInt64(&s.activeOps)
}

// Config returns a copy of the current process-wide config.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig validates and installs new process-wide config. It does not
// require the active-ops guard: config is not mutated by select/clear, and
// concurrent readers only ever see a fully-formed Config value (not
// torn), since Go struct assignment under the mutex is atomic at this
// granularity.
func (s *Session) SetConfig(cfg Config) *corpuserr.Error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// CurrentDatabase returns the selected store and its name, or
// DATABASE_NOT_SELECTED if none is selected.
func (s *Session) CurrentDatabase() (ports.Store, string, *corpuserr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, "", corpuserr.NotSelected()
	}
	return s.db, s.dbName, nil
}

// SelectDatabase switches the current database to name. Per spec.md §4.2
// "Same-file re-open hazard" and §4.5 "Same-file switch": when the target
// equals the current selection, the old connection must close before the
// new one opens (releases the WAL/SHM files first); for a genuinely
// different target, the order is open-new -> swap state -> close-old, so
// there is never a window with no database selected on a successful
// switch to a different name.
func (s *Session) SelectDatabase(ctx context.Context, name string) *corpuserr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active := atomic.LoadInt64(&s.activeOps); active > 0 {
		return corpuserr.Blocked(active)
	}

	exists, err := s.opener.Exists(ctx, name)
	if err != nil {
		return corpuserr.Internalf("checking database existence: %v", err)
	}
	if !exists {
		return corpuserr.NotFound(name)
	}

	if s.db != nil && s.dbName == name {
		old := s.db
		s.db = nil
		if cerr := old.Close(); cerr != nil {
			return corpuserr.Internalf("closing current connection before re-open: %v", cerr)
		}
		newDB, oerr := s.opener.Open(ctx, name)
		if oerr != nil {
			return corpuserr.Internalf("re-opening database %q: %v", name, oerr)
		}
		s.db = newDB
		s.generation++
		return nil
	}

	newDB, oerr := s.opener.Open(ctx, name)
	if oerr != nil {
		return corpuserr.Internalf("opening database %q: %v", name, oerr)
	}
	old := s.db
	s.db = newDB
	s.dbName = name
	s.generation++
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// CreateDatabase creates and selects a new, empty database.
func (s *Session) CreateDatabase(ctx context.Context, name string) *corpuserr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active := atomic.LoadInt64(&s.activeOps); active > 0 {
		return corpuserr.Blocked(active)
	}
	exists, err := s.opener.Exists(ctx, name)
	if err != nil {
		return corpuserr.Internalf("checking database existence: %v", err)
	}
	if exists {
		return corpuserr.AlreadyExists(name)
	}
	newDB, cerr := s.opener.Create(ctx, name)
	if cerr != nil {
		return corpuserr.Internalf("creating database %q: %v", name, cerr)
	}
	old := s.db
	s.db = newDB
	s.dbName = name
	s.generation++
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// ClearDatabase deselects the current database without deleting it.
func (s *Session) ClearDatabase() *corpuserr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active := atomic.LoadInt64(&s.activeOps); active > 0 {
		return corpuserr.Blocked(active)
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.db = nil
	s.dbName = ""
	s.generation++
	return nil
}

// ListDatabases delegates to the opener.
func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	return s.opener.List(ctx)
}

// DeleteDatabase removes a database file. Refuses if it is currently
// selected, matching the same switch-blocked discipline as selection.
func (s *Session) DeleteDatabase(ctx context.Context, name string) *corpuserr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active := atomic.LoadInt64(&s.activeOps); active > 0 {
		return corpuserr.Blocked(active)
	}
	if s.dbName == name {
		return corpuserr.Validationf("cannot delete the currently selected database %q; clear it first", name)
	}
	exists, err := s.opener.Exists(ctx, name)
	if err != nil {
		return corpuserr.Internalf("checking database existence: %v", err)
	}
	if !exists {
		return corpuserr.NotFound(name)
	}
	if derr := s.opener.Delete(ctx, name); derr != nil {
		return corpuserr.Internalf("deleting database %q: %v", name, derr)
	}
	return nil
}

// OpGuard is a scoped acquisition of the active-operations counter
// (spec.md §4.5 "Active-operations guard"). Every async tool handler that
// may write acquires one on entry and releases it on every exit path.
type OpGuard struct {
	session    *Session
	generation int64
	released   int32
}

// BeginOp increments the active-ops counter and captures the current
// generation for later staleness checks.
func (s *Session) BeginOp() *OpGuard {
	atomic.AddInt64(&s.activeOps, 1)
	return &OpGuard{session: s, generation: s.Generation()}
}

// Generation returns the generation captured when this op began.
func (g *OpGuard) Generation() int64 { return g.generation }

// CheckFresh returns STALE_DATABASE_REFERENCE if the session's generation
// has moved on since this op began (spec.md §4.5, §7).
func (g *OpGuard) CheckFresh() *corpuserr.Error {
	cur := g.session.Generation()
	if cur != g.generation {
		return corpuserr.Stale(g.generation, cur)
	}
	return nil
}

// End releases the guard. Safe to call multiple times; only the first
// call decrements the counter, so a handler can defer End() and still
// call it early on a particular exit path without double-decrementing.
func (g *OpGuard) End() {
	if atomic.CompareAndSwapInt32(&g.released, 0, 1) {
		atomic.AddInt64(&g.session.activeOps, -1)
	}
}

// ToolSessionFor looks up or lazily creates per-session state keyed by id.
// This is a plain lookup-by-id map; it does not participate in the
// database-switch concurrency model above.
func (s *Session) ToolSessionFor(id string, userID string) *ToolSession {
	s.toolsMu.Lock()
	defer s.toolsMu.Unlock()
	if ts, ok := s.tools[id]; ok {
		return ts
	}
	ts := &ToolSession{ID: id, UserID: userID, Metadata: map[string]string{}}
	s.tools[id] = ts
	return ts
}

// EvictToolSession removes per-session state, e.g. on TTL expiry.
func (s *Session) EvictToolSession(id string) {
	if id == LocalSessionID {
		return
	}
	s.toolsMu.Lock()
	defer s.toolsMu.Unlock()
	delete(s.tools, id)
}
