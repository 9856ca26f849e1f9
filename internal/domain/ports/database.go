package ports

import "context"

// DatabaseOpener opens and lists named database files under the
// configured storage path (spec.md §4.2 "Open contract", §6 "Persisted
// state layout"). Implemented by the sqlite adapter; the session façade
// depends on this interface, never on *sql.DB directly, so tests can
// swap in an in-memory fake.
type DatabaseOpener interface {
	Open(ctx context.Context, name string) (Store, error)
	Create(ctx context.Context, name string) (Store, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// Clock abstracts time so tests can control "now" without sleeping;
// production uses the real wall clock.
type Clock interface {
	Now() int64 // unix seconds
}
