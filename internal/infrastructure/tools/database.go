package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerDatabaseTools wires the database lifecycle family (spec.md §6:
// "database (create, list, select, stats, delete)"), the only tools that
// act on the Session façade directly rather than a selected store.
func registerDatabaseTools(r *Registry, deps Deps) {
	r.register("database.create", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Name string `json:"name"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if cerr := validateDatabaseName(args.Name); cerr != nil {
			return nil, cerr
		}
		if cerr := sess.CreateDatabase(ctx, args.Name); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"name": args.Name, "selected": true}, nil
	})

	r.register("database.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		names, err := sess.ListDatabases(ctx)
		if err != nil {
			return nil, corpuserr.Internalf("listing databases: %v", err)
		}
		return map[string]any{"databases": names}, nil
	})

	r.register("database.select", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Name string `json:"name"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if cerr := sess.SelectDatabase(ctx, args.Name); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"name": args.Name, "generation": sess.Generation()}, nil
	})

	r.register("database.clear", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		if cerr := sess.ClearDatabase(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"selected": false}, nil
	})

	r.register("database.stats", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, "", 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing documents: %v", err)
		}
		complete, err := svc.store.CountComplete(ctx)
		if err != nil {
			return nil, corpuserr.Internalf("counting complete documents: %v", err)
		}
		byStatus := map[string]int{}
		for _, d := range docs {
			byStatus[string(d.Status)]++
		}
		return map[string]any{
			"total_documents":    len(docs),
			"complete_documents": complete,
			"by_status":          byStatus,
			"schema_version":     svc.store.SchemaVersion(),
			"vector_dimension":   svc.store.Dimension(),
		}, nil
	})

	r.register("database.delete", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Name string `json:"name"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if cerr := sess.DeleteDatabase(ctx, args.Name); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"deleted": args.Name}, nil
	})
}

// validateDatabaseName enforces spec.md §6's naming rule: non-empty,
// [A-Za-z0-9_-]+, with a reasonable length cap.
func validateDatabaseName(name string) *corpuserr.Error {
	if name == "" {
		return corpuserr.Validationf("database name must not be empty")
	}
	if len(name) > 128 {
		return corpuserr.Validationf("database name must be at most 128 characters")
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return corpuserr.Validationf("database name %q must match [A-Za-z0-9_-]+", name)
		}
	}
	return nil
}
