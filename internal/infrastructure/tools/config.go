package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerConfigTools wires spec.md §6's "config (get, set)" family over
// Session.Config/SetConfig, also persisting the override map through the
// selected database's ConfigStore. The persisted map is not read back:
// opening or selecting a database does not re-apply it.
func registerConfigTools(r *Registry, deps Deps) {
	r.register("config.get", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		return sess.Config(), nil
	})

	r.register("config.set", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var overrides map[string]any
		if cerr := decode(raw, &overrides); cerr != nil {
			return nil, cerr
		}
		cfg := sess.Config().ApplyOverrides(overrides)
		if cerr := sess.SetConfig(cfg); cerr != nil {
			return nil, cerr
		}
		if store, _, cerr := sess.CurrentDatabase(); cerr == nil {
			if err := store.SavePersistedConfig(ctx, overrides); err != nil {
				return nil, corpuserr.Internalf("persisting config: %v", err)
			}
		}
		return cfg, nil
	})
}
