package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerVLMTools wires spec.md §6's "VLM (process, reanalyze)" family,
// distinct from images.reanalyze: this one drives the batch sweep over
// every pending image rather than a single one.
func registerVLMTools(r *Registry, deps Deps) {
	r.register("vlm.process", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Limit int `json:"limit"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Limit <= 0 {
			args.Limit = 50
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		n, err := svc.orch.ProcessPendingVLM(ctx, args.Limit)
		if err != nil {
			return nil, corpuserr.Internalf("processing pending vlm: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"processed": n}, nil
	})

	r.register("vlm.reanalyze", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ImageID string `json:"image_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.ImageID == "" {
			return nil, corpuserr.Validationf("image_id is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		if err := svc.orch.ProcessVLMImage(ctx, args.ImageID); err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("reanalyzing %q: %v", args.ImageID, err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		img, err := svc.store.GetImage(ctx, args.ImageID)
		if err != nil {
			return nil, corpuserr.Internalf("image %q not found after reanalysis: %v", args.ImageID, err)
		}
		return img, nil
	})
}
