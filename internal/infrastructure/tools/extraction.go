package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerExtractionTools wires spec.md §6's "extraction (extract_images)".
func registerExtractionTools(r *Registry, deps Deps) {
	r.register("extraction.extract_images", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.DocumentID == "" {
			return nil, corpuserr.Validationf("document_id is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		images, err := svc.orch.ExtractImages(ctx, args.DocumentID)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("extracting images for %q: %v", args.DocumentID, err)
		}
		return map[string]any{"document_id": args.DocumentID, "images": images}, nil
	})
}
