package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerHealthTools wires spec.md §6's "health (check, verify, fix)"
// family over ProvenanceService. health.fix mutates only when the caller
// sets fix=true explicitly: it backfills chain hashes and, given a
// document_id, deletes that document's derived provenance.
func registerHealthTools(r *Registry, deps Deps) {
	r.register("health.check", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		docs, err := svc.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing documents: %v", err)
		}
		ok := 0
		var diverged []string
		for _, d := range docs {
			res, err := svc.prov.VerifyChain(ctx, d.ProvenanceID)
			if err != nil {
				diverged = append(diverged, d.ID)
				continue
			}
			if res.OK {
				ok++
			} else {
				diverged = append(diverged, d.ID)
			}
		}
		return map[string]any{
			"documents_checked":  len(docs),
			"chain_intact":       ok,
			"diverged_documents": diverged,
			"healthy":            len(diverged) == 0,
		}, nil
	})

	r.register("health.verify", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		doc, err := svc.store.GetDocumentByID(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.DocNotFound(args.DocumentID)
		}
		res, err := svc.prov.VerifyChain(ctx, doc.ProvenanceID)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("verifying chain: %v", err)
		}
		return res, nil
	})

	r.register("health.fix", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
			Fix        bool   `json:"fix"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if !args.Fix {
			return nil, corpuserr.Validationf("health.fix requires fix=true to confirm a destructive repair")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		backfilled, err := svc.prov.Backfill(ctx)
		if err != nil {
			return nil, corpuserr.Internalf("backfilling chain hashes: %v", err)
		}
		var purged int
		if args.DocumentID != "" {
			// Wipes every derived provenance record under the document,
			// keeping only the root, so a document with a broken chain
			// can be cleanly reprocessed from scratch (same cleanup
			// primitive the pipeline uses on a failed run).
			purged, err = svc.store.DeleteProvenanceForDocument(ctx, args.DocumentID)
			if err != nil {
				return nil, corpuserr.Internalf("purging derived provenance: %v", err)
			}
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"backfilled": backfilled, "purged": purged}, nil
	})
}
