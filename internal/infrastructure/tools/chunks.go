package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerChunkTools wires spec.md §6's "chunks/embeddings (list, get,
// stats, rebuild)" family.
func registerChunkTools(r *Registry, deps Deps) {
	r.register("chunks.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		chunks, err := svc.store.ListChunksByDocument(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("listing chunks: %v", err)
		}
		return map[string]any{"chunks": chunks}, nil
	})

	r.register("chunks.get", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ChunkID string `json:"chunk_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		chunk, err := svc.store.GetChunk(ctx, args.ChunkID)
		if err != nil {
			return nil, corpuserr.Internalf("chunk %q not found: %v", args.ChunkID, err)
		}
		embedding, _ := svc.store.GetEmbeddingByChunk(ctx, args.ChunkID)
		return map[string]any{"chunk": chunk, "embedding": embedding}, nil
	})

	r.register("chunks.stats", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		chunkCount, err := svc.store.CountChunks(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("counting chunks: %v", err)
		}
		embeddingCount, err := svc.store.CountEmbeddings(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("counting embeddings: %v", err)
		}
		return map[string]any{"chunks": chunkCount, "embeddings": embeddingCount}, nil
	})

	r.register("chunks.rebuild", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		if err := svc.orch.RebuildIndexes(ctx); err != nil {
			return nil, corpuserr.Internalf("rebuilding indexes: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"rebuilt": true}, nil
	})
}
