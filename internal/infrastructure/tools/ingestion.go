package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerIngestionTools wires spec.md §6's "ingestion (ingest_directory,
// ingest_files, process_pending, status, retry_failed, reprocess,
// convert_raw)" family over the Orchestrator (spec.md §4.3).
func registerIngestionTools(r *Registry, deps Deps) {
	r.register("ingestion.ingest_directory", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Path       string   `json:"path"`
			Extensions []string `json:"extensions"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		results, err := svc.orch.ScanDirectory(ctx, args.Path, args.Extensions)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("scanning directory: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"results": results}, nil
	})

	r.register("ingestion.ingest_files", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Paths []string `json:"paths"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		results := make([]usecases.ScanResult, 0, len(args.Paths))
		for _, p := range args.Paths {
			res, err := svc.orch.ScanPath(ctx, p)
			if err != nil {
				if cerr, ok := corpuserr.As(err); ok {
					results = append(results, usecases.ScanResult{Path: p, Outcome: usecases.ScanSkipped, Message: cerr.Message})
					continue
				}
				return nil, corpuserr.Internalf("scanning %q: %v", p, err)
			}
			results = append(results, res)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"results": results}, nil
	})

	r.register("ingestion.process_pending", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Max int `json:"max"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Max <= 0 {
			args.Max = 10
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		result, err := svc.orch.ProcessBatch(ctx, args.Max, sess.Config())
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("processing batch: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return result, nil
	})

	r.register("ingestion.status", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		if args.DocumentID != "" {
			doc, err := svc.store.GetDocumentByID(ctx, args.DocumentID)
			if err != nil {
				return nil, corpuserr.DocNotFound(args.DocumentID)
			}
			return doc, nil
		}
		docs, err := svc.store.ListDocuments(ctx, "", 0, 0)
		if err != nil {
			return nil, corpuserr.Internalf("listing documents: %v", err)
		}
		byStatus := map[string]int{}
		for _, d := range docs {
			byStatus[string(d.Status)]++
		}
		return map[string]any{"total": len(docs), "by_status": byStatus}, nil
	})

	r.register("ingestion.retry_failed", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		if err := svc.orch.RetryFailed(ctx, args.DocumentID); err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("retrying %q: %v", args.DocumentID, err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"document_id": args.DocumentID, "status": "pending"}, nil
	})

	r.register("ingestion.reprocess", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		result, err := svc.orch.Reprocess(ctx, args.DocumentID, sess.Config())
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("reprocessing %q: %v", args.DocumentID, err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return result, nil
	})

	r.register("ingestion.convert_raw", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Filename   string `json:"filename"`
			DataBase64 string `json:"data_base64"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.Filename == "" || args.DataBase64 == "" {
			return nil, corpuserr.Validationf("filename and data_base64 are required")
		}
		data, err := base64.StdEncoding.DecodeString(args.DataBase64)
		if err != nil {
			return nil, corpuserr.Validationf("data_base64 is not valid base64: %v", err)
		}
		cfg := sess.Config()
		rawDir := filepath.Join(cfg.DefaultStoragePath, "raw")
		if err := os.MkdirAll(rawDir, 0o755); err != nil {
			return nil, corpuserr.Internalf("creating raw staging directory: %v", err)
		}
		dest := filepath.Join(rawDir, uuid.NewString()+filepath.Ext(args.Filename))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, corpuserr.Internalf("writing staged file: %v", err)
		}
		return map[string]any{"path": dest, "bytes": len(data)}, nil
	})
}
