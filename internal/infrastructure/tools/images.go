package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerImageTools wires spec.md §6's "images (list, get, stats, delete,
// reset_failed, pending, search, reanalyze)" family.
func registerImageTools(r *Registry, deps Deps) {
	r.register("images.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		images, err := svc.store.ListImagesByDocument(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("listing images: %v", err)
		}
		return map[string]any{"images": images}, nil
	})

	r.register("images.get", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ImageID string `json:"image_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		img, err := svc.store.GetImage(ctx, args.ImageID)
		if err != nil {
			return nil, corpuserr.Internalf("image %q not found: %v", args.ImageID, err)
		}
		return img, nil
	})

	r.register("images.stats", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		images, err := svc.store.ListImagesByDocument(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("listing images: %v", err)
		}
		byStatus := map[string]int{}
		for _, img := range images {
			byStatus[string(img.VLMStatus)]++
		}
		return map[string]any{"total": len(images), "by_vlm_status": byStatus}, nil
	})

	r.register("images.delete", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ImageID string `json:"image_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		if err := svc.store.DeleteImage(ctx, args.ImageID); err != nil {
			return nil, corpuserr.Internalf("deleting image %q: %v", args.ImageID, err)
		}
		return map[string]any{"deleted": args.ImageID}, nil
	})

	r.register("images.reset_failed", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		images, err := svc.store.ListImagesByDocument(ctx, args.DocumentID)
		if err != nil {
			return nil, corpuserr.Internalf("listing images: %v", err)
		}
		reset := 0
		for _, img := range images {
			if img.VLMStatus != entities.VLMFailed {
				continue
			}
			if err := svc.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMPending); err != nil {
				return nil, corpuserr.Internalf("resetting image %q: %v", img.ID, err)
			}
			reset++
		}
		return map[string]any{"reset": reset}, nil
	})

	r.register("images.pending", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
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
		images, err := svc.store.ListPendingVLM(ctx, args.Limit)
		if err != nil {
			return nil, corpuserr.Internalf("listing pending images: %v", err)
		}
		return map[string]any{"images": images}, nil
	})

	r.register("images.search", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var filter ports.ImageSearchFilter
		if cerr := decode(raw, &filter); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		images, err := svc.retrieval.ImageSearch(ctx, filter)
		if err != nil {
			return nil, corpuserr.Internalf("searching images: %v", err)
		}
		return map[string]any{"images": images}, nil
	})

	r.register("images.reanalyze", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			ImageID string `json:"image_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		if err := svc.store.UpdateImageVLMStatus(ctx, args.ImageID, entities.VLMPending); err != nil {
			return nil, corpuserr.Internalf("queueing reanalysis for %q: %v", args.ImageID, err)
		}
		return map[string]any{"image_id": args.ImageID, "vlm_status": entities.VLMPending}, nil
	})
}
