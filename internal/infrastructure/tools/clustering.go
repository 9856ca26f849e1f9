package tools

import (
	"context"
	"encoding/json"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// registerClusteringTools wires spec.md §6's "clustering (run, list,
// reassign, merge)" family over ClusteringService.
func registerClusteringTools(r *Registry, deps Deps) {
	r.register("clustering.run", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			Algorithm   string   `json:"algorithm"`
			Threshold   float64  `json:"threshold"`
			DocumentIDs []string `json:"document_ids"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		if args.Algorithm == "" {
			args.Algorithm = "hdbscan"
		}
		if args.Threshold == 0 {
			args.Threshold = 0.7
		}
		documentIDs := args.DocumentIDs
		if len(documentIDs) == 0 {
			docs, err := svc.store.ListDocuments(ctx, string(entities.StatusComplete), 0, 0)
			if err != nil {
				return nil, corpuserr.Internalf("listing complete documents: %v", err)
			}
			for _, d := range docs {
				documentIDs = append(documentIDs, d.ID)
			}
		}
		op := sess.BeginOp()
		defer op.End()
		res, err := svc.clustering.Run(ctx, args.Algorithm, args.Threshold, documentIDs)
		if err != nil {
			if cerr, ok := corpuserr.As(err); ok {
				return nil, cerr
			}
			return nil, corpuserr.Internalf("running clustering: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return res, nil
	})

	r.register("clustering.list", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			RunID string `json:"run_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.RunID == "" {
			return nil, corpuserr.Validationf("run_id is required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		clusters, err := svc.store.ListClusters(ctx, args.RunID)
		if err != nil {
			return nil, corpuserr.Internalf("listing clusters: %v", err)
		}
		type clusterView struct {
			*entities.Cluster
			Members []*entities.ClusterMember `json:"members"`
		}
		out := make([]clusterView, 0, len(clusters))
		for _, c := range clusters {
			members, err := svc.store.ListClusterMembers(ctx, c.ID)
			if err != nil {
				return nil, corpuserr.Internalf("listing cluster members: %v", err)
			}
			out = append(out, clusterView{Cluster: c, Members: members})
		}
		return map[string]any{"clusters": out}, nil
	})

	r.register("clustering.reassign", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			DocumentID   string `json:"document_id"`
			NewClusterID string `json:"new_cluster_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.DocumentID == "" || args.NewClusterID == "" {
			return nil, corpuserr.Validationf("document_id and new_cluster_id are required")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		op := sess.BeginOp()
		defer op.End()
		if err := svc.store.ReassignMember(ctx, args.DocumentID, args.NewClusterID); err != nil {
			return nil, corpuserr.Internalf("reassigning member: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"reassigned": true}, nil
	})

	// merge folds one cluster's membership into another and drops the
	// now-empty source cluster row; it has no dedicated usecase primitive,
	// so it composes ListClusterMembers/ReassignMember/DeleteCluster the
	// same way ClusteringService.Run composes InsertClusters/InsertClusterMembers.
	r.register("clustering.merge", func(ctx context.Context, sess *usecases.Session, raw json.RawMessage) (any, *corpuserr.Error) {
		var args struct {
			SourceClusterID string `json:"source_cluster_id"`
			TargetClusterID string `json:"target_cluster_id"`
		}
		if cerr := decode(raw, &args); cerr != nil {
			return nil, cerr
		}
		if args.SourceClusterID == "" || args.TargetClusterID == "" {
			return nil, corpuserr.Validationf("source_cluster_id and target_cluster_id are required")
		}
		if args.SourceClusterID == args.TargetClusterID {
			return nil, corpuserr.Validationf("source_cluster_id and target_cluster_id must differ")
		}
		svc, cerr := deps.withStore(sess)
		if cerr != nil {
			return nil, cerr
		}
		members, err := svc.store.ListClusterMembers(ctx, args.SourceClusterID)
		if err != nil {
			return nil, corpuserr.Internalf("listing cluster members: %v", err)
		}
		op := sess.BeginOp()
		defer op.End()
		for _, m := range members {
			if err := svc.store.ReassignMember(ctx, m.DocumentID, args.TargetClusterID); err != nil {
				return nil, corpuserr.Internalf("reassigning member %q: %v", m.DocumentID, err)
			}
		}
		if err := svc.store.DeleteCluster(ctx, args.SourceClusterID); err != nil {
			return nil, corpuserr.Internalf("deleting merged cluster: %v", err)
		}
		if cerr := op.CheckFresh(); cerr != nil {
			return nil, cerr
		}
		return map[string]any{"merged": len(members), "target_cluster_id": args.TargetClusterID}, nil
	})
}
