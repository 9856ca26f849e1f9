package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// ProvenanceService creates, fetches, traverses, and verifies provenance
// records (spec.md §4.1). It is the only place a provenance record comes
// into existence, which is what makes invariants 1-5 of spec.md §3
// structural rather than merely tested-for.
type ProvenanceService struct {
	store ports.ProvenanceStore
	clock ports.Clock
}

// NewProvenanceService wires a ProvenanceService over the given store.
func NewProvenanceService(store ports.ProvenanceStore, clock ports.Clock) *ProvenanceService {
	return &ProvenanceService{store: store, clock: clock}
}

// CreateInput is everything a caller supplies to create a provenance
// record; the service derives everything else (spec.md §4.1 "Create
// contract").
type CreateInput struct {
	Type             entities.ProvenanceType
	SourceType       string
	ParentID         *string
	ContentHash      string
	Processor        string
	ProcessorVersion string
	ProcessingParams map[string]any
	Location         *entities.Location
	InputHash        string // optional override; defaults to parent's ContentHash
}

// Create derives parent_ids, chain_depth, chain_path, root_document_id,
// and chain_hash, then inserts the record. The caller inserts the
// companion derived-entity row with a separate store call; the storage
// ports expose no transaction spanning both inserts.
func (p *ProvenanceService) Create(ctx context.Context, in CreateInput) (*entities.Provenance, error) {
	if in.Type != entities.TypeDocument && in.ParentID == nil {
		return nil, corpuserr.RootInvalid("<new>", string(in.Type))
	}

	rec := &entities.Provenance{
		ID:               uuid.NewString(),
		Type:             in.Type,
		SourceType:       in.SourceType,
		Processor:        in.Processor,
		ProcessorVersion: in.ProcessorVersion,
		ProcessingParams: in.ProcessingParams,
		ContentHash:      in.ContentHash,
		ParentID:         in.ParentID,
		Location:         in.Location,
		CreatedAt:        p.now(),
		ProcessedAt:      p.now(),
	}

	if in.ParentID == nil {
		// DOCUMENT root.
		rec.ParentIDs = nil
		rec.ChainDepth = 0
		rec.ChainPath = []entities.ProvenanceType{entities.TypeDocument}
		rec.RootDocumentID = rec.ID
		rec.FileHash = in.ContentHash
		rec.InputHash = in.ContentHash
		rec.ChainHash = computeChainHash("", rec.ContentHash, rec.Type, rec.ProcessingParams)
		if err := p.store.InsertProvenance(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	parent, err := p.store.GetProvenance(ctx, *in.ParentID)
	if err != nil {
		return nil, corpuserr.Orphan(rec.ID, *in.ParentID)
	}

	rec.ParentIDs = append(append([]string{}, parent.ParentIDs...), parent.ID)
	rec.ChainDepth = len(rec.ParentIDs)
	rec.ChainPath = append(append([]entities.ProvenanceType{}, parent.ChainPath...), rec.Type)
	rec.RootDocumentID = parent.RootDocumentID
	rec.FileHash = parent.FileHash
	if in.InputHash != "" {
		rec.InputHash = in.InputHash
	} else {
		rec.InputHash = parent.ContentHash
	}
	rec.ChainHash = computeChainHash(parent.ChainHash, rec.ContentHash, rec.Type, rec.ProcessingParams)

	if err := p.store.InsertProvenance(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *ProvenanceService) now() time.Time {
	if p.clock != nil {
		return time.Unix(p.clock.Now(), 0).UTC()
	}
	return time.Now().UTC()
}

// computeChainHash implements spec.md §4.1's chain-hash rule:
//
//	chain_hash = H(parent_chain_hash || content_hash || type || processing_params_canonical)
//
// where H is SHA-256 and processing_params_canonical is the sorted-key
// JSON encoding of processing_params.
func computeChainHash(parentChainHash, contentHash string, typ entities.ProvenanceType, params map[string]any) string {
	canon := canonicalJSON(params)
	h := sha256.New()
	h.Write([]byte(parentChainHash))
	h.Write([]byte(contentHash))
	h.Write([]byte(typ))
	h.Write(canon)
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes spec.md §6's content-hash format for an arbitrary
// byte payload: "sha256:" followed by the lowercase hex SHA-256 digest.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// canonicalJSON returns sorted-key JSON with no insignificant whitespace,
// the canonical form spec.md §6 specifies for JSON payloads.
func canonicalJSON(v map[string]any) []byte {
	if len(v) == 0 {
		return []byte("{}")
	}
	normalized := normalizeForJSON(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// normalizeForJSON walks a value tree re-encoding maps via a sorted-key
// intermediate so encoding/json's own (already sorted-key) map encoding
// is exercised consistently even for nested maps of mixed key types.
func normalizeForJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = normalizeForJSON(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeForJSON(e)
		}
		return out
	default:
		return v
	}
}

// GetChain returns the root-to-leaf sequence for id: a batched lookup of
// parent_ids plus the record itself (spec.md §4.1 "Traversal operations").
func (p *ProvenanceService) GetChain(ctx context.Context, id string) ([]*entities.Provenance, error) {
	self, err := p.store.GetProvenance(ctx, id)
	if err != nil {
		return nil, corpuserr.Wrap(corpuserr.Internal, "loading chain target", err)
	}
	ids := append(append([]string{}, self.ParentIDs...), id)
	batch, err := p.store.GetProvenanceBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	chain := make([]*entities.Provenance, 0, len(ids))
	for _, pid := range ids {
		rec, ok := batch[pid]
		if !ok {
			return nil, corpuserr.Orphan(id, pid)
		}
		chain = append(chain, rec)
	}
	return chain, nil
}

// GetDescendants performs a breadth-first walk over parent_id starting at
// id, optionally bounded to maxDepth levels below id.
func (p *ProvenanceService) GetDescendants(ctx context.Context, id string, maxDepth *int) ([]*entities.Provenance, error) {
	var out []*entities.Provenance
	frontier := []string{id}
	depth := 0
	for len(frontier) > 0 {
		if maxDepth != nil && depth >= *maxDepth {
			break
		}
		var next []string
		for _, pid := range frontier {
			children, err := p.store.ListChildren(ctx, pid)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				out = append(out, c)
				next = append(next, c.ID)
			}
		}
		frontier = next
		depth++
	}
	return out, nil
}

// VerifyResult is the outcome of a chain-hash audit.
type VerifyResult struct {
	OK              bool
	DivergedAt      string // provenance id of the first mismatch, if any
	ExpectedHash    string
	ActualHash      string
}

// VerifyChain recomputes every chain_hash from root to id and reports the
// first divergence (spec.md §4.1 "Traversal operations", §8 property 1).
func (p *ProvenanceService) VerifyChain(ctx context.Context, id string) (VerifyResult, error) {
	chain, err := p.GetChain(ctx, id)
	if err != nil {
		return VerifyResult{}, err
	}
	parentHash := ""
	for _, rec := range chain {
		want := computeChainHash(parentHash, rec.ContentHash, rec.Type, rec.ProcessingParams)
		if want != rec.ChainHash {
			return VerifyResult{OK: false, DivergedAt: rec.ID, ExpectedHash: want, ActualHash: rec.ChainHash}, nil
		}
		parentHash = rec.ChainHash
	}
	return VerifyResult{OK: true}, nil
}

// Backfill computes chain_hash for any provenance rows that were inserted
// without one (legacy inserts), in dependency order (depth ascending).
// It is bounded (one pass over the current null set) and idempotent:
// re-running it after it has already filled every row is a no-op.
func (p *ProvenanceService) Backfill(ctx context.Context) (int, error) {
	rows, err := p.store.ListNullChainHash(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ChainDepth < rows[j].ChainDepth })

	filled := make(map[string]string, len(rows))
	n := 0
	for _, rec := range rows {
		parentHash := ""
		if rec.ParentID != nil {
			if h, ok := filled[*rec.ParentID]; ok {
				parentHash = h
			} else {
				parent, err := p.store.GetProvenance(ctx, *rec.ParentID)
				if err != nil {
					return n, corpuserr.Orphan(rec.ID, *rec.ParentID)
				}
				parentHash = parent.ChainHash
			}
		}
		hash := computeChainHash(parentHash, rec.ContentHash, rec.Type, rec.ProcessingParams)
		if err := p.store.UpdateChainHash(ctx, rec.ID, hash); err != nil {
			return n, err
		}
		filled[rec.ID] = hash
		n++
	}
	return n, nil
}
