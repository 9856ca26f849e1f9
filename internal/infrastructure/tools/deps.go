package tools

import (
	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
)

// Deps bundles the external collaborators every tool handler needs beyond
// the session's selected database. They are process-wide (one OCR client,
// one embedder, one vision client, regardless of which database is
// currently selected), mirroring the teacher's NewServer constructor
// taking its adapters once at startup.
type Deps struct {
	OCR        ports.OCRClient
	Embed      ports.EmbeddingClient
	Vision     ports.VisionClient
	Extractors []ports.FileExtractor
	ImagesDir  string
	Clock      ports.Clock
	Log        zerolog.Logger
	TopK       int
}

// services is the set of usecase objects bound to one request's selected
// store. Usecase structs are cheap value-holding wrappers over the store
// pointer (see usecases.NewOrchestrator et al.), so building a fresh set
// per call is just a handful of struct literals, not a real allocation
// cost, and it keeps every handler correct across a database switch
// without caching a stale store.
type services struct {
	store      ports.Store
	prov       *usecases.ProvenanceService
	orch       *usecases.Orchestrator
	retrieval  *usecases.RetrievalService
	clustering *usecases.ClusteringService
	comparison *usecases.ComparisonService
}

func (d Deps) services(store ports.Store) *services {
	prov := usecases.NewProvenanceService(store, d.Clock)
	clustering := usecases.NewClusteringService(store, d.Embed, prov, d.Clock, d.Log)
	orch := usecases.NewOrchestrator(store, prov, d.OCR, d.Embed, d.Vision, d.Extractors, d.ImagesDir, d.Clock, d.Log, clustering)
	retrieval := usecases.NewRetrievalService(store, d.Embed, d.TopK)
	comparison := usecases.NewComparisonService(store, prov, d.Clock)
	return &services{store: store, prov: prov, orch: orch, retrieval: retrieval, clustering: clustering, comparison: comparison}
}

// withStore resolves the session's selected database and builds services
// bound to it, normalizing the no-selection case the same way every tool
// handler must (spec.md §7 DATABASE_NOT_SELECTED).
func (d Deps) withStore(sess *usecases.Session) (*services, *corpuserr.Error) {
	store, cerr := currentStore(sess)
	if cerr != nil {
		return nil, cerr
	}
	return d.services(store), nil
}

// NewRegistry builds the full tool registry of spec.md §6, wiring every
// category of handler over deps. The CLM tool family
// (contract_extract/obligation_*/playbook_*/summarize_*) is not
// registered: spec.md §1 names the CLM heuristics as an external
// collaborator the core does not implement (see DESIGN.md).
func NewRegistry(deps Deps) *Registry {
	r := newRegistry()
	registerDatabaseTools(r, deps)
	registerIngestionTools(r, deps)
	registerExtractionTools(r, deps)
	registerFileTools(r, deps)
	registerImageTools(r, deps)
	registerVLMTools(r, deps)
	registerChunkTools(r, deps)
	registerSearchTools(r, deps)
	registerComparisonTools(r, deps)
	registerClusteringTools(r, deps)
	registerReportTools(r, deps)
	registerConfigTools(r, deps)
	registerHealthTools(r, deps)
	return r
}
