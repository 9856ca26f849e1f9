// Package usecases implements the application business rules of the
// provenance corpus: the ingestion pipeline state machine (spec.md §4.3),
// the hybrid retrieval engine (§4.4), and the derived-data operations
// (§4.6), each wired over the ports package the way the teacher's
// usecases wire over ports.EmbeddingService/VectorStore.
package usecases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// Orchestrator drives documents from pending through derived artifacts to
// complete, and is the only component that marks a document failed
// (spec.md §4.3).
type Orchestrator struct {
	store      ports.Store
	prov       *ProvenanceService
	ocr        ports.OCRClient
	embed      ports.EmbeddingClient
	vision     ports.VisionClient
	extractors []ports.FileExtractor
	imagesDir  string
	clock      ports.Clock
	log        zerolog.Logger
	clustering *ClusteringService
}

// NewOrchestrator wires an Orchestrator over its collaborators.
func NewOrchestrator(
	store ports.Store,
	prov *ProvenanceService,
	ocr ports.OCRClient,
	embed ports.EmbeddingClient,
	vision ports.VisionClient,
	extractors []ports.FileExtractor,
	imagesDir string,
	clock ports.Clock,
	log zerolog.Logger,
	clustering *ClusteringService,
) *Orchestrator {
	return &Orchestrator{
		store: store, prov: prov, ocr: ocr, embed: embed, vision: vision,
		extractors: extractors, imagesDir: imagesDir, clock: clock, log: log,
		clustering: clustering,
	}
}

// ScanOutcome is the result of pre-ingest scanning one candidate path
// (spec.md §4.3 "Pre-ingest (scan)").
type ScanOutcome string

const (
	ScanSkipped        ScanOutcome = "skipped"
	ScanVersionUpdated ScanOutcome = "version_updated"
	ScanNewDocument    ScanOutcome = "new_document"
)

// ScanResult describes the outcome for one candidate file path.
type ScanResult struct {
	Path       string
	Outcome    ScanOutcome
	DocumentID string
	Message    string
}

// ScanPath hashes the candidate file and classifies it per the four
// outcomes of spec.md §4.3:
//   - same path, same hash -> skipped
//   - same path, different hash -> version_updated (new row; old retained)
//   - different path, existing hash -> skipped (duplicate content)
//   - not found -> a new DOCUMENT provenance + pending document row
func (o *Orchestrator) ScanPath(ctx context.Context, path string) (ScanResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ScanResult{}, corpuserr.PathMissing(path)
	}
	if info.IsDir() {
		return ScanResult{}, corpuserr.NotDirectory(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ScanResult{}, corpuserr.Internalf("reading %q: %v", path, err)
	}
	hash := ProvenanceContentHash(data)

	byPath, _ := o.store.GetDocumentByPath(ctx, path)
	if byPath != nil {
		if byPath.FileHash == hash {
			return ScanResult{Path: path, Outcome: ScanSkipped, DocumentID: byPath.ID,
				Message: fmt.Sprintf("identical to already-ingested %s", path)}, nil
		}
		return o.versionUpdate(ctx, path, hash, byPath)
	}

	byHash, _ := o.store.GetDocumentByHash(ctx, hash)
	if byHash != nil {
		return ScanResult{Path: path, Outcome: ScanSkipped, DocumentID: byHash.ID,
			Message: fmt.Sprintf("duplicate content of %s", byHash.FilePath)}, nil
	}

	return o.newDocument(ctx, path, hash)
}

func (o *Orchestrator) versionUpdate(ctx context.Context, path, hash string, old *entities.Document) (ScanResult, error) {
	rec, err := o.prov.Create(ctx, CreateInput{
		Type:             entities.TypeDocument,
		SourceType:       "FILE",
		ContentHash:      hash,
		Processor:        "ingest.scan",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{"previous_version_id": old.ID},
	})
	if err != nil {
		return ScanResult{}, err
	}
	doc := &entities.Document{
		ID:           uuid.NewString(),
		ProvenanceID: rec.ID,
		FileHash:     hash,
		FilePath:     path,
		Status:       entities.StatusPending,
		CreatedAt:    o.now(),
		ModifiedAt:   o.now(),
	}
	if err := o.store.InsertDocument(ctx, doc); err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Path: path, Outcome: ScanVersionUpdated, DocumentID: doc.ID,
		Message: fmt.Sprintf("superseded %s", old.ID)}, nil
}

func (o *Orchestrator) newDocument(ctx context.Context, path, hash string) (ScanResult, error) {
	rec, err := o.prov.Create(ctx, CreateInput{
		Type:             entities.TypeDocument,
		SourceType:       "FILE",
		ContentHash:      hash,
		Processor:        "ingest.scan",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{},
	})
	if err != nil {
		return ScanResult{}, err
	}
	doc := &entities.Document{
		ID:           uuid.NewString(),
		ProvenanceID: rec.ID,
		FileHash:     hash,
		FilePath:     path,
		Status:       entities.StatusPending,
		CreatedAt:    o.now(),
		ModifiedAt:   o.now(),
	}
	if err := o.store.InsertDocument(ctx, doc); err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Path: path, Outcome: ScanNewDocument, DocumentID: doc.ID}, nil
}

// ScanDirectory walks dir recursively, keeps the files whose extension is
// in extensions (every file when extensions is empty), and scans each
// one in path order.
func (o *Orchestrator) ScanDirectory(ctx context.Context, dir string, extensions []string) ([]ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, corpuserr.PathMissing(dir)
	}
	if !info.IsDir() {
		return nil, corpuserr.NotDirectory(dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if extensionAllowed(p, extensions) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, corpuserr.Internalf("walking %q: %v", dir, err)
	}
	sort.Strings(paths)

	results := make([]ScanResult, 0, len(paths))
	for _, p := range paths {
		r, err := o.ScanPath(ctx, p)
		if err != nil {
			results = append(results, ScanResult{Path: p, Outcome: ScanSkipped, Message: err.Error()})
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func extensionAllowed(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ClaimPending atomically promotes up to max pending documents to
// processing (spec.md §4.3 "Claim phase (atomic)"): a single
// UPDATE-then-SELECT so concurrent callers cannot claim the same
// document (spec.md §8 property 8).
func (o *Orchestrator) ClaimPending(ctx context.Context, max int) ([]*entities.Document, error) {
	return o.store.ClaimPending(ctx, max)
}

// ResetStuckProcessing resets processing documents older than the given
// threshold back to failed (spec.md §9 Open Question 1). Nothing calls it
// automatically; opening or selecting a database does not run it.
func (o *Orchestrator) ResetStuckProcessing(ctx context.Context, olderThan time.Duration) (int, error) {
	return o.store.ResetStuckProcessing(ctx, int64(olderThan.Seconds()))
}

func (o *Orchestrator) now() time.Time {
	if o.clock != nil {
		return time.Unix(o.clock.Now(), 0).UTC()
	}
	return time.Now().UTC()
}

// ProvenanceContentHash is a re-export so adapters outside usecases can
// compute spec.md §6 content hashes without importing the usecases
// package's internals for something this small.
func ProvenanceContentHash(data []byte) string {
	return ContentHash(data)
}
