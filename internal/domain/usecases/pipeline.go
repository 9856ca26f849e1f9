package usecases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ingestgraph/corpus/internal/adapters/chunker"
	"github.com/ingestgraph/corpus/internal/adapters/fingerprint"
	"github.com/ingestgraph/corpus/internal/adapters/headerfooter"
	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// PipelineResult is the outcome of running one document through steps 1-12.
type PipelineResult struct {
	DocumentID           string
	Status               entities.DocumentStatus
	PostProcessingErrors []entities.PostProcessingError
	ErrorMessage         string
}

// ProcessDocument runs the per-document pipeline of spec.md §4.3 steps
// 1-12. Steps 1-3 and 6 are fatal on error: a failure there triggers
// Cleanup and marks the document failed (step cleanup never touches the
// root DOCUMENT provenance). Steps 4-5 and 7 are non-fatal: failures
// there are captured as post-processing warnings or per-image failures
// and the document still completes.
func (o *Orchestrator) ProcessDocument(ctx context.Context, doc *entities.Document, cfg Config) PipelineResult {
	start := time.Now()
	stepDurations := map[string]int64{}

	ocrResp, err := o.step1OCR(ctx, doc, cfg)
	if err != nil {
		return o.fail(ctx, doc, corpuserr.OCR(err))
	}
	stepDurations["ocr"] = time.Since(start).Milliseconds()

	imgStart := time.Now()
	images, err := o.step2Images(ctx, doc, ocrResp)
	if err != nil {
		return o.fail(ctx, doc, corpuserr.Internalf("image extraction: %v", err))
	}
	stepDurations["images"] = time.Since(imgStart).Milliseconds()

	chunkStart := time.Now()
	chunks, err := o.step3Chunking(ctx, doc, ocrResp, cfg)
	if err != nil {
		return o.fail(ctx, doc, corpuserr.Internalf("chunking: %v", err))
	}
	stepDurations["chunking"] = time.Since(chunkStart).Milliseconds()

	var warnings []entities.PostProcessingError

	if _, err := headerfooter.Tag(chunks, 2); err != nil {
		warnings = append(warnings, entities.PostProcessingError{Step: "header_footer_tagging", Message: err.Error()})
	}
	if err := o.persistChunkTags(ctx, chunks); err != nil {
		warnings = append(warnings, entities.PostProcessingError{Step: "header_footer_tagging", Message: err.Error()})
	}

	fp := fingerprint.Compute(doc.PageCount, chunks, len(images))

	embedStart := time.Now()
	if err := o.step6Embeddings(ctx, doc, chunks, cfg); err != nil {
		return o.fail(ctx, doc, corpuserr.Embedding(err))
	}
	stepDurations["embeddings"] = time.Since(embedStart).Milliseconds()

	vlmStart := time.Now()
	o.step7VLM(ctx, doc, images) // per-image failures only, never fatal
	stepDurations["vlm"] = time.Since(vlmStart).Milliseconds()

	if err := o.step8Extraction(ctx, doc, ocrResp); err != nil {
		warnings = append(warnings, entities.PostProcessingError{Step: "extraction", Message: err.Error()})
	}

	o.step9DocumentMetadata(ctx, doc, ocrResp)
	if err := o.step10Timings(ctx, doc, stepDurations, fp); err != nil {
		warnings = append(warnings, entities.PostProcessingError{Step: "timings", Message: err.Error()})
	}

	if _, err := o.prov.Backfill(ctx); err != nil {
		warnings = append(warnings, entities.PostProcessingError{Step: "backfill", Message: err.Error()})
	}

	if err := o.store.UpdateDocumentStatus(ctx, doc.ID, entities.StatusComplete, ""); err != nil {
		return o.fail(ctx, doc, corpuserr.Internalf("marking complete: %v", err))
	}

	return PipelineResult{DocumentID: doc.ID, Status: entities.StatusComplete, PostProcessingErrors: warnings}
}

// ExtractImages re-runs step 2's file-level extractor fallback for an
// already-ingested document on demand (spec.md §6 "extraction
// (extract_images)"), e.g. when the original run found no inline OCR
// images and a newly-registered extractor can now supply them. It never
// re-runs OCR itself; it requires the document's OCR_RESULT to already
// exist.
func (o *Orchestrator) ExtractImages(ctx context.Context, documentID string) ([]*entities.Image, error) {
	doc, err := o.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, corpuserr.DocNotFound(documentID)
	}
	ocrResult, err := o.store.GetOCRResultByDocument(ctx, documentID)
	if err != nil {
		return nil, corpuserr.Internalf("document %q has no OCR result yet", documentID)
	}
	resp := ports.OCRResponse{Text: ocrResult.Text, PageOffsets: ocrResult.PageOffsets, BlockTree: ocrResult.BlockTree}
	return o.step2Images(ctx, doc, resp)
}

func (o *Orchestrator) step1OCR(ctx context.Context, doc *entities.Document, cfg Config) (ports.OCRResponse, error) {
	resp, err := o.ocr.Run(ctx, ports.OCRRequest{DocumentID: doc.ID, FilePath: doc.FilePath, Mode: cfg.DefaultOCRMode})
	if err != nil {
		return ports.OCRResponse{}, err
	}
	hash := ProvenanceContentHash([]byte(resp.Text))
	rec, err := o.prov.Create(ctx, CreateInput{
		Type:             entities.TypeOCRResult,
		SourceType:       "OCR",
		ParentID:         &doc.ProvenanceID,
		ContentHash:      hash,
		Processor:        "ocr",
		ProcessorVersion: "1",
		ProcessingParams: map[string]any{"mode": resp.Mode},
	})
	if err != nil {
		return ports.OCRResponse{}, err
	}
	ocrRow := &entities.OCRResult{
		ID: uuid.NewString(), ProvenanceID: rec.ID, DocumentID: doc.ID,
		Text: resp.Text, PageOffsets: resp.PageOffsets, BlockTree: resp.BlockTree,
		Mode: resp.Mode, Extras: map[string]any{}, StepDurationsMS: map[string]int64{},
	}
	if err := o.store.InsertOCRResult(ctx, ocrRow); err != nil {
		return ports.OCRResponse{}, err
	}
	doc.PageCount = len(resp.PageOffsets)
	if err := o.store.SetOCRCompletedAt(ctx, doc.ID, o.now()); err != nil {
		return ports.OCRResponse{}, err
	}
	return resp, nil
}

func (o *Orchestrator) step2Images(ctx context.Context, doc *entities.Document, resp ports.OCRResponse) ([]*entities.Image, error) {
	rawImages := resp.Images
	if len(rawImages) == 0 {
		for _, ex := range o.extractors {
			if ex.SupportsFile(doc.FilePath) {
				extracted, err := ex.ExtractImages(ctx, doc.FilePath)
				if err != nil {
					return nil, err
				}
				rawImages = extracted
				break // never double-extract
			}
		}
	}
	if len(rawImages) == 0 {
		return nil, nil
	}

	ocrProvID, err := o.latestProvenanceID(ctx, doc, entities.TypeOCRResult)
	if err != nil {
		return nil, err
	}

	var out []*entities.Image
	for i, raw := range rawImages {
		hash := ProvenanceContentHash(raw.Data)
		destDir := filepath.Join(o.imagesDir, doc.ID)
		destPath := filepath.Join(destDir, filepath.Base(raw.Filename))
		if err := writeImageFile(destDir, destPath, raw.Data); err != nil {
			return nil, err
		}
		blockType := classifyBlockType(raw.Filename)
		page := raw.Page
		if page == 0 {
			page = inferPageFromFilename(raw.Filename)
		}

		rec, err := o.prov.Create(ctx, CreateInput{
			Type:             entities.TypeImage,
			SourceType:       "IMAGE_EXTRACTION",
			ParentID:         &ocrProvID,
			ContentHash:      hash,
			Processor:        "image_extraction",
			ProcessorVersion: "1",
			ProcessingParams: map[string]any{"index": i},
			Location:         &entities.Location{Page: &page},
		})
		if err != nil {
			return nil, err
		}
		img := &entities.Image{
			ID: uuid.NewString(), ProvenanceID: rec.ID, DocumentID: doc.ID,
			FilePath: destPath, ContentHash: hash, Page: page, BlockType: blockType,
			IsHeader: blockType == "header", IsFooter: blockType == "footer",
			ContextText: contextWindow(resp, page),
			VLMStatus:   entities.VLMPending,
		}
		if err := o.store.InsertImage(ctx, img); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func (o *Orchestrator) step3Chunking(ctx context.Context, doc *entities.Document, resp ports.OCRResponse, cfg Config) ([]*entities.Chunk, error) {
	ocrProvID, err := o.latestProvenanceID(ctx, doc, entities.TypeOCRResult)
	if err != nil {
		return nil, err
	}
	chunks := chunker.Chunk(resp.Text, resp.BlockTree, chunker.Options{
		ChunkSize: cfg.ChunkSize, ChunkOverlapPercent: cfg.ChunkOverlapPercent, MaxChunkSize: cfg.MaxChunkSize,
	})
	for _, c := range chunks {
		hash := ProvenanceContentHash([]byte(c.Content))
		rec, err := o.prov.Create(ctx, CreateInput{
			Type:             entities.TypeChunk,
			SourceType:       "CHUNKING",
			ParentID:         &ocrProvID,
			ContentHash:      hash,
			Processor:        "chunker.hybrid_section_aware",
			ProcessorVersion: "1",
			ProcessingParams: map[string]any{"chunk_size": cfg.ChunkSize, "chunk_overlap_percent": cfg.ChunkOverlapPercent},
			Location:         &entities.Location{Page: c.Page, CharStart: &c.CharStart, CharEnd: &c.CharEnd, ChunkIndex: &c.Index},
		})
		if err != nil {
			return nil, err
		}
		c.ID = uuid.NewString()
		c.ProvenanceID = rec.ID
		c.DocumentID = doc.ID
		c.EmbeddingStatus = entities.EmbeddingPending
	}
	if err := o.store.InsertChunks(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (o *Orchestrator) persistChunkTags(ctx context.Context, chunks []*entities.Chunk) error {
	var ids []string
	for _, c := range chunks {
		for _, t := range c.SystemTags {
			if t == headerfooter.SystemTag {
				ids = append(ids, c.ID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return o.store.TagChunks(ctx, ids, headerfooter.SystemTag)
}

func (o *Orchestrator) step6Embeddings(ctx context.Context, doc *entities.Document, chunks []*entities.Chunk, cfg Config) error {
	batchSize := cfg.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		resp, err := o.embed.EmbedBatch(ctx, ports.EmbedRequest{Texts: texts, TaskType: "search_document"})
		if err != nil {
			return err
		}
		if len(resp.Vectors) != len(batch) {
			return fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp.Vectors), len(batch))
		}
		for i, c := range batch {
			vec := l2Normalize(resp.Vectors[i])
			hash := ProvenanceContentHash(float32sToBytes(vec))
			rec, err := o.prov.Create(ctx, CreateInput{
				Type:             entities.TypeEmbedding,
				SourceType:       "EMBEDDING",
				ParentID:         &c.ProvenanceID,
				ContentHash:      hash,
				Processor:        "embedding." + o.embed.ModelName(),
				ProcessorVersion: o.embed.ModelVersion(),
				ProcessingParams: map[string]any{"model": o.embed.ModelName(), "task_type": "search_document"},
			})
			if err != nil {
				return err
			}
			emb := &entities.Embedding{
				ID: uuid.NewString(), ProvenanceID: rec.ID, ChunkID: &c.ID,
				OriginalText: c.Content, ModelName: o.embed.ModelName(), ModelVersion: o.embed.ModelVersion(),
				TaskType: "search_document", VectorID: uuid.NewString(),
			}
			if err := o.store.InsertEmbedding(ctx, emb); err != nil {
				return err
			}
			if err := o.store.UpsertVector(ctx, emb.VectorID, vec); err != nil {
				return err
			}
			if err := o.store.IndexRow(ctx, entities.FTSRow{Discriminator: entities.FTSChunk, SourceID: c.ID, DocumentID: doc.ID, Text: c.Content}); err != nil {
				return err
			}
		}
	}
	return nil
}

// step7VLM runs the vision model over pending images. Per-image failure
// sets that image to failed and proceeds; it never fails the document.
func (o *Orchestrator) step7VLM(ctx context.Context, doc *entities.Document, images []*entities.Image) {
	if o.vision == nil {
		return
	}
	for _, img := range images {
		if img.VLMStatus != entities.VLMPending {
			continue
		}
		data, err := readImageFile(img.FilePath)
		if err != nil {
			_ = o.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMFailed)
			continue
		}
		resp, err := o.vision.Describe(ctx, ports.VisionRequest{ImageData: data, ContextText: img.ContextText})
		if err != nil {
			_ = o.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMFailed)
			continue
		}
		hash := ProvenanceContentHash([]byte(resp.Description))
		rec, err := o.prov.Create(ctx, CreateInput{
			Type: entities.TypeVLMDescription, SourceType: "VLM", ParentID: &img.ProvenanceID,
			ContentHash: hash, Processor: "vlm." + o.vision.ModelName(), ProcessorVersion: "1",
			ProcessingParams: map[string]any{"model": o.vision.ModelName()},
		})
		if err != nil {
			_ = o.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMFailed)
			continue
		}
		vlm := &entities.VLMDescription{
			ID: uuid.NewString(), ProvenanceID: rec.ID, ImageID: img.ID,
			Description: resp.Description, Analysis: resp.Analysis, ImageType: resp.ImageType,
			Confidence: resp.Confidence, ModelName: o.vision.ModelName(),
		}
		if err := o.store.InsertVLMDescription(ctx, vlm); err != nil {
			_ = o.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMFailed)
			continue
		}
		if err := o.store.IndexRow(ctx, entities.FTSRow{Discriminator: entities.FTSVLM, SourceID: img.ID, DocumentID: doc.ID, Text: resp.Description}); err != nil {
			o.log.Warn().Err(err).Str("image_id", img.ID).Msg("vlm fts index failed")
		}

		if o.embed != nil {
			embResp, err := o.embed.EmbedBatch(ctx, ports.EmbedRequest{Texts: []string{resp.Description}, TaskType: "search_document"})
			if err == nil && len(embResp.Vectors) == 1 {
				vec := l2Normalize(embResp.Vectors[0])
				ehash := ProvenanceContentHash(float32sToBytes(vec))
				erec, err := o.prov.Create(ctx, CreateInput{
					Type: entities.TypeEmbedding, SourceType: "EMBEDDING", ParentID: &rec.ID,
					ContentHash: ehash, Processor: "embedding." + o.embed.ModelName(), ProcessorVersion: o.embed.ModelVersion(),
					ProcessingParams: map[string]any{"model": o.embed.ModelName(), "task_type": "search_document", "source": "vlm"},
				})
				if err == nil {
					emb := &entities.Embedding{
						ID: uuid.NewString(), ProvenanceID: erec.ID, ImageID: &img.ID,
						OriginalText: resp.Description, ModelName: o.embed.ModelName(), ModelVersion: o.embed.ModelVersion(),
						TaskType: "search_document", VectorID: uuid.NewString(),
					}
					if err := o.store.InsertEmbedding(ctx, emb); err == nil {
						_ = o.store.UpsertVector(ctx, emb.VectorID, vec)
					}
				}
			}
		}

		_ = o.store.UpdateImageVLMStatus(ctx, img.ID, entities.VLMDone)
	}
}

// ProcessPendingVLM runs the vision model over up to limit images still
// pending VLM description, grouped by owning document so step7VLM's
// per-document FTS indexing keeps working (spec.md §6 "VLM (process,
// reanalyze)"). It never fails on a single image's error; see step7VLM.
func (o *Orchestrator) ProcessPendingVLM(ctx context.Context, limit int) (int, error) {
	pending, err := o.store.ListPendingVLM(ctx, limit)
	if err != nil {
		return 0, err
	}
	byDoc := map[string][]*entities.Image{}
	for _, img := range pending {
		byDoc[img.DocumentID] = append(byDoc[img.DocumentID], img)
	}
	for docID, images := range byDoc {
		doc, err := o.store.GetDocumentByID(ctx, docID)
		if err != nil {
			continue
		}
		o.step7VLM(ctx, doc, images)
	}
	return len(pending), nil
}

// ProcessVLMImage runs the vision model over exactly one image regardless
// of its current status, used by the reanalyze tool (spec.md §6) where the
// caller names a specific image rather than asking for the next batch.
func (o *Orchestrator) ProcessVLMImage(ctx context.Context, imageID string) error {
	img, err := o.store.GetImage(ctx, imageID)
	if err != nil {
		return corpuserr.DocNotFound(imageID)
	}
	doc, err := o.store.GetDocumentByID(ctx, img.DocumentID)
	if err != nil {
		return corpuserr.DocNotFound(img.DocumentID)
	}
	img.VLMStatus = entities.VLMPending
	o.step7VLM(ctx, doc, []*entities.Image{img})
	return nil
}

func (o *Orchestrator) step8Extraction(ctx context.Context, doc *entities.Document, resp ports.OCRResponse) error {
	if len(resp.ExtractionJSON) == 0 {
		return nil
	}
	schemaName, _ := resp.ExtractionJSON["__schema__"].(string)
	if schemaName == "" {
		schemaName = "default"
	}
	ocrProvID, err := o.latestProvenanceID(ctx, doc, entities.TypeOCRResult)
	if err != nil {
		return err
	}
	hash := ProvenanceContentHash(canonicalJSON(resp.ExtractionJSON))
	rec, err := o.prov.Create(ctx, CreateInput{
		Type: entities.TypeExtraction, SourceType: "EXTRACTION", ParentID: &ocrProvID,
		ContentHash: hash, Processor: "extraction", ProcessorVersion: "1",
		ProcessingParams: map[string]any{"schema": schemaName},
	})
	if err != nil {
		return err
	}
	ext := &entities.Extraction{ID: uuid.NewString(), ProvenanceID: rec.ID, DocumentID: doc.ID, SchemaName: schemaName, Payload: resp.ExtractionJSON}
	if err := o.store.InsertExtraction(ctx, ext); err != nil {
		return err
	}
	payloadText := fmt.Sprintf("%v", resp.ExtractionJSON)
	return o.store.IndexRow(ctx, entities.FTSRow{Discriminator: entities.FTSExtraction, SourceID: ext.ID, DocumentID: doc.ID, Text: payloadText})
}

func (o *Orchestrator) step9DocumentMetadata(ctx context.Context, doc *entities.Document, resp ports.OCRResponse) {
	_ = o.store.UpdateDocumentMetadata(ctx, doc.ID, resp.Metadata.Title, resp.Metadata.Author, resp.Metadata.Subject, doc.PageCount)
}

// step10Timings persists the per-step wall-clock durations gathered across
// the run, plus the structural fingerprint computed in the header/footer
// step, onto the document's OCR result row (spec.md §4.3 step 10, §8
// "Structural fingerprint").
func (o *Orchestrator) step10Timings(ctx context.Context, doc *entities.Document, durations map[string]int64, fp entities.StructuralFingerprint) error {
	extras := map[string]any{"structural_fingerprint": fp}
	return o.store.UpdateOCRExtras(ctx, doc.ID, extras, durations)
}

// fail runs cleanup (deleting every derived row for this document except
// the root DOCUMENT provenance) and marks the document failed
// (spec.md §4.3 "Failure model").
func (o *Orchestrator) fail(ctx context.Context, doc *entities.Document, cause error) PipelineResult {
	if err := o.Cleanup(ctx, doc.ID); err != nil {
		o.log.Error().Err(err).Str("document_id", doc.ID).Msg("cleanup after pipeline failure also failed")
	}
	msg := cause.Error()
	_ = o.store.UpdateDocumentStatus(ctx, doc.ID, entities.StatusFailed, msg)
	return PipelineResult{DocumentID: doc.ID, Status: entities.StatusFailed, ErrorMessage: msg}
}

// Cleanup deletes all derived rows for a document: chunks, embeddings,
// images, extractions, form_fills, VLM descriptions, and their
// provenance records, excepting the root DOCUMENT provenance
// (spec.md §4.3 "Failure model"). It is also the deletion half of
// reprocess (reprocess == cleanup then process).
func (o *Orchestrator) Cleanup(ctx context.Context, documentID string) error {
	_, err := o.store.DeleteProvenanceForDocument(ctx, documentID)
	return err
}

// RetryFailed returns a failed document to pending after cleanup, so a
// future ClaimPending call can pick it up again (spec.md §8 "Retry cycle").
func (o *Orchestrator) RetryFailed(ctx context.Context, documentID string) error {
	doc, err := o.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		return corpuserr.DocNotFound(documentID)
	}
	if doc.Status != entities.StatusFailed {
		return corpuserr.Validationf("document %q is not failed (status=%s)", documentID, doc.Status)
	}
	if err := o.Cleanup(ctx, documentID); err != nil {
		return err
	}
	return o.store.UpdateDocumentStatus(ctx, documentID, entities.StatusPending, "")
}

// Reprocess is cleanup(doc) followed by process(doc), equivalent per
// spec.md §8's idempotence law (modulo external non-determinism).
func (o *Orchestrator) Reprocess(ctx context.Context, documentID string, cfg Config) (PipelineResult, error) {
	doc, err := o.store.GetDocumentByID(ctx, documentID)
	if err != nil {
		return PipelineResult{}, corpuserr.DocNotFound(documentID)
	}
	if err := o.Cleanup(ctx, documentID); err != nil {
		return PipelineResult{}, err
	}
	if err := o.store.UpdateDocumentStatus(ctx, documentID, entities.StatusProcessing, ""); err != nil {
		return PipelineResult{}, err
	}
	doc.Status = entities.StatusProcessing
	return o.ProcessDocument(ctx, doc, cfg), nil
}

func (o *Orchestrator) latestProvenanceID(ctx context.Context, doc *entities.Document, typ entities.ProvenanceType) (string, error) {
	children, err := o.store.ListChildren(ctx, doc.ProvenanceID)
	if err != nil {
		return "", err
	}
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].Type == typ {
			return children[i].ID, nil
		}
	}
	return "", corpuserr.Internalf("no %s provenance found under document %q", typ, doc.ID)
}

func classifyBlockType(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "header"):
		return "header"
	case strings.Contains(lower, "footer"):
		return "footer"
	case strings.Contains(lower, "table"):
		return "table"
	case strings.Contains(lower, "figure"):
		return "figure"
	default:
		return "picture"
	}
}

func inferPageFromFilename(filename string) int {
	var page int
	_, err := fmt.Sscanf(filepath.Base(filename), "page_%d", &page)
	if err != nil {
		return 0
	}
	return page
}

func contextWindow(resp ports.OCRResponse, page int) string {
	if page <= 0 || page > len(resp.PageOffsets) {
		return ""
	}
	start := resp.PageOffsets[page-1]
	end := len(resp.Text)
	if page < len(resp.PageOffsets) {
		end = resp.PageOffsets[page]
	}
	if start < 0 || start > len(resp.Text) || end > len(resp.Text) || start > end {
		return ""
	}
	return resp.Text[start:end]
}
