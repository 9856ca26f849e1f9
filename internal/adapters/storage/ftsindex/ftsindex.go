// Package ftsindex wraps a bleve index as the BM25 inverted full-text
// index spec.md §4.2/§4.4 describes, covering chunk/VLM-description/
// extraction free text.
package ftsindex

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// indexDoc is the flattened document bleve stores per row: doc_id doubles
// as the bleve document id (discriminator:source_id) so updates replace
// in place.
type indexDoc struct {
	Discriminator string `json:"discriminator"`
	SourceID      string `json:"source_id"`
	DocumentID    string `json:"document_id"`
	Text          string `json:"text"`
}

// Index implements ports.FTSIndex over a bleve scorch index rooted at
// path.
type Index struct {
	bleve bleve.Index
	path  string
}

// Open opens the bleve index at path, creating it with a default English
// text mapping if absent.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{bleve: idx, path: path}, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, fmt.Errorf("ftsindex: open %q: %w", path, err)
	}

	mapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"
	docMapping.AddFieldMappingsAt("text", textField)
	mapping.DefaultMapping = docMapping

	idx, err = bleve.New(path, mapping)
	if err != nil {
		return nil, fmt.Errorf("ftsindex: create %q: %w", path, err)
	}
	return &Index{bleve: idx, path: path}, nil
}

// Close releases the underlying bleve index.
func (i *Index) Close() error {
	return i.bleve.Close()
}

func docID(discriminator entities.FTSDiscriminator, sourceID string) string {
	return string(discriminator) + ":" + sourceID
}

// IndexRow upserts one row's free text.
func (i *Index) IndexRow(ctx context.Context, row entities.FTSRow) error {
	return i.bleve.Index(docID(row.Discriminator, row.SourceID), indexDoc{
		Discriminator: string(row.Discriminator),
		SourceID:      row.SourceID,
		DocumentID:    row.DocumentID,
		Text:          row.Text,
	})
}

// DeleteRow removes a row.
func (i *Index) DeleteRow(ctx context.Context, discriminator entities.FTSDiscriminator, sourceID string) error {
	return i.bleve.Delete(docID(discriminator, sourceID))
}

// Search runs a BM25 query restricted to the given discriminators (empty
// = unrestricted), returning the topK matches by bleve's score.
func (i *Index) Search(ctx context.Context, q string, discriminators []entities.FTSDiscriminator, topK int) ([]ports.ScoredID, error) {
	textQuery := bleve.NewMatchQuery(q)
	textQuery.SetField("text")

	var finalQuery query.Query = textQuery
	if len(discriminators) > 0 {
		disjunction := bleve.NewDisjunctionQuery()
		for _, d := range discriminators {
			dq := bleve.NewTermQuery(string(d))
			dq.SetField("discriminator")
			disjunction.AddQuery(dq)
		}
		conjunction := bleve.NewConjunctionQuery(textQuery, disjunction)
		finalQuery = conjunction
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = topK
	req.Fields = []string{"source_id"}

	result, err := i.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("ftsindex: search: %w", err)
	}

	out := make([]ports.ScoredID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		sourceID, _ := hit.Fields["source_id"].(string)
		if sourceID == "" {
			continue
		}
		out = append(out, ports.ScoredID{ID: sourceID, Score: hit.Score})
	}
	return out, nil
}

// Rebuild drops and recreates the index contents from rows, used after a
// batch (spec.md §4.3 "Batching": the BM25 index is rebuilt after any
// non-zero batch progress).
func (i *Index) Rebuild(ctx context.Context, rows []entities.FTSRow) error {
	if err := i.bleve.Close(); err != nil {
		return fmt.Errorf("ftsindex: close for rebuild: %w", err)
	}
	if err := os.RemoveAll(i.path); err != nil {
		return fmt.Errorf("ftsindex: remove old index: %w", err)
	}

	mapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"
	docMapping.AddFieldMappingsAt("text", textField)
	mapping.DefaultMapping = docMapping

	fresh, err := bleve.New(i.path, mapping)
	if err != nil {
		return fmt.Errorf("ftsindex: recreate: %w", err)
	}
	i.bleve = fresh

	batch := i.bleve.NewBatch()
	for _, row := range rows {
		if err := batch.Index(docID(row.Discriminator, row.SourceID), indexDoc{
			Discriminator: string(row.Discriminator),
			SourceID:      row.SourceID,
			DocumentID:    row.DocumentID,
			Text:          row.Text,
		}); err != nil {
			return fmt.Errorf("ftsindex: batch index: %w", err)
		}
	}
	return i.bleve.Batch(batch)
}
