// Package fingerprint computes the structural fingerprint of a document
// (spec.md §4.3 step 5): page/chunk/table/figure counts, heading depth
// histogram, average chunk size, atomic ratio, and content-type
// distribution. Computation failure is a post-processing warning, not a
// pipeline failure.
package fingerprint

import (
	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// Compute derives a StructuralFingerprint from a document's chunks and
// image count. pageCount comes from the OCR result.
func Compute(pageCount int, chunks []*entities.Chunk, imageCount int) entities.StructuralFingerprint {
	fp := entities.StructuralFingerprint{
		PageCount:               pageCount,
		ChunkCount:              len(chunks),
		FigureCount:             imageCount,
		HeadingDepthHistogram:   map[int]int{},
		ContentTypeDistribution: map[string]int{},
	}

	var totalSize int
	var atomicCount int
	for _, c := range chunks {
		totalSize += len(c.Content)
		if c.Atomic {
			atomicCount++
		}
		if c.TableMeta != nil {
			fp.TableCount++
		}
		depth := len(c.HeadingContext)
		fp.HeadingDepthHistogram[depth]++
		for _, tag := range c.ContentTypeTags {
			fp.ContentTypeDistribution[tag]++
		}
	}

	if len(chunks) > 0 {
		fp.AverageChunkSize = float64(totalSize) / float64(len(chunks))
		fp.AtomicRatio = float64(atomicCount) / float64(len(chunks))
	}
	return fp
}

// Links extracts http:// and https:// URLs from chunk text as a
// lightweight enrichment pass alongside the fingerprint
// (spec.md §4.3 step 5 "extract structured links"). Other
// cross-references, such as section or page references, are not detected.
func Links(chunks []*entities.Chunk) []string {
	var links []string
	for _, c := range chunks {
		links = append(links, findURLs(c.Content)...)
	}
	return links
}

func findURLs(text string) []string {
	var out []string
	start := -1
	for i := 0; i < len(text); i++ {
		if start == -1 && i+8 <= len(text) && (text[i:i+7] == "http://" || (i+8 <= len(text) && text[i:i+8] == "https://")) {
			start = i
			continue
		}
		if start != -1 {
			c := text[i]
			if c == ' ' || c == '\n' || c == '\t' || c == ')' || c == '"' {
				out = append(out, text[start:i])
				start = -1
			}
		}
	}
	if start != -1 {
		out = append(out, text[start:])
	}
	return out
}
