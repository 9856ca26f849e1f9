// Package chunker implements the hybrid section-aware chunker of spec.md
// §4.3 step 3. It generalizes the teacher's character-offset sliding
// window (internal/domain/usecases/ingest.go's chunkDocument) with
// block-tree awareness: when a block tree is present, chunk boundaries
// snap to block/heading boundaries and whole tables become atomic chunks;
// when it is absent, the teacher's word-boundary sliding window is the
// fallback path.
package chunker

import (
	"strings"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// Options configures the chunker from process/database config
// (spec.md §4.5: chunk_size, chunk_overlap_percent, max_chunk_size).
type Options struct {
	ChunkSize           int
	ChunkOverlapPercent int
	MaxChunkSize        int
}

// Chunk splits OCR text into an ordered sequence of chunk records. It
// never emits overlapping chunks with overlap exceeding half the chunk
// size (spec.md §3 Chunk invariant).
func Chunk(text string, blocks []entities.Block, opts Options) []*entities.Chunk {
	overlap := opts.ChunkSize * opts.ChunkOverlapPercent / 100
	maxOverlap := opts.ChunkSize / 2
	if overlap > maxOverlap {
		overlap = maxOverlap
	}

	if len(blocks) > 0 {
		return chunkByBlocks(text, blocks, opts, overlap)
	}
	return chunkSlidingWindow(text, opts, overlap)
}

// chunkByBlocks walks the block tree, emitting one atomic chunk per table
// block and grouping paragraph/heading blocks into chunks up to
// MaxChunkSize, tracking heading context and section path as it goes.
func chunkByBlocks(text string, blocks []entities.Block, opts Options, overlap int) []*entities.Chunk {
	var out []*entities.Chunk
	var headingStack []string
	var cur strings.Builder
	curStart := 0
	curPage := 0
	idx := 0

	flush := func(endOffset int, page int) {
		content := strings.TrimSpace(cur.String())
		if content == "" {
			cur.Reset()
			return
		}
		c := &entities.Chunk{
			Index:           idx,
			Content:         content,
			CharStart:       curStart,
			CharEnd:         endOffset,
			Page:            intPtr(page),
			HeadingContext:  append([]string{}, headingStack...),
			SectionPath:     strings.Join(headingStack, " > "),
			ContentTypeTags: []string{"paragraph"},
		}
		out = append(out, c)
		idx++
		cur.Reset()
	}

	offset := 0
	for _, b := range blocks {
		switch b.Type {
		case "header", "footer":
			offset += len(b.Text)
			continue
		case "heading":
			if cur.Len() > 0 {
				flush(offset, curPage)
			}
			headingStack = pushHeading(headingStack, b.HeadingLevel, b.Text)
			curStart = offset + len(b.Text)
			curPage = b.Page
			offset += len(b.Text)
			continue
		case "table":
			if cur.Len() > 0 {
				flush(offset, curPage)
			}
			rows := strings.Count(b.Text, "\n") + 1
			out = append(out, &entities.Chunk{
				Index:           idx,
				Content:         b.Text,
				CharStart:       offset,
				CharEnd:         offset + len(b.Text),
				Page:            intPtr(b.Page),
				HeadingContext:  append([]string{}, headingStack...),
				SectionPath:     strings.Join(headingStack, " > "),
				ContentTypeTags: []string{"table"},
				Atomic:          true,
				TableMeta: &entities.TableMetadata{
					RowCount:  rows,
					HasHeader: rows > 1,
				},
			})
			idx++
			offset += len(b.Text)
			curStart = offset
			continue
		case "figure", "picture":
			offset += len(b.Text)
			continue
		default:
			if cur.Len() == 0 {
				curStart = offset
				curPage = b.Page
			}
			cur.WriteString(b.Text)
			offset += len(b.Text)
			if cur.Len() >= opts.MaxChunkSize {
				flush(offset, curPage)
				curStart = offset
			}
		}
	}
	if cur.Len() > 0 {
		flush(offset, curPage)
	}
	applyOverlapMetadata(out, overlap, opts.ChunkSize)
	return out
}

func pushHeading(stack []string, level int, text string) []string {
	if level <= 0 {
		level = len(stack) + 1
	}
	if level > len(stack) {
		return append(stack, text)
	}
	out := append([]string{}, stack[:level-1]...)
	return append(out, text)
}

// chunkSlidingWindow is the fallback path used when OCR returned no
// block tree: a character-offset sliding window that snaps to word
// boundaries, the same shape as the teacher's chunkDocument.
func chunkSlidingWindow(text string, opts Options, overlap int) []*entities.Chunk {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil
	}

	var out []*entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + opts.ChunkSize
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if lastSpace := strings.LastIndex(content[start:end], " "); lastSpace > 0 {
				end = start + lastSpace
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if chunkContent != "" {
			out = append(out, &entities.Chunk{
				Index:           index,
				Content:         chunkContent,
				CharStart:       start,
				CharEnd:         end,
				ContentTypeTags: []string{"paragraph"},
			})
			index++
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
		if start >= len(content) {
			break
		}
	}
	applyOverlapMetadata(out, overlap, opts.ChunkSize)
	return out
}

func applyOverlapMetadata(chunks []*entities.Chunk, overlap, chunkSize int) {
	for i, c := range chunks {
		if i > 0 && overlap > 0 {
			c.OverlapPrevious = overlap
		}
		if i < len(chunks)-1 && overlap > 0 {
			c.OverlapNext = overlap
		}
	}
}

func intPtr(v int) *int { return &v }
