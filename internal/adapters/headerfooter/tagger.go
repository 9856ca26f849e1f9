// Package headerfooter detects text patterns that repeat across pages
// (headers, footers, page numbers) and tags matching chunks, per
// spec.md §4.3 step 4. Tagging failure is a post-processing warning, not
// a pipeline failure.
package headerfooter

import (
	"regexp"
	"strings"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// SystemTag is the tag applied to a chunk recognized as repeated
// boilerplate.
const SystemTag = "system:header_footer"

var pageNumberPattern = regexp.MustCompile(`^\s*(page\s+)?\d+(\s*/\s*\d+)?\s*$`)

// Tag scans chunks grouped by page and marks any whose normalized content
// repeats across at least minRepeats distinct pages, or matches a bare
// page-number pattern, with SystemTag. It returns the ids tagged.
func Tag(chunks []*entities.Chunk, minRepeats int) ([]string, error) {
	if minRepeats < 2 {
		minRepeats = 2
	}
	seen := make(map[string]map[int]bool)
	for _, c := range chunks {
		if c.Page == nil {
			continue
		}
		norm := normalize(c.Content)
		if norm == "" {
			continue
		}
		if seen[norm] == nil {
			seen[norm] = map[int]bool{}
		}
		seen[norm][*c.Page] = true
	}

	var tagged []string
	for _, c := range chunks {
		norm := normalize(c.Content)
		isPageNumber := pageNumberPattern.MatchString(strings.TrimSpace(c.Content))
		isRepeated := len(seen[norm]) >= minRepeats
		if isPageNumber || isRepeated {
			c.SystemTags = append(c.SystemTags, SystemTag)
			tagged = append(tagged, c.ID)
		}
	}
	return tagged, nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = regexp.MustCompile(`\s+`).ReplaceAllString(s, " ")
	s = regexp.MustCompile(`\d+`).ReplaceAllString(s, "#")
	return s
}
