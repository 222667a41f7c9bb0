// Package search ranks memories against a free-text query.
//
// Every searchable field of a memory (title, category, content and the text
// of its metadata) is fuzzy-matched against the query. A field scores by how
// tightly the query characters cluster in it, weighted by the field; the
// memory keeps its best field score.
package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/tgienger/atm/internal/models"
)

// Defaults and bounds for Options
const (
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultThreshold = 0.3
)

// ErrInvalidQuery is returned for an empty query or out-of-range options
var ErrInvalidQuery = errors.New("invalid search query")

// Field names reported in Result.Field
const (
	FieldTitle    = "title"
	FieldCategory = "category"
	FieldContent  = "content"
	FieldMetadata = "metadata"
)

var fieldWeights = map[string]float64{
	FieldTitle:    1.0,
	FieldCategory: 0.7,
	FieldContent:  0.6,
	FieldMetadata: 0.5,
}

// Options narrows and bounds a search
type Options struct {
	Category  string
	Limit     int     // 0 means DefaultLimit
	Threshold float64 // minimum score in [0, 1]; 0 keeps every match
}

// Result is one ranked memory
type Result struct {
	Memory models.Memory `json:"memory"`
	Score  float64       `json:"score"`
	Field  string        `json:"matchedField"`
}

type entry struct {
	memory int
	field  string
	text   string
}

// corpus exposes every searchable field as a fuzzy.Source
type corpus []entry

func (c corpus) String(i int) string { return c[i].text }
func (c corpus) Len() int            { return len(c) }

// Memories returns the memories matching query, best first. Ties keep the
// order of the input slice.
func Memories(memories []models.Memory, query string, opts Options) ([]Result, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v is outside 0-1", ErrInvalidQuery, opts.Threshold)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit %d is outside 1-%d", ErrInvalidQuery, limit, MaxLimit)
	}

	var c corpus
	for i, m := range memories {
		if opts.Category != "" && m.Category != opts.Category {
			continue
		}
		c = append(c, entry{memory: i, field: FieldTitle, text: strings.ToLower(m.Title)})
		if m.Category != "" {
			c = append(c, entry{memory: i, field: FieldCategory, text: strings.ToLower(m.Category)})
		}
		c = append(c, entry{memory: i, field: FieldContent, text: strings.ToLower(m.Content)})
		if text := metadataText(m.Metadata); text != "" {
			c = append(c, entry{memory: i, field: FieldMetadata, text: strings.ToLower(text)})
		}
	}

	best := map[int]*Result{}
	for _, match := range fuzzy.FindFrom(query, c) {
		e := c[match.Index]
		score := fieldWeights[e.field] * compactness(query, e.text, match.MatchedIndexes)
		if r, ok := best[e.memory]; ok && r.Score >= score {
			continue
		}
		best[e.memory] = &Result{Memory: memories[e.memory], Score: score, Field: e.field}
	}

	order := make([]int, 0, len(best))
	for i, r := range best {
		if r.Score >= opts.Threshold {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		ra, rb := best[order[a]], best[order[b]]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		return order[a] < order[b]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	results := make([]Result, len(order))
	for i, idx := range order {
		results[i] = *best[idx]
		results[i].Memory = results[i].Memory.Clone()
	}
	return results, nil
}

// compactness is 1 for a contiguous occurrence and shrinks as the matched
// characters spread out
func compactness(query, text string, matched []int) float64 {
	if strings.Contains(text, query) {
		return 1
	}
	if len(matched) == 0 {
		return 0
	}
	first, last := matched[0], matched[len(matched)-1]
	span := utf8.RuneCountInString(text[first:]) - utf8.RuneCountInString(text[last:]) + 1
	return float64(len(matched)) / float64(span)
}

// metadataText flattens metadata into one string, keys sorted
func metadataText(meta map[string]models.MetadataValue) string {
	if len(meta) == 0 {
		return ""
	}
	return models.ObjectValue(meta).Text()
}
