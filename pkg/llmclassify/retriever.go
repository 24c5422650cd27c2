package llmclassify

import (
	"context"
	"fmt"
	"strings"
)

// Filters narrows retrieval by the registry entry's country/lang/category
// metadata.
type Filters struct {
	Country    string
	Lang       string
	Categories []string
}

func (f Filters) empty() bool {
	return f.Country == "" && f.Lang == "" && len(f.Categories) == 0
}

// retriever builds a query embedding from a field's name and sample values
// and finds the nearest registry entries.
type retriever struct {
	store    *vectorStore
	embedder embedder
	entries  map[string]Entry
	topK     int
}

func newRetriever(store *vectorStore, emb embedder, entries map[string]Entry, topK int) *retriever {
	if topK <= 0 {
		topK = 10
	}
	return &retriever{store: store, embedder: emb, entries: entries, topK: topK}
}

// Retrieve returns up to topK entries most relevant to fieldName/samples.
// With filters present it over-fetches three times as many neighbors,
// post-filters by metadata, and returns the first topK survivors.
func (r *retriever) Retrieve(ctx context.Context, fieldName string, samples []string, filters Filters) ([]Entry, error) {
	query := buildQueryText(fieldName, samples)
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	n := r.topK
	categoryFilter := ""
	if !filters.empty() {
		n = r.topK * 3
		if len(filters.Categories) > 0 {
			categoryFilter = filters.Categories[0]
		}
	}

	metaFilters := map[string]string{
		"country":    filters.Country,
		"langs":      filters.Lang,
		"categories": categoryFilter,
	}

	ids := r.store.Search(embedding, n)
	var out []Entry
	for _, id := range ids {
		if len(out) >= r.topK {
			break
		}
		if !filters.empty() && !r.store.filterMatches(id, metaFilters) {
			continue
		}
		if entry, ok := r.entries[id]; ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// buildQueryText combines the field name with up to 5 comma-joined sample
// values.
func buildQueryText(fieldName string, samples []string) string {
	limit := samples
	if len(limit) > 5 {
		limit = limit[:5]
	}
	return fmt.Sprintf("Field: %s\nValues: %s", fieldName, strings.Join(limit, ", "))
}
