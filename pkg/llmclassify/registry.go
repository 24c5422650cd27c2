// Package llmclassify implements the optional LLM classifier: a RAG
// pipeline over a semantic-type registry, used as a fallback when the rule
// engine finds nothing for a column. Registry entries are embedded into a
// vector index once; each unclassified column then retrieves its nearest
// entries and asks a chat model to pick among them.
package llmclassify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Example is one sample value (with optional description) attached to a
// registry entry.
type Example struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Entry is one semantic-type registry record: one line of the registry
// file, one candidate datatype the classifier can return.
type Entry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Doc            string    `json:"doc"`
	Categories     []string  `json:"categories"`
	Country        []string  `json:"country"`
	Langs          []string  `json:"langs"`
	Examples       []Example `json:"examples"`
	Regexp         string    `json:"regexp,omitempty"`
	Classification string    `json:"classification,omitempty"`
}

// Textualize builds the canonical textualization embedded at index-build
// time: id, name, doc, categories, countries, languages, examples, and
// regexp, one labeled line each.
func (e Entry) Textualize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", e.ID)
	fmt.Fprintf(&b, "name: %s\n", e.Name)
	fmt.Fprintf(&b, "doc: %s\n", e.Doc)
	fmt.Fprintf(&b, "categories: %s\n", strings.Join(e.Categories, ", "))
	fmt.Fprintf(&b, "countries: %s\n", strings.Join(e.Country, ", "))
	fmt.Fprintf(&b, "languages: %s\n", strings.Join(e.Langs, ", "))
	if len(e.Examples) > 0 {
		values := make([]string, len(e.Examples))
		for i, ex := range e.Examples {
			values[i] = ex.Value
		}
		fmt.Fprintf(&b, "examples: %s\n", strings.Join(values, ", "))
	}
	if e.Regexp != "" {
		fmt.Fprintf(&b, "regexp: %s\n", e.Regexp)
	}
	return b.String()
}

// metadata normalizes an entry's filterable fields to lowercased
// comma-separated strings for the vector store's post-filter substring
// matching.
func (e Entry) metadata() map[string]string {
	return map[string]string{
		"categories": strings.Join(lower(e.Categories), ","),
		"country":    strings.Join(lower(e.Country), ","),
		"langs":      strings.Join(lower(e.Langs), ","),
	}
}

func lower(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// LoadRegistry parses a line-oriented sequence of Entry JSON records.
// Blank lines are skipped; the first malformed line
// fails the whole load, since a corrupt registry can't safely be partially
// indexed.
func LoadRegistry(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("registry line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return entries, nil
}
