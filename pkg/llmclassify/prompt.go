package llmclassify

import (
	"fmt"
	"strings"
)

// buildClassificationPrompt builds the chat prompt asking the model to
// pick a datatype_id among the retrieved entries.
func buildClassificationPrompt(fieldName string, samples []string, entries []Entry) string {
	var b strings.Builder

	b.WriteString("You are classifying a database column into a semantic data type.\n\n")
	fmt.Fprintf(&b, "Field name: %s\n", fieldName)

	if len(samples) > 0 {
		limit := samples
		if len(limit) > 10 {
			limit = limit[:10]
		}
		b.WriteString("Sample values:\n")
		for _, s := range limit {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}

	b.WriteString("\nCandidate semantic types:\n")
	limit := entries
	if len(limit) > 10 {
		limit = limit[:10]
	}
	for _, e := range limit {
		fmt.Fprintf(&b, "  - id: %s\n    name: %s\n    doc: %s\n    categories: %s\n    country: %s\n    langs: %s\n",
			e.ID, e.Name, e.Doc,
			strings.Join(e.Categories, ", "), strings.Join(e.Country, ", "), strings.Join(e.Langs, ", "))
	}

	b.WriteString("\nRespond with exactly one JSON object and nothing else:\n")
	b.WriteString(`{"datatype_id": "<one of the candidate ids above>", "confidence": <0.0-1.0>, "reason": "<short reason>"}`)
	b.WriteString("\n\nIf none of the candidates fit, respond with:\n")
	b.WriteString(`{"datatype_id": null, "confidence": 0.0, "reason": "<short reason>"}`)
	b.WriteString("\n")

	return b.String()
}

// classificationResponse is the tolerant-parsed chat model reply: raw
// JSON, or the first {...} substring of a chattier answer.
type classificationResponse struct {
	DatatypeID *string `json:"datatype_id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (r classificationResponse) clamp() classificationResponse {
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	return r
}
