package llmclassify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ParsesLines(t *testing.T) {
	input := strings.NewReader(`{"id":"email","name":"Email","doc":"an email address","categories":["contact"],"country":["*"],"langs":["en"],"examples":[{"value":"a@b.com"}]}
{"id":"phone","name":"Phone number","doc":"a phone number","categories":["contact"],"country":["us"],"langs":["en"]}
`)
	entries, err := LoadRegistry(input)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "email", entries[0].ID)
	assert.Equal(t, "phone", entries[1].ID)
}

func TestLoadRegistry_SkipsBlankLines(t *testing.T) {
	input := strings.NewReader("\n{\"id\":\"email\",\"name\":\"Email\",\"doc\":\"x\"}\n\n")
	entries, err := LoadRegistry(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLoadRegistry_MalformedLineErrors(t *testing.T) {
	input := strings.NewReader("not json")
	_, err := LoadRegistry(input)
	assert.Error(t, err)
}

func TestEntry_TextualizeIncludesAllFields(t *testing.T) {
	e := Entry{
		ID: "email", Name: "Email", Doc: "an email address",
		Categories: []string{"contact"}, Country: []string{"*"}, Langs: []string{"en"},
		Examples: []Example{{Value: "a@b.com"}},
		Regexp:   `^.+@.+$`,
	}
	text := e.Textualize()
	assert.Contains(t, text, "id: email")
	assert.Contains(t, text, "a@b.com")
	assert.Contains(t, text, "regexp:")
}

func TestVectorStore_SearchReturnsClosestFirst(t *testing.T) {
	store := newVectorStore()
	store.Add("a", []float32{1, 0}, map[string]string{})
	store.Add("b", []float32{0, 1}, map[string]string{})
	store.Add("c", []float32{0.9, 0.1}, map[string]string{})

	ids := store.Search([]float32{1, 0}, 2)
	require.Len(t, ids, 2)
	assert.Equal(t, "a", ids[0])
	assert.Equal(t, "c", ids[1])
}

func TestVectorStore_ResetClearsRows(t *testing.T) {
	store := newVectorStore()
	store.Add("a", []float32{1, 0}, map[string]string{})
	store.Reset()
	assert.Empty(t, store.Search([]float32{1, 0}, 5))
}

func TestVectorStore_FilterMatchesSubstring(t *testing.T) {
	store := newVectorStore()
	store.Add("a", []float32{1, 0}, map[string]string{"country": "us,ca"})
	assert.True(t, store.filterMatches("a", map[string]string{"country": "us"}))
	assert.False(t, store.filterMatches("a", map[string]string{"country": "de"}))
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vectors[text], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestRetriever_RetrieveAppliesFilters(t *testing.T) {
	emailEntry := Entry{ID: "email", Name: "Email", Country: []string{"us"}}
	phoneEntry := Entry{ID: "phone", Name: "Phone", Country: []string{"de"}}

	store := newVectorStore()
	store.Add("email", []float32{1, 0}, emailEntry.metadata())
	store.Add("phone", []float32{1, 0}, phoneEntry.metadata())

	query := buildQueryText("contact_field", []string{"a@b.com"})
	emb := &fakeEmbedder{vectors: map[string][]float32{query: {1, 0}}}

	entries := map[string]Entry{"email": emailEntry, "phone": phoneEntry}
	r := newRetriever(store, emb, entries, 10)

	results, err := r.Retrieve(context.Background(), "contact_field", []string{"a@b.com"}, Filters{Country: "us"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "email", results[0].ID)
}

func TestBuildQueryText_LimitsToFiveSamples(t *testing.T) {
	text := buildQueryText("f", []string{"1", "2", "3", "4", "5", "6"})
	assert.NotContains(t, text, "6")
	assert.Contains(t, text, "5")
}

func TestBuildClassificationPrompt_ListsCandidatesAndAskForJSON(t *testing.T) {
	entries := []Entry{{ID: "email", Name: "Email", Doc: "an email address"}}
	prompt := buildClassificationPrompt("contact", []string{"a@b.com"}, entries)
	assert.Contains(t, prompt, "contact")
	assert.Contains(t, prompt, "email")
	assert.Contains(t, prompt, "datatype_id")
}

func TestClassificationResponse_ClampConfidence(t *testing.T) {
	r := classificationResponse{Confidence: 1.5}.clamp()
	assert.Equal(t, 1.0, r.Confidence)
	r = classificationResponse{Confidence: -0.5}.clamp()
	assert.Equal(t, 0.0, r.Confidence)
}
