package engine_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicrafter/metacrafter-go/pkg/engine"
	"github.com/apicrafter/metacrafter-go/pkg/match"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

type sliceSource struct {
	records []map[string]any
	pos     int
}

func (s *sliceSource) Next(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.records) {
		return nil, false, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, true, nil
}

type emailMatcher struct{}

func (emailMatcher) Match(s string) bool {
	at := -1
	for i, c := range s {
		if c == '@' {
			at = i
			break
		}
	}
	return at > 0 && at < len(s)-1
}
func (emailMatcher) Kind() rules.MatchKind { return rules.MatchRegex }

func buildEmailRuleSet() *rules.RuleSet {
	rs := rules.NewRuleSet()
	rs.Add(&rules.Rule{
		ID: "data.email", DataclassKey: "email", Type: rules.TypeData,
		Context: []string{"common"}, Lang: "en",
		Matcher: emailMatcher{}, MinLen: 3, MaxLen: 100,
	})
	return rs
}

func TestScan_EmailColumn(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"email": "alice@example.com"},
		{"email": "bob@example.com"},
		{"email": "carol@example.com"},
	}}
	rs := buildEmailRuleSet()

	result, err := engine.Scan(context.Background(), "users", source, rs, engine.ScanOptions{})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, "email", result.Fields[0].Field)
	require.Len(t, result.Fields[0].Matches, 1)
	assert.Equal(t, "email", result.Fields[0].Matches[0].DataclassKey)
	assert.Equal(t, 100.0, result.Fields[0].Matches[0].Confidence)
}

func TestScan_BooleanShortCircuit(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"is_active": true},
		{"is_active": false},
		{"is_active": true},
	}}
	rs := rules.NewRuleSet() // no rules needed; intrinsic short-circuit applies

	result, err := engine.Scan(context.Background(), "users", source, rs, engine.ScanOptions{})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	require.Len(t, result.Fields[0].Matches, 1)
	assert.Equal(t, "boolean", result.Fields[0].Matches[0].DataclassKey)
	assert.Equal(t, "fieldtype", result.Fields[0].Matches[0].RuleType)
}

func TestScan_CancellationReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := &sliceSource{records: []map[string]any{{"email": "alice@example.com"}}}
	rs := buildEmailRuleSet()

	result, err := engine.Scan(ctx, "users", source, rs, engine.ScanOptions{})
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Fields)
}

type stubClassifier struct {
	dataclass  string
	confidence float64
	calls      int
}

func (s *stubClassifier) Classify(ctx context.Context, fieldName string, samples []string) (string, float64, error) {
	s.calls++
	return s.dataclass, s.confidence, nil
}

func TestScan_HybridInvokesLLMWhenNoDataRuleMatches(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"odd_field": "zzz111"},
		{"odd_field": "qqq222"},
	}}
	rs := rules.NewRuleSet() // nothing matches; hybrid falls back to the LLM
	llm := &stubClassifier{dataclass: "email", confidence: 0.8}

	result, err := engine.Scan(context.Background(), "t", source, rs, engine.ScanOptions{
		Mode: engine.ModeHybrid,
		LLM:  llm,
	})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	require.Len(t, result.Fields[0].Matches, 1)
	assert.Equal(t, "llm", result.Fields[0].Matches[0].RuleType)
	assert.Equal(t, "email", result.Fields[0].Matches[0].DataclassKey)
	assert.Equal(t, 80.0, result.Fields[0].Matches[0].Confidence)
	assert.Equal(t, 1, llm.calls)
}

func TestScan_HybridSkipsLLMWhenDataRuleConfident(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"email": "alice@example.com"},
		{"email": "bob@example.com"},
	}}
	rs := buildEmailRuleSet()
	llm := &stubClassifier{dataclass: "email", confidence: 0.8}

	result, err := engine.Scan(context.Background(), "t", source, rs, engine.ScanOptions{
		Mode:             engine.ModeHybrid,
		LLMMinConfidence: 50,
		LLM:              llm,
	})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	require.Len(t, result.Fields[0].Matches, 1)
	assert.Equal(t, "data", result.Fields[0].Matches[0].RuleType)
	assert.Equal(t, 0, llm.calls)
}

func TestScan_DateColumnShortCircuitsWithFormat(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"created": "2024-01-02"},
		{"created": "2024-03-04"},
	}}
	rs := buildEmailRuleSet()
	patterns, err := match.DefaultDatePatterns()
	require.NoError(t, err)

	result, err := engine.Scan(context.Background(), "t", source, rs, engine.ScanOptions{
		DatePatterns: patterns,
	})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	require.Len(t, result.Fields[0].Matches, 1)
	m := result.Fields[0].Matches[0]
	assert.Equal(t, "fieldtype", m.RuleType)
	assert.Equal(t, "date", m.DataclassKey)
	assert.Equal(t, "iso8601_date", m.Format)
}

func TestScan_ReportSerializationIsIdempotent(t *testing.T) {
	records := []map[string]any{
		{"email": "alice@example.com", "age": 30},
		{"email": "bob@example.com", "age": 41},
	}
	rs := buildEmailRuleSet()

	run := func() []byte {
		source := &sliceSource{records: records}
		result, err := engine.Scan(context.Background(), "users", source, rs, engine.ScanOptions{})
		require.NoError(t, err)
		body, err := json.Marshal(result)
		require.NoError(t, err)
		return body
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestScan_DatatypeURL(t *testing.T) {
	source := &sliceSource{records: []map[string]any{
		{"email": "alice@example.com"},
	}}
	rs := buildEmailRuleSet()

	result, err := engine.Scan(context.Background(), "users", source, rs, engine.ScanOptions{})
	require.NoError(t, err)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, "https://meta.apicrafter.io/class/email", result.Fields[0].DatatypeURL)
}
