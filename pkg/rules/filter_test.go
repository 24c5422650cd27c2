package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicrafter/metacrafter-go/pkg/profiler"
)

func mustKeywordMatcher(t *testing.T, csv string) Matcher {
	t.Helper()
	m, _, _, err := CompileKeywords(csv)
	require.NoError(t, err)
	return m
}

func newRule(id string, context []string, lang string, imprecise bool) *Rule {
	return &Rule{
		ID:        id,
		Type:      TypeField,
		Context:   context,
		Lang:      lang,
		Imprecise: imprecise,
		Matcher:   &keywordMatcher{set: map[string]struct{}{"x": {}}},
	}
}

func TestFilter_NoCriteriaReturnsAllCandidates(t *testing.T) {
	candidates := []*Rule{
		newRule("a", []string{"pii"}, "en", false),
		newRule("b", []string{"finance"}, "de", true),
	}
	out := Filter(candidates, FilterRequest{})
	assert.Equal(t, candidates, out)
}

func TestFilter_ByContext(t *testing.T) {
	candidates := []*Rule{
		newRule("pii_rule", []string{"pii"}, "en", false),
		newRule("finance_rule", []string{"finance"}, "en", false),
	}
	out := Filter(candidates, FilterRequest{Contexts: []string{"pii"}})
	require.Len(t, out, 1)
	assert.Equal(t, "pii_rule", out[0].ID)
}

func TestFilter_ByContext_MultiContextRuleMatchesOnAnyOverlap(t *testing.T) {
	candidates := []*Rule{
		newRule("combo", []string{"pii", "finance"}, "en", false),
	}
	out := Filter(candidates, FilterRequest{Contexts: []string{"finance"}})
	require.Len(t, out, 1)
}

func TestFilter_ByLang(t *testing.T) {
	candidates := []*Rule{
		newRule("en_rule", []string{"general"}, "en", false),
		newRule("fr_rule", []string{"general"}, "fr", false),
	}
	out := Filter(candidates, FilterRequest{Langs: []string{"fr"}})
	require.Len(t, out, 1)
	assert.Equal(t, "fr_rule", out[0].ID)
}

func TestFilter_IgnoreImprecise(t *testing.T) {
	candidates := []*Rule{
		newRule("precise", []string{"general"}, "en", false),
		newRule("imprecise", []string{"general"}, "en", true),
	}
	out := Filter(candidates, FilterRequest{IgnoreImprecise: true})
	require.Len(t, out, 1)
	assert.Equal(t, "precise", out[0].ID)
}

func TestFilter_CombinesAllCriteria(t *testing.T) {
	candidates := []*Rule{
		newRule("keep", []string{"pii"}, "en", false),
		newRule("wrong_context", []string{"finance"}, "en", false),
		newRule("wrong_lang", []string{"pii"}, "fr", false),
		newRule("too_imprecise", []string{"pii"}, "en", true),
	}
	out := Filter(candidates, FilterRequest{
		Contexts:        []string{"pii"},
		Langs:           []string{"en"},
		IgnoreImprecise: true,
	})
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].ID)
}

func dataRule(id string, minLen, maxLen int, gate Matcher) *Rule {
	return &Rule{
		ID:        id,
		Type:      TypeData,
		Matcher:   &keywordMatcher{set: map[string]struct{}{"x": {}}},
		MinLen:    minLen,
		MaxLen:    maxLen,
		FieldGate: gate,
	}
}

func TestFilterDataRulesForColumn_LengthOverlap_ColumnMinInsideRuleRange(t *testing.T) {
	candidates := []*Rule{dataRule("email", 5, 50, nil)}
	stats := profiler.ColumnStats{MinLen: 8, MaxLen: 20}
	out := FilterDataRulesForColumn(candidates, stats, "email")
	assert.Len(t, out, 1)
}

func TestFilterDataRulesForColumn_LengthOverlap_RuleMinInsideColumnRange(t *testing.T) {
	// column's min_len (2) is outside the rule's range [4, 4], but the rule's
	// min_len (4) falls inside the column's observed range [2, 10].
	candidates := []*Rule{dataRule("long_code", 4, 4, nil)}
	stats := profiler.ColumnStats{MinLen: 2, MaxLen: 10}
	out := FilterDataRulesForColumn(candidates, stats, "code")
	assert.Len(t, out, 1, "rule.min_len (4) falls inside the column's [min_len,max_len] range")
}

func TestFilterDataRulesForColumn_LengthOverlap_NoOverlapExcludes(t *testing.T) {
	candidates := []*Rule{dataRule("short_only", 1, 3, nil)}
	stats := profiler.ColumnStats{MinLen: 20, MaxLen: 40}
	out := FilterDataRulesForColumn(candidates, stats, "description")
	assert.Empty(t, out)
}

func TestFilterDataRulesForColumn_FieldGate_Blocks(t *testing.T) {
	gate := mustKeywordMatcher(t, "email,e-mail")
	candidates := []*Rule{dataRule("gated", 1, 100, gate)}
	stats := profiler.ColumnStats{MinLen: 5, MaxLen: 30}

	out := FilterDataRulesForColumn(candidates, stats, "phone_number")
	assert.Empty(t, out, "field gate doesn't match the column's short name, so the rule must be excluded")
}

func TestFilterDataRulesForColumn_FieldGate_Passes(t *testing.T) {
	gate := mustKeywordMatcher(t, "email,e-mail")
	candidates := []*Rule{dataRule("gated", 1, 100, gate)}
	stats := profiler.ColumnStats{MinLen: 5, MaxLen: 30}

	out := FilterDataRulesForColumn(candidates, stats, "email")
	require.Len(t, out, 1)
	assert.Equal(t, "gated", out[0].ID)
}

func TestFilterDataRulesForColumn_NoFieldGateAlwaysPasses(t *testing.T) {
	candidates := []*Rule{dataRule("ungated", 1, 100, nil)}
	stats := profiler.ColumnStats{MinLen: 5, MaxLen: 30}

	out := FilterDataRulesForColumn(candidates, stats, "anything")
	require.Len(t, out, 1)
}
