package profiler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apicrafter/metacrafter-go/pkg/profiler"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

func TestAnalyzer_BooleanColumn(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	for _, v := range []bool{true, false, true, true} {
		a.Add(map[string]any{"is_active": v})
	}
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.Equal(t, "is_active", entries[0].Path)
	assert.Equal(t, profiler.FTypeBool, entries[0].Stats.FType)
}

func TestAnalyzer_NumStrLeadingZero(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	a.Add(map[string]any{"zip": "02139"})
	a.Add(map[string]any{"zip": "02140"})
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.Equal(t, profiler.FTypeNumStr, entries[0].Stats.FType)
}

func TestAnalyzer_DictDetection(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{DictShare: 50})
	values := []string{"red", "blue", "red", "red", "blue", "red"}
	for _, v := range values {
		a.Add(map[string]any{"color": v})
	}
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Stats.HasTag("dict"))
	assert.ElementsMatch(t, []string{"red", "blue"}, entries[0].Stats.DictValues)
}

func TestAnalyzer_UniqTag(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	for i, v := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_ = i
		a.Add(map[string]any{"email": v})
	}
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Stats.HasTag("uniq"))
	assert.Equal(t, 100.0, entries[0].Stats.ShareUniq)
}

func TestAnalyzer_MinMaxNumeric(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	for _, v := range []float64{1.5, -3.2, 10.0} {
		a.Add(map[string]any{"amount": v})
	}
	entries := a.Finish()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Stats.MinVal)
	require.NotNil(t, entries[0].Stats.MaxVal)
	assert.Equal(t, -3.2, *entries[0].Stats.MinVal)
	assert.Equal(t, 10.0, *entries[0].Stats.MaxVal)
}

func TestAnalyzer_SkipsSyntheticKeys(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	a.Add(map[string]any{
		"tags": []any{
			map[string]any{"0": "first", "name": "ok"},
		},
	})
	entries := a.Finish()
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "tags.name")
	assert.NotContains(t, paths, "tags.0")
}

func TestAnalyzer_NativeTimeColumns(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	a.Add(map[string]any{
		"born":    time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		"updated": time.Date(2024, 5, 1, 13, 45, 2, 0, time.UTC),
	})
	entries := a.Finish()
	require.Len(t, entries, 2)
	byPath := map[string]profiler.ColumnStats{}
	for _, e := range entries {
		byPath[e.Path] = e.Stats
	}
	assert.Equal(t, profiler.FTypeDate, byPath["born"].FType)
	assert.Equal(t, profiler.FTypeDateTime, byPath["updated"].FType)
}

func TestAnalyzer_DatePatternRemembersKey(t *testing.T) {
	m, err := rules.CompileGrammar(rules.Grammar{Seq: []rules.Grammar{
		{Repeat: &rules.Grammar{CharClass: "digit"}, Min: 4, Max: 4},
		{Literal: "-"},
		{Repeat: &rules.Grammar{CharClass: "digit"}, Min: 2, Max: 2},
		{Literal: "-"},
		{Repeat: &rules.Grammar{CharClass: "digit"}, Min: 2, Max: 2},
	}})
	require.NoError(t, err)

	a := profiler.NewAnalyzer(profiler.Options{
		DatePatterns: []profiler.DatePattern{{Name: "iso8601_date", Matcher: m}},
	})
	a.Add(map[string]any{"created": "2024-01-02"})
	a.Add(map[string]any{"created": "2024-03-04"})
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.Equal(t, profiler.FTypeDate, entries[0].Stats.FType)
	assert.Equal(t, "iso8601_date", entries[0].Stats.DatePattern)
}

func TestAnalyzer_NestedAndFlattenedColumns(t *testing.T) {
	a := profiler.NewAnalyzer(profiler.Options{})
	a.Add(map[string]any{
		"user": map[string]any{
			"email": "alice@example.com",
		},
	})
	a.Add(map[string]any{
		"user": map[string]any{
			"email": "bob@example.com",
		},
	})
	entries := a.Finish()
	require.Len(t, entries, 1)
	assert.Equal(t, "user.email", entries[0].Path)
	assert.Equal(t, profiler.FTypeStr, entries[0].Stats.FType)
}
