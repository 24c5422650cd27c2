package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDatePatterns_Compile(t *testing.T) {
	patterns, err := DefaultDatePatterns()
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	for _, p := range patterns {
		assert.NotEmpty(t, p.Name)
		assert.NotNil(t, p.Matcher)
	}
}

func TestMatchDates_ISODate(t *testing.T) {
	patterns, err := DefaultDatePatterns()
	require.NoError(t, err)

	samples := []any{"2023-01-15", "2023-06-30", "2022-12-01"}
	result, ok := MatchDates(patterns, samples, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, "datetime", result.DataclassKey)
	assert.Equal(t, "iso8601_date", result.Format)
}

func TestMatchDates_USDateSlash(t *testing.T) {
	patterns, err := DefaultDatePatterns()
	require.NoError(t, err)

	samples := []any{"1/5/2023", "12/31/2022", "6/1/2023"}
	result, ok := MatchDates(patterns, samples, DefaultConfidenceThreshold)
	require.True(t, ok)
	assert.Equal(t, "us_date_slash", result.Format)
}

func TestMatchDates_NoMatchForNonDates(t *testing.T) {
	patterns, err := DefaultDatePatterns()
	require.NoError(t, err)

	samples := []any{"hello", "world", "foo bar"}
	_, ok := MatchDates(patterns, samples, DefaultConfidenceThreshold)
	assert.False(t, ok)
}
