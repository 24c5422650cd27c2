// Package match implements the field-name, value, and date-pattern
// matchers: the rule-evaluation stages that turn a column's stats and
// sampled values into RuleResults.
package match

import (
	"fmt"
	"time"

	"github.com/apicrafter/metacrafter-go/pkg/flatten"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

// DefaultConfidenceThreshold is the default pass threshold for data
// rules; callers may raise it.
const DefaultConfidenceThreshold = 5.0

// MatchFieldName runs every candidate field rule against a column's short
// name. Results are appended in rule-iteration order; if a
// matching rule has StopOnMatch set, evaluation of further field rules on
// this column stops immediately after recording that result.
func MatchFieldName(candidates []*rules.Rule, columnPath string) []rules.RuleResult {
	short := flatten.ShortName(columnPath)
	var out []rules.RuleResult
	for _, r := range candidates {
		if !r.Matcher.Match(short) {
			continue
		}
		out = append(out, rules.RuleResult{
			RuleID:       r.ID,
			DataclassKey: r.DataclassKey,
			Confidence:   100,
			RuleType:     "field",
			PIIKey:       r.PIIKey,
		})
		if r.StopOnMatch {
			break
		}
	}
	return out
}

// MatchValues runs every surviving data rule against a column's sampled
// values. Empty values are always excluded from the confidence
// denominator; this is fixed, not a per-call option.
func MatchValues(candidates []*rules.Rule, samples []any, confidenceThreshold float64) []rules.RuleResult {
	var out []rules.RuleResult
	for _, r := range candidates {
		result, ok := evaluateRule(r, samples, confidenceThreshold)
		if ok {
			out = append(out, result)
		}
	}
	return out
}

func evaluateRule(r *rules.Rule, samples []any, threshold float64) (rules.RuleResult, bool) {
	success, empty, total := 0, 0, len(samples)
	for _, v := range samples {
		s := stringForm(v)
		if isEmptyValue(v, s) {
			empty++
			continue
		}
		slen := len(s)
		if slen < r.MinLen || slen > r.MaxLen {
			continue
		}
		if !r.Matcher.Match(s) {
			continue
		}
		if r.Validator != nil && !r.Validator.Match(s) {
			continue
		}
		success++
	}

	denominator := total - empty // except_empty is always true
	if denominator <= 0 {
		return rules.RuleResult{}, false
	}
	confidence := float64(success) * 100.0 / float64(denominator)
	if confidence <= threshold {
		return rules.RuleResult{}, false
	}
	return rules.RuleResult{
		RuleID:       r.ID,
		DataclassKey: r.DataclassKey,
		Confidence:   confidence,
		RuleType:     "data",
		PIIKey:       r.PIIKey,
	}, true
}

func stringForm(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case time.Time:
		if h, m, s := val.Clock(); h == 0 && m == 0 && s == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isEmptyValue(v any, s string) bool {
	if v == nil {
		return true
	}
	return s == ""
}

// DatePattern names one configured date grammar tried by MatchDates.
type DatePattern struct {
	Name    string
	Matcher rules.Matcher
}

// MatchDates is the date fallback: invoked only when a column's match set is
// still empty and its ftype is str. It tries each configured date grammar
// against the sampled values the same way MatchValues scores a data rule,
// and emits a single datetime RuleResult carrying the matched pattern's name
// as Format if confidence clears the threshold.
func MatchDates(patterns []DatePattern, samples []any, threshold float64) (rules.RuleResult, bool) {
	for _, dp := range patterns {
		success, empty, total := 0, 0, len(samples)
		for _, v := range samples {
			s := stringForm(v)
			if isEmptyValue(v, s) {
				empty++
				continue
			}
			if dp.Matcher.Match(s) {
				success++
			}
		}
		denominator := total - empty
		if denominator <= 0 {
			continue
		}
		confidence := float64(success) * 100.0 / float64(denominator)
		if confidence > threshold {
			return rules.RuleResult{
				DataclassKey: "datetime",
				Confidence:   confidence,
				RuleType:     "date",
				Format:       dp.Name,
			}, true
		}
	}
	return rules.RuleResult{}, false
}
