// Package report assembles per-column match results and stats into the
// canonical scan report.
package report

import (
	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/profiler"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

// ColumnResult is one column's final, ordered match set.
type ColumnResult struct {
	Field       string             `json:"field"`
	FType       profiler.FType     `json:"ftype"`
	Tags        []string           `json:"tags,omitempty"`
	Matches     []rules.RuleResult `json:"matches"`
	DatatypeURL string             `json:"datatype_url,omitempty"`
}

// ScanReport is the terminal output of a scan.
//
// ScanID identifies one Scan invocation in logs. It is excluded from the
// serialized report: the same record sequence must serialize to the same
// bytes on every run, and a fresh UUID per scan would break that.
type ScanReport struct {
	ScanID string                          `json:"-"`
	Table  string                          `json:"table"`
	Fields []ColumnResult                  `json:"fields"`
	Stats  map[string]profiler.ColumnStats `json:"stats"`

	// Diagnostics summarizes non-fatal errors hit during the scan; a caller
	// gets a non-empty report even under partial failure.
	Diagnostics []apperrors.Diagnostic `json:"diagnostics,omitempty"`
}

// AssembleColumn builds one ColumnResult from the ordered match groups a
// scan produced for a single column. Ordering is mandatory: fieldtype
// intrinsics first, then field-name matches, then data matches (in
// rule-set iteration order), then the date-pattern match, then the LLM
// match. Callers pass only the groups that apply to a given column (empty
// slices for stages that didn't run or found nothing).
func AssembleColumn(field string, stats profiler.ColumnStats, fieldtype, fieldName, data []rules.RuleResult, datePattern, llm *rules.RuleResult) ColumnResult {
	var matches []rules.RuleResult
	matches = append(matches, fieldtype...)
	matches = append(matches, fieldName...)
	matches = append(matches, data...)
	if datePattern != nil {
		matches = append(matches, *datePattern)
	}
	if llm != nil {
		matches = append(matches, *llm)
	}

	var datatypeURL string
	if len(matches) > 0 {
		datatypeURL = matches[0].ClassURL()
	}

	return ColumnResult{
		Field:       field,
		FType:       stats.FType,
		Tags:        stats.Tags,
		Matches:     matches,
		DatatypeURL: datatypeURL,
	}
}

// IntrinsicFieldtypeResult builds the `fieldtype`-rule-type RuleResult the
// profiler's type histogram short-circuits to for bool/date/datetime
// columns.
func IntrinsicFieldtypeResult(dataclass string) rules.RuleResult {
	return rules.RuleResult{
		DataclassKey: dataclass,
		Confidence:   100,
		RuleType:     "fieldtype",
	}
}

// IntrinsicDataclass maps a profiler FType to the dataclass name an
// intrinsic fieldtype result reports, and whether this ftype triggers the
// short-circuit at all. Bool, float, date, and datetime do; float
// short-circuits with zero data-rule matches rather than an intrinsic
// match of its own name.
func IntrinsicDataclass(ftype profiler.FType) (dataclass string, shortCircuits bool) {
	switch ftype {
	case profiler.FTypeBool:
		return "boolean", true
	case profiler.FTypeDate:
		return "date", true
	case profiler.FTypeDateTime:
		return "datetime", true
	case profiler.FTypeFloat:
		// float short-circuits data-rule evaluation but contributes no
		// intrinsic match of its own.
		return "", true
	default:
		return "", false
	}
}
