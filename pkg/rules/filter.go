package rules

import "github.com/apicrafter/metacrafter-go/pkg/profiler"

// FilterRequest holds the static criteria Filter applies.
type FilterRequest struct {
	Contexts        []string
	Langs           []string
	IgnoreImprecise bool
}

// Filter returns the subset of rules matching the static context/lang/
// imprecise criteria. Empty criteria impose no restriction.
func Filter(candidates []*Rule, req FilterRequest) []*Rule {
	if len(req.Contexts) == 0 && len(req.Langs) == 0 && !req.IgnoreImprecise {
		return candidates
	}
	out := make([]*Rule, 0, len(candidates))
	for _, r := range candidates {
		if req.IgnoreImprecise && r.Imprecise {
			continue
		}
		if len(req.Contexts) > 0 && !intersects(r.Context, req.Contexts) {
			continue
		}
		if len(req.Langs) > 0 && !contains(req.Langs, r.Lang) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}

// FilterDataRulesForColumn applies the dynamic, per-column filter to an
// already statically-filtered set of data rules: a length-range
// overlap test against the column's observed length range, then — for
// rules carrying a FieldGate — a check that the gate matches the column's
// short name. This ordering (static filter, then length, then field gate)
// is mandatory: a rule rejected by any stage is never evaluated against
// values.
func FilterDataRulesForColumn(candidates []*Rule, stats profiler.ColumnStats, shortName string) []*Rule {
	out := make([]*Rule, 0, len(candidates))
	for _, r := range candidates {
		if !lengthRangesOverlap(stats.MinLen, stats.MaxLen, r.MinLen, r.MaxLen) {
			continue
		}
		if r.FieldGate != nil && !r.FieldGate.Match(shortName) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// lengthRangesOverlap reports whether the column's minimum falls inside the
// rule's range or the rule's minimum falls inside the column's range; for
// well-formed ranges (min <= max) this holds exactly when the two ranges
// intersect.
func lengthRangesOverlap(colMin, colMax, ruleMin, ruleMax int) bool {
	colMinInRuleRange := colMin >= ruleMin && colMin <= ruleMax
	ruleMinInColRange := ruleMin >= colMin && ruleMin <= colMax
	return colMinInRuleRange || ruleMinInColRange
}
