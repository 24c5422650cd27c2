package rules

// RuleSet holds two ordered sequences of compiled rules plus inverted
// counters by context/language, consumed by Stats().
type RuleSet struct {
	FieldRules []*Rule
	DataRules  []*Rule

	contextCounts map[string]int
	langCounts    map[string]int
	ruleIDs       map[string]bool
}

// NewRuleSet returns an empty, ready-to-populate rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		contextCounts: make(map[string]int),
		langCounts:    make(map[string]int),
		ruleIDs:       make(map[string]bool),
	}
}

// Add inserts a compiled rule into the set, unless its ID was already
// seen: rule IDs are unique, and the first definition wins.
// Returns false if the rule was a duplicate and thus not added.
func (rs *RuleSet) Add(r *Rule) bool {
	if rs.ruleIDs[r.ID] {
		return false
	}
	rs.ruleIDs[r.ID] = true

	switch r.Type {
	case TypeField:
		rs.FieldRules = append(rs.FieldRules, r)
	case TypeData:
		rs.DataRules = append(rs.DataRules, r)
	}

	for _, c := range r.Context {
		rs.contextCounts[c]++
	}
	rs.langCounts[r.Lang]++
	return true
}

// Has reports whether a rule with the given id is already compiled.
func (rs *RuleSet) Has(id string) bool {
	return rs.ruleIDs[id]
}

// Stats summarizes the compiled rule set, returned as data rather than
// printed so callers can format it however a CLI/UI wants.
type Stats struct {
	FieldRuleCount int
	DataRuleCount  int
	ByContext      map[string]int
	ByLang         map[string]int
}

// Stats returns a snapshot of this rule set's composition.
func (rs *RuleSet) Stats() Stats {
	byContext := make(map[string]int, len(rs.contextCounts))
	for k, v := range rs.contextCounts {
		byContext[k] = v
	}
	byLang := make(map[string]int, len(rs.langCounts))
	for k, v := range rs.langCounts {
		byLang[k] = v
	}
	return Stats{
		FieldRuleCount: len(rs.FieldRules),
		DataRuleCount:  len(rs.DataRules),
		ByContext:      byContext,
		ByLang:         byLang,
	}
}

// InspectedRule is the minimal public shape returned by Inspect(), used to
// validate the compile -> inspect -> compile round-trip: the set of rule
// ids and matcher kinds must be preserved across reloads.
type InspectedRule struct {
	ID        string
	Type      Type
	MatchKind MatchKind
}

// Inspect returns the id and matcher kind of every compiled rule, in
// iteration order (field rules first, then data rules).
func (rs *RuleSet) Inspect() []InspectedRule {
	out := make([]InspectedRule, 0, len(rs.FieldRules)+len(rs.DataRules))
	for _, r := range rs.FieldRules {
		out = append(out, InspectedRule{ID: r.ID, Type: r.Type, MatchKind: r.Matcher.Kind()})
	}
	for _, r := range rs.DataRules {
		out = append(out, InspectedRule{ID: r.ID, Type: r.Type, MatchKind: r.Matcher.Kind()})
	}
	return out
}
