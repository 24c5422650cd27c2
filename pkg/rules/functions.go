package rules

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// FuncPredicate is an external predicate `value -> bool`, the compiled form
// of a `func` rule.
type FuncPredicate func(value string) bool

// funcMatcher wraps a resolved FuncPredicate so it satisfies Matcher.
type funcMatcher struct {
	fn   FuncPredicate
	name string
}

func (m *funcMatcher) Match(s string) bool {
	return m.fn(s)
}

func (m *funcMatcher) Kind() MatchKind {
	return MatchFunc
}

// FunctionRegistry is the closed-world, statically-known table of
// `module.path:name` predicates a rule file may reference. It is populated
// at program start; a reference that is not registered fails rule
// compilation rather than triggering any dynamic lookup.
//
// Keys are the `module.path:name` strings exactly as a rule file's `rule:`
// field would write them (e.g. "metacrafter/rules:looksLikeSQLInjection").
type FunctionRegistry struct {
	funcs map[string]FuncPredicate
}

// NewFunctionRegistry returns a registry pre-populated with the builtin
// predicates every engine ships with.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{funcs: make(map[string]FuncPredicate)}
	r.Register("metacrafter/rules:looksLikeSQLInjection", looksLikeSQLInjection)
	r.Register("metacrafter/rules:looksLikeXSS", looksLikeXSS)
	return r
}

// Register adds or overwrites a named predicate. Callers extending the
// registry with their own predicates (rather than the dynamic plugin path
// in plugin.go) call this before compiling any rules.
func (r *FunctionRegistry) Register(name string, fn FuncPredicate) {
	r.funcs[name] = fn
}

// Resolve looks up a predicate by its `module.path:name` reference. Every
// function matcher must resolve at load time; an unknown reference is a
// compile error, not a runtime one.
func (r *FunctionRegistry) Resolve(ref string) (Matcher, error) {
	fn, ok := r.funcs[ref]
	if !ok {
		return nil, fmt.Errorf("unresolved function reference %q", ref)
	}
	return &funcMatcher{fn: fn, name: ref}, nil
}

// looksLikeSQLInjection uses libinjection's SQLi fingerprinting as a
// function-matcher predicate: a column whose values routinely look like
// injected SQL is worth flagging, independent of any specific dataclass.
func looksLikeSQLInjection(value string) bool {
	if len(value) == 0 {
		return false
	}
	isSQLi, _ := libinjection.IsSQLi(value)
	return isSQLi
}

// looksLikeXSS is the sibling XSS-fingerprint predicate from the same
// library, included for parity with the SQLi one; both are registered as
// built-in predicates a rule file can reference by name.
func looksLikeXSS(value string) bool {
	if len(value) == 0 {
		return false
	}
	return libinjection.IsXSS(value)
}
