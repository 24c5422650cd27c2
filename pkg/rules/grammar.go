package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Grammar is a small declarative pattern DSL: a tagged tree (seq, alt,
// repeat, optional, char-class, literal) that a YAML rule file encodes directly.
// The loader translates this tree into an anchored stdlib regexp; rule
// files never carry executable code.
//
// YAML shape, one of:
//
//	{literal: "foo"}
//	{char_class: "alnum"}                 # alnum | alpha | digit | hex | space
//	{repeat: <Grammar>, min: 1, max: 0}    # max 0 means unbounded
//	{seq: [<Grammar>, ...]}
//	{alt: [<Grammar>, ...]}
//	{optional: <Grammar>}
type Grammar struct {
	Literal   string    `yaml:"literal,omitempty"`
	CharClass string    `yaml:"char_class,omitempty"`
	Repeat    *Grammar  `yaml:"repeat,omitempty"`
	Min       int       `yaml:"min,omitempty"`
	Max       int       `yaml:"max,omitempty"`
	Seq       []Grammar `yaml:"seq,omitempty"`
	Alt       []Grammar `yaml:"alt,omitempty"`
	Optional  *Grammar  `yaml:"optional,omitempty"`
}

var charClassPatterns = map[string]string{
	"alnum": "[A-Za-z0-9]",
	"alpha": "[A-Za-z]",
	"digit": "[0-9]",
	"hex":   "[0-9A-Fa-f]",
	"space": `[ \t]`,
}

// toRegexFragment compiles a Grammar node into a (non-anchored) regex
// fragment. Returns an error for malformed nodes (unknown char class, empty
// node, bad repeat bounds) so the caller can surface a RuleCompileError.
func (g Grammar) toRegexFragment() (string, error) {
	switch {
	case g.Literal != "":
		return regexp.QuoteMeta(g.Literal), nil
	case g.CharClass != "":
		pat, ok := charClassPatterns[g.CharClass]
		if !ok {
			return "", fmt.Errorf("unknown char_class %q", g.CharClass)
		}
		return pat, nil
	case g.Repeat != nil:
		inner, err := g.Repeat.toRegexFragment()
		if err != nil {
			return "", err
		}
		if g.Min < 0 || g.Max < 0 || (g.Max > 0 && g.Max < g.Min) {
			return "", fmt.Errorf("invalid repeat bounds min=%d max=%d", g.Min, g.Max)
		}
		var quant string
		switch {
		case g.Min == 0 && g.Max == 0:
			quant = "*"
		case g.Max == 0:
			quant = fmt.Sprintf("{%d,}", g.Min)
		default:
			quant = fmt.Sprintf("{%d,%d}", g.Min, g.Max)
		}
		return fmt.Sprintf("(?:%s)%s", inner, quant), nil
	case g.Optional != nil:
		inner, err := g.Optional.toRegexFragment()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(?:%s)?", inner), nil
	case len(g.Seq) > 0:
		parts := make([]string, 0, len(g.Seq))
		for _, child := range g.Seq {
			frag, err := child.toRegexFragment()
			if err != nil {
				return "", err
			}
			parts = append(parts, frag)
		}
		return strings.Join(parts, ""), nil
	case len(g.Alt) > 0:
		parts := make([]string, 0, len(g.Alt))
		for _, child := range g.Alt {
			frag, err := child.toRegexFragment()
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("(?:%s)", frag))
		}
		return strings.Join(parts, "|"), nil
	default:
		return "", fmt.Errorf("empty grammar node")
	}
}

// grammarMatcher wraps a compiled, line-anchored regexp produced from a
// Grammar tree or a raw `regex:` rule.
type grammarMatcher struct {
	re   *regexp.Regexp
	kind MatchKind
}

func (m *grammarMatcher) Match(s string) bool {
	return m.re.MatchString(s)
}

func (m *grammarMatcher) Kind() MatchKind {
	return m.kind
}

// CompileGrammar compiles a Grammar tree into an anchored Matcher.
func CompileGrammar(g Grammar) (Matcher, error) {
	frag, err := g.toRegexFragment()
	if err != nil {
		return nil, fmt.Errorf("compile grammar: %w", err)
	}
	re, err := regexp.Compile("^(?:" + frag + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile grammar regex: %w", err)
	}
	return &grammarMatcher{re: re, kind: MatchGrammar}, nil
}

// CompileRegex compiles a raw regex pattern, anchoring it to the full
// string. Any existing leading ^ / trailing $ in the source pattern is
// stripped first so double-anchoring never produces "^^...$$".
func CompileRegex(pattern string) (Matcher, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	re, err := regexp.Compile("^(?:" + trimmed + ")$")
	if err != nil {
		return nil, fmt.Errorf("compile regex %q: %w", pattern, err)
	}
	return &grammarMatcher{re: re, kind: MatchRegex}, nil
}
