package match

import (
	"fmt"

	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

// DefaultDatePatterns returns the built-in date-pattern list, expressed
// as grammar trees and compiled through rules.CompileGrammar like any
// field or data rule, so date detection shares exactly one anchoring and
// matching implementation with the rest of the engine.
//
// Patterns are tried in order by MatchDates; the first one to clear the
// confidence threshold wins, so more specific formats (4-digit year first)
// are listed ahead of more permissive ones.
func DefaultDatePatterns() ([]DatePattern, error) {
	specs := []struct {
		name    string
		grammar rules.Grammar
	}{
		{
			name: "iso8601_date",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digits(4), literal("-"), digits(2), literal("-"), digits(2),
			}},
		},
		{
			name: "iso8601_datetime",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digits(4), literal("-"), digits(2), literal("-"), digits(2),
				{Alt: []rules.Grammar{literal("T"), literal(" ")}},
				digits(2), literal(":"), digits(2), literal(":"), digits(2),
				{Optional: &rules.Grammar{Seq: []rules.Grammar{literal("."), digitsRange(1, 6)}}},
				{Optional: &rules.Grammar{Alt: []rules.Grammar{
					literal("Z"),
					{Seq: []rules.Grammar{
						{Alt: []rules.Grammar{literal("+"), literal("-")}},
						digits(2), literal(":"), digits(2),
					}},
				}}},
			}},
		},
		{
			name: "us_date_slash",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digitsRange(1, 2), literal("/"), digitsRange(1, 2), literal("/"), digits(4),
			}},
		},
		{
			name: "eu_date_dot",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digitsRange(1, 2), literal("."), digitsRange(1, 2), literal("."), digits(4),
			}},
		},
		{
			name: "eu_date_dash",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digitsRange(1, 2), literal("-"), digitsRange(1, 2), literal("-"), digits(4),
			}},
		},
		{
			name: "rfc3339_date_compact",
			grammar: rules.Grammar{Seq: []rules.Grammar{digits(8)}},
		},
		{
			name: "time_hms",
			grammar: rules.Grammar{Seq: []rules.Grammar{
				digits(2), literal(":"), digits(2),
				{Optional: &rules.Grammar{Seq: []rules.Grammar{literal(":"), digits(2)}}},
			}},
		},
	}

	patterns := make([]DatePattern, 0, len(specs))
	for _, s := range specs {
		m, err := rules.CompileGrammar(s.grammar)
		if err != nil {
			return nil, fmt.Errorf("compile date pattern %s: %w", s.name, err)
		}
		patterns = append(patterns, DatePattern{Name: s.name, Matcher: m})
	}
	return patterns, nil
}

func literal(s string) rules.Grammar { return rules.Grammar{Literal: s} }

func digits(n int) rules.Grammar {
	return rules.Grammar{Repeat: &rules.Grammar{CharClass: "digit"}, Min: n, Max: n}
}

func digitsRange(min, max int) rules.Grammar {
	return rules.Grammar{Repeat: &rules.Grammar{CharClass: "digit"}, Min: min, Max: max}
}
