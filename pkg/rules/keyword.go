package rules

import (
	"errors"
	"strings"
)

// keywordMatcher is a lowercase literal set, matched exactly and
// case-insensitively: the compiled form of a `text` rule.
type keywordMatcher struct {
	set map[string]struct{}
}

func (m *keywordMatcher) Match(s string) bool {
	_, ok := m.set[strings.ToLower(s)]
	return ok
}

func (m *keywordMatcher) Kind() MatchKind {
	return MatchText
}

// CompileKeywords splits a CSV keyword list, lowercases it, and returns the
// matcher together with the min/max keyword length, which callers use to
// derive a keyword rule's length bounds.
func CompileKeywords(csv string) (Matcher, int, int, error) {
	parts := strings.Split(csv, ",")
	set := make(map[string]struct{}, len(parts))
	minLen, maxLen := -1, 0
	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(p))
		if kw == "" {
			continue
		}
		set[kw] = struct{}{}
		l := len(kw)
		if minLen == -1 || l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
	}
	if len(set) == 0 {
		return nil, 0, 0, errEmptyKeywordList
	}
	return &keywordMatcher{set: set}, minLen, maxLen, nil
}

var errEmptyKeywordList = errors.New("text rule has no keywords")
