package profiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apicrafter/metacrafter-go/pkg/flatten"
)

// DefaultDictShare is the default dictionary-share threshold percentage:
// a column whose distinct-value share is at or below it is tagged dict.
const DefaultDictShare = 10.0

// DefaultEmptyValues lists string forms treated as "no value" when
// deciding whether a dict-tagged column is actually all-empty.
var DefaultEmptyValues = map[string]struct{}{
	"":     {},
	"None": {},
	"NaN":  {},
	"-":    {},
	"N/A":  {},
}

// DefaultSampleLimit bounds how many values per column are retained, in
// arrival order, for the downstream value matcher.
const DefaultSampleLimit = 1000

// Options parameterizes an Analyzer.
type Options struct {
	DictShare   float64
	EmptyValues map[string]struct{}
	SampleLimit int
	// DatePatterns, when non-empty, lets the analyzer recognize date
	// strings via Grammar-compiled patterns, recording the matched
	// pattern's key in the column's stats.
	DatePatterns []DatePattern
}

func (o Options) sampleLimit() int {
	if o.SampleLimit > 0 {
		return o.SampleLimit
	}
	return DefaultSampleLimit
}

// DatePattern pairs a compiled grammar matcher with the pattern name a
// column's stats.DatePattern field should report when it matches.
type DatePattern struct {
	Name    string
	Matcher interface{ Match(string) bool }
}

func (o Options) dictShare() float64 {
	if o.DictShare > 0 {
		return o.DictShare
	}
	return DefaultDictShare
}

func (o Options) isEmptyValue(s string) bool {
	values := o.EmptyValues
	if values == nil {
		values = DefaultEmptyValues
	}
	_, ok := values[s]
	return ok
}

type fieldAccumulator struct {
	uniq        map[string]int
	order       []string // insertion order of distinct string values, for dict_values
	total       int
	nUniq       int
	minLen      *int
	maxLen      int
	totalLen    int
	hasDigit    int
	hasAlphas   int
	hasSpecial  int
	minVal      *float64
	maxVal      *float64
	typeCounts  map[FType]int
	dateFormats map[string]int // matched date-pattern key -> count
	samples     []any          // first N values in arrival order, for the value matcher
}

func newFieldAccumulator() *fieldAccumulator {
	return &fieldAccumulator{
		uniq:        make(map[string]int),
		typeCounts:  make(map[FType]int),
		dateFormats: make(map[string]int),
	}
}

// Analyzer streams records through pkg/flatten and accumulates per-column
// ColumnStats.
type Analyzer struct {
	opts   Options
	fields map[string]*fieldAccumulator
	order  []string
}

// NewAnalyzer returns a ready-to-use Analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{
		opts:   opts,
		fields: make(map[string]*fieldAccumulator),
	}
}

// Add feeds one record into the running statistics. Synthetic keys (a
// single character, or a leading digit) are dropped here rather than in
// the flattener, so flattening itself stays lossless.
func (a *Analyzer) Add(record map[string]any) {
	for _, pair := range flatten.Record(record) {
		if flatten.IsSyntheticKey(flatten.ShortName(pair.Path)) {
			continue
		}
		a.add(pair.Path, pair.Value)
	}
}

func (a *Analyzer) add(path string, value any) {
	fd, ok := a.fields[path]
	if !ok {
		fd = newFieldAccumulator()
		a.fields[path] = fd
		a.order = append(a.order, path)
	}

	if len(fd.samples) < a.opts.sampleLimit() {
		fd.samples = append(fd.samples, value)
	}

	valStr := stringify(value)
	prevCount := fd.uniq[valStr]
	fd.uniq[valStr] = prevCount + 1
	if prevCount == 0 {
		fd.nUniq++
		fd.order = append(fd.order, valStr)
	}
	fd.total++

	l := len(valStr)
	if fd.minLen == nil {
		fd.minLen = &l
	} else if l < *fd.minLen {
		*fd.minLen = l
	}
	if l > fd.maxLen {
		fd.maxLen = l
	}
	fd.totalLen += l

	if s, isStr := value.(string); isStr && len(s) > 0 {
		if hasDigit(s) {
			fd.hasDigit++
		}
		if hasAlpha(s) {
			fd.hasAlphas++
		}
		if hasSpecial(s) {
			fd.hasSpecial++
		}
	}

	base, dateFormat := a.guessType(value)
	fd.typeCounts[base]++
	if dateFormat != "" {
		fd.dateFormats[dateFormat]++
	}

	if base == FTypeInt || base == FTypeFloat {
		if num, ok := toFloat(value); ok {
			if fd.minVal == nil {
				min, max := num, num
				fd.minVal, fd.maxVal = &min, &max
			} else {
				if num < *fd.minVal {
					*fd.minVal = num
				}
				if num > *fd.maxVal {
					*fd.maxVal = num
				}
			}
		}
	}
}

// guessType infers a single value's base type: non-string Go types map
// directly; strings are tested digit-string (leading zero => numstr, else
// int), then float, then against any configured date patterns. The second
// return value is the matched date pattern's key, non-empty only when a
// configured pattern classified the string.
func (a *Analyzer) guessType(value any) (FType, string) {
	switch v := value.(type) {
	case nil:
		return FTypeEmpty, ""
	case bool:
		return FTypeBool, ""
	case int, int32, int64:
		return FTypeInt, ""
	case float32, float64:
		return FTypeFloat, ""
	case time.Time:
		if isDateOnly(v) {
			return FTypeDate, ""
		}
		return FTypeDateTime, ""
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return FTypeEmpty, ""
		}
		if isAllDigits(v) {
			if v[0] == '0' {
				return FTypeNumStr, ""
			}
			return FTypeInt, ""
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return FTypeFloat, ""
		}
		for _, dp := range a.opts.DatePatterns {
			if dp.Matcher.Match(v) {
				return FTypeDate, dp.Name
			}
		}
		return FTypeStr, ""
	default:
		return FTypeTyped, ""
	}
}

// isDateOnly reports whether t carries no time-of-day component: the form a
// SQL DATE column decodes to (midnight, zero nanoseconds).
func isDateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Finish computes the final ColumnStats for every column observed so far,
// in first-seen order.
func (a *Analyzer) Finish() []ColumnStatsEntry {
	out := make([]ColumnStatsEntry, 0, len(a.order))
	dictShare := a.opts.dictShare()
	for _, path := range a.order {
		fd := a.fields[path]
		shareUniq := float64(fd.nUniq) * 100.0 / float64(fd.total)
		avgLen := float64(fd.totalLen) / float64(fd.total)

		minLen := 0
		if fd.minLen != nil {
			minLen = *fd.minLen
		}

		cs := ColumnStats{
			FType:         dominantType(fd.typeCounts),
			MinLen:        minLen,
			MaxLen:        fd.maxLen,
			AvgLen:        avgLen,
			NUniq:         fd.nUniq,
			ShareUniq:     shareUniq,
			HasAnyDigit:   fd.hasDigit > 0,
			HasAnyAlpha:   fd.hasAlphas > 0,
			HasAnySpecial: fd.hasSpecial > 0,
			MinVal:        fd.minVal,
			MaxVal:        fd.maxVal,
			Total:         fd.total,
		}

		if cs.FType == FTypeDate || cs.FType == FTypeDateTime {
			cs.DatePattern = dominantDateFormat(fd.dateFormats)
		}

		if shareUniq == 100 {
			cs.Tags = append(cs.Tags, "uniq")
		}
		if shareUniq <= dictShare {
			if allValuesEmpty(fd.uniq, a.opts) {
				cs.Tags = append(cs.Tags, "empty")
			} else {
				cs.Tags = append(cs.Tags, "dict")
				cs.DictValues = append(cs.DictValues, fd.order...)
			}
		}

		out = append(out, ColumnStatsEntry{Path: path, Stats: cs, Samples: fd.samples})
	}
	return out
}

// ColumnStatsEntry pairs a flattened column path with its computed stats and
// the sampled raw values retained for the downstream matchers.
type ColumnStatsEntry struct {
	Path    string
	Stats   ColumnStats
	Samples []any
}

// dominantType drops "empty" from the type histogram; if more than one
// base type remains, the column's type is "str" (the lowest common
// denominator); otherwise it's whatever the sole surviving type is.
func dominantType(counts map[FType]int) FType {
	filtered := make(map[FType]int, len(counts))
	for t, n := range counts {
		if t == FTypeEmpty {
			continue
		}
		filtered[t] = n
	}
	if len(filtered) == 0 {
		return FTypeEmpty
	}
	if len(filtered) != 1 {
		return FTypeStr
	}
	for t := range filtered {
		return t
	}
	return FTypeStr
}

func allValuesEmpty(uniq map[string]int, opts Options) bool {
	total := 0
	empty := 0
	for val, count := range uniq {
		total += count
		if opts.isEmptyValue(val) {
			empty += count
		}
	}
	return total > 0 && empty == total
}

// dominantDateFormat picks the most frequent matched pattern key; ties break
// lexically so the same inputs always report the same format.
func dominantDateFormat(formats map[string]int) string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	best := ""
	bestCount := 0
	for _, name := range names {
		if formats[name] > bestCount {
			best = name
			bestCount = formats[name]
		}
	}
	return best
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case string:
		return v
	case time.Time:
		if isDateOnly(v) {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	for _, c := range s {
		if c >= '0' && c <= '9' {
			return true
		}
	}
	return false
}

func hasAlpha(s string) bool {
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}

func hasSpecial(s string) bool {
	for _, c := range s {
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if !isAlnum && !isSpace {
			return true
		}
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
