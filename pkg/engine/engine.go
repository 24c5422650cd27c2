// Package engine orchestrates a full scan: record flattening and profiling,
// rule filtering, field-name/value/date-pattern matching, optional LLM
// fallback classification, and report assembly. Per-column matching has no
// cross-column dependencies, so a plain semaphore-bounded goroutine pool is
// enough to fan it out.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
	"github.com/apicrafter/metacrafter-go/pkg/match"
	"github.com/apicrafter/metacrafter-go/pkg/profiler"
	"github.com/apicrafter/metacrafter-go/pkg/report"
	"github.com/apicrafter/metacrafter-go/pkg/rules"
)

// RecordSource is a lazy, single-pass sequence of mapping records, the
// contract every connector presents to the engine. Next returns
// (nil, false, nil) at end of stream.
type RecordSource interface {
	Next(ctx context.Context) (map[string]any, bool, error)
}

// Mode selects how much of the rule engine vs. the LLM classifier runs:
// rules (default), hybrid, or llm.
type Mode string

const (
	ModeRules  Mode = "rules"
	ModeHybrid Mode = "hybrid"
	ModeLLM    Mode = "llm"
)

// LLMClassifier is the narrow interface the engine needs from pkg/llmclassify
// (kept here to avoid an import cycle; pkg/llmclassify implements it).
type LLMClassifier interface {
	Classify(ctx context.Context, fieldName string, samples []string) (dataclass string, confidence float64, err error)
}

// ScanOptions parameterizes a single scan.
type ScanOptions struct {
	Contexts            []string
	Langs               []string
	IgnoreImprecise     bool
	DictShare           float64
	SampleLimit         int
	ConfidenceThreshold float64
	DatePatterns        []match.DatePattern
	Mode                Mode
	LLMMinConfidence    float64
	LLM                 LLMClassifier
	// Concurrency bounds how many columns are matched in parallel within
	// this table. Defaults to runtime.NumCPU().
	Concurrency int
	Logger      *zap.Logger
}

func (o ScanOptions) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.NumCPU()
}

func (o ScanOptions) confidenceThreshold() float64 {
	if o.ConfidenceThreshold > 0 {
		return o.ConfidenceThreshold
	}
	return match.DefaultConfidenceThreshold
}

func (o ScanOptions) mode() Mode {
	if o.Mode == "" {
		return ModeRules
	}
	return o.Mode
}

func (o ScanOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// Scan runs a complete scan of source against ruleSet and assembles a
// ScanReport for table: profile, filter, match, classify, assemble.
//
// Cancellation: ctx is checked at every record boundary during
// profiling and before every per-column matching unit; a cancelled scan
// returns the partial report covering columns fully processed so far,
// together with the context's error.
func Scan(ctx context.Context, table string, source RecordSource, ruleSet *rules.RuleSet, opts ScanOptions) (*report.ScanReport, error) {
	scanID := uuid.New().String()
	logger := opts.logger().With(zap.String("table", table), zap.String("scan_id", scanID))
	logger.Info("scan started")

	entries, err := profile(ctx, source, opts)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before any column finished profiling: the partial
			// report is simply empty.
			return &report.ScanReport{
				ScanID: scanID,
				Table:  table,
				Stats:  map[string]profiler.ColumnStats{},
				Diagnostics: []apperrors.Diagnostic{{
					Kind:    apperrors.KindCancelled,
					Message: "scan cancelled during profiling",
					Table:   table,
				}},
			}, err
		}
		return nil, err
	}

	staticFieldRules := rules.Filter(ruleSet.FieldRules, rules.FilterRequest{
		Contexts:        opts.Contexts,
		Langs:           opts.Langs,
		IgnoreImprecise: opts.IgnoreImprecise,
	})
	staticDataRules := rules.Filter(ruleSet.DataRules, rules.FilterRequest{
		Contexts:        opts.Contexts,
		Langs:           opts.Langs,
		IgnoreImprecise: opts.IgnoreImprecise,
	})

	results := make([]report.ColumnResult, len(entries))
	statsMap := make(map[string]profiler.ColumnStats, len(entries))

	sem := make(chan struct{}, opts.concurrency())
	var wg sync.WaitGroup
	var mu sync.Mutex

	launched := 0
	var cancelErr error
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		launched = i + 1

		entry := entry
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			col := matchColumn(ctx, entry, staticFieldRules, staticDataRules, opts)
			mu.Lock()
			results[i] = col
			statsMap[entry.Path] = entry.Stats
			mu.Unlock()
		}()
	}
	wg.Wait()

	// On cancellation, the report covers only columns fully launched before
	// the cancellation was observed: columns beyond `launched` never ran and
	// are dropped rather than emitted as zero-value results.
	scanReport := &report.ScanReport{
		ScanID: scanID,
		Table:  table,
		Fields: results[:launched],
		Stats:  statsMap,
	}

	if cancelErr != nil {
		logger.Warn("scan cancelled", zap.Int("columns_completed", launched), zap.Int("columns_total", len(entries)))
		scanReport.Diagnostics = append(scanReport.Diagnostics, apperrors.Diagnostic{
			Kind:    apperrors.KindCancelled,
			Message: fmt.Sprintf("scan cancelled after %d of %d columns", launched, len(entries)),
			Table:   table,
		})
		return scanReport, cancelErr
	}
	logger.Info("scan finished", zap.Int("columns", len(entries)))
	return scanReport, nil
}

func profile(ctx context.Context, source RecordSource, opts ScanOptions) ([]profiler.ColumnStatsEntry, error) {
	datePatterns := make([]profiler.DatePattern, 0, len(opts.DatePatterns))
	for _, dp := range opts.DatePatterns {
		datePatterns = append(datePatterns, profiler.DatePattern{Name: dp.Name, Matcher: dp.Matcher})
	}
	analyzer := profiler.NewAnalyzer(profiler.Options{
		DictShare:    opts.DictShare,
		SampleLimit:  opts.SampleLimit,
		DatePatterns: datePatterns,
	})
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, ok, err := source.Next(ctx)
		if err != nil {
			return nil, apperrors.New(apperrors.KindProfiling, "read record", false, err)
		}
		if !ok {
			break
		}
		analyzer.Add(record)
	}
	return analyzer.Finish(), nil
}

// matchColumn runs the field-name, value, date-pattern, and LLM stages for
// one column and assembles its ColumnResult, honoring the intrinsic
// fieldtype short-circuit and the classification-mode gating.
func matchColumn(ctx context.Context, entry profiler.ColumnStatsEntry, fieldRules, dataRules []*rules.Rule, opts ScanOptions) report.ColumnResult {
	dataclass, shortCircuits := report.IntrinsicDataclass(entry.Stats.FType)
	if shortCircuits {
		var fieldtypeMatches []rules.RuleResult
		if dataclass != "" {
			intrinsic := report.IntrinsicFieldtypeResult(dataclass)
			intrinsic.Format = entry.Stats.DatePattern
			fieldtypeMatches = []rules.RuleResult{intrinsic}
		}
		return report.AssembleColumn(entry.Path, entry.Stats, fieldtypeMatches, nil, nil, nil, nil)
	}

	mode := opts.mode()

	var fieldMatches, dataMatches []rules.RuleResult
	if mode != ModeLLM {
		fieldMatches = match.MatchFieldName(fieldRules, entry.Path)

		shortName := lastSegment(entry.Path)
		candidateData := rules.FilterDataRulesForColumn(dataRules, entry.Stats, shortName)
		dataMatches = match.MatchValues(candidateData, entry.Samples, opts.confidenceThreshold())
	}

	var datePattern *rules.RuleResult
	if mode != ModeLLM && len(fieldMatches) == 0 && len(dataMatches) == 0 && entry.Stats.FType == profiler.FTypeStr {
		if result, ok := match.MatchDates(opts.DatePatterns, entry.Samples, opts.confidenceThreshold()); ok {
			datePattern = &result
		}
	}

	var llmMatch *rules.RuleResult
	if opts.LLM != nil && shouldInvokeLLM(mode, dataMatches, opts.LLMMinConfidence) {
		if result := classifyWithLLM(ctx, opts.LLM, entry); result != nil {
			llmMatch = result
		}
	}

	return report.AssembleColumn(entry.Path, entry.Stats, nil, fieldMatches, dataMatches, datePattern, llmMatch)
}

// shouldInvokeLLM gates the LLM classifier by classification mode: in
// hybrid mode it runs only for columns with no data-rule match above
// llmMinConfidence.
func shouldInvokeLLM(mode Mode, dataMatches []rules.RuleResult, llmMinConfidence float64) bool {
	switch mode {
	case ModeLLM:
		return true
	case ModeHybrid:
		if len(dataMatches) == 0 {
			return true
		}
		best := 0.0
		for _, m := range dataMatches {
			if m.Confidence > best {
				best = m.Confidence
			}
		}
		return best <= llmMinConfidence
	default:
		return false
	}
}

func classifyWithLLM(ctx context.Context, classifier LLMClassifier, entry profiler.ColumnStatsEntry) *rules.RuleResult {
	samples := make([]string, 0, 5)
	for _, v := range entry.Samples {
		if len(samples) >= 5 {
			break
		}
		if v == nil {
			continue
		}
		samples = append(samples, fmt.Sprintf("%v", v))
	}

	dataclass, confidence, err := classifier.Classify(ctx, lastSegment(entry.Path), samples)
	if err != nil || dataclass == "" {
		return nil
	}
	return &rules.RuleResult{
		DataclassKey: dataclass,
		Confidence:   confidence * 100,
		RuleType:     "llm",
	}
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}

// SortColumnsByPath orders a report's fields lexically; Scan preserves
// first-seen path order by default, but some callers (CLI output, tests)
// want a stable lexical order instead.
func SortColumnsByPath(fields []report.ColumnResult) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
}
