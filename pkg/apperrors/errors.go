// Package apperrors defines the error taxonomy shared across the
// classification engine: a handful of sentinel errors for simple cases, and
// a structured, classified error type for the kinds that need retry
// decisions or caller-facing diagnostics (rule compilation, data sourcing,
// profiling/matching, LLM calls).
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple, unambiguous conditions.
var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyRuleSet    = errors.New("no rules compiled")
	ErrCancelled       = errors.New("scan cancelled")
	ErrUnsupportedType = errors.New("unsupported value type")
)

// Kind classifies a structured Error into one of the engine's taxonomy
// buckets. It is a classification, not a Go type — every Kind is carried
// by the single Error type below.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindRuleCompile   Kind = "rule_compile"
	KindDataSource    Kind = "data_source"
	KindProfiling     Kind = "profiling"
	KindMatching      Kind = "matching"
	KindLLMProvider   Kind = "llm_provider"
	KindCancelled     Kind = "cancelled"
)

// Error is a structured, classified error. It carries enough context for a
// caller to decide whether to retry, abort, or skip-and-continue, and
// implements IsRetryable() so pkg/retry can check retryability without
// importing this package's callers.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Cause     error

	// Context, populated when known.
	File   string // rule file path, for KindRuleCompile
	RuleID string // rule id, for KindRuleCompile / KindMatching
	Table  string // table/collection name, for KindDataSource / KindProfiling
	Field  string // column path, for KindProfiling / KindMatching
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	for _, part := range []struct {
		label string
		value string
	}{
		{"file", e.File},
		{"rule", e.RuleID},
		{"table", e.Table},
		{"field", e.Field},
	} {
		if part.value != "" {
			msg += fmt.Sprintf(" %s=%s", part.label, part.value)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// New constructs a structured Error of the given kind.
func New(kind Kind, message string, retryable bool, cause error) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable, Cause: cause}
}

// WithField returns a shallow copy of e with Field set, for attaching
// per-column context to a profiling/matching error without mutating the
// original.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// WithTable returns a shallow copy of e with Table set.
func (e *Error) WithTable(table string) *Error {
	cp := *e
	cp.Table = table
	return &cp
}

// WithRule returns a shallow copy of e with RuleID set.
func (e *Error) WithRule(ruleID string) *Error {
	cp := *e
	cp.RuleID = ruleID
	return &cp
}

// Diagnostic is a non-fatal error surfaced alongside a partial result:
// the engine returns results for every column it finished plus a list of
// these, so callers get a usable report even under partial failure.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Table   string `json:"table,omitempty"`
	Field   string `json:"field,omitempty"`
	RuleID  string `json:"rule_id,omitempty"`
}

// FromError builds a Diagnostic from any error, extracting structured
// context when the error is (or wraps) an *Error.
func FromError(err error) Diagnostic {
	var se *Error
	if errors.As(err, &se) {
		return Diagnostic{
			Kind:    se.Kind,
			Message: se.Error(),
			Table:   se.Table,
			Field:   se.Field,
			RuleID:  se.RuleID,
		}
	}
	return Diagnostic{Kind: "unknown", Message: err.Error()}
}
