package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/apicrafter/metacrafter-go/pkg/apperrors"
)

// FilterConfig narrows which rule files get loaded at all: a file is
// skipped entirely if its lang/context/country isn't in the corresponding
// preset set (when that preset is non-empty).
type FilterConfig struct {
	Langs     []string
	Contexts  []string
	Countries []string
}

func (f FilterConfig) allowLang(lang string) bool {
	return len(f.Langs) == 0 || contains(f.Langs, lang)
}

func (f FilterConfig) allowContext(context string) bool {
	return len(f.Contexts) == 0 || contains(f.Contexts, context)
}

func (f FilterConfig) allowCountries(countries []string) bool {
	if len(f.Countries) == 0 {
		return true
	}
	if len(countries) == 0 {
		return true
	}
	for _, c := range countries {
		if contains(f.Countries, c) {
			return true
		}
	}
	return false
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// Compiler loads rule definition files and compiles them into a RuleSet.
type Compiler struct {
	logger   *zap.Logger
	preset   FilterConfig
	funcs    *FunctionRegistry
	plugins  *PluginLoader
	ruleSet  *RuleSet
	fileErrs []apperrors.Diagnostic
}

// NewCompiler returns a Compiler that will only retain rule files matching
// preset, resolving func: references against funcs (and, if provided,
// plugin: references against plugins).
func NewCompiler(preset FilterConfig, funcs *FunctionRegistry, plugins *PluginLoader, logger *zap.Logger) *Compiler {
	if funcs == nil {
		funcs = NewFunctionRegistry()
	}
	if plugins == nil {
		plugins = NewPluginLoader(false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		logger:  logger,
		preset:  preset,
		funcs:   funcs,
		plugins: plugins,
		ruleSet: NewRuleSet(),
	}
}

// RuleSet returns the rule set compiled so far.
func (c *Compiler) RuleSet() *RuleSet {
	return c.ruleSet
}

// Diagnostics returns non-fatal per-file compile errors recorded while
// loading: a broken file is logged and skipped, not fatal, as long as at
// least one file loads.
func (c *Compiler) Diagnostics() []apperrors.Diagnostic {
	return c.fileErrs
}

// LoadPath recursively loads every *.yaml file under root.
func (c *Compiler) LoadPath(root string) error {
	filesLoaded := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".yaml") {
			return nil
		}
		if loadErr := c.LoadFile(path); loadErr != nil {
			c.logger.Warn("rule file skipped", zap.String("file", path), zap.Error(loadErr))
			c.fileErrs = append(c.fileErrs, apperrors.FromError(loadErr))
			return nil
		}
		filesLoaded++
		return nil
	})
	if err != nil {
		return apperrors.New(apperrors.KindConfiguration, "walk rule path", false, err)
	}
	if filesLoaded == 0 && len(c.fileErrs) > 0 {
		return apperrors.New(apperrors.KindRuleCompile, "all rule files failed to load", false, nil)
	}
	return nil
}

// LoadFile loads and compiles one rule definition file.
func (c *Compiler) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		readErr := apperrors.New(apperrors.KindConfiguration, "read rule file", false, err)
		readErr.File = path
		return readErr
	}

	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return apperrors.New(apperrors.KindRuleCompile, "parse rule file", false, err)
	}

	if !c.preset.allowLang(rf.Lang) || !c.preset.allowContext(rf.Context) || !c.preset.allowCountries(rf.CountryCode) {
		return nil
	}

	for _, ruleID := range sortedRuleIDs(rf.Rules) {
		if c.ruleSet.Has(ruleID) {
			continue // first wins
		}
		rule, err := c.compileRule(ruleID, rf.Rules[ruleID], rf)
		if err != nil {
			return fmt.Errorf("rule %q in %s: %w", ruleID, path, err)
		}
		c.ruleSet.Add(rule)
	}
	return nil
}

// sortedRuleIDs returns a file's rule keys in lexical order. yaml.v3
// decodes a mapping node into a plain Go map, which loses the file's
// declaration order and, worse, has a randomized range order — ranging
// over it directly would make rule-iteration order (and so match ordering)
// differ from run to run over the identical rule file. Sorting gives every
// load of the same file the same compile order.
func sortedRuleIDs(rules map[string]ruleDef) []string {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Compiler) compileRule(ruleID string, def ruleDef, rf ruleFile) (*Rule, error) {
	if def.Key == "" {
		return nil, apperrors.New(apperrors.KindRuleCompile, "missing dataclass_key", false, nil).WithRule(ruleID)
	}
	if def.Type != TypeField && def.Type != TypeData {
		return nil, apperrors.New(apperrors.KindRuleCompile, fmt.Sprintf("unknown rule type %q", def.Type), false, nil).WithRule(ruleID)
	}

	matcher, minLen, maxLen, err := c.compileMatcher(def.Match, def.Rule, def.Grammar)
	if err != nil {
		return nil, apperrors.New(apperrors.KindRuleCompile, err.Error(), false, err).WithRule(ruleID)
	}

	if def.MinLen != nil {
		minLen = *def.MinLen
	} else if minLen == 0 {
		minLen = DefaultMinLen
	}
	if def.MaxLen != nil {
		maxLen = *def.MaxLen
	} else if maxLen == 0 {
		maxLen = DefaultMaxLen
	}
	if minLen > maxLen {
		return nil, apperrors.New(apperrors.KindRuleCompile, fmt.Sprintf("min_len %d > max_len %d", minLen, maxLen), false, nil).WithRule(ruleID)
	}

	var validator Matcher
	if def.Validator != "" {
		validator, err = c.funcs.Resolve(def.Validator)
		if err != nil {
			return nil, apperrors.New(apperrors.KindRuleCompile, "unresolved validator", false, err).WithRule(ruleID)
		}
	}

	var fieldGate Matcher
	if def.FieldRule != "" {
		if def.FieldRuleMatch != MatchGrammar && def.FieldRuleMatch != MatchText {
			return nil, apperrors.New(apperrors.KindRuleCompile, "fieldrulematch must be ppr or text", false, nil).WithRule(ruleID)
		}
		fieldGate, _, _, err = c.compileMatcher(def.FieldRuleMatch, def.FieldRule, nil)
		if err != nil {
			return nil, apperrors.New(apperrors.KindRuleCompile, "bad fieldrule", false, err).WithRule(ruleID)
		}
	}

	contexts := strings.Split(rf.Context, ".")
	if def.PIIKey != "" && !contains(contexts, "pii") {
		contexts = append(contexts, "pii")
	}

	return &Rule{
		ID:               ruleID,
		DataclassKey:     def.Key,
		PIIKey:           def.PIIKey,
		Type:             def.Type,
		Context:          contexts,
		Lang:             rf.Lang,
		CountryCode:      rf.CountryCode,
		Imprecise:        def.Imprecise != 0,
		Priority:         def.Priority,
		Matcher:          matcher,
		MinLen:           minLen,
		MaxLen:           maxLen,
		Validator:        validator,
		FieldGate:        fieldGate,
		GroupName:        rf.Name,
		GroupDescription: rf.Description,
		StopOnMatch:      def.StopOnMatch,
	}, nil
}

// compileMatcher compiles a single match/rule pair and returns the matcher
// plus any min/max length it implies (non-zero only for text matches).
func (c *Compiler) compileMatcher(kind MatchKind, expr string, grammar *Grammar) (Matcher, int, int, error) {
	switch kind {
	case MatchGrammar:
		if grammar != nil {
			m, err := CompileGrammar(*grammar)
			return m, 0, 0, err
		}
		// expr holds a regex-equivalent fallback when no structured Grammar
		// tree is given; the loader never evaluates code from a rule file.
		m, err := CompileRegex(expr)
		return m, 0, 0, err
	case MatchRegex:
		m, err := CompileRegex(expr)
		return m, 0, 0, err
	case MatchText:
		m, minLen, maxLen, err := CompileKeywords(expr)
		return m, minLen, maxLen, err
	case MatchFunc:
		if strings.HasPrefix(expr, "plugin:") {
			parts := strings.SplitN(strings.TrimPrefix(expr, "plugin:"), ":", 2)
			if len(parts) != 2 {
				return nil, 0, 0, fmt.Errorf("malformed plugin reference %q, want plugin:<path>:<export>", expr)
			}
			m, err := c.plugins.Resolve(context.Background(), parts[0], parts[1])
			return m, 0, 0, err
		}
		m, err := c.funcs.Resolve(expr)
		return m, 0, 0, err
	default:
		return nil, 0, 0, fmt.Errorf("unknown match kind %q", kind)
	}
}
