// Package config loads EngineConfig from a YAML file overlaid with
// environment variables via cleanenv struct tags. Secrets (LLM API keys)
// are env-only, never accepted from YAML, keeping credentials out of
// config files.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// EngineConfig parameterizes a metacrafter-go scan: rule sources, sampling
// and confidence knobs, and the optional LLM classifier.
type EngineConfig struct {
	// RulePaths lists directories (searched recursively) containing rule
	// definition files.
	RulePaths []string `yaml:"rule_paths" env:"RULE_PATHS" env-separator:","`

	// Contexts/Langs/Countries restrict which rules are loaded and, at scan
	// time, which are considered.
	Contexts  []string `yaml:"contexts" env:"CONTEXTS" env-separator:","`
	Langs     []string `yaml:"langs" env:"LANGS" env-separator:","`
	Countries []string `yaml:"countries" env:"COUNTRIES" env-separator:","`

	IgnoreImprecise bool `yaml:"ignore_imprecise" env:"IGNORE_IMPRECISE" env-default:"false"`

	// AllowPluginFunctions opts into the dynamic WASM function-matcher
	// path; rules referencing plugins fail to compile unless this is set.
	AllowPluginFunctions bool `yaml:"allow_plugin_functions" env:"ALLOW_PLUGIN_FUNCTIONS" env-default:"false"`

	// SampleLimit bounds how many values per column are profiled/matched.
	SampleLimit int `yaml:"sample_limit" env:"SAMPLE_LIMIT" env-default:"1000"`

	// DictShareThreshold is the percent threshold at or below which a
	// column is tagged `dict`.
	DictShareThreshold float64 `yaml:"dict_share_threshold" env:"DICT_SHARE_THRESHOLD" env-default:"10"`

	// ConfidenceThreshold is the minimum data-rule confidence to keep a
	// match.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD" env-default:"5"`

	// Concurrency bounds per-column matching fan-out within one table
	// scan; zero means "use runtime.NumCPU()".
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY" env-default:"0"`

	// Mode selects the scan-level classification mode: rules, hybrid, or
	// llm.
	Mode string `yaml:"mode" env:"MODE" env-default:"rules"`

	// LLMMinConfidence is the hybrid-mode cutoff: the LLM classifier is
	// invoked for a column whose best data-rule confidence is at or below it.
	LLMMinConfidence float64 `yaml:"llm_min_confidence" env:"LLM_MIN_CONFIDENCE" env-default:"50"`

	LLM LLMConfig `yaml:"llm"`
}

// LLMConfig configures the optional LLM classifier.
type LLMConfig struct {
	RegistryPath string `yaml:"registry_path" env:"LLM_REGISTRY_PATH" env-default:""`

	EmbeddingProvider string `yaml:"embedding_provider" env:"LLM_EMBEDDING_PROVIDER" env-default:"openai"`
	EmbeddingModel    string `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingEndpoint string `yaml:"embedding_endpoint" env:"LLM_EMBEDDING_ENDPOINT" env-default:""`

	ChatProvider string `yaml:"chat_provider" env:"LLM_CHAT_PROVIDER" env-default:"openai"`
	ChatModel    string `yaml:"chat_model" env:"LLM_CHAT_MODEL" env-default:"gpt-4o-mini"`
	ChatEndpoint string `yaml:"chat_endpoint" env:"LLM_CHAT_ENDPOINT" env-default:""`

	TopK       int `yaml:"top_k" env:"LLM_TOP_K" env-default:"10"`
	MaxRetries int `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`

	// Secrets: env-only, deliberately absent a yaml tag.
	EmbeddingAPIKey string `yaml:"-" env:"OPENAI_API_KEY" env-default:""`
	ChatAPIKey      string `yaml:"-" env:"LLM_CHAT_API_KEY" env-default:""`
}

// Load reads path (if non-empty; a missing file is an error) and overlays
// environment variables on top, following cleanenv's precedence: env
// overrides YAML for shared fields. With an empty path only environment
// variables are read.
func Load(path string) (*EngineConfig, error) {
	var cfg EngineConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}
