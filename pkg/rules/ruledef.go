package rules

// ruleFile is the top-level shape of one rule definition file: group
// metadata plus a map of rule entries.
type ruleFile struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Context     string             `yaml:"context"`
	Lang        string             `yaml:"lang"`
	CountryCode yamlStringOrSlice  `yaml:"country_code"`
	Rules       map[string]ruleDef `yaml:"rules"`
}

// ruleDef is one entry under a rule file's `rules:` map.
type ruleDef struct {
	Key    string `yaml:"key"`
	PIIKey string `yaml:"piikey"`
	Type   Type   `yaml:"type"`

	Match MatchKind `yaml:"match"`
	Rule  string    `yaml:"rule"`

	// Grammar is populated instead of Rule when Match == ppr and the YAML
	// encodes a structured Grammar tree rather than a string expression.
	Grammar *Grammar `yaml:"grammar"`

	MinLen   *int `yaml:"minlen"`
	MaxLen   *int `yaml:"maxlen"`
	Priority int  `yaml:"priority"`

	Validator string `yaml:"validator"`

	FieldRule      string    `yaml:"fieldrule"`
	FieldRuleMatch MatchKind `yaml:"fieldrulematch"`

	Imprecise   int  `yaml:"imprecise"`
	StopOnMatch bool `yaml:"stop_on_match"`
}

// yamlStringOrSlice accepts either a bare scalar or a YAML sequence for
// country_code; rule files use both forms.
type yamlStringOrSlice []string

func (s *yamlStringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		if single != "" {
			*s = []string{single}
		}
		return nil
	}
	var multi []string
	if err := unmarshal(&multi); err != nil {
		return err
	}
	*s = multi
	return nil
}
