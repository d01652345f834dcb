package wizard

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"alert-wizard/internal/engine"
	"alert-wizard/internal/streamrule"
)

// Rule is a wizard alert rule as the front end submits it and as rule files
// store it.
type Rule struct {
	Title               string                  `yaml:"title" json:"title" validate:"required"`
	Severity            string                  `yaml:"severity" json:"severity" validate:"severity"`
	Description         string                  `yaml:"description,omitempty" json:"description,omitempty"`
	ConditionType       Family                  `yaml:"condition_type" json:"condition_type" validate:"family"`
	ConditionParameters Parameters              `yaml:"condition_parameters" json:"condition_parameters"`
	Stream              *RuleStream             `yaml:"stream" json:"stream" validate:"required"`
	SecondStream        *RuleStream             `yaml:"second_stream,omitempty" json:"second_stream,omitempty"`
	Notification        *NotificationParameters `yaml:"notification_parameters,omitempty" json:"notification_parameters,omitempty"`
}

// RuleStream is the stream a rule watches, described by its field rules.
type RuleStream struct {
	ID           string                 `yaml:"id,omitempty" json:"id,omitempty"`
	MatchingType string                 `yaml:"matching_type" json:"matching_type" validate:"oneof=AND OR"`
	FieldRules   []streamrule.FieldRule `yaml:"field_rule" json:"field_rule" validate:"dive"`
}

// StreamRules converts the field rules to engine stream rules.
func (s *RuleStream) StreamRules() []engine.StreamRule {
	if s == nil {
		return []engine.StreamRule{}
	}
	return streamrule.ToStreamRules(s.FieldRules)
}

// NotificationParameters configures the logging notification of a rule.
type NotificationParameters struct {
	LogBody         string   `yaml:"log_body,omitempty" json:"log_body,omitempty"`
	SplitFields     []string `yaml:"split_fields,omitempty" json:"split_fields,omitempty"`
	AggregationTime int      `yaml:"aggregation_time" json:"aggregation_time" validate:"gte=0"`
	AlertTag        string   `yaml:"alert_tag,omitempty" json:"alert_tag,omitempty"`
	SingleMessage   bool     `yaml:"single_notification" json:"single_notification"`
}

// Validate validates the rule with the package validator.
func (r *Rule) Validate() error {
	return defaultValidator.ValidateRule(r)
}

// Condition coerces the rule's condition parameters and attaches its
// severity.
func (r *Rule) Condition(logger *slog.Logger) Condition {
	c := ParseCondition(r.ConditionType, r.ConditionParameters, logger)
	c.Severity = r.Severity
	return c
}

// NotificationConfig builds the engine notification of the rule.
func (r *Rule) NotificationConfig() engine.LoggingNotificationConfig {
	cfg := engine.LoggingNotificationConfig{
		Severity:    r.Severity,
		SplitFields: []string{},
	}
	if n := r.Notification; n != nil {
		cfg.LogBody = n.LogBody
		cfg.AggregationTime = n.AggregationTime
		cfg.AlertTag = n.AlertTag
		cfg.SingleMessage = n.SingleMessage
		if n.SplitFields != nil {
			cfg.SplitFields = append(cfg.SplitFields, n.SplitFields...)
		}
	}
	return cfg
}

// legacyFunctions maps statistical function names of older exports to their
// current names.
var legacyFunctions = map[string]string{
	"MEAN": "AVG",
}

// NormalizeImported returns copies of rules with legacy statistical function
// names replaced. The input is not modified.
func NormalizeImported(rules []*Rule) []*Rule {
	out := make([]*Rule, 0, len(rules))
	for _, rule := range rules {
		if rule == nil {
			continue
		}
		normalized := *rule
		normalized.ConditionParameters = rule.ConditionParameters.Clone()
		if fn, ok := normalized.ConditionParameters[KeyType].(string); ok {
			if current, legacy := legacyFunctions[fn]; legacy {
				normalized.ConditionParameters[KeyType] = current
			}
		}
		out = append(out, &normalized)
	}
	return out
}

// RuleDefaults fills what a rule file leaves out.
type RuleDefaults struct {
	Severity     string
	MatchingType string
	Parameters   Parameters
}

// Apply sets the defaults on empty fields of rule. Condition parameters
// present in the rule are kept.
func (d RuleDefaults) Apply(rule *Rule) {
	if rule == nil {
		return
	}
	if rule.Severity == "" {
		rule.Severity = d.Severity
	}
	for _, stream := range []*RuleStream{rule.Stream, rule.SecondStream} {
		if stream != nil && stream.MatchingType == "" {
			stream.MatchingType = d.MatchingType
		}
	}
	if len(d.Parameters) == 0 {
		return
	}
	if rule.ConditionParameters == nil {
		rule.ConditionParameters = Parameters{}
	}
	for key, value := range d.Parameters {
		if _, ok := rule.ConditionParameters[key]; !ok {
			rule.ConditionParameters[key] = value
		}
	}
}

// ParseRule parses a single rule from YAML or JSON bytes.
func ParseRule(data []byte) (*Rule, error) {
	return ParseRuleWith(data, RuleDefaults{})
}

// ParseRuleWith parses a single rule and applies defaults before
// validating it.
func ParseRuleWith(data []byte, defaults RuleDefaults) (*Rule, error) {
	var rule Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("failed to parse rule: %w", err)
	}
	defaults.Apply(&rule)
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule %q: %w", rule.Title, err)
	}
	return &rule, nil
}

// ParseRules parses a list of rules. A document holding a single rule
// mapping is accepted as a list of one.
func ParseRules(data []byte) ([]*Rule, error) {
	return ParseRulesWith(data, RuleDefaults{})
}

// ParseRulesWith is ParseRules with defaults applied to every rule.
func ParseRulesWith(data []byte, defaults RuleDefaults) ([]*Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("no rules found")
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		rule, err := ParseRuleWith(data, defaults)
		if err != nil {
			return nil, err
		}
		return []*Rule{rule}, nil
	}

	var rules []*Rule
	if err := root.Decode(&rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i, rule := range rules {
		defaults.Apply(rule)
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return rules, nil
}
