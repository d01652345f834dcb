// Package streamrule converts stream matching rules to and from the field
// rules used by wizard alert rules.
//
// A field rule encodes inversion in the sign of its type code: -3 is the
// inverted GREATER operator. The conversion is one-to-one and keeps order.
package streamrule

import (
	"fmt"

	"alert-wizard/internal/engine"
)

// FieldRule is a normalized stream matching predicate.
type FieldRule struct {
	ID    string `json:"id" yaml:"id"`
	Field string `json:"field" yaml:"field" validate:"required"`
	Type  int    `json:"type" yaml:"type" validate:"stream_rule_type"`
	Value string `json:"value" yaml:"value"`
}

// Inverted reports whether the rule negates its operator.
func (r FieldRule) Inverted() bool {
	return r.Type < 0
}

// Operator returns the unsigned operator code.
func (r FieldRule) Operator() engine.StreamRuleType {
	if r.Type < 0 {
		return engine.StreamRuleType(-r.Type)
	}
	return engine.StreamRuleType(r.Type)
}

// Validate checks that the rule names a field and a known operator.
func (r FieldRule) Validate() error {
	if r.Field == "" {
		return fmt.Errorf("field rule %q: field is required", r.ID)
	}
	if !r.Operator().Valid() {
		return fmt.Errorf("field rule %q: unknown operator type %d", r.ID, r.Type)
	}
	return nil
}

// FromStreamRule converts a single stream rule.
func FromStreamRule(rule engine.StreamRule) FieldRule {
	code := int(rule.Type)
	if rule.Inverted {
		code = -code
	}
	return FieldRule{
		ID:    rule.ID,
		Field: rule.Field,
		Type:  code,
		Value: rule.Value,
	}
}

// ToFieldRules converts stream rules to field rules, preserving order.
func ToFieldRules(rules []engine.StreamRule) []FieldRule {
	fieldRules := make([]FieldRule, 0, len(rules))
	for _, rule := range rules {
		fieldRules = append(fieldRules, FromStreamRule(rule))
	}
	return fieldRules
}

// ToStreamRule converts a field rule back to a stream rule.
func (r FieldRule) ToStreamRule() engine.StreamRule {
	return engine.StreamRule{
		ID:       r.ID,
		Field:    r.Field,
		Type:     r.Operator(),
		Value:    r.Value,
		Inverted: r.Inverted(),
	}
}

// ToStreamRules converts field rules back to stream rules, preserving order.
func ToStreamRules(fieldRules []FieldRule) []engine.StreamRule {
	rules := make([]engine.StreamRule, 0, len(fieldRules))
	for _, r := range fieldRules {
		rules = append(rules, r.ToStreamRule())
	}
	return rules
}
