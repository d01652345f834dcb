package wizard

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"alert-wizard/internal/engine"
)

// Validator checks wizard rules using struct tags plus the custom tags
// "severity", "family" and "stream_rule_type".
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the custom tags registered.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return IsValidSeverity(fl.Field().String())
	})
	v.RegisterValidation("family", func(fl validator.FieldLevel) bool {
		return Family(fl.Field().String()).Known()
	})
	// Field rule codes carry inversion in their sign.
	v.RegisterValidation("stream_rule_type", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() < reflect.Int || field.Kind() > reflect.Int64 {
			return false
		}
		code := field.Int()
		if code < 0 {
			code = -code
		}
		return engine.StreamRuleType(code).Valid()
	})

	return &Validator{validate: v}
}

// ValidateRule validates a rule and its streams.
func (v *Validator) ValidateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	if err := v.validate.Struct(rule); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if rule.ConditionType.IsCorrelation() && rule.SecondStream == nil {
		return fmt.Errorf("second_stream is required for %s rules", rule.ConditionType)
	}
	return nil
}

var defaultValidator = NewValidator()
