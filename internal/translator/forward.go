package translator

import (
	"alert-wizard/internal/engine"
	"alert-wizard/internal/wizard"
)

// Engine condition type names.
const (
	ConditionTypeFieldValue       = "field_value"
	ConditionTypeAggregationCount = "com.airbus_cyber_security.graylog.AggregationCount"
	ConditionTypeCorrelationCount = "com.airbus_cyber_security.graylog.CorrelationCount"
	ConditionTypeMessageCount     = "message_count"
)

// ConditionTypeName returns the engine condition type for a family.
// COUNT and unrecognized families map to message_count.
func ConditionTypeName(family wizard.Family) string {
	switch family {
	case wizard.FamilyStatistical:
		return ConditionTypeFieldValue
	case wizard.FamilyGroupDistinct:
		return ConditionTypeAggregationCount
	case wizard.FamilyThen, wizard.FamilyAnd:
		return ConditionTypeCorrelationCount
	default:
		return ConditionTypeMessageCount
	}
}

// ToEngineParameters builds the flat engine parameters for a wizard
// condition on streamID. Common keys are always present; family specific
// keys are added for STATISTICAL, GROUP_DISTINCT, THEN and AND. Unknown
// families get the common keys only.
func (t *Translator) ToEngineParameters(streamID string, family wizard.Family, raw wizard.Parameters) wizard.Parameters {
	c := wizard.ParseCondition(family, raw, t.logger)

	params := wizard.Parameters{
		wizard.KeyGrace:               c.Grace,
		wizard.KeyBacklog:             c.Backlog,
		wizard.KeyTime:                c.Time,
		wizard.KeyThreshold:           c.Threshold,
		wizard.KeyThresholdType:       optional(c.ThresholdType),
		wizard.KeyRepeatNotifications: c.RepeatNotifications,
	}

	switch family {
	case wizard.FamilyStatistical:
		params[wizard.KeyType] = optional(c.StatisticalFunction)
		params[wizard.KeyField] = optional(c.StatisticalField)

	case wizard.FamilyGroupDistinct:
		params[wizard.KeyGroupingFields] = c.GroupingFields
		params[wizard.KeyDistinctionFields] = c.DistinctionFields
		params[wizard.KeyComment] = c.Comment

	case wizard.FamilyThen, wizard.FamilyAnd:
		params[wizard.KeyMainThreshold] = params[wizard.KeyThreshold]
		params[wizard.KeyMainThresholdType] = params[wizard.KeyThresholdType]
		delete(params, wizard.KeyThreshold)
		delete(params, wizard.KeyThresholdType)

		params[wizard.KeyAdditionalThreshold] = c.AdditionalThreshold
		params[wizard.KeyAdditionalThresholdType] = c.AdditionalThresholdType
		params[wizard.KeyGroupingFields] = c.GroupingFields
		params[wizard.KeyAdditionalStream] = streamID
		params[wizard.KeyMessagesOrder] = messagesOrder(family)
		params[wizard.KeyComment] = c.Comment

	case wizard.FamilyCount:

	default:
		t.logger.Debug("unrecognized condition family, emitting common parameters only", "family", string(family))
	}

	return params
}

// FromNotificationConfig returns the wizard parameters of a logging
// notification.
func FromNotificationConfig(cfg engine.LoggingNotificationConfig) wizard.Parameters {
	return wizard.Parameters{
		wizard.KeySeverity:           cfg.Severity,
		wizard.KeyLogBody:            cfg.LogBody,
		wizard.KeySplitFields:        nonNil(cfg.SplitFields),
		wizard.KeyAggregationTime:    cfg.AggregationTime,
		wizard.KeyAlertTag:           cfg.AlertTag,
		wizard.KeySingleNotification: cfg.SingleMessage,
	}
}

func messagesOrder(family wizard.Family) string {
	if family == wizard.FamilyThen {
		return engine.MessagesOrderAfter
	}
	return engine.MessagesOrderAny
}

// optional maps an absent string to a nil parameter value.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
