package wizard

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Condition is the typed form of a wizard rule's condition parameters.
//
// Durations are in minutes. Optional strings use "" for absent.
type Condition struct {
	Family                  Family
	Threshold               float64
	ThresholdType           string
	Time                    int64
	Grace                   int64
	Backlog                 int64
	RepeatNotifications     bool
	AdditionalThreshold     float64
	AdditionalThresholdType string
	GroupingFields          []string
	DistinctionFields       []string
	StatisticalFunction     string
	StatisticalField        string
	Severity                string
	Comment                 string
}

// NewCondition returns a condition of the given family with every default
// applied.
func NewCondition(family Family) Condition {
	c := Condition{
		Family:                  family,
		Threshold:               DefaultThreshold,
		Time:                    DefaultTime,
		Grace:                   DefaultGrace,
		Backlog:                 DefaultBacklog,
		AdditionalThreshold:     DefaultAdditionalThreshold,
		AdditionalThresholdType: DefaultAdditionalThresholdType,
	}
	c.Normalize()
	return c
}

// Normalize replaces nil sequences with empty ones.
func (c *Condition) Normalize() {
	if c.GroupingFields == nil {
		c.GroupingFields = []string{}
	}
	if c.DistinctionFields == nil {
		c.DistinctionFields = []string{}
	}
}

// ParseCondition coerces raw wizard parameters into a Condition. Absent keys
// take their defaults; values that cannot be coerced are logged and replaced
// by the default as well.
func ParseCondition(family Family, raw Parameters, logger *slog.Logger) Condition {
	if logger == nil {
		logger = slog.Default()
	}
	p := coercer{raw: raw, logger: logger.With("family", string(family))}

	c := NewCondition(family)
	c.Grace = p.intValue(KeyGrace, DefaultGrace)
	c.Backlog = p.intValue(KeyBacklog, DefaultBacklog)
	c.Time = p.intValue(KeyTime, DefaultTime)
	c.Threshold = p.floatValue(KeyThreshold, DefaultThreshold)
	c.ThresholdType = p.stringValue(KeyThresholdType)
	c.RepeatNotifications = p.boolValue(KeyRepeatNotifications, false)

	switch family {
	case FamilyStatistical:
		c.StatisticalFunction = p.stringValue(KeyType)
		c.StatisticalField = p.stringValue(KeyField)
		c.GroupingFields = p.stringsValue(KeyGroupingFields)
	case FamilyGroupDistinct:
		c.GroupingFields = p.stringsValue(KeyGroupingFields)
		c.DistinctionFields = p.stringsValue(KeyDistinctionFields)
		c.Comment = CommentAlertWizard
	case FamilyThen, FamilyAnd:
		c.AdditionalThreshold = p.floatValue(KeyAdditionalThreshold, DefaultAdditionalThreshold)
		c.AdditionalThresholdType = p.stringValue(KeyAdditionalThresholdType)
		if c.AdditionalThresholdType == "" {
			c.AdditionalThresholdType = DefaultAdditionalThresholdType
		}
		c.GroupingFields = p.stringsValue(KeyGroupingFields)
		c.Comment = CommentAlertWizard
	}

	c.Normalize()
	return c
}

type coercer struct {
	raw    Parameters
	logger *slog.Logger
}

func (p coercer) lookup(key string) (any, bool) {
	v, ok := p.raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (p coercer) invalid(key string, v any) {
	p.logger.Warn("ignoring invalid condition parameter", "key", key, "value", v)
}

func (p coercer) intValue(key string, def int64) int64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, ok := toInt64(v)
	if !ok {
		p.invalid(key, v)
		return def
	}
	if f, ok := toFloat64(v); ok && f != math.Trunc(f) {
		p.logger.Warn("truncating fractional condition parameter", "key", key, "value", v, "used", n)
	}
	return n
}

func (p coercer) floatValue(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, ok := toFloat64(v)
	if !ok {
		p.invalid(key, v)
		return def
	}
	return f
}

func (p coercer) boolValue(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	p.invalid(key, v)
	return def
}

func (p coercer) stringValue(key string) string {
	v, ok := p.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.invalid(key, v)
		return ""
	}
	return s
}

func (p coercer) stringsValue(key string) []string {
	v, ok := p.lookup(key)
	if !ok {
		return []string{}
	}
	out, ok := toStrings(v)
	if !ok {
		p.invalid(key, v)
		return []string{}
	}
	return out
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// toInt64 accepts any numeric value; fractional values are truncated.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	f, ok := toFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
