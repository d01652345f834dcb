// Package engine holds the configuration data types of the event-processing
// engine that wizard rules are translated into.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration type tags.
const (
	TypeAggregationCount  = "aggregation-count"
	TypeCorrelationCount  = "correlation-count"
	TypeAggregationSeries = "aggregation-v1"
	// TypeStatistical is the tag older deployments stored series based
	// configurations under. It decodes into AggregationSeriesConfig.
	TypeStatistical = "statistical"
)

// Correlation message orders.
const (
	MessagesOrderAfter = "AFTER"
	MessagesOrderAny   = "ANY"
)

// Config is an event processor configuration. The set of implementations is
// closed: AggregationCountConfig, CorrelationCountConfig,
// AggregationSeriesConfig and UnknownConfig.
type Config interface {
	// Type returns the tag the configuration is stored under.
	Type() string
}

// AggregationCountConfig counts matching messages in a window, optionally
// grouped and counting distinct values only.
type AggregationCountConfig struct {
	Stream              string   `json:"stream" yaml:"stream"`
	ThresholdType       string   `json:"threshold_type" yaml:"threshold_type"`
	Threshold           int      `json:"threshold" yaml:"threshold"`
	SearchWithinMs      int64    `json:"search_within_ms" yaml:"search_within_ms"`
	ExecuteEveryMs      int64    `json:"execute_every_ms" yaml:"execute_every_ms"`
	GroupingFields      []string `json:"grouping_fields" yaml:"grouping_fields"`
	DistinctionFields   []string `json:"distinction_fields" yaml:"distinction_fields"`
	Comment             string   `json:"comment" yaml:"comment"`
	SearchQuery         string   `json:"search_query" yaml:"search_query"`
	RepeatNotifications bool     `json:"repeat_notifications" yaml:"repeat_notifications"`
}

// Type implements Config.
func (c *AggregationCountConfig) Type() string { return TypeAggregationCount }

// CorrelationCountConfig correlates message counts on two streams.
type CorrelationCountConfig struct {
	Stream                  string   `json:"stream" yaml:"stream"`
	ThresholdType           string   `json:"threshold_type" yaml:"threshold_type"`
	Threshold               int      `json:"threshold" yaml:"threshold"`
	AdditionalStream        string   `json:"additional_stream" yaml:"additional_stream"`
	AdditionalThresholdType string   `json:"additional_threshold_type" yaml:"additional_threshold_type"`
	AdditionalThreshold     int      `json:"additional_threshold" yaml:"additional_threshold"`
	MessagesOrder           string   `json:"messages_order" yaml:"messages_order"`
	SearchWithinMs          int64    `json:"search_within_ms" yaml:"search_within_ms"`
	ExecuteEveryMs          int64    `json:"execute_every_ms" yaml:"execute_every_ms"`
	GroupingFields          []string `json:"grouping_fields" yaml:"grouping_fields"`
	Comment                 string   `json:"comment" yaml:"comment"`
	SearchQuery             string   `json:"search_query" yaml:"search_query"`
}

// Type implements Config.
func (c *CorrelationCountConfig) Type() string { return TypeCorrelationCount }

// SeriesFunction is an aggregation function applied by a series.
type SeriesFunction string

const (
	FunctionAvg          SeriesFunction = "avg"
	FunctionCard         SeriesFunction = "card"
	FunctionCount        SeriesFunction = "count"
	FunctionLatest       SeriesFunction = "latest"
	FunctionMax          SeriesFunction = "max"
	FunctionMin          SeriesFunction = "min"
	FunctionPercentage   SeriesFunction = "percentage"
	FunctionPercentile   SeriesFunction = "percentile"
	FunctionStdDev       SeriesFunction = "stddev"
	FunctionSum          SeriesFunction = "sum"
	FunctionSumOfSquares SeriesFunction = "sumofsquares"
	FunctionVariance     SeriesFunction = "variance"
)

var seriesFunctions = map[SeriesFunction]struct{}{
	FunctionAvg: {}, FunctionCard: {}, FunctionCount: {}, FunctionLatest: {},
	FunctionMax: {}, FunctionMin: {}, FunctionPercentage: {}, FunctionPercentile: {},
	FunctionStdDev: {}, FunctionSum: {}, FunctionSumOfSquares: {}, FunctionVariance: {},
}

// ParseSeriesFunction parses a function name case-insensitively.
func ParseSeriesFunction(name string) (SeriesFunction, bool) {
	fn := SeriesFunction(strings.ToLower(strings.TrimSpace(name)))
	_, ok := seriesFunctions[fn]
	return fn, ok
}

// String returns the upper-case name the wizard displays.
func (f SeriesFunction) String() string {
	return strings.ToUpper(string(f))
}

// Series is a single aggregation over an optional field.
type Series struct {
	ID       string         `json:"id" yaml:"id"`
	Function SeriesFunction `json:"function" yaml:"function"`
	Field    string         `json:"field,omitempty" yaml:"field,omitempty"`
}

// SeriesConditions wraps the boolean expression evaluated over the series.
type SeriesConditions struct {
	Expression *Expression `json:"expression" yaml:"expression"`
}

// AggregationSeriesConfig evaluates a condition over aggregation series. It
// serves both statistical and distinct-count rules.
type AggregationSeriesConfig struct {
	Query          string            `json:"query" yaml:"query"`
	Streams        []string          `json:"streams" yaml:"streams"`
	GroupBy        []string          `json:"group_by" yaml:"group_by"`
	Series         []Series          `json:"series" yaml:"series"`
	Conditions     *SeriesConditions `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	SearchWithinMs int64             `json:"search_within_ms" yaml:"search_within_ms"`
	ExecuteEveryMs int64             `json:"execute_every_ms" yaml:"execute_every_ms"`

	tag string
}

// Type implements Config. Configurations decoded from the legacy
// "statistical" tag keep reporting it.
func (c *AggregationSeriesConfig) Type() string {
	if c != nil && c.tag != "" {
		return c.tag
	}
	return TypeAggregationSeries
}

// Expression returns the stored condition expression, or nil.
func (c *AggregationSeriesConfig) Expression() *Expression {
	if c.Conditions == nil {
		return nil
	}
	return c.Conditions.Expression
}

// UnknownConfig carries a configuration whose tag has no known type.
type UnknownConfig struct {
	Tag    string
	Fields map[string]any
}

// Type implements Config.
func (c *UnknownConfig) Type() string {
	if c == nil {
		return ""
	}
	return c.Tag
}

type typeHeader struct {
	Type string `json:"type" yaml:"type"`
}

// UnmarshalConfig decodes a JSON or YAML document into the configuration type
// named by its "type" field. Unknown tags decode into *UnknownConfig.
func UnmarshalConfig(data []byte) (Config, error) {
	var header typeHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if header.Type == "" {
		return nil, fmt.Errorf("config has no type")
	}

	var cfg Config
	switch header.Type {
	case TypeAggregationCount:
		cfg = &AggregationCountConfig{}
	case TypeCorrelationCount:
		cfg = &CorrelationCountConfig{}
	case TypeAggregationSeries:
		cfg = &AggregationSeriesConfig{}
	case TypeStatistical:
		cfg = &AggregationSeriesConfig{tag: TypeStatistical}
	default:
		unknown := &UnknownConfig{Tag: header.Type}
		if err := yaml.Unmarshal(data, &unknown.Fields); err != nil {
			return nil, fmt.Errorf("failed to parse %s config: %w", header.Type, err)
		}
		delete(unknown.Fields, "type")
		return unknown, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", header.Type, err)
	}
	return cfg, nil
}

// MarshalConfig encodes a configuration as JSON with its "type" field set.
func MarshalConfig(cfg Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var fields map[string]any
	if unknown, ok := cfg.(*UnknownConfig); ok {
		fields = make(map[string]any, len(unknown.Fields)+1)
		for k, v := range unknown.Fields {
			fields[k] = v
		}
	} else {
		data, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s config: %w", cfg.Type(), err)
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("failed to marshal %s config: %w", cfg.Type(), err)
		}
	}

	fields["type"] = cfg.Type()
	return json.Marshal(fields)
}
